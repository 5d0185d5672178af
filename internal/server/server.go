// Package server hosts form sessions over HTTP: a script-free HTML form, a
// JSON API and a websocket channel that pushes every state change.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mcncl/jsonform/internal/clipboard"
	"github.com/mcncl/jsonform/internal/config"
	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/session"
)

// Server routes HTTP requests to form sessions.
type Server struct {
	log      *zap.Logger
	mgr      *session.Manager
	clip     *clipboard.Service
	cfg      config.ServerConfig
	now      func() time.Time
	upgrader websocket.Upgrader
	router   *gin.Engine
}

// New builds the router. clip may be nil, in which case the copy and paste
// endpoints answer 501.
func New(log *zap.Logger, mgr *session.Manager, clip *clipboard.Service, cfg config.ServerConfig) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		log:  log.Named("server"),
		mgr:  mgr,
		clip: clip,
		cfg:  cfg,
		now:  time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if cfg.Dev {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	if !s.cfg.Dev && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(s.log.Named("gin")).Writer()
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(requestID())
	if s.cfg.Dev {
		origins := s.cfg.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:3000"}
		}
		r.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"X-Request-ID", "Content-Type"},
			ExposeHeaders: []string{"X-Request-ID", "Location", "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}))
	} else {
		r.Use(secure.New(secure.Config{
			FrameDeny:             true,
			ContentTypeNosniff:    true,
			BrowserXssFilter:      true,
			ReferrerPolicy:        "same-origin",
			ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'",
			IsDevelopment:         false,
		}))
	}
	r.Use(accessLog(s.log.Named("http")))
	r.Use(maxBody(s.cfg.MaxBodyBytes))

	r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	// HTML form
	r.GET("/", s.newPage)
	pages := r.Group("/forms/:id", s.loadSession)
	{
		pages.GET("", s.showPage)
		pages.POST("/field", s.postField)
		pages.POST("/add", s.postAdd)
		pages.POST("/remove", s.postRemove)
		pages.POST("/text", s.postText)
		pages.POST("/copy", s.postCopy)
		pages.POST("/paste", s.postPaste)
		pages.GET("/export", s.exportFile)
	}

	// JSON API
	r.POST("/api/forms", s.createForm)
	api := r.Group("/api/forms/:id", s.loadSession)
	{
		api.GET("", s.getForm)
		api.DELETE("", s.deleteForm)
		api.PUT("/text", s.putText)
		api.PATCH("/field", s.patchField)
		api.POST("/items", s.addItem)
		api.DELETE("/items", s.removeItem)
		api.POST("/copy", s.copyText)
		api.POST("/paste", s.pasteText)
		api.GET("/export", s.exportFile)
		api.GET("/ws", s.live)
	}

	return r
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpsrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("running HTTP server", zap.String("addr", addr))
		errc <- httpsrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpsrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server closed")
	return nil
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var appErr *errors.AppError
	switch {
	case stderrors.Is(err, errors.ErrSessionNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, session.ErrClosed):
		return http.StatusGone
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.IsUserFacing(err):
		return http.StatusUnprocessableEntity
	case stderrors.As(err, &appErr):
		switch appErr.Type {
		case errors.ErrorTypePath, errors.ErrorTypeIndex:
			return http.StatusBadRequest
		case errors.ErrorTypeClipboard:
			return http.StatusBadGateway
		case errors.ErrorTypeStore:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

// fail records err on the request and writes a JSON error body.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"message": errors.UserFriendlyError(err)})
}
