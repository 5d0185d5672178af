package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/export"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/session"
)

type textRequest struct {
	Text string `json:"text"`
}

type fieldRequest struct {
	Path  path.Path `json:"path"`
	Value string    `json:"value"`
}

type itemRequest struct {
	Path  path.Path `json:"path"`
	Index int       `json:"index"`
}

// bind decodes the JSON body into v.
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return errors.NewInputError("invalid request body", err)
	}
	return nil
}

// respond writes the state, or the error together with the state it left
// behind so clients can show field-level errors.
func (s *Server) respond(c *gin.Context, st session.State, err error) {
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"message": errors.UserFriendlyError(err), "state": st})
		return
	}
	c.JSON(http.StatusOK, st)
}

// createForm handles POST /api/forms. An empty body starts from the
// configured initial document.
func (s *Server) createForm(c *gin.Context) {
	var req textRequest
	if c.Request.ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			s.fail(c, err)
			return
		}
	}

	sess, err := s.mgr.Create(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	st, err := sess.State(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/forms/%s", sess.ID()))
	c.JSON(http.StatusCreated, st)
}

// getForm handles GET /api/forms/{id}.
func (s *Server) getForm(c *gin.Context) {
	st, err := sessionOf(c).State(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// deleteForm handles DELETE /api/forms/{id}.
func (s *Server) deleteForm(c *gin.Context) {
	if err := s.mgr.Delete(c.Request.Context(), sessionOf(c).ID()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// putText handles PUT /api/forms/{id}/text.
func (s *Server) putText(c *gin.Context) {
	var req textRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	st, err := sessionOf(c).SetText(c.Request.Context(), req.Text)
	s.respond(c, st, err)
}

// patchField handles PATCH /api/forms/{id}/field.
func (s *Server) patchField(c *gin.Context) {
	var req fieldRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	st, err := sessionOf(c).Edit(c.Request.Context(), req.Path, req.Value)
	s.respond(c, st, err)
}

// addItem handles POST /api/forms/{id}/items.
func (s *Server) addItem(c *gin.Context) {
	var req itemRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	st, err := sessionOf(c).AddItem(c.Request.Context(), req.Path)
	s.respond(c, st, err)
}

// removeItem handles DELETE /api/forms/{id}/items.
func (s *Server) removeItem(c *gin.Context) {
	var req itemRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	st, err := sessionOf(c).RemoveItem(c.Request.Context(), req.Path, req.Index)
	s.respond(c, st, err)
}

// copyText handles POST /api/forms/{id}/copy.
func (s *Server) copyText(c *gin.Context) {
	if s.clip == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"message": "clipboard is not available"})
		return
	}
	ack, err := sessionOf(c).Copy(c.Request.Context(), s.clip)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": ack})
}

// pasteText handles POST /api/forms/{id}/paste.
func (s *Server) pasteText(c *gin.Context) {
	if s.clip == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"message": "clipboard is not available"})
		return
	}
	st, err := sessionOf(c).Paste(c.Request.Context(), s.clip)
	s.respond(c, st, err)
}

// exportFile serves the document as a download named data-<date>.json.
func (s *Server) exportFile(c *gin.Context) {
	name, text, err := sessionOf(c).Export(c.Request.Context(), s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Header("Content-Type", export.ContentType+"; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, text); err != nil {
		_ = c.Error(err)
	}
}
