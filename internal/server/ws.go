package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/session"
)

const writeWait = 10 * time.Second

// Op is a client message on the live channel.
type Op struct {
	Op    string    `json:"op"` // edit, add, remove, text, paste, copy
	Path  path.Path `json:"path,omitempty"`
	Index int       `json:"index,omitempty"`
	Value string    `json:"value,omitempty"`
	Text  string    `json:"text,omitempty"`
}

// Message is a server message on the live channel. Every state change of
// the session is pushed as a "state" message to all connected clients; a
// failed op is additionally answered with an "error" message to its sender.
type Message struct {
	Type    string         `json:"type"`
	State   *session.State `json:"state,omitempty"`
	Message string         `json:"message,omitempty"`
}

// live handles GET /api/forms/{id}/ws.
func (s *Server) live(c *gin.Context) {
	sess := sessionOf(c)
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already answered the request
		_ = c.Error(err)
		return
	}
	log := s.log.With(zap.String("session_id", sess.ID()), zap.String("request_id", c.GetString(requestIDKey)))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	states, cancel, err := sess.Subscribe(ctx)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer cancel()

	replies := make(chan Message, 8)
	g, ctx := errgroup.WithContext(ctx)

	// writer: the only goroutine writing to conn
	g.Go(func() error {
		defer conn.Close()
		for {
			var msg Message
			select {
			case st, ok := <-states:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
						time.Now().Add(writeWait))
					return nil
				}
				msg = Message{Type: "state", State: &st}
			case msg = <-replies:
			case <-ctx.Done():
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	})

	// reader
	g.Go(func() error {
		defer stop()
		for {
			var op Op
			if err := conn.ReadJSON(&op); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug("live channel read failed", zap.Error(err))
				}
				return nil
			}
			reply, err := s.apply(ctx, sess, op)
			if err != nil {
				reply = Message{Type: "error", Message: errors.UserFriendlyError(err)}
			}
			if reply.Type == "" {
				continue
			}
			select {
			case replies <- reply:
			case <-ctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Debug("live channel closed", zap.Error(err))
	}
}

// apply runs op against sess. State changes reach the client through the
// subscription, so only acknowledgements are returned.
func (s *Server) apply(ctx context.Context, sess *session.Session, op Op) (Message, error) {
	var err error
	switch op.Op {
	case "edit":
		_, err = sess.Edit(ctx, op.Path, op.Value)
	case "add":
		_, err = sess.AddItem(ctx, op.Path)
	case "remove":
		_, err = sess.RemoveItem(ctx, op.Path, op.Index)
	case "text":
		_, err = sess.SetText(ctx, op.Text)
	case "paste":
		if s.clip == nil {
			return Message{}, fmt.Errorf("clipboard is not available")
		}
		_, err = sess.Paste(ctx, s.clip)
	case "copy":
		if s.clip == nil {
			return Message{}, fmt.Errorf("clipboard is not available")
		}
		ack, err := sess.Copy(ctx, s.clip)
		if err != nil {
			return Message{}, err
		}
		return Message{Type: "ack", Message: ack}, nil
	default:
		return Message{}, errors.NewInputError(fmt.Sprintf("unknown op %q", op.Op), nil)
	}
	return Message{}, err
}
