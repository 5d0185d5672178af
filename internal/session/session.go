// Package session hosts form instances. Each Session owns one document and
// its synchronizer and applies every operation on a single goroutine, so
// handlers never run concurrently and each one observes the state left by
// the previous one.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcncl/jsonform/internal/clipboard"
	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/export"
	"github.com/mcncl/jsonform/internal/form"
	"github.com/mcncl/jsonform/internal/parser"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/textview"
)

// CopiedAck is the acknowledgement shown after a successful copy.
const CopiedAck = "Copied!"

// ErrClosed is returned for operations on a closed session.
var ErrClosed = stderrors.New("session closed")

// State is a point-in-time view of a session, safe to hand to other goroutines.
type State struct {
	ID      string          `json:"id"`
	Version uint64          `json:"version"`
	Text    string          `json:"text"`
	Error   string          `json:"error,omitempty"`
	Tree    json.RawMessage `json:"tree"`
}

// Session serializes all access to a form.Synchronizer through one event loop.
type Session struct {
	id   string
	fs   *form.Synchronizer
	log  *zap.Logger

	// called on the loop after every successful mutation
	onChange func(State)
	check    bool

	idleTimeout time.Duration
	onIdle      func(*Session)

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// loop-owned
	version uint64
	subs    map[int]chan State
	nextSub int
}

// Options tune a Session.
type Options struct {
	// OnChange receives the state after every mutation that changed the document.
	OnChange func(State)
	// Check verifies the field tree against the document after every mutation.
	Check bool
	// IdleTimeout closes the session after this long without operations
	// while nobody is subscribed. Zero keeps it open until Close.
	IdleTimeout time.Duration
	// OnIdle is called on the loop right before an idle session stops.
	OnIdle func(*Session)
}

// New starts the event loop for the synchronizer. Close must be called to stop it.
func New(id string, fs *form.Synchronizer, log *zap.Logger, opts Options) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		id:       id,
		fs:       fs,
		log:      log.Named("session").With(zap.String("session_id", id)),
		onChange:    opts.OnChange,
		check:       opts.Check,
		idleTimeout: opts.IdleTimeout,
		onIdle:      opts.OnIdle,
		ops:         make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		subs:        make(map[int]chan State),
	}
	go s.loop()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

func (s *Session) loop() {
	defer close(s.done)

	// a nil idle channel never fires
	var idle <-chan time.Time
	touch := func() {}
	if s.idleTimeout > 0 {
		timer := time.NewTimer(s.idleTimeout)
		defer timer.Stop()
		idle = timer.C
		touch = func() { timer.Reset(s.idleTimeout) }
	}

	for {
		select {
		case op := <-s.ops:
			op()
			touch()
		case <-idle:
			if len(s.subs) > 0 {
				touch()
				continue
			}
			s.log.Info("closing idle session", zap.Duration("idle_timeout", s.idleTimeout))
			s.closeOnce.Do(func() { close(s.quit) })
			if s.onIdle != nil {
				s.onIdle(s)
			}
			return
		case <-s.quit:
			s.closeSubs()
			return
		}
	}
}

func (s *Session) closeSubs() {
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// closed reports whether Close was called or the session went idle.
func (s *Session) closed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// Close stops the event loop and closes all subscriptions. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
}

// Do runs fn on the event loop and waits for it. An operation accepted by the
// loop always runs to completion, even if ctx ends while waiting for it.
func (s *Session) Do(ctx context.Context, fn func(*form.Synchronizer) error) error {
	errc := make(chan error, 1)
	select {
	case s.ops <- func() { errc <- fn(s.fs) }:
	case <-s.done:
		return ErrClosed
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate runs fn on the loop and publishes the resulting state. fn reports
// whether the document changed; only then is OnChange called.
func (s *Session) mutate(ctx context.Context, fn func(*form.Synchronizer) (bool, error)) (State, error) {
	var (
		st     State
		result error
	)
	err := s.Do(ctx, func(fs *form.Synchronizer) error {
		changed, err := fn(fs)
		result = err
		s.version++
		if changed && s.check {
			if cerr := fs.Check(); cerr != nil {
				s.log.Error("field tree out of sync", zap.Error(cerr))
			}
		}
		st = s.state()
		s.publish(st)
		if changed && s.onChange != nil {
			s.onChange(st)
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return st, result
}

// state must run on the loop.
func (s *Session) state() State {
	st := State{ID: s.id, Version: s.version, Text: s.fs.Text()}
	if err := s.fs.View().Err(); err != nil {
		st.Error = errors.UserFriendlyError(err)
	}
	tree, err := json.Marshal(s.fs.Root())
	if err != nil {
		s.log.Error("failed to encode field tree", zap.Error(err))
		tree = json.RawMessage("null")
	}
	st.Tree = tree
	return st
}

// publish must run on the loop. A slow subscriber loses intermediate states
// but always receives the latest one.
func (s *Session) publish(st State) {
	for _, ch := range s.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

// State returns the current state.
func (s *Session) State(ctx context.Context) (State, error) {
	var st State
	err := s.Do(ctx, func(*form.Synchronizer) error {
		st = s.state()
		return nil
	})
	return st, err
}

// Subscribe registers for state updates. The channel first receives the
// current state and is closed by cancel or when the session closes.
func (s *Session) Subscribe(ctx context.Context) (<-chan State, func(), error) {
	ch := make(chan State, 4)
	var id int
	err := s.Do(ctx, func(*form.Synchronizer) error {
		id = s.nextSub
		s.nextSub++
		s.subs[id] = ch
		ch <- s.state()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = s.Do(context.Background(), func(*form.Synchronizer) error {
				if c, ok := s.subs[id]; ok {
					close(c)
					delete(s.subs, id)
				}
				return nil
			})
		})
	}
	return ch, cancel, nil
}

// Edit coerces raw into the primitive at p.
func (s *Session) Edit(ctx context.Context, p path.Path, raw string) (State, error) {
	return s.mutate(ctx, func(fs *form.Synchronizer) (bool, error) {
		err := fs.Edit(p, raw)
		return err == nil, err
	})
}

// AddItem appends an item to the array at p.
func (s *Session) AddItem(ctx context.Context, p path.Path) (State, error) {
	return s.mutate(ctx, func(fs *form.Synchronizer) (bool, error) {
		_, err := fs.AddItem(p)
		return err == nil, err
	})
}

// RemoveItem deletes item index of the array at p.
func (s *Session) RemoveItem(ctx context.Context, p path.Path, index int) (State, error) {
	return s.mutate(ctx, func(fs *form.Synchronizer) (bool, error) {
		err := fs.RemoveItem(p, index)
		return err == nil, err
	})
}

// SetText handles input to the text editor.
func (s *Session) SetText(ctx context.Context, text string) (State, error) {
	return s.mutate(ctx, func(fs *form.Synchronizer) (bool, error) {
		outcome, err := fs.SetText(text)
		return outcome == textview.Replaced, err
	})
}

// Paste reads the clipboard and loads its text as the document. Text that
// does not parse is logged and leaves the session untouched, editor
// included. A failed clipboard read is logged by cb and answered with the
// unchanged state.
func (s *Session) Paste(ctx context.Context, cb *clipboard.Service) (State, error) {
	text, err := cb.Paste(ctx)
	if err != nil {
		return s.State(ctx)
	}
	return s.PasteText(ctx, text)
}

// PasteText loads already-read clipboard text the way Paste does.
func (s *Session) PasteText(ctx context.Context, text string) (State, error) {
	return s.mutate(ctx, func(fs *form.Synchronizer) (bool, error) {
		value, err := parser.ParseStringWithOptions(text, fs.View().Options())
		if err != nil {
			s.log.Warn("ignored clipboard text", zap.Error(err))
			return false, err
		}
		fs.Replace(value)
		return true, nil
	})
}

// Copy writes the editor text to the clipboard and returns CopiedAck.
func (s *Session) Copy(ctx context.Context, cb *clipboard.Service) (string, error) {
	st, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	if err := cb.Copy(ctx, st.Text); err != nil {
		return "", err
	}
	return CopiedAck, nil
}

// Export returns the serialized document with its download file name. The
// text is regenerated from the document, so an unparsed editor draft is
// never exported.
func (s *Session) Export(ctx context.Context, now time.Time) (string, string, error) {
	var text string
	err := s.Do(ctx, func(fs *form.Synchronizer) error {
		text = fs.View().Serialize(fs.Document().Root())
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return export.Filename(now), text, nil
}

// Materialize paints the current field tree on surface from the loop.
// The surface callbacks are not safe to call after Materialize returns.
func (s *Session) Materialize(ctx context.Context, surface form.Surface) error {
	return s.Do(ctx, func(fs *form.Synchronizer) error {
		fs.Materialize(surface)
		return nil
	})
}
