package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcncl/jsonform/internal/document"
	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/form"
	"github.com/mcncl/jsonform/internal/formatter"
	"github.com/mcncl/jsonform/internal/models"
	"github.com/mcncl/jsonform/internal/parser"
	"github.com/mcncl/jsonform/internal/store"
	"github.com/mcncl/jsonform/internal/textview"
)

const snapshotTimeout = 3 * time.Second

// ManagerConfig configures how a Manager builds sessions.
type ManagerConfig struct {
	Indent  string
	Parser  parser.Options
	Initial string
	Check   bool
	// IdleTimeout stops live sessions nobody has used for this long. Their
	// snapshots stay in the store, so a later Get restores them.
	IdleTimeout time.Duration
}

// Manager creates sessions, finds them by id and snapshots their text into a
// store so unknown ids can be restored.
type Manager struct {
	cfg   ManagerConfig
	store store.Store
	log   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. A nil store keeps snapshots in memory.
func NewManager(st store.Store, cfg ManagerConfig, log *zap.Logger) *Manager {
	if st == nil {
		st = store.NewMemory()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		store:    st,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session for text, or for the configured initial document
// when text is blank.
func (m *Manager) Create(ctx context.Context, text string) (*Session, error) {
	if strings.TrimSpace(text) == "" {
		text = m.cfg.Initial
	}
	value, err := parser.ParseStringWithOptions(text, m.cfg.Parser)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := m.start(id, value)

	st, err := s.State(ctx)
	if err != nil {
		m.drop(id)
		return nil, err
	}
	if err := m.store.Save(ctx, id, st.Text); err != nil {
		m.drop(id)
		return nil, err
	}

	m.log.Info("created session", zap.String("session_id", id))
	return s, nil
}

// Get returns the live session for id, restoring it from the store if it is
// not running in this process.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.ErrSessionNotFound
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok && !s.closed() {
		return s, nil
	}

	text, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	value, err := parser.ParseStringWithOptions(text, m.cfg.Parser)
	if err != nil {
		return nil, errors.NewStoreError("snapshot is not valid JSON", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have restored it meanwhile
	if s, ok := m.sessions[id]; ok && !s.closed() {
		return s, nil
	}
	s = m.newSession(id, value)
	m.sessions[id] = s
	m.log.Info("restored session", zap.String("session_id", id))
	return s, nil
}

// Delete closes the session and removes its snapshot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.drop(id)
	return m.store.Delete(ctx, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every live session. Snapshots are kept.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) start(id string, value *models.JSONValue) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.newSession(id, value)
	m.sessions[id] = s
	return s
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

func (m *Manager) newSession(id string, value *models.JSONValue) *Session {
	view := textview.New(formatter.NewFormatterWithIndent(m.cfg.Indent), m.cfg.Parser)
	fs := form.New(document.New(value), view, m.log)
	return New(id, fs, m.log, Options{
		Check:       m.cfg.Check,
		OnChange:    m.snapshot,
		IdleTimeout: m.cfg.IdleTimeout,
		OnIdle:      m.evict,
	})
}

// evict runs on the loop of an idle session and forgets it, unless it was
// already replaced by a restored one.
func (m *Manager) evict(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.id] == s {
		delete(m.sessions, s.id)
		m.log.Info("evicted idle session", zap.String("session_id", s.id))
	}
}

// snapshot runs on the session loop, so saves for one session stay ordered.
func (m *Manager) snapshot(st State) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := m.store.Save(ctx, st.ID, st.Text); err != nil {
		m.log.Error("failed to save snapshot", zap.String("session_id", st.ID), zap.Error(err))
	}
}
