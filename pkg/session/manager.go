package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/internal/playback"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/observability"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown or closed session id.
var ErrSessionNotFound = errors.New("session not found")

// Session is one viewer's playback.
type Session struct {
	ID      string
	Created time.Time

	loop *playback.Loop
	feed *Feed
}

// Feed returns the session's viewport broadcast.
func (s *Session) Feed() *Feed {
	return s.feed
}

// State returns the playback state.
func (s *Session) State(ctx context.Context) (domain.PlaybackState, error) {
	return s.loop.State(ctx)
}

// Do runs fn on the session's loop and waits for it.
func (s *Session) Do(ctx context.Context, fn func(*playback.Controller)) error {
	return s.loop.Do(ctx, fn)
}

// Manager owns the open sessions of one deck.
type Manager struct {
	logger   *slog.Logger
	hooks    []domain.LifecycleHooks
	config   playback.Config
	viewport func(sessionID string) ports.Viewport
	onCount  func(n int)

	mu       sync.Mutex
	graph    *domain.Graph
	sessions map[string]*Session
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager and its sessions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHooks adds lifecycle hooks to every session.
func WithHooks(hooks ...domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = append(m.hooks, hooks...)
	}
}

// WithConfig sets the playback tunables of new sessions.
func WithConfig(cfg playback.Config) Option {
	return func(m *Manager) {
		m.config = cfg
	}
}

// WithViewport attaches an extra viewport (e.g. MQTT) to every new session.
func WithViewport(fn func(sessionID string) ports.Viewport) Option {
	return func(m *Manager) {
		m.viewport = fn
	}
}

// WithSessionCount is called with the number of open sessions after every change.
func WithSessionCount(fn func(n int)) Option {
	return func(m *Manager) {
		m.onCount = fn
	}
}

// NewManager creates a Manager navigating graph.
func NewManager(graph *domain.Graph, opts ...Option) *Manager {
	m := &Manager{
		logger:   logging.NewNop(),
		config:   playback.DefaultConfig(),
		graph:    graph,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session on startSlide (empty means the first slide).
func (m *Manager) Create(ctx context.Context, startSlide string) (*Session, error) {
	id := uuid.NewString()
	feed := newFeed(id)

	viewports := multiViewport{feed}
	if m.viewport != nil {
		if v := m.viewport(id); v != nil {
			viewports = append(viewports, v)
		}
	}

	m.mu.Lock()
	graph := m.graph
	m.mu.Unlock()

	if startSlide != "" && !graph.Has(startSlide) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSlideNotFound, startSlide)
	}

	loop := playback.NewLoop(graph, viewports,
		playback.WithConfig(m.config),
		playback.WithLogger(m.logger),
		playback.WithSessionID(id),
		playback.WithStartSlide(startSlide),
		playback.WithLifecycleHooks(observability.MergeHooks(m.hooks...)),
		playback.WithContext(context.WithoutCancel(ctx)),
	)
	s := &Session{ID: id, Created: time.Now(), loop: loop, feed: feed}

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", id, "start", startSlide)
	m.count(n)
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns the ids of open sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch applies a command on the session's loop and returns the state
// right after it.
func (m *Manager) Dispatch(ctx context.Context, id string, cmd Command) (domain.PlaybackState, bool, error) {
	s, err := m.Get(id)
	if err != nil {
		return domain.PlaybackState{}, false, err
	}
	var (
		st       domain.PlaybackState
		accepted bool
		applyErr error
	)
	err = s.loop.Do(ctx, func(c *playback.Controller) {
		accepted, applyErr = cmd.Apply(c)
		st = c.State()
	})
	if err != nil {
		if errors.Is(err, playback.ErrLoopClosed) {
			return st, false, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return st, false, err
	}
	return st, accepted, applyErr
}

// Reload hands a new graph to every open session and to sessions created later.
func (m *Manager) Reload(graph *domain.Graph) {
	m.mu.Lock()
	m.graph = graph
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.loop.Submit(func(c *playback.Controller) { c.Reload(graph) }); err != nil {
			m.logger.Debug("reload skipped", "session_id", s.ID, "error", err)
		}
	}
	m.logger.Info("sessions reloaded", "sessions", len(sessions), "slides", graph.Len())
}

// Close stops one session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.loop.Close()
	s.feed.close()
	m.logger.Info("session closed", "session_id", id)
	m.count(n)
	return nil
}

// CloseAll stops every session.
func (m *Manager) CloseAll() {
	for _, id := range m.List() {
		_ = m.Close(id)
	}
}

func (m *Manager) count(n int) {
	if m.onCount != nil {
		m.onCount(n)
	}
}
