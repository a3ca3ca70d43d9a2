package reel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/reel/internal/gating"
	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/internal/navigation"
	"github.com/aretw0/reel/internal/ordering"
	"github.com/aretw0/reel/internal/playback"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/observability"
	"github.com/aretw0/reel/pkg/persistence"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/session"
)

type (
	// Resolution is the outcome of Engine.Resolve.
	Resolution = navigation.Resolution
	// Player runs one playback controller on its own goroutine.
	Player = playback.Loop
	// Controller is the single-threaded playback state machine driven by a Player.
	Controller = playback.Controller
	// PlaybackConfig holds the playback tunables.
	PlaybackConfig = playback.Config
	// OrderResult is the outcome of a canonical order recomputation.
	OrderResult = ordering.Result
)

// Engine is the high-level entry point for the reel library.
// It keeps the current slide graph of one deck, pushes edits through a
// persistence writer and hands fresh graphs to open sessions.
type Engine struct {
	store    ports.SlideStore
	writer   *persistence.Writer
	sessions *session.Manager

	logger      *slog.Logger
	hooks       []domain.LifecycleHooks
	config      playback.Config
	writerOpts  []persistence.Option
	sessionOpts []session.Option
	onCommit    func(persistence.Report)
	onReload    func(*domain.Graph)
	Name        string

	mu    sync.RWMutex
	graph *domain.Graph
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on every player and session.
func WithLifecycleHooks(hooks ...domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks...)
	}
}

// WithPlaybackConfig sets the playback tunables.
func WithPlaybackConfig(cfg PlaybackConfig) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithWriterOptions configures the persistence writer.
func WithWriterOptions(opts ...persistence.Option) Option {
	return func(e *Engine) {
		e.writerOpts = append(e.writerOpts, opts...)
	}
}

// WithSessionOptions configures the session manager.
func WithSessionOptions(opts ...session.Option) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, opts...)
	}
}

// WithOnCommit receives every persistence report, flushed or scheduled.
func WithOnCommit(fn func(persistence.Report)) Option {
	return func(e *Engine) {
		e.onCommit = fn
	}
}

// WithOnReload is called after the graph was reloaded from the store.
func WithOnReload(fn func(*domain.Graph)) Option {
	return func(e *Engine) {
		e.onReload = fn
	}
}

// WithName labels the deck in logs.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New loads the deck from store and prepares the engine.
func New(ctx context.Context, store ports.SlideStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	e := &Engine{
		store:  store,
		config: playback.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.Name != "" {
		e.logger = e.logger.With("deck", e.Name)
	}

	deck, err := store.LoadDeck(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}
	e.graph = domain.NewGraph(deck)

	writerOpts := append([]persistence.Option{persistence.WithLogger(e.logger)}, e.writerOpts...)
	writerOpts = append(writerOpts, persistence.WithOnCommit(e.afterScheduledCommit))
	e.writer = persistence.NewWriter(store, writerOpts...)
	e.writer.Rebase(deck)

	sessionOpts := []session.Option{
		session.WithLogger(e.logger),
		session.WithConfig(e.config),
		session.WithHooks(e.hooks...),
	}
	e.sessions = session.NewManager(e.graph, append(sessionOpts, e.sessionOpts...)...)

	e.logger.Info("deck loaded", "slides", e.graph.Len(), "folders", len(deck.Folders))
	return e, nil
}

// Graph returns the current slide graph. Graphs are immutable.
func (e *Engine) Graph() *domain.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// Store returns the underlying SlideStore.
func (e *Engine) Store() ports.SlideStore {
	return e.store
}

// Writer returns the persistence writer, for callers staging debounced edits.
func (e *Engine) Writer() *persistence.Writer {
	return e.writer
}

// Sessions returns the session manager. Its sessions follow graph reloads.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Resolve picks the successor of slideID for trigger on the current graph.
func (e *Engine) Resolve(slideID string, trigger domain.Trigger) Resolution {
	return navigation.Resolve(e.Graph(), slideID, trigger)
}

// Evaluate reports whether slideID is locked given element states, and
// which elements block. Nil elements means the slide's declared initial
// states. An unknown slide is never locked.
func (e *Engine) Evaluate(slideID string, elements []domain.GatingElement) (bool, []string) {
	slide, ok := e.Graph().Slide(slideID)
	if !ok {
		return false, nil
	}
	if elements == nil {
		elements = slide.Elements
	}
	return gating.Evaluate(slide, elements), gating.Blockers(elements)
}

// Reorder applies a visual arrangement. ids lists slides in their new
// relative position; slides it omits keep their relative place after the
// listed ones. Folder membership is taken from the deck. Every slide whose
// canonical order changed is written to the store.
func (e *Engine) Reorder(ctx context.Context, ids []string) (OrderResult, persistence.Report, error) {
	g := e.Graph()
	flat := make([]domain.Slide, 0, g.Len())
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return OrderResult{}, nil, fmt.Errorf("duplicate slide %s in arrangement", id)
		}
		s, ok := g.Slide(id)
		if !ok {
			return OrderResult{}, nil, fmt.Errorf("%w: %s", domain.ErrSlideNotFound, id)
		}
		seen[id] = true
		flat = append(flat, s)
	}
	for _, s := range g.Slides() {
		if !seen[s.ID] {
			flat = append(flat, s)
		}
	}

	result := ordering.Recompute(flat, nil, g.Folders())
	for _, issue := range result.Issues {
		e.logger.Warn("slide references unknown folder", "slide", issue.SlideID, "folder", issue.FolderID)
	}
	for _, s := range result.Slides {
		if old, ok := g.Slide(s.ID); ok && old.Order != s.Order {
			e.writer.StageOrder(s.ID, s.Order)
		}
	}
	report := e.flush(ctx)
	return result, report, nil
}

// SetConnections replaces the connection map of a slide in the store.
func (e *Engine) SetConnections(ctx context.Context, slideID string, conns domain.Connections) (persistence.Report, error) {
	if !e.Graph().Has(slideID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSlideNotFound, slideID)
	}
	e.writer.StageConnections(slideID, conns)
	return e.flush(ctx), nil
}

// Retry rebases staged edits on the store's current revisions and commits
// them again, overwriting concurrent edits of the same slides.
func (e *Engine) Retry(ctx context.Context) (persistence.Report, error) {
	deck, err := e.store.LoadDeck(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload deck: %w", err)
	}
	e.writer.Rebase(deck)
	return e.flush(ctx), nil
}

// Revert drops uncommitted edits of the given slides (all when none given).
func (e *Engine) Revert(slideIDs ...string) persistence.Report {
	report := e.writer.Revert(slideIDs...)
	e.committed(report)
	return report
}

// NewPlayer starts a standalone player on the current graph. Unlike
// sessions, it is not reloaded when the deck changes.
func (e *Engine) NewPlayer(viewport ports.Viewport, opts ...playback.Option) *Player {
	base := []playback.Option{
		playback.WithConfig(e.config),
		playback.WithLogger(e.logger),
		playback.WithLifecycleHooks(observability.MergeHooks(e.hooks...)),
	}
	return playback.NewLoop(e.Graph(), viewport, append(base, opts...)...)
}

// Refresh reloads the deck from the store and hands the new graph to
// every session.
func (e *Engine) Refresh(ctx context.Context) error {
	deck, err := e.store.LoadDeck(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload deck: %w", err)
	}
	g := domain.NewGraph(deck)

	e.mu.Lock()
	e.graph = g
	e.mu.Unlock()

	e.rebaseSettled(deck)
	e.sessions.Reload(g)
	if e.onReload != nil {
		e.onReload(g)
	}
	return nil
}

// Watch reloads the graph every time the store signals a change, until ctx
// is done. It fails if the store cannot be watched.
func (e *Engine) Watch(ctx context.Context) error {
	w, ok := e.store.(ports.Watchable)
	if !ok {
		return fmt.Errorf("current store does not support watching")
	}
	ch, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch store: %w", err)
	}
	go func() {
		for what := range ch {
			e.logger.Debug("store changed", "what", what)
			if err := e.Refresh(ctx); err != nil {
				e.logger.Error("reload failed", "error", err)
			}
		}
	}()
	return nil
}

// Close commits staged edits and stops every session.
func (e *Engine) Close(ctx context.Context) persistence.Report {
	report := e.flush(ctx)
	e.writer.Close()
	e.sessions.CloseAll()
	return report
}

// rebaseSettled moves the writer to the loaded revisions of slides without
// staged edits. A conflicting slide stays on its old base until Retry or Revert.
func (e *Engine) rebaseSettled(deck *domain.Deck) {
	pending := make(map[string]bool)
	for _, id := range e.writer.Pending() {
		pending[id] = true
	}
	settled := &domain.Deck{}
	for _, s := range deck.Slides {
		if !pending[s.ID] {
			settled.Slides = append(settled.Slides, s)
		}
	}
	e.writer.Rebase(settled)
}

func (e *Engine) flush(ctx context.Context) persistence.Report {
	report := e.writer.Flush(ctx)
	if len(report) == 0 {
		return report
	}
	e.committed(report)
	if err := e.Refresh(ctx); err != nil {
		e.logger.Error("reload after commit failed", "error", err)
	}
	return report
}

func (e *Engine) afterScheduledCommit(report persistence.Report) {
	e.committed(report)
	if err := e.Refresh(context.Background()); err != nil {
		e.logger.Error("reload after commit failed", "error", err)
	}
}

func (e *Engine) committed(report persistence.Report) {
	if len(report) == 0 {
		return
	}
	e.logger.Info("edits committed", "slides", len(report), "outcome", report.Outcome())
	if e.onCommit != nil {
		e.onCommit(report)
	}
}
