package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/reel/internal/clock"
	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// DefaultCommitDelay is how long staged edits wait for more edits before they
// are committed together.
const DefaultCommitDelay = 300 * time.Millisecond

// DefaultLockTTL bounds how long a commit may hold the distributed lock.
const DefaultLockTTL = 10 * time.Second

// Result is the outcome of persisting one slide.
type Result struct {
	SlideID  string         `json:"slide_id"`
	Outcome  domain.Outcome `json:"outcome"`
	Revision int64          `json:"revision,omitempty"`
	Err      error          `json:"-"`
}

// Report lists per-slide results of one commit, sorted by slide id.
type Report []Result

// Outcome folds a report into one outcome: any failure wins over any
// conflict, which wins over success. An empty report is a success.
func (r Report) Outcome() domain.Outcome {
	out := domain.OutcomeSuccess
	for _, res := range r {
		switch res.Outcome {
		case domain.OutcomeFailed:
			return domain.OutcomeFailed
		case domain.OutcomeConflict:
			out = domain.OutcomeConflict
		case domain.OutcomeReverted:
			if out == domain.OutcomeSuccess {
				out = domain.OutcomeReverted
			}
		}
	}
	return out
}

// Err joins the errors of the report.
func (r Report) Err() error {
	var errs []error
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// desired is what the caller wants a slide to look like.
type desired struct {
	order *int
	conns *domain.Connections
}

// Writer is the single pending-write record in front of a SlideStore.
// Staged edits coalesce per slide, and one cancellable timer commits them
// all together. Writer does not retry: a conflicting slide keeps its desired
// state until the caller rebases and flushes again, or reverts it.
//
// Writer is safe for concurrent use.
type Writer struct {
	store     ports.SlideStore
	scheduler ports.Scheduler
	logger    *slog.Logger
	delay     time.Duration
	locker    ports.DistributedLocker
	lockKey   string
	lockTTL   time.Duration
	onCommit  func(Report)

	mu        sync.Mutex
	pending   map[string]*desired
	revisions map[string]int64
	timer     ports.Timer
	gen       uint64
	closed    bool

	commitMu sync.Mutex
}

// Option configures a Writer.
type Option func(*Writer)

// WithCommitDelay sets the debounce window.
func WithCommitDelay(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithScheduler sets the timer source for scheduled commits.
func WithScheduler(s ports.Scheduler) Option {
	return func(w *Writer) {
		w.scheduler = s
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithLocker serializes commits across replicas under key.
func WithLocker(locker ports.DistributedLocker, key string) Option {
	return func(w *Writer) {
		w.locker = locker
		w.lockKey = key
	}
}

// WithOnCommit receives the report of every timer-driven commit.
func WithOnCommit(fn func(Report)) Option {
	return func(w *Writer) {
		w.onCommit = fn
	}
}

// NewWriter creates a writer in front of store.
func NewWriter(store ports.SlideStore, opts ...Option) *Writer {
	w := &Writer{
		store:     store,
		scheduler: clock.Real{},
		logger:    logging.NewNop(),
		delay:     DefaultCommitDelay,
		lockKey:   "deck",
		lockTTL:   DefaultLockTTL,
		pending:   make(map[string]*desired),
		revisions: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Rebase records the revisions of a freshly loaded deck. Later commits are
// based on them.
func (w *Writer) Rebase(deck *domain.Deck) {
	if deck == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sl := range deck.Slides {
		w.revisions[sl.ID] = sl.Revision
	}
}

// Revision returns the revision a commit for slideID would be based on.
func (w *Writer) Revision(slideID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.revisions[slideID]
}

// StageOrder records the desired order of a slide and (re)schedules the commit.
func (w *Writer) StageOrder(slideID string, order int) {
	w.stage(slideID, func(d *desired) {
		d.order = &order
	})
}

// StageConnections records the desired connections of a slide and
// (re)schedules the commit.
func (w *Writer) StageConnections(slideID string, conns domain.Connections) {
	w.stage(slideID, func(d *desired) {
		d.conns = conns.Clone()
	})
}

func (w *Writer) stage(slideID string, apply func(*desired)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	d, ok := w.pending[slideID]
	if !ok {
		d = &desired{}
		w.pending[slideID] = d
	}
	apply(d)
	w.scheduleLocked()
}

// scheduleLocked replaces the pending commit timer. Caller holds w.mu.
func (w *Writer) scheduleLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = w.scheduler.AfterFunc(w.delay, func() {
		w.mu.Lock()
		if w.closed || gen != w.gen {
			w.mu.Unlock()
			return
		}
		w.timer = nil
		w.mu.Unlock()

		report := w.commit(context.Background())
		if w.onCommit != nil && len(report) > 0 {
			w.onCommit(report)
		}
	})
}

// Pending returns the ids of slides with uncommitted edits, sorted.
func (w *Writer) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Flush cancels the scheduled commit and commits every staged edit now.
func (w *Writer) Flush(ctx context.Context) Report {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
	w.mu.Unlock()
	return w.commit(ctx)
}

// Revert drops the desired state of the given slides (all when none given)
// without touching the store.
func (w *Writer) Revert(slideIDs ...string) Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(slideIDs) == 0 {
		for id := range w.pending {
			slideIDs = append(slideIDs, id)
		}
	}
	var report Report
	for _, id := range slideIDs {
		if _, ok := w.pending[id]; !ok {
			continue
		}
		delete(w.pending, id)
		report = append(report, Result{SlideID: id, Outcome: domain.OutcomeReverted, Revision: w.revisions[id]})
	}
	if len(w.pending) == 0 && w.timer != nil {
		w.timer.Stop()
		w.timer = nil
		w.gen++
	}
	sort.Slice(report, func(i, j int) bool { return report[i].SlideID < report[j].SlideID })
	return report
}

// Close cancels the scheduled commit. Staged edits are discarded.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
}

func (w *Writer) commit(ctx context.Context) Report {
	w.commitMu.Lock()
	defer w.commitMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]*desired)
	revisions := make(map[string]int64, len(batch))
	for id := range batch {
		revisions[id] = w.revisions[id]
	}
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if w.locker != nil {
		unlock, err := w.locker.Lock(ctx, w.lockKey, w.lockTTL)
		if err != nil {
			w.logger.Warn("commit lock failed", "key", w.lockKey, "error", err)
			report := make(Report, 0, len(ids))
			for _, id := range ids {
				report = append(report, Result{SlideID: id, Outcome: domain.OutcomeFailed, Err: err})
			}
			w.restore(batch, ids)
			return report
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("commit unlock failed", "key", w.lockKey, "error", err)
			}
		}()
	}

	report := make(Report, 0, len(ids))
	var keep []string
	for _, id := range ids {
		res := w.commitSlide(ctx, id, batch[id], revisions[id])
		report = append(report, res)
		if res.Outcome != domain.OutcomeSuccess {
			keep = append(keep, id)
		}
		if res.Revision != revisions[id] {
			w.mu.Lock()
			w.revisions[id] = res.Revision
			w.mu.Unlock()
		}
	}
	w.restore(batch, keep)

	w.logger.Debug("commit finished", "slides", len(ids), "outcome", report.Outcome())
	return report
}

// commitSlide pushes one slide's desired state. It stops at the first
// failing call; the revision in the result is the last one the store accepted.
func (w *Writer) commitSlide(ctx context.Context, id string, d *desired, revision int64) Result {
	res := Result{SlideID: id, Outcome: domain.OutcomeSuccess, Revision: revision}
	if d.order != nil {
		rev, err := w.store.SetOrder(ctx, id, *d.order, res.Revision)
		if err != nil {
			return w.failed(res, err)
		}
		res.Revision = rev
		d.order = nil
	}
	if d.conns != nil {
		rev, err := w.store.SetConnections(ctx, id, *d.conns, res.Revision)
		if err != nil {
			return w.failed(res, err)
		}
		res.Revision = rev
		d.conns = nil
	}
	return res
}

func (w *Writer) failed(res Result, err error) Result {
	res.Err = err
	res.Outcome = domain.OutcomeFailed
	if errors.Is(err, domain.ErrConflict) {
		res.Outcome = domain.OutcomeConflict
		w.logger.Info("commit conflict", "slide", res.SlideID, "error", err)
	} else {
		w.logger.Warn("commit failed", "slide", res.SlideID, "error", err)
	}
	return res
}

// restore puts unfinished edits back, unless a newer stage replaced them.
func (w *Writer) restore(batch map[string]*desired, ids []string) {
	if len(ids) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range ids {
		old := batch[id]
		if old.order == nil && old.conns == nil {
			continue
		}
		cur, ok := w.pending[id]
		if !ok {
			w.pending[id] = old
			continue
		}
		if cur.order == nil {
			cur.order = old.order
		}
		if cur.conns == nil {
			cur.conns = old.conns
		}
	}
}
