package playback

import (
	"context"
	"log/slog"
	"math"

	"github.com/aretw0/reel/internal/clock"
	"github.com/aretw0/reel/internal/gating"
	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/internal/navigation"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// Controller is the playback state machine. It owns the active index, the
// lock flag, the render watermark and the pending timers, and is the only
// component that mutates them.
//
// A Controller is not safe for concurrent use: every method, including timer
// callbacks, must run on one goroutine. Loop provides such a goroutine.
type Controller struct {
	graph     *domain.Graph
	viewport  ports.Viewport
	scheduler ports.Scheduler
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	cfg       Config
	ctx       context.Context
	sessionID string
	startID   string

	phase     domain.Phase
	active    int
	locked    bool
	blockers  []string
	watermark int
	snapshot  gating.Snapshot

	settleTimer ports.Timer
	settleGen   uint64
	hintTimer   ports.Timer
	hintGen     uint64
	hintActive  bool

	closed bool
}

// New creates a controller positioned on the first slide (or WithStartSlide).
// Without WithScheduler, timers run on their own goroutines, which is only
// correct when the caller serializes access itself; Loop wires this up.
func New(graph *domain.Graph, viewport ports.Viewport, opts ...Option) *Controller {
	c := &Controller{
		graph:     graph,
		viewport:  viewport,
		scheduler: clock.Real{},
		logger:    logging.NewNop(),
		cfg:       DefaultConfig(),
		ctx:       context.Background(),
		phase:     domain.PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg = c.cfg.normalized()
	if c.graph == nil {
		c.graph = domain.NewGraph(nil)
	}
	if c.viewport == nil {
		c.viewport = nopViewport{}
	}
	if c.sessionID != "" {
		c.logger = c.logger.With("session_id", c.sessionID)
	}

	c.warnDuplicates()
	if i, ok := c.graph.IndexOf(c.startID); ok {
		c.active = i
	}
	c.watermark = min(c.cfg.InitialWatermark, c.graph.Len())
	c.extendWatermark()
	c.enter(c.active, domain.CauseReload)
	return c
}

// Motion handles a continuous drag/scroll position. offset is the raw scroll
// offset and height the height of one slide.
//
// Forward motion cannot be vetoed before it starts, so a locked slide is
// enforced by reacting: the viewport is commanded back to the current slide.
func (c *Controller) Motion(offset, height float64) {
	if c.closed || c.graph.Len() == 0 || height <= 0 {
		return
	}
	if c.phase == domain.PhaseProgrammatic {
		// Self-generated motion of an engine-issued jump.
		return
	}
	nearest := int(math.Round(offset / height))
	c.handleIndex(c.clamp(nearest), domain.CauseMotion)
}

// Key handles a discrete one-slide step (keyboard or alternate input).
// Only the sign of delta matters.
func (c *Controller) Key(delta int) {
	if c.closed || c.graph.Len() == 0 || delta == 0 {
		return
	}
	step := 1
	if delta < 0 {
		step = -1
	}
	c.handleIndex(c.clamp(c.active+step), domain.CauseKey)
}

func (c *Controller) handleIndex(target int, cause domain.Cause) {
	from := c.active
	if target == from {
		return
	}

	if target < from {
		c.settle(target, cause)
		return
	}

	if c.locked {
		c.reverse(target, cause)
		return
	}

	res := navigation.Resolve(c.graph, c.activeID(), domain.Trigger{})

	// The same event may have changed gating state; decide on the fresh value.
	c.reevaluate(true)
	if c.locked {
		c.reverse(target, cause)
		return
	}

	if res.Matched() && res.Index != target {
		c.logger.Debug("linear motion overridden by connection",
			"from", from, "naive", target, "to", res.Index, "rule", res.Rule)
		c.jump(res.Index, domain.CauseOverride, string(res.Rule))
		return
	}

	c.settle(target, cause)
}

// Action handles an explicit interaction with an element. It bypasses motion
// detection and the gate of the current slide for this one transition.
// It reports whether a transition was started.
func (c *Controller) Action(trigger domain.Trigger) bool {
	if c.closed || c.graph.Len() == 0 {
		return false
	}

	res := navigation.Resolve(c.graph, c.activeID(), trigger)
	target, rule := res.Index, string(res.Rule)
	if !res.Matched() {
		if c.active >= c.graph.Len()-1 {
			c.logger.Debug("action on last slide has no target", "slide", c.activeID())
			return false
		}
		target, rule = c.active+1, string(navigation.RuleSequential)
	}

	if c.locked {
		c.logger.Debug("explicit action passes gate", "slide", c.activeID(), "blockers", c.blockers)
	}
	c.jump(target, domain.CauseAction, rule)
	return true
}

// UpdateElement records an element state reported by the active slide.
// Reports tagged with another slide id are stale and ignored.
func (c *Controller) UpdateElement(slideID string, el domain.GatingElement) bool {
	if c.closed || !c.isActive(slideID) {
		return false
	}
	c.snapshot = c.snapshot.Apply(el)
	c.reevaluate(true)
	return true
}

// Release clears the latch of a gate-button on the active slide.
func (c *Controller) Release(slideID, elementID string) bool {
	if c.closed || !c.isActive(slideID) {
		return false
	}
	next, ok := c.snapshot.Release(elementID)
	if !ok {
		return false
	}
	c.snapshot = next
	c.reevaluate(true)
	return true
}

// Reload swaps in a freshly loaded graph. The active slide is kept by id when
// it still exists; otherwise the index is clamped into the new graph.
func (c *Controller) Reload(graph *domain.Graph) {
	if c.closed {
		return
	}
	if graph == nil {
		graph = domain.NewGraph(nil)
	}
	prevID := c.activeID()
	prevIndex := c.active
	c.graph = graph
	c.warnDuplicates()

	if i, ok := graph.IndexOf(prevID); ok {
		c.active = i
	} else {
		c.active = c.clamp(c.active)
		c.snapshot = gating.NewSnapshot(c.currentSlide())
	}
	if c.watermark > graph.Len() {
		c.watermark = graph.Len()
	}
	c.extendWatermark()
	c.reevaluate(false)

	if c.active != prevIndex {
		c.viewport.ScrollTo(domain.ScrollCommand{Index: c.active, Animated: false})
	}
	c.emitTransition(prevIndex, c.active, domain.CauseReload, "")
}

// Close cancels pending timers and detaches the viewport and hooks.
// Later calls on the controller are no-ops.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimer(&c.settleTimer)
	c.stopTimer(&c.hintTimer)
	c.viewport = nopViewport{}
	c.hooks = domain.LifecycleHooks{}
}

// State returns a read-only snapshot of the controller.
func (c *Controller) State() domain.PlaybackState {
	return domain.PlaybackState{
		Phase:       c.phase,
		ActiveIndex: c.active,
		ActiveID:    c.activeID(),
		Locked:      c.locked,
		Watermark:   c.watermark,
		Total:       c.graph.Len(),
		HintActive:  c.hintActive,
		Blockers:    append([]string(nil), c.blockers...),
	}
}

// Renderable reports whether slide i is within the render watermark.
// Slides beyond it are inert placeholders.
func (c *Controller) Renderable(i int) bool {
	return i >= 0 && i < c.watermark
}

// Graph returns the graph the controller currently navigates.
func (c *Controller) Graph() *domain.Graph {
	return c.graph
}

// settle accepts a user-driven move and lets the snap converge.
func (c *Controller) settle(target int, cause domain.Cause) {
	from := c.active
	c.enter(target, cause)
	c.viewport.ScrollTo(domain.ScrollCommand{Index: target, Animated: true})
	c.startTimer(domain.PhaseSettling)
	c.emitTransition(from, target, cause, "")
}

// jump issues an engine-driven transition. Motion events are not attributed
// to the user until it settles.
func (c *Controller) jump(target int, cause domain.Cause, rule string) {
	from := c.active
	if target != from {
		c.enter(target, cause)
	}
	c.viewport.ScrollTo(domain.ScrollCommand{Index: target, Animated: true})
	c.startTimer(domain.PhaseProgrammatic)
	c.emitTransition(from, target, cause, rule)
}

// reverse undoes forward motion off a locked slide.
func (c *Controller) reverse(attempted int, cause domain.Cause) {
	c.logger.Debug("forward motion reversed",
		"slide", c.activeID(), "attempted", attempted, "input", cause, "blockers", c.blockers)
	c.viewport.ScrollTo(domain.ScrollCommand{Index: c.active, Animated: true})
	c.startTimer(domain.PhaseProgrammatic)
	c.emitTransition(c.active, c.active, domain.CauseReversal, "")
}

// enter makes index i the active slide and resets its gating snapshot.
func (c *Controller) enter(i int, cause domain.Cause) {
	if c.graph.Len() == 0 {
		return
	}
	if i != c.active || cause == domain.CauseReload {
		if cause != domain.CauseReload {
			c.emitSlide(c.hooks.OnSlideLeave, c.active, cause)
		}
		c.active = i
		c.snapshot = gating.NewSnapshot(c.currentSlide())
		c.clearHint()
		c.reevaluate(false)
		c.extendWatermark()
		c.emitSlide(c.hooks.OnSlideEnter, c.active, cause)
	}
}

// reevaluate recomputes the lock flag from the snapshot. With hint set, an
// unlock pulses the forward-available hint.
func (c *Controller) reevaluate(hint bool) {
	elements := c.snapshot.Elements()
	was := c.locked
	c.locked = gating.Evaluate(c.currentSlide(), elements)
	c.blockers = gating.Blockers(elements)

	if was == c.locked {
		return
	}
	if c.hooks.OnGateChange != nil {
		c.hooks.OnGateChange(c.ctx, &domain.GateEvent{
			EventBase: c.eventBase(),
			SlideID:   c.activeID(),
			Locked:    c.locked,
			Blockers:  c.blockers,
		})
	}
	if c.locked {
		c.clearHint()
		return
	}
	if hint {
		c.pulseHint()
	}
}

func (c *Controller) pulseHint() {
	c.stopTimer(&c.hintTimer)
	c.hintGen++
	gen := c.hintGen
	c.hintActive = true
	c.viewport.ForwardAvailable(true)
	c.hintTimer = c.scheduler.AfterFunc(c.cfg.HintDuration, func() {
		if c.closed || gen != c.hintGen {
			return
		}
		c.hintTimer = nil
		c.clearHint()
	})
}

func (c *Controller) clearHint() {
	if !c.hintActive {
		return
	}
	c.stopTimer(&c.hintTimer)
	c.hintGen++
	c.hintActive = false
	c.viewport.ForwardAvailable(false)
}

// startTimer enters a timed phase. A newer timer supersedes the older one.
func (c *Controller) startTimer(phase domain.Phase) {
	c.stopTimer(&c.settleTimer)
	c.settleGen++
	gen := c.settleGen
	c.phase = phase
	c.settleTimer = c.scheduler.AfterFunc(c.cfg.SettleTimeout, func() {
		if c.closed || gen != c.settleGen {
			return
		}
		c.settleTimer = nil
		c.phase = domain.PhaseIdle
	})
}

func (c *Controller) stopTimer(t *ports.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (c *Controller) extendWatermark() {
	n := c.graph.Len()
	before := c.watermark
	for c.watermark < n && c.active+1 >= c.watermark {
		c.watermark += c.cfg.RenderBatch
	}
	if c.watermark > n {
		c.watermark = n
	}
	if c.watermark != before && c.hooks.OnWatermark != nil {
		c.hooks.OnWatermark(c.ctx, c.watermark)
	}
}

func (c *Controller) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if n := c.graph.Len(); i >= n {
		return max(n-1, 0)
	}
	return i
}

func (c *Controller) currentSlide() domain.Slide {
	s, _ := c.graph.At(c.active)
	return s
}

// warnDuplicates logs ids that resolve to their first copy only.
func (c *Controller) warnDuplicates() {
	if dups := c.graph.Duplicates(); len(dups) > 0 {
		c.logger.Warn("deck has duplicate slide ids; navigation follows the first copy", "ids", dups)
	}
}

func (c *Controller) activeID() string {
	return c.currentSlide().ID
}

func (c *Controller) isActive(slideID string) bool {
	return slideID == "" || slideID == c.activeID()
}

type nopViewport struct{}

func (nopViewport) ScrollTo(domain.ScrollCommand) {}
func (nopViewport) ForwardAvailable(bool)         {}
