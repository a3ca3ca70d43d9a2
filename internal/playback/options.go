package playback

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// Config holds the tunables of a Controller.
type Config struct {
	// SettleTimeout is how long a snap or an engine-issued jump is considered in flight.
	SettleTimeout time.Duration

	// RenderBatch is how many slides the watermark grows by at once.
	RenderBatch int

	// InitialWatermark is the number of slides fully rendered at start.
	InitialWatermark int

	// HintDuration is how long the "forward motion now available" hint stays up.
	HintDuration time.Duration
}

// DefaultConfig returns the tunables used when none are given.
func DefaultConfig() Config {
	return Config{
		SettleTimeout:    500 * time.Millisecond,
		RenderBatch:      3,
		InitialWatermark: 3,
		HintDuration:     1500 * time.Millisecond,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = def.SettleTimeout
	}
	if c.RenderBatch < 1 {
		c.RenderBatch = 1
	}
	if c.InitialWatermark < 1 {
		c.InitialWatermark = 1
	}
	if c.HintDuration <= 0 {
		c.HintDuration = def.HintDuration
	}
	return c
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the controller tunables.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithScheduler sets the timer source for settle and hint timeouts.
func WithScheduler(s ports.Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithSessionID tags events and logs with a session id.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// WithStartSlide starts playback on the given slide instead of the first one.
func WithStartSlide(id string) Option {
	return func(c *Controller) {
		c.startID = id
	}
}

// WithContext sets the context handed to lifecycle hooks.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.ctx = ctx
	}
}
