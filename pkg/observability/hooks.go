package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/reel/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that log every event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSlideEnter: func(_ context.Context, e *domain.SlideEvent) {
			logger.Debug("slide entered", "session_id", e.SessionID, "slide", e.SlideID, "index", e.Index, "cause", e.Cause)
		},
		OnSlideLeave: func(_ context.Context, e *domain.SlideEvent) {
			logger.Debug("slide left", "session_id", e.SessionID, "slide", e.SlideID, "index", e.Index, "cause", e.Cause)
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			logger.Info("transition", "session_id", e.SessionID, "from", e.From, "to", e.To, "cause", e.Cause, "rule", e.Rule)
		},
		OnGateChange: func(_ context.Context, e *domain.GateEvent) {
			logger.Info("gate changed", "session_id", e.SessionID, "slide", e.SlideID, "locked", e.Locked, "blockers", e.Blockers)
		},
		OnWatermark: func(_ context.Context, wm int) {
			logger.Debug("watermark extended", "watermark", wm)
		},
	}
}

// MergeHooks calls every non-nil hook of each set, in argument order.
func MergeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnSlideEnter = chain(out.OnSlideEnter, h.OnSlideEnter)
		out.OnSlideLeave = chain(out.OnSlideLeave, h.OnSlideLeave)
		out.OnTransition = chain(out.OnTransition, h.OnTransition)
		out.OnGateChange = chain(out.OnGateChange, h.OnGateChange)
		out.OnWatermark = chain(out.OnWatermark, h.OnWatermark)
	}
	return out
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}
