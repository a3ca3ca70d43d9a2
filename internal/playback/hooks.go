package playback

import (
	"context"
	"time"

	"github.com/aretw0/reel/pkg/domain"
)

func (c *Controller) eventBase() domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), SessionID: c.sessionID}
}

func (c *Controller) emitSlide(hook func(context.Context, *domain.SlideEvent), index int, cause domain.Cause) {
	if hook == nil {
		return
	}
	slide, ok := c.graph.At(index)
	if !ok {
		return
	}
	hook(c.ctx, &domain.SlideEvent{
		EventBase: c.eventBase(),
		SlideID:   slide.ID,
		Index:     index,
		Cause:     cause,
	})
}

func (c *Controller) emitTransition(from, to int, cause domain.Cause, rule string) {
	if c.hooks.OnTransition == nil {
		return
	}
	c.hooks.OnTransition(c.ctx, &domain.TransitionEvent{
		EventBase: c.eventBase(),
		From:      from,
		To:        to,
		Cause:     cause,
		Rule:      rule,
	})
}
