package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// ErrLoopClosed is returned when work is submitted to a closed Loop.
var ErrLoopClosed = errors.New("playback loop closed")

// DefaultQueueSize is the number of pending events a Loop buffers.
const DefaultQueueSize = 64

// Loop runs one Controller on a dedicated goroutine. Every input and every
// timer expiry is delivered through the same queue, so the controller only
// ever observes one event at a time.
type Loop struct {
	ctrl   *Controller
	events chan func(*Controller)
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewLoop builds a Controller whose timers post back into the loop and starts
// processing. Options are the same as for New; any WithScheduler is replaced.
func NewLoop(graph *domain.Graph, viewport ports.Viewport, opts ...Option) *Loop {
	l := &Loop{
		events: make(chan func(*Controller), DefaultQueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	opts = append(opts, WithScheduler(loopScheduler{loop: l}))
	l.ctrl = New(graph, viewport, opts...)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			l.ctrl.Close()
			return
		case fn := <-l.events:
			fn(l.ctrl)
		}
	}
}

// Submit queues fn to run on the loop goroutine without waiting for it.
func (l *Loop) Submit(fn func(*Controller)) error {
	select {
	case <-l.quit:
		return ErrLoopClosed
	default:
	}
	select {
	case l.events <- fn:
		return nil
	case <-l.quit:
		return ErrLoopClosed
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(*Controller)) error {
	finished := make(chan struct{})
	if err := l.Submit(func(c *Controller) {
		defer close(finished)
		fn(c)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// State returns the controller state as seen from the loop goroutine.
func (l *Loop) State(ctx context.Context) (domain.PlaybackState, error) {
	var st domain.PlaybackState
	err := l.Do(ctx, func(c *Controller) {
		st = c.State()
	})
	return st, err
}

// Close stops the loop, cancels the controller's timers and waits for the
// goroutine to exit. Queued but unprocessed events are dropped.
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.quit)
	})
	<-l.done
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// loopScheduler turns timer expiries into loop events.
type loopScheduler struct {
	loop *Loop
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, func() {
		_ = s.loop.Submit(func(*Controller) { f() })
	})
}
