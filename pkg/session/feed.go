package session

import (
	"sync"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// feedBuffer is the number of events a slow subscriber may lag behind.
const feedBuffer = 16

// ViewportEvent is a viewport command as seen by a remote viewer.
type ViewportEvent struct {
	Type      string    `json:"type"` // "scroll" or "hint"
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"`
	Animated  bool      `json:"animated"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
}

// Feed is a ports.Viewport that broadcasts every command to its subscribers.
// A subscriber that falls behind loses events instead of blocking the loop.
type Feed struct {
	sessionID string

	mu      sync.Mutex
	subs    map[chan ViewportEvent]struct{}
	dropped int
	closed  bool
}

func newFeed(sessionID string) *Feed {
	return &Feed{sessionID: sessionID, subs: make(map[chan ViewportEvent]struct{})}
}

// ScrollTo implements ports.Viewport.
func (f *Feed) ScrollTo(cmd domain.ScrollCommand) {
	f.publish(ViewportEvent{Type: "scroll", Index: cmd.Index, Animated: cmd.Animated})
}

// ForwardAvailable implements ports.Viewport.
func (f *Feed) ForwardAvailable(active bool) {
	f.publish(ViewportEvent{Type: "hint", Active: active})
}

func (f *Feed) publish(ev ViewportEvent) {
	ev.SessionID = f.sessionID
	ev.Timestamp = time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
			f.dropped++
		}
	}
}

// Subscribe returns a channel of viewport events and a cancel func.
// The channel is closed by cancel or when the session closes.
func (f *Feed) Subscribe() (<-chan ViewportEvent, func()) {
	ch := make(chan ViewportEvent, feedBuffer)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
		})
	}
}

// Dropped returns how many events were lost to slow subscribers.
func (f *Feed) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func (f *Feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}

// multiViewport sends every command to several viewports in order.
type multiViewport []ports.Viewport

func (m multiViewport) ScrollTo(cmd domain.ScrollCommand) {
	for _, v := range m {
		v.ScrollTo(cmd)
	}
}

func (m multiViewport) ForwardAvailable(active bool) {
	for _, v := range m {
		v.ForwardAvailable(active)
	}
}
