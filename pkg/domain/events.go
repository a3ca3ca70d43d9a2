package domain

import (
	"context"
	"time"
)

// ScrollCommand asks the viewport to bring a slide index into view.
type ScrollCommand struct {
	Index    int  `json:"index"`
	Animated bool `json:"animated"`
}

// Cause explains why the active slide changed (or refused to change).
type Cause string

const (
	CauseMotion   Cause = "motion"   // user drag/scroll settled on a new slide
	CauseKey      Cause = "key"      // discrete keyboard/alternate input
	CauseAction   Cause = "action"   // explicit tap on an interactive element
	CauseOverride Cause = "override" // graph connection replaced linear motion
	CauseReversal Cause = "reversal" // forward motion undone because the slide is locked
	CauseReload   Cause = "reload"   // graph reloaded from the store
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
}

// SlideEvent represents entering or leaving a slide.
type SlideEvent struct {
	EventBase
	SlideID string `json:"slide_id"`
	Index   int    `json:"index"`
	Cause   Cause  `json:"cause"`
}

// TransitionEvent represents a decision taken by the playback controller.
type TransitionEvent struct {
	EventBase
	From  int    `json:"from"`
	To    int    `json:"to"`
	Cause Cause  `json:"cause"`
	Rule  string `json:"rule,omitempty"`
}

// GateEvent represents a change of the active slide's lock state.
type GateEvent struct {
	EventBase
	SlideID  string   `json:"slide_id"`
	Locked   bool     `json:"locked"`
	Blockers []string `json:"blockers,omitempty"`
}

// LifecycleHooks defines callbacks for playback observability.
// Every field is optional.
type LifecycleHooks struct {
	OnSlideEnter func(context.Context, *SlideEvent)
	OnSlideLeave func(context.Context, *SlideEvent)
	OnTransition func(context.Context, *TransitionEvent)
	OnGateChange func(context.Context, *GateEvent)
	OnWatermark  func(context.Context, int)
}
