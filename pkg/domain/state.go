package domain

// Phase defines the current mode of the playback controller.
type Phase string

const (
	PhaseIdle         Phase = "idle"         // no motion in flight
	PhaseSettling     Phase = "settling"     // a user-driven snap is converging
	PhaseProgrammatic Phase = "programmatic" // an engine-issued jump is in flight
)

// PlaybackState is a read-only snapshot of a playback controller.
type PlaybackState struct {
	Phase       Phase  `json:"phase"`
	ActiveIndex int    `json:"active_index"`
	ActiveID    string `json:"active_id"`
	Locked      bool   `json:"locked"`
	Watermark   int    `json:"watermark"`
	Total       int    `json:"total"`

	// HintActive is true while the "forward motion now available" pulse is showing.
	HintActive bool `json:"hint_active"`

	// Blockers lists the ids of elements currently blocking forward motion.
	Blockers []string `json:"blockers,omitempty"`
}

// Outcome is the structured result of a persistence call.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeConflict Outcome = "conflict"
	OutcomeReverted Outcome = "reverted"
	// OutcomeFailed covers store errors other than conflicts.
	OutcomeFailed Outcome = "failed"
)
