package gating

import (
	"github.com/aretw0/reel/pkg/domain"
)

// Snapshot holds the element states reported for the active slide.
// It is a value: every method returns a new Snapshot and leaves the receiver untouched.
type Snapshot struct {
	order    []string
	elements map[string]domain.GatingElement
}

// NewSnapshot seeds a snapshot from the elements a slide declares.
func NewSnapshot(slide domain.Slide) Snapshot {
	s := Snapshot{}
	for _, el := range slide.Elements {
		s = s.Apply(el)
	}
	return s
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		order:    append([]string(nil), s.order...),
		elements: make(map[string]domain.GatingElement, len(s.elements)),
	}
	for k, v := range s.elements {
		out.elements[k] = v
	}
	return out
}

// Apply records a reported element state.
// A latched gate-button stays locked whatever the report says; only Release unlatches it.
func (s Snapshot) Apply(el domain.GatingElement) Snapshot {
	out := s.clone()
	prev, seen := out.elements[el.ID]
	if !seen {
		out.order = append(out.order, el.ID)
	}
	if seen && prev.Kind == domain.KindGateButton && el.Kind == domain.KindGateButton && prev.Locked {
		el.Locked = true
	}
	out.elements[el.ID] = el
	return out
}

// Release clears the latch of a gate-button. It reports false when id is not a known gate-button.
func (s Snapshot) Release(id string) (Snapshot, bool) {
	el, ok := s.elements[id]
	if !ok || el.Kind != domain.KindGateButton {
		return s, false
	}
	out := s.clone()
	el.Locked = false
	out.elements[id] = el
	return out, true
}

// Element returns the recorded state of an element.
func (s Snapshot) Element(id string) (domain.GatingElement, bool) {
	el, ok := s.elements[id]
	return el, ok
}

// Elements returns the recorded states in first-reported order.
func (s Snapshot) Elements() []domain.GatingElement {
	out := make([]domain.GatingElement, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.elements[id])
	}
	return out
}

// Len returns the number of recorded elements.
func (s Snapshot) Len() int {
	return len(s.order)
}
