package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ElementKind identifies how a gating element decides whether it blocks.
type ElementKind string

const (
	// KindGateButton blocks while its lock flag is latched.
	KindGateButton ElementKind = "gate-button"
	// KindChoiceSet blocks while locked and nothing has been selected.
	KindChoiceSet ElementKind = "choice-set"
	// KindProgressMeter blocks until progress reaches its target.
	KindProgressMeter ElementKind = "progress-meter"
	// KindForm blocks while locked and invalid.
	KindForm ElementKind = "form"
)

// Valid reports whether k is one of the known kinds.
func (k ElementKind) Valid() bool {
	switch k {
	case KindGateButton, KindChoiceSet, KindProgressMeter, KindForm:
		return true
	}
	return false
}

// GatingElement is the state an interactive element reports about itself.
// Only the fields relevant to its Kind are read.
type GatingElement struct {
	ID   string      `json:"id" yaml:"id" mapstructure:"id"`
	Kind ElementKind `json:"kind" yaml:"kind" mapstructure:"kind"`

	Locked     bool    `json:"locked,omitempty" yaml:"locked,omitempty" mapstructure:"locked"`
	Selections int     `json:"selections,omitempty" yaml:"selections,omitempty" mapstructure:"selections"`
	Progress   float64 `json:"progress,omitempty" yaml:"progress,omitempty" mapstructure:"progress"`
	Target     float64 `json:"target,omitempty" yaml:"target,omitempty" mapstructure:"target"`
	Valid      bool    `json:"valid,omitempty" yaml:"valid,omitempty" mapstructure:"valid"`
}

// DecodeElement converts a loosely typed payload (JSON body, YAML script step)
// into a GatingElement. Numeric strings are accepted.
func DecodeElement(raw map[string]any) (GatingElement, error) {
	var el GatingElement
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &el,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return el, fmt.Errorf("failed to build element decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return el, fmt.Errorf("failed to decode element: %w", err)
	}
	if el.ID == "" {
		return el, fmt.Errorf("element missing id")
	}
	if !el.Kind.Valid() {
		return el, fmt.Errorf("element %s has unknown kind %q", el.ID, el.Kind)
	}
	return el, nil
}

// Trigger carries the identifiers of an explicit interaction.
// The zero value means "no explicit trigger" (plain linear motion).
type Trigger struct {
	ElementID string `json:"element_id,omitempty" yaml:"element_id,omitempty" mapstructure:"element_id"`
	ItemID    string `json:"item_id,omitempty" yaml:"item_id,omitempty" mapstructure:"item_id"`
	OptionID  string `json:"option_id,omitempty" yaml:"option_id,omitempty" mapstructure:"option_id"`
}

// IsZero reports whether the trigger names nothing.
func (t Trigger) IsZero() bool {
	return t.ElementID == "" && t.ItemID == "" && t.OptionID == ""
}
