package session

import (
	"errors"
	"fmt"

	"github.com/aretw0/reel/internal/playback"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// CommandType names an input a session accepts.
type CommandType string

const (
	CommandMotion  CommandType = "motion"
	CommandKey     CommandType = "key"
	CommandAction  CommandType = "action"
	CommandElement CommandType = "element"
	CommandRelease CommandType = "release"
)

// ErrUnknownCommand is returned for a command type the session does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one viewer input. Only the fields of its Type are read.
type Command struct {
	Type CommandType `json:"type" yaml:"type" mapstructure:"type"`

	// motion
	Offset float64 `json:"offset,omitempty" yaml:"offset,omitempty" mapstructure:"offset"`
	Height float64 `json:"height,omitempty" yaml:"height,omitempty" mapstructure:"height"`

	// key
	Delta int `json:"delta,omitempty" yaml:"delta,omitempty" mapstructure:"delta"`

	// action
	Trigger domain.Trigger `json:"trigger,omitempty" yaml:"trigger,omitempty" mapstructure:"trigger"`

	// element, release; empty means the active slide
	SlideID   string         `json:"slide_id,omitempty" yaml:"slide_id,omitempty" mapstructure:"slide_id"`
	Element   map[string]any `json:"element,omitempty" yaml:"element,omitempty" mapstructure:"element"`
	ElementID string         `json:"element_id,omitempty" yaml:"element_id,omitempty" mapstructure:"element_id"`
}

// DecodeCommand converts a loosely typed payload into a Command.
func DecodeCommand(raw map[string]any) (Command, error) {
	var cmd Command
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cmd,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return cmd, fmt.Errorf("failed to build command decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return cmd, fmt.Errorf("failed to decode command: %w", err)
	}
	return cmd, nil
}

// Apply feeds the command to a controller. It reports whether the controller
// accepted it; motion and key inputs are always accepted.
func (c Command) Apply(ctrl *playback.Controller) (bool, error) {
	switch c.Type {
	case CommandMotion:
		ctrl.Motion(c.Offset, c.Height)
		return true, nil
	case CommandKey:
		ctrl.Key(c.Delta)
		return true, nil
	case CommandAction:
		return ctrl.Action(c.Trigger), nil
	case CommandElement:
		el, err := domain.DecodeElement(c.Element)
		if err != nil {
			return false, err
		}
		return ctrl.UpdateElement(c.SlideID, el), nil
	case CommandRelease:
		if c.ElementID == "" {
			return false, fmt.Errorf("release needs an element_id")
		}
		return ctrl.Release(c.SlideID, c.ElementID), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
}
