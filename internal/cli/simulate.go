package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/reel/internal/clock"
	"github.com/aretw0/reel/internal/playback"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/session"
	"gopkg.in/yaml.v3"
)

// DefaultSlideHeight is the slide height used by motion steps without one.
const DefaultSlideHeight = 100

// Script is a recorded sequence of viewer inputs.
//
//	start: intro
//	height: 100
//	steps:
//	  - {type: motion, offset: 100}
//	  - {wait: 600ms}
//	  - {type: element, element: {id: quiz, kind: choice-set, selections: 1}}
//	  - {type: action, trigger: {option_id: "yes"}}
type Script struct {
	Start  string           `yaml:"start"`
	Height float64          `yaml:"height"`
	Steps  []map[string]any `yaml:"steps"`
}

// ParseScript decodes a YAML script.
func ParseScript(b []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if s.Height <= 0 {
		s.Height = DefaultSlideHeight
	}
	return &s, nil
}

// StepResult is what one script step did.
type StepResult struct {
	Step        int                      `json:"step"`
	Input       string                   `json:"input"`
	Accepted    bool                     `json:"accepted"`
	Scrolls     []domain.ScrollCommand   `json:"scrolls,omitempty"`
	Hints       []bool                   `json:"hints,omitempty"`
	Transitions []domain.TransitionEvent `json:"transitions,omitempty"`
	State       domain.PlaybackState     `json:"state"`
}

type traceViewport struct {
	cur *StepResult
}

func (v *traceViewport) ScrollTo(cmd domain.ScrollCommand) {
	v.cur.Scrolls = append(v.cur.Scrolls, cmd)
}

func (v *traceViewport) ForwardAvailable(active bool) {
	v.cur.Hints = append(v.cur.Hints, active)
}

// Simulate replays script through a controller on a virtual clock.
// Timers only fire during wait steps, so the trace is deterministic.
func Simulate(g *domain.Graph, script *Script, cfg playback.Config, logger *slog.Logger) ([]StepResult, error) {
	if script.Start != "" && !g.Has(script.Start) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSlideNotFound, script.Start)
	}

	clk := clock.NewManual()
	vp := &traceViewport{cur: &StepResult{}}
	hooks := domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			ev := *e
			ev.Timestamp = time.Time{}
			vp.cur.Transitions = append(vp.cur.Transitions, ev)
		},
	}

	opts := []playback.Option{
		playback.WithConfig(cfg),
		playback.WithScheduler(clk),
		playback.WithStartSlide(script.Start),
		playback.WithLifecycleHooks(hooks),
	}
	if logger != nil {
		opts = append(opts, playback.WithLogger(logger))
	}
	ctrl := playback.New(g, vp, opts...)
	defer ctrl.Close()

	results := make([]StepResult, 0, len(script.Steps))
	for i, raw := range script.Steps {
		res := StepResult{Step: i + 1}
		vp.cur = &res

		if wait, ok := raw["wait"]; ok {
			d, err := parseWait(wait)
			if err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
			res.Input = "wait " + d.String()
			res.Accepted = true
			clk.Advance(d)
		} else {
			cmd, err := session.DecodeCommand(raw)
			if err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
			if cmd.Type == session.CommandMotion && cmd.Height <= 0 {
				cmd.Height = script.Height
			}
			res.Input = describe(cmd)
			res.Accepted, err = cmd.Apply(ctrl)
			if err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
		}

		res.State = ctrl.State()
		results = append(results, res)
	}
	return results, nil
}

func parseWait(v any) (time.Duration, error) {
	switch w := v.(type) {
	case string:
		d, err := time.ParseDuration(w)
		if err != nil {
			return 0, fmt.Errorf("invalid wait %q: %w", w, err)
		}
		return d, nil
	case int:
		return time.Duration(w) * time.Millisecond, nil
	case float64:
		return time.Duration(w * float64(time.Millisecond)), nil
	}
	return 0, fmt.Errorf("invalid wait %v", v)
}

func describe(cmd session.Command) string {
	switch cmd.Type {
	case session.CommandMotion:
		return fmt.Sprintf("motion %g/%g", cmd.Offset, cmd.Height)
	case session.CommandKey:
		return fmt.Sprintf("key %+d", cmd.Delta)
	case session.CommandAction:
		var parts []string
		if cmd.Trigger.ElementID != "" {
			parts = append(parts, "element="+cmd.Trigger.ElementID)
		}
		if cmd.Trigger.ItemID != "" {
			parts = append(parts, "item="+cmd.Trigger.ItemID)
		}
		if cmd.Trigger.OptionID != "" {
			parts = append(parts, "option="+cmd.Trigger.OptionID)
		}
		return "action " + strings.Join(parts, ",")
	case session.CommandElement:
		return fmt.Sprintf("element %v", cmd.Element["id"])
	case session.CommandRelease:
		return "release " + cmd.ElementID
	}
	return string(cmd.Type)
}

// WriteTrace prints one line per step, followed by the transitions it caused.
func WriteTrace(w io.Writer, results []StepResult) {
	for _, r := range results {
		st := r.State
		fmt.Fprintf(w, "%3d  %-24s active=%s(%d) phase=%s locked=%v watermark=%d",
			r.Step, r.Input, st.ActiveID, st.ActiveIndex, st.Phase, st.Locked, st.Watermark)
		if !r.Accepted {
			fmt.Fprint(w, " ignored")
		}
		fmt.Fprintln(w)
		for _, t := range r.Transitions {
			fmt.Fprintf(w, "       %d -> %d (%s", t.From, t.To, t.Cause)
			if t.Rule != "" {
				fmt.Fprintf(w, ", %s", t.Rule)
			}
			fmt.Fprintln(w, ")")
		}
	}
}
