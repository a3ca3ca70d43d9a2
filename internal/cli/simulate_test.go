package cli_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/internal/playback"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphOf(slides ...domain.Slide) *domain.Graph {
	for i := range slides {
		slides[i].Order = i + 1
	}
	return domain.NewGraph(&domain.Deck{Slides: slides})
}

func TestParseScript(t *testing.T) {
	s, err := cli.ParseScript([]byte(`
start: intro
steps:
  - {type: key, delta: 1}
  - {wait: 600ms}
`))
	require.NoError(t, err)
	assert.Equal(t, "intro", s.Start)
	assert.Equal(t, float64(cli.DefaultSlideHeight), s.Height)
	assert.Len(t, s.Steps, 2)

	_, err = cli.ParseScript([]byte("steps: [unterminated"))
	assert.Error(t, err)
}

func TestSimulate(t *testing.T) {
	tests := []struct {
		name   string
		graph  *domain.Graph
		script string
		check  func(t *testing.T, res []cli.StepResult)
	}{
		{
			name: "default next overrides linear swipe",
			graph: graphOf(
				domain.Slide{ID: "A", Connections: &domain.Connections{DefaultNext: "C"}},
				domain.Slide{ID: "B"},
				domain.Slide{ID: "C"},
			),
			script: `
steps:
  - {type: motion, offset: 100}
  - {wait: 600ms}
`,
			check: func(t *testing.T, res []cli.StepResult) {
				require.Len(t, res, 2)
				assert.Equal(t, "C", res[0].State.ActiveID)
				assert.Equal(t, domain.PhaseProgrammatic, res[0].State.Phase)
				require.Len(t, res[0].Transitions, 1)
				assert.Equal(t, domain.CauseOverride, res[0].Transitions[0].Cause)
				assert.Equal(t, "default_next", res[0].Transitions[0].Rule)
				assert.Equal(t, []domain.ScrollCommand{{Index: 2, Animated: true}}, res[0].Scrolls)

				assert.Equal(t, "wait 600ms", res[1].Input)
				assert.Equal(t, domain.PhaseIdle, res[1].State.Phase)
			},
		},
		{
			name: "locked gate reverses until released",
			graph: graphOf(
				domain.Slide{ID: "A", Elements: []domain.GatingElement{
					{ID: "gate", Kind: domain.KindGateButton, Locked: true},
				}},
				domain.Slide{ID: "B"},
			),
			script: `
steps:
  - {type: motion, offset: 100}
  - {wait: 600}
  - {type: release, element_id: gate}
  - {type: key, delta: 1}
`,
			check: func(t *testing.T, res []cli.StepResult) {
				require.Len(t, res, 4)
				assert.Equal(t, "A", res[0].State.ActiveID)
				require.Len(t, res[0].Transitions, 1)
				assert.Equal(t, domain.CauseReversal, res[0].Transitions[0].Cause)

				assert.True(t, res[2].Accepted)
				assert.False(t, res[2].State.Locked)

				assert.Equal(t, "B", res[3].State.ActiveID)
			},
		},
		{
			name:  "actions past the last slide are ignored",
			graph: graphOf(domain.Slide{ID: "only"}),
			script: `
steps:
  - {type: action, trigger: {option_id: "next"}}
`,
			check: func(t *testing.T, res []cli.StepResult) {
				require.Len(t, res, 1)
				assert.False(t, res[0].Accepted)
				assert.Equal(t, "action option=next", res[0].Input)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := cli.ParseScript([]byte(tt.script))
			require.NoError(t, err)
			res, err := cli.Simulate(tt.graph, script, playback.DefaultConfig(), nil)
			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}

func TestSimulate_Errors(t *testing.T) {
	g := graphOf(domain.Slide{ID: "A"}, domain.Slide{ID: "B"})

	_, err := cli.Simulate(g, &cli.Script{Start: "ghost", Height: 100}, playback.DefaultConfig(), nil)
	assert.ErrorIs(t, err, domain.ErrSlideNotFound)

	tests := []struct {
		name string
		step map[string]any
		want string
	}{
		{"bad wait", map[string]any{"wait": "soon"}, "invalid wait"},
		{"unknown command", map[string]any{"type": "teleport"}, "unknown command"},
		{"bad element", map[string]any{"type": "element", "element": map[string]any{"kind": "form"}}, "missing id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := &cli.Script{Height: 100, Steps: []map[string]any{{"type": "key", "delta": 1}, tt.step}}
			res, err := cli.Simulate(g, script, playback.DefaultConfig(), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "step 2")
			assert.Contains(t, err.Error(), tt.want)
			assert.Len(t, res, 1, "steps before the failure are kept")
		})
	}
}

func TestWriteTrace(t *testing.T) {
	g := graphOf(
		domain.Slide{ID: "A", Connections: &domain.Connections{DefaultNext: "C"}},
		domain.Slide{ID: "B"},
		domain.Slide{ID: "C"},
	)
	script := &cli.Script{Height: 100, Steps: []map[string]any{
		{"type": "motion", "offset": 100},
		{"type": "key", "delta": 1},
	}}
	res, err := cli.Simulate(g, script, playback.DefaultConfig(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	cli.WriteTrace(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "motion 100/100")
	assert.Contains(t, out, "active=C(2)")
	assert.Contains(t, out, "0 -> 2 (override, default_next)")
	assert.Contains(t, out, "key +1")
}
