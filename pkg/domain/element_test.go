package domain_test

import (
	"testing"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeElement(t *testing.T) {
	el, err := domain.DecodeElement(map[string]any{
		"id":       "meter",
		"kind":     "progress-meter",
		"progress": "0.5",
		"target":   1,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GatingElement{ID: "meter", Kind: domain.KindProgressMeter, Progress: 0.5, Target: 1}, el)

	el, err = domain.DecodeElement(map[string]any{"id": "g", "kind": "gate-button", "locked": "true"})
	require.NoError(t, err)
	assert.True(t, el.Locked)
}

func TestDecodeElement_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"missing id", map[string]any{"kind": "form"}, "missing id"},
		{"unknown kind", map[string]any{"id": "x", "kind": "slider"}, "unknown kind"},
		{"bad type", map[string]any{"id": "x", "kind": "form", "selections": "many"}, "failed to decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.DecodeElement(tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTrigger_IsZero(t *testing.T) {
	assert.True(t, domain.Trigger{}.IsZero())
	assert.False(t, domain.Trigger{OptionID: "o"}.IsZero())
}
