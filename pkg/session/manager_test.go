package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graph() *domain.Graph {
	return domain.NewGraph(&domain.Deck{Slides: []domain.Slide{
		{ID: "intro", Order: 1, Connections: &domain.Connections{PerOption: map[string]string{"skip": "end"}}},
		{ID: "gate", Order: 2, Elements: []domain.GatingElement{{ID: "ok", Kind: domain.KindGateButton, Locked: true}}},
		{ID: "end", Order: 3},
	}})
}

func TestManager_Lifecycle(t *testing.T) {
	var counts []int
	var mu sync.Mutex
	m := session.NewManager(graph(), session.WithSessionCount(func(n int) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, n)
	}))
	ctx := context.Background()

	s, err := m.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID}, m.List())

	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "intro", st.ActiveID)

	require.NoError(t, m.Close(s.ID))
	assert.ErrorIs(t, m.Close(s.ID), session.ErrSessionNotFound)
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Equal(t, []int{1, 0}, counts)
}

func TestManager_CreateUnknownStart(t *testing.T) {
	m := session.NewManager(graph())
	_, err := m.Create(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSlideNotFound)
	assert.Empty(t, m.List())
}

func TestManager_Dispatch(t *testing.T) {
	m := session.NewManager(graph())
	t.Cleanup(m.CloseAll)
	ctx := context.Background()

	s, err := m.Create(ctx, "gate")
	require.NoError(t, err)

	st, _, err := m.Dispatch(ctx, s.ID, session.Command{Type: session.CommandKey, Delta: 1})
	require.NoError(t, err)
	assert.Equal(t, "gate", st.ActiveID, "locked gate reverses forward key")
	assert.Equal(t, domain.PhaseProgrammatic, st.Phase)

	st, accepted, err := m.Dispatch(ctx, s.ID, session.Command{Type: session.CommandRelease, ElementID: "ok"})
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.False(t, st.Locked)

	_, accepted, err = m.Dispatch(ctx, s.ID, session.Command{
		Type:    session.CommandElement,
		SlideID: "intro",
		Element: map[string]any{"id": "x", "kind": "form", "locked": true},
	})
	require.NoError(t, err)
	assert.False(t, accepted, "stale slide id")

	_, _, err = m.Dispatch(ctx, s.ID, session.Command{Type: "jump"})
	assert.ErrorIs(t, err, session.ErrUnknownCommand)

	_, _, err = m.Dispatch(ctx, "missing", session.Command{Type: session.CommandKey, Delta: 1})
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestManager_FeedAndExtraViewport(t *testing.T) {
	var extra []domain.ScrollCommand
	var mu sync.Mutex
	m := session.NewManager(graph(), session.WithViewport(func(string) ports.Viewport {
		return ports.ViewportFunc(func(cmd domain.ScrollCommand) {
			mu.Lock()
			defer mu.Unlock()
			extra = append(extra, cmd)
		})
	}))
	t.Cleanup(m.CloseAll)
	ctx := context.Background()

	s, err := m.Create(ctx, "")
	require.NoError(t, err)
	events, cancel := s.Feed().Subscribe()
	defer cancel()

	_, accepted, err := m.Dispatch(ctx, s.ID, session.Command{Type: session.CommandAction, Trigger: domain.Trigger{OptionID: "skip"}})
	require.NoError(t, err)
	require.True(t, accepted)

	select {
	case ev := <-events:
		assert.Equal(t, "scroll", ev.Type)
		assert.Equal(t, 2, ev.Index)
		assert.Equal(t, s.ID, ev.SessionID)
	case <-time.After(time.Second):
		t.Fatal("no viewport event")
	}

	mu.Lock()
	assert.Equal(t, []domain.ScrollCommand{{Index: 2, Animated: true}}, extra)
	mu.Unlock()

	require.NoError(t, m.Close(s.ID))
	_, open := <-events
	assert.False(t, open, "feed closes with the session")
}

func TestManager_SnapBackToFirstSlideKeepsIndex(t *testing.T) {
	m := session.NewManager(domain.NewGraph(&domain.Deck{Slides: []domain.Slide{
		{ID: "A", Order: 1, Elements: []domain.GatingElement{{ID: "gate", Kind: domain.KindGateButton, Locked: true}}},
		{ID: "B", Order: 2},
	}}))
	t.Cleanup(m.CloseAll)
	ctx := context.Background()

	s, err := m.Create(ctx, "")
	require.NoError(t, err)
	events, cancel := s.Feed().Subscribe()
	defer cancel()

	_, _, err = m.Dispatch(ctx, s.ID, session.Command{Type: session.CommandMotion, Offset: 100, Height: 100})
	require.NoError(t, err)

	var ev session.ViewportEvent
	select {
	case ev = <-events:
	case <-time.After(time.Second):
		t.Fatal("no viewport event")
	}
	require.Equal(t, "scroll", ev.Type)

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, float64(0), payload["index"])
	assert.Equal(t, true, payload["animated"])
	assert.Contains(t, payload, "active")
}

func TestManager_Reload(t *testing.T) {
	m := session.NewManager(graph())
	t.Cleanup(m.CloseAll)
	ctx := context.Background()

	s, err := m.Create(ctx, "end")
	require.NoError(t, err)

	m.Reload(domain.NewGraph(&domain.Deck{Slides: []domain.Slide{
		{ID: "end", Order: 1},
		{ID: "intro", Order: 2},
	}}))

	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "end", st.ActiveID)
	assert.Equal(t, 0, st.ActiveIndex)
	assert.Equal(t, 2, st.Total)

	s2, err := m.Create(ctx, "")
	require.NoError(t, err)
	st, err = s2.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "end", st.ActiveID, "new sessions use the reloaded graph")
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := session.DecodeCommand(map[string]any{
		"type":    "action",
		"trigger": map[string]any{"element_id": "quiz", "item_id": "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, session.CommandAction, cmd.Type)
	assert.Equal(t, domain.Trigger{ElementID: "quiz", ItemID: "b"}, cmd.Trigger)

	cmd, err = session.DecodeCommand(map[string]any{"type": "motion", "offset": "150", "height": 100})
	require.NoError(t, err)
	assert.Equal(t, 150.0, cmd.Offset)
}
