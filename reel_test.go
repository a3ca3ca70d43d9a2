package reel_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/navigation"
	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/persistence"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func folderDeck() *domain.Deck {
	return &domain.Deck{
		Folders: []domain.Folder{{ID: "f1", Name: "F1", Order: 0}},
		Slides: []domain.Slide{
			{ID: "s1", Order: 1, FolderID: "f1"},
			{ID: "s2", Order: 2},
			{ID: "s3", Order: 3, FolderID: "f1", Elements: []domain.GatingElement{
				{ID: "quiz", Kind: domain.KindChoiceSet, Locked: true},
			}},
		},
	}
}

func newEngine(t *testing.T, deck *domain.Deck, opts ...reel.Option) (*reel.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore(deck)
	engine, err := reel.New(context.Background(), store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close(context.Background()) })
	return engine, store
}

func orders(t *testing.T, store ports.SlideStore) map[string]int {
	t.Helper()
	deck, err := store.LoadDeck(context.Background())
	require.NoError(t, err)
	out := make(map[string]int)
	for _, s := range deck.Slides {
		out[s.ID] = s.Order
	}
	return out
}

func TestEngine_ResolveAndEvaluate(t *testing.T) {
	deck := folderDeck()
	deck.Slides[0].Connections = &domain.Connections{PerOption: map[string]string{"yes": "s3"}}
	engine, _ := newEngine(t, deck)

	res := engine.Resolve("s1", domain.Trigger{OptionID: "yes"})
	assert.Equal(t, "s3", res.SlideID)
	assert.Equal(t, navigation.RuleOption, res.Rule)

	res = engine.Resolve("s1", domain.Trigger{})
	assert.Equal(t, "s2", res.SlideID)
	assert.False(t, engine.Resolve("ghost", domain.Trigger{}).Matched())

	locked, blockers := engine.Evaluate("s3", nil)
	assert.True(t, locked)
	assert.Equal(t, []string{"quiz"}, blockers)

	locked, _ = engine.Evaluate("s3", []domain.GatingElement{{ID: "quiz", Kind: domain.KindChoiceSet, Locked: true, Selections: 1}})
	assert.False(t, locked)

	locked, blockers = engine.Evaluate("ghost", nil)
	assert.False(t, locked)
	assert.Empty(t, blockers)
}

func TestEngine_Reorder(t *testing.T) {
	var reports []persistence.Report
	engine, store := newEngine(t, folderDeck(), reel.WithOnCommit(func(r persistence.Report) {
		reports = append(reports, r)
	}))

	result, report, err := engine.Reorder(context.Background(), []string{"s3", "s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, report.Outcome())
	assert.Len(t, reports, 1)

	want := map[string]int{"s3": 1, "s1": 2, "s2": 3}
	assert.Equal(t, want, orders(t, store))
	for _, s := range result.Slides {
		assert.Equal(t, want[s.ID], s.Order)
	}

	first, _ := engine.Graph().At(0)
	assert.Equal(t, "s3", first.ID, "graph reloads after commit")

	// Re-applying the same arrangement writes nothing.
	_, report, err = engine.Reorder(context.Background(), []string{"s3", "s1", "s2"})
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestEngine_ReorderKeepsFolderGrouping(t *testing.T) {
	engine, store := newEngine(t, folderDeck())

	// s2 is unassigned, so it stays behind the folder even when listed first.
	_, _, err := engine.Reorder(context.Background(), []string{"s2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"s1": 1, "s3": 2, "s2": 3}, orders(t, store))
}

func TestEngine_ReorderRejectsBadArrangement(t *testing.T) {
	engine, _ := newEngine(t, folderDeck())

	_, _, err := engine.Reorder(context.Background(), []string{"s1", "ghost"})
	assert.ErrorIs(t, err, domain.ErrSlideNotFound)

	_, _, err = engine.Reorder(context.Background(), []string{"s1", "s1"})
	assert.ErrorContains(t, err, "duplicate")
	assert.Empty(t, engine.Writer().Pending())
}

func TestEngine_SetConnections(t *testing.T) {
	engine, _ := newEngine(t, folderDeck())
	ctx := context.Background()

	report, err := engine.SetConnections(ctx, "s1", domain.Connections{DefaultNext: "s3"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, report.Outcome())
	assert.Equal(t, "s3", engine.Resolve("s1", domain.Trigger{}).SlideID)

	_, err = engine.SetConnections(ctx, "ghost", domain.Connections{})
	assert.ErrorIs(t, err, domain.ErrSlideNotFound)
}

func TestEngine_ConflictKeepsDesiredState(t *testing.T) {
	engine, store := newEngine(t, folderDeck())
	ctx := context.Background()

	// Another editor changes s1 first.
	_, err := store.SetConnections(ctx, "s1", domain.Connections{DefaultNext: "s2"}, 0)
	require.NoError(t, err)

	report, err := engine.SetConnections(ctx, "s1", domain.Connections{DefaultNext: "s3"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeConflict, report.Outcome())
	assert.ErrorIs(t, report.Err(), domain.ErrConflict)
	assert.Equal(t, []string{"s1"}, engine.Writer().Pending())

	report, err = engine.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, report.Outcome())
	assert.Equal(t, "s3", engine.Resolve("s1", domain.Trigger{}).SlideID)
}

func TestEngine_Revert(t *testing.T) {
	engine, store := newEngine(t, folderDeck())
	ctx := context.Background()

	_, err := store.SetOrder(ctx, "s2", 9, 0)
	require.NoError(t, err)
	_, _, err = engine.Reorder(ctx, []string{"s3", "s1", "s2"})
	require.NoError(t, err)
	require.Contains(t, engine.Writer().Pending(), "s2")

	report := engine.Revert("s2")
	require.Len(t, report, 1)
	assert.Equal(t, domain.OutcomeReverted, report.Outcome())
	assert.NotContains(t, engine.Writer().Pending(), "s2")
}

func TestEngine_WatchReloadsSessions(t *testing.T) {
	reloaded := make(chan int, 4)
	engine, store := newEngine(t, folderDeck(), reel.WithOnReload(func(g *domain.Graph) {
		reloaded <- g.Len()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := engine.Sessions().Create(ctx, "s2")
	require.NoError(t, err)
	require.NoError(t, engine.Watch(ctx))

	deck := folderDeck()
	deck.Slides = append([]domain.Slide{{ID: "s0", Order: 0}}, deck.Slides...)
	store.Replace(deck)

	select {
	case n := <-reloaded:
		assert.Equal(t, 4, n)
	case <-time.After(time.Second):
		t.Fatal("graph not reloaded")
	}

	assert.Eventually(t, func() bool {
		st, err := sess.State(ctx)
		return err == nil && st.Total == 4 && st.ActiveID == "s2"
	}, time.Second, 5*time.Millisecond)
}

type plainStore struct{ ports.SlideStore }

func TestEngine_WatchUnsupported(t *testing.T) {
	engine, err := reel.New(context.Background(), plainStore{memory.NewStore(folderDeck())})
	require.NoError(t, err)
	assert.Error(t, engine.Watch(context.Background()))
}

func TestEngine_NewPlayer(t *testing.T) {
	engine, _ := newEngine(t, folderDeck())

	var scrolls []domain.ScrollCommand
	player := engine.NewPlayer(ports.ViewportFunc(func(cmd domain.ScrollCommand) {
		scrolls = append(scrolls, cmd)
	}))
	defer player.Close()

	ctx := context.Background()
	require.NoError(t, player.Do(ctx, func(c *reel.Controller) { c.Key(+1) }))
	st, err := player.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s2", st.ActiveID)
	assert.Len(t, scrolls, 1)
}

func TestEngine_CloseFlushesStagedEdits(t *testing.T) {
	store := memory.NewStore(folderDeck())
	engine, err := reel.New(context.Background(), store, reel.WithWriterOptions(persistence.WithCommitDelay(time.Hour)))
	require.NoError(t, err)

	engine.Writer().StageOrder("s2", 7)
	report := engine.Close(context.Background())
	assert.Equal(t, domain.OutcomeSuccess, report.Outcome())
	assert.Equal(t, 7, orders(t, store)["s2"])
}

func TestNew_Errors(t *testing.T) {
	_, err := reel.New(context.Background(), nil)
	assert.Error(t, err)
}
