package ordering_test

import (
	"testing"

	"github.com/aretw0/reel/internal/ordering"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orders(slides []domain.Slide) map[string]int {
	out := make(map[string]int, len(slides))
	for _, s := range slides {
		out[s.ID] = s.Order
	}
	return out
}

func ids(slides []domain.Slide) []string {
	out := make([]string, len(slides))
	for i, s := range slides {
		out[i] = s.ID
	}
	return out
}

func TestRecompute_FolderThenUnassigned(t *testing.T) {
	folders := []domain.Folder{{ID: "F1", Order: 0}}
	// S3 was just dragged above S1 inside F1; stored orders are stale on purpose.
	flat := []domain.Slide{
		{ID: "S3", FolderID: "F1", Order: 3},
		{ID: "S2", Order: 1},
		{ID: "S1", FolderID: "F1", Order: 2},
	}

	res := ordering.Recompute(flat, nil, folders)
	assert.Equal(t, map[string]int{"S3": 1, "S1": 2, "S2": 3}, orders(res.Slides))
	assert.Equal(t, []string{"S3", "S1", "S2"}, ids(res.Slides))
	assert.Empty(t, res.Issues)
}

func TestRecompute_FolderOrder(t *testing.T) {
	folders := []domain.Folder{
		{ID: "late", Order: 5},
		{ID: "early", Order: 1},
		{ID: "tie", Order: 5},
	}
	flat := []domain.Slide{
		{ID: "u1"},
		{ID: "l1", FolderID: "late"},
		{ID: "e1", FolderID: "early"},
		{ID: "t1", FolderID: "tie"},
		{ID: "l2", FolderID: "late"},
		{ID: "e2", FolderID: "early"},
	}

	res := ordering.Recompute(flat, nil, folders)
	assert.Equal(t, []string{"e1", "e2", "l1", "l2", "t1", "u1"}, ids(res.Slides))
	for i, s := range res.Slides {
		assert.Equal(t, i+1, s.Order)
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	folders := []domain.Folder{{ID: "a", Order: 2}, {ID: "b", Order: 1}}
	flat := []domain.Slide{
		{ID: "1", FolderID: "a", Order: 9},
		{ID: "2", Order: 4},
		{ID: "3", FolderID: "b", Order: 1},
		{ID: "4", FolderID: "ghost"},
		{ID: "5", FolderID: "a"},
	}

	first := ordering.Recompute(flat, nil, folders)
	second := ordering.Recompute(first.Slides, nil, folders)

	assert.Equal(t, orders(first.Slides), orders(second.Slides))
	assert.Equal(t, ids(first.Slides), ids(second.Slides))
	assert.Empty(t, second.Changed, "re-running on its own output is a no-op")
}

func TestRecompute_UnknownFolderFailsOpen(t *testing.T) {
	flat := []domain.Slide{
		{ID: "x", FolderID: "ghost"},
		{ID: "y", FolderID: "F"},
	}
	res := ordering.Recompute(flat, nil, []domain.Folder{{ID: "F"}})

	require.Len(t, res.Slides, 2, "no slide is dropped")
	assert.Equal(t, []string{"y", "x"}, ids(res.Slides))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "x", res.Issues[0].SlideID)
	assert.Equal(t, "ghost", res.Issues[0].FolderID)
}

func TestRecompute_Assignments(t *testing.T) {
	folders := []domain.Folder{{ID: "F", Order: 0}}
	flat := []domain.Slide{
		{ID: "a", Order: 1},
		{ID: "b", FolderID: "F", Order: 2},
		{ID: "c", Order: 3},
	}

	res := ordering.Recompute(flat, map[string]string{"c": "F", "b": ""}, folders)
	assert.Equal(t, []string{"c", "a", "b"}, ids(res.Slides))
	assert.Equal(t, "F", res.Slides[0].FolderID)
	assert.Equal(t, "", res.Slides[2].FolderID)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Changed)

	assert.Equal(t, 1, flat[0].Order, "input is not mutated")
}

func TestMove(t *testing.T) {
	flat := []domain.Slide{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, []string{"c", "a", "b"}, ids(ordering.Move(flat, "c", 0)))
	assert.Equal(t, []string{"b", "c", "a"}, ids(ordering.Move(flat, "a", 99)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(ordering.Move(flat, "missing", 0)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(flat))
}
