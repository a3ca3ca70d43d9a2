package ports

import (
	"context"
	"testing"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ContractDeck returns the fixture deck used by RunSlideStoreContract.
func ContractDeck() *domain.Deck {
	return &domain.Deck{
		Folders: []domain.Folder{{ID: "intro", Name: "Intro", Order: 0}},
		Slides: []domain.Slide{
			{ID: "a", Order: 1, FolderID: "intro", Connections: &domain.Connections{DefaultNext: "c"}},
			{ID: "b", Order: 2, FolderID: "intro"},
			{ID: "c", Order: 3, Connections: &domain.Connections{
				PerOption:  map[string]string{"opt1": "a"},
				PerElement: map[string]string{"el1#item1": "b"},
			}},
		},
	}
}

// RunSlideStoreContract runs a suite of tests to verify that a SlideStore implementation
// adheres to the defined interface contract. newStore must return a store seeded with deck.
func RunSlideStoreContract(t *testing.T, newStore func(t *testing.T, deck *domain.Deck) SlideStore) {
	ctx := context.Background()

	load := func(t *testing.T, store SlideStore, id string) domain.Slide {
		t.Helper()
		deck, err := store.LoadDeck(ctx)
		require.NoError(t, err)
		for _, s := range deck.Slides {
			if s.ID == id {
				return s
			}
		}
		t.Fatalf("slide %s missing from deck", id)
		return domain.Slide{}
	}

	t.Run("Load Deck", func(t *testing.T) {
		store := newStore(t, ContractDeck())

		deck, err := store.LoadDeck(ctx)
		require.NoError(t, err)
		assert.Len(t, deck.Slides, 3)
		require.Len(t, deck.Folders, 1)
		assert.Equal(t, "Intro", deck.Folders[0].Name)

		a := load(t, store, "a")
		assert.Equal(t, 1, a.Order)
		assert.Equal(t, "intro", a.FolderID)
		require.NotNil(t, a.Connections)
		assert.Equal(t, "c", a.Connections.DefaultNext)

		c := load(t, store, "c")
		require.NotNil(t, c.Connections)
		assert.Equal(t, "b", c.Connections.PerElement["el1#item1"])
	})

	t.Run("Set Order", func(t *testing.T) {
		store := newStore(t, ContractDeck())
		before := load(t, store, "b")

		rev, err := store.SetOrder(ctx, "b", 7, before.Revision)
		require.NoError(t, err)
		assert.Greater(t, rev, before.Revision)

		after := load(t, store, "b")
		assert.Equal(t, 7, after.Order)
		assert.Equal(t, rev, after.Revision)
	})

	t.Run("Set Order Is Idempotent", func(t *testing.T) {
		store := newStore(t, ContractDeck())
		before := load(t, store, "b")

		rev, err := store.SetOrder(ctx, "b", 7, before.Revision)
		require.NoError(t, err)

		// Replaying the same write with the stale revision is a no-op, not a conflict.
		again, err := store.SetOrder(ctx, "b", 7, before.Revision)
		require.NoError(t, err)
		assert.Equal(t, rev, again)
	})

	t.Run("Set Order Conflict", func(t *testing.T) {
		store := newStore(t, ContractDeck())
		before := load(t, store, "b")

		_, err := store.SetOrder(ctx, "b", 7, before.Revision)
		require.NoError(t, err)

		_, err = store.SetOrder(ctx, "b", 9, before.Revision)
		assert.ErrorIs(t, err, domain.ErrConflict)

		var conflict *domain.ConflictError
		if assert.ErrorAs(t, err, &conflict) {
			assert.Equal(t, "b", conflict.SlideID)
		}
		assert.Equal(t, 7, load(t, store, "b").Order, "conflicting write must not be applied")
	})

	t.Run("Set Order Unknown Slide", func(t *testing.T) {
		store := newStore(t, ContractDeck())
		_, err := store.SetOrder(ctx, "missing", 1, 0)
		assert.ErrorIs(t, err, domain.ErrSlideNotFound)
	})

	t.Run("Set Connections", func(t *testing.T) {
		store := newStore(t, ContractDeck())
		before := load(t, store, "b")

		conns := domain.Connections{
			DefaultNext: "a",
			PerOption:   map[string]string{"yes": "c"},
		}
		rev, err := store.SetConnections(ctx, "b", conns, before.Revision)
		require.NoError(t, err)
		assert.Greater(t, rev, before.Revision)

		after := load(t, store, "b")
		require.NotNil(t, after.Connections)
		assert.True(t, after.Connections.Equal(&conns))

		again, err := store.SetConnections(ctx, "b", conns, before.Revision)
		require.NoError(t, err, "identical write must be idempotent")
		assert.Equal(t, rev, again)

		_, err = store.SetConnections(ctx, "b", domain.Connections{DefaultNext: "c"}, before.Revision)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Set Connections Unknown Slide", func(t *testing.T) {
		store := newStore(t, ContractDeck())
		_, err := store.SetConnections(ctx, "missing", domain.Connections{}, 0)
		assert.ErrorIs(t, err, domain.ErrSlideNotFound)
	})
}
