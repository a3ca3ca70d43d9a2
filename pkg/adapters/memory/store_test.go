package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunSlideStoreContract(t, func(t *testing.T, deck *domain.Deck) ports.SlideStore {
		return memory.NewStore(deck)
	})
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore(ports.ContractDeck())
	ctx := context.Background()

	deck, err := store.LoadDeck(ctx)
	require.NoError(t, err)
	deck.Slides[0].Connections.DefaultNext = "mutated"

	again, err := store.LoadDeck(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", again.Slides[0].Connections.DefaultNext)
}

func TestNewFromSlides(t *testing.T) {
	store, err := memory.NewFromSlides(domain.Slide{ID: "a"}, domain.Slide{ID: "b"})
	require.NoError(t, err)
	deck, _ := store.LoadDeck(context.Background())
	assert.Equal(t, 1, deck.Slides[0].Order)
	assert.Equal(t, 2, deck.Slides[1].Order)

	_, err = memory.NewFromSlides(domain.Slide{ID: "a"}, domain.Slide{ID: "a"})
	assert.Error(t, err)
	_, err = memory.NewFromSlides(domain.Slide{})
	assert.Error(t, err)
}

func TestMemoryStore_Watch(t *testing.T) {
	store := memory.NewStore(ports.ContractDeck())
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := store.Watch(ctx)
	require.NoError(t, err)

	_, err = store.SetOrder(ctx, "a", 10, 0)
	require.NoError(t, err)

	select {
	case id := <-ch:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
}
