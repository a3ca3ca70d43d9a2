package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/persistence/middleware"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewares_KeepContract(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ports.RunSlideStoreContract(t, func(t *testing.T, deck *domain.Deck) ports.SlideStore {
		return middleware.Chain(memory.NewStore(deck),
			middleware.NewLoggingMiddleware(logger),
			middleware.NewSanitizeMiddleware(),
		)
	})
	assert.Contains(t, buf.String(), "set order conflict")
}

func TestSanitizeMiddleware(t *testing.T) {
	inner := memory.NewStore(ports.ContractDeck())
	store := middleware.Chain(inner, middleware.NewSanitizeMiddleware())
	ctx := context.Background()

	_, err := store.SetConnections(ctx, "b", domain.Connections{
		DefaultNext: " c ",
		PerOption:   map[string]string{" yes ": "a", "": "c", "no": " "},
		PerElement:  map[string]string{"x": ""},
	}, 0)
	require.NoError(t, err)

	deck, err := inner.LoadDeck(ctx)
	require.NoError(t, err)
	b := deck.Slides[1]
	require.NotNil(t, b.Connections)
	assert.Equal(t, "c", b.Connections.DefaultNext)
	assert.Equal(t, map[string]string{"yes": "a"}, b.Connections.PerOption)
	assert.Nil(t, b.Connections.PerElement)
}

func TestReadOnlyMiddleware(t *testing.T) {
	store := middleware.Chain(memory.NewStore(ports.ContractDeck()), middleware.NewReadOnlyMiddleware())
	ctx := context.Background()

	deck, err := store.LoadDeck(ctx)
	require.NoError(t, err)
	assert.Len(t, deck.Slides, 3)

	_, err = store.SetOrder(ctx, "a", 2, 0)
	assert.ErrorIs(t, err, middleware.ErrReadOnly)
	_, err = store.SetConnections(ctx, "a", domain.Connections{}, 0)
	assert.ErrorIs(t, err, middleware.ErrReadOnly)
}
