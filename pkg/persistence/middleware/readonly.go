package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// ErrReadOnly is returned by writes through a read-only store.
var ErrReadOnly = errors.New("store is read-only")

type readOnlyMiddleware struct {
	next ports.SlideStore
}

// NewReadOnlyMiddleware rejects every write.
func NewReadOnlyMiddleware() Middleware {
	return func(next ports.SlideStore) ports.SlideStore {
		return &readOnlyMiddleware{next: next}
	}
}

func (m *readOnlyMiddleware) LoadDeck(ctx context.Context) (*domain.Deck, error) {
	return m.next.LoadDeck(ctx)
}

func (m *readOnlyMiddleware) SetOrder(ctx context.Context, slideID string, order int, revision int64) (int64, error) {
	return 0, fmt.Errorf("set order of %s: %w", slideID, ErrReadOnly)
}

func (m *readOnlyMiddleware) SetConnections(ctx context.Context, slideID string, conns domain.Connections, revision int64) (int64, error) {
	return 0, fmt.Errorf("set connections of %s: %w", slideID, ErrReadOnly)
}
