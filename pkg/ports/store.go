package ports

import (
	"context"

	"github.com/aretw0/reel/pkg/domain"
)

// SlideStore is the persistence boundary of the engine.
// Setters are idempotent: writing a value the store already holds succeeds
// without bumping the revision. A write based on a stale revision fails with
// an error matching domain.ErrConflict.
type SlideStore interface {
	// LoadDeck returns every slide and folder. Slides carry their current revision.
	LoadDeck(ctx context.Context) (*domain.Deck, error)

	// SetOrder sets the canonical order of a slide and returns its new revision.
	SetOrder(ctx context.Context, slideID string, order int, revision int64) (int64, error)

	// SetConnections replaces the connection map of a slide and returns its new revision.
	SetConnections(ctx context.Context, slideID string, conns domain.Connections, revision int64) (int64, error)
}
