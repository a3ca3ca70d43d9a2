package middleware

import (
	"context"
	"strings"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

type sanitizeMiddleware struct {
	next ports.SlideStore
}

// NewSanitizeMiddleware normalizes connection maps before they are written:
// keys and targets are trimmed and rules with an empty key or target are
// dropped. Values read back are untouched.
func NewSanitizeMiddleware() Middleware {
	return func(next ports.SlideStore) ports.SlideStore {
		return &sanitizeMiddleware{next: next}
	}
}

func (m *sanitizeMiddleware) LoadDeck(ctx context.Context) (*domain.Deck, error) {
	return m.next.LoadDeck(ctx)
}

func (m *sanitizeMiddleware) SetOrder(ctx context.Context, slideID string, order int, revision int64) (int64, error) {
	return m.next.SetOrder(ctx, slideID, order, revision)
}

func (m *sanitizeMiddleware) SetConnections(ctx context.Context, slideID string, conns domain.Connections, revision int64) (int64, error) {
	clean := domain.Connections{
		DefaultNext: strings.TrimSpace(conns.DefaultNext),
		PerOption:   cleanMap(conns.PerOption),
		PerElement:  cleanMap(conns.PerElement),
	}
	return m.next.SetConnections(ctx, slideID, clean, revision)
}

func cleanMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
