package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.SlideStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs every write with its latency. Conflicts are
// logged at info, other failures at warn.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.SlideStore) ports.SlideStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) LoadDeck(ctx context.Context) (*domain.Deck, error) {
	start := time.Now()
	deck, err := m.next.LoadDeck(ctx)
	if err != nil {
		m.logger.Warn("load deck failed", "error", err, "took", time.Since(start))
		return nil, err
	}
	m.logger.Debug("deck loaded", "slides", len(deck.Slides), "folders", len(deck.Folders), "took", time.Since(start))
	return deck, nil
}

func (m *loggingMiddleware) SetOrder(ctx context.Context, slideID string, order int, revision int64) (int64, error) {
	start := time.Now()
	rev, err := m.next.SetOrder(ctx, slideID, order, revision)
	m.log("set order", slideID, revision, rev, err, time.Since(start))
	return rev, err
}

func (m *loggingMiddleware) SetConnections(ctx context.Context, slideID string, conns domain.Connections, revision int64) (int64, error) {
	start := time.Now()
	rev, err := m.next.SetConnections(ctx, slideID, conns, revision)
	m.log("set connections", slideID, revision, rev, err, time.Since(start))
	return rev, err
}

func (m *loggingMiddleware) log(op, slideID string, base, rev int64, err error, took time.Duration) {
	switch {
	case err == nil:
		m.logger.Debug(op, "slide", slideID, "base", base, "revision", rev, "took", took)
	case errors.Is(err, domain.ErrConflict):
		m.logger.Info(op+" conflict", "slide", slideID, "base", base, "error", err)
	default:
		m.logger.Warn(op+" failed", "slide", slideID, "base", base, "error", err)
	}
}
