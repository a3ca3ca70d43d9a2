package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/reel/internal/config"
	"github.com/aretw0/reel/pkg/adapters/file"
	"github.com/aretw0/reel/pkg/adapters/redis"
	"github.com/aretw0/reel/pkg/adapters/sqldb"
	"github.com/aretw0/reel/pkg/persistence/middleware"
	"github.com/aretw0/reel/pkg/ports"
)

// Backend is an opened slide store with the extras its kind offers.
type Backend struct {
	// Store is the store behind the middleware chain. It still implements
	// ports.Watchable when the underlying store does.
	Store ports.SlideStore
	// Locker is set for stores shared between replicas.
	Locker ports.DistributedLocker
	// Close releases connections.
	Close func() error
}

// StoreOptions tunes OpenStore.
type StoreOptions struct {
	ReadOnly bool
	Logger   *slog.Logger
}

// watchableStore keeps the Watch method of a store hidden by middleware.
type watchableStore struct {
	ports.SlideStore
	ports.Watchable
}

// OpenStore opens the store selected by cfg and wraps it in the standard
// middleware chain.
func OpenStore(ctx context.Context, cfg config.StoreConfig, opts StoreOptions) (*Backend, error) {
	var (
		base   ports.SlideStore
		locker ports.DistributedLocker
		closer = func() error { return nil }
	)

	switch cfg.Kind {
	case config.StoreFile:
		base = file.New(cfg.Path)
	case config.StoreRedis:
		var ropts []redis.Option
		prefix := redis.DefaultPrefix
		if cfg.Prefix != "" {
			prefix = cfg.Prefix
			ropts = append(ropts, redis.WithPrefix(prefix))
		}
		rs := redis.New(cfg.Addr, "", 0, ropts...)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			rs.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
		}
		base, closer = rs, rs.Close
		locker = redis.NewLocker(rs.Client(), prefix+"lock:")
	case config.StoreSQLite:
		st, err := sqldb.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		base, closer = st, st.Close
	case config.StorePostgres:
		st, err := sqldb.OpenPostgres(cfg.DSN)
		if err != nil {
			return nil, err
		}
		base, closer = st, st.Close
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}

	mws := []middleware.Middleware{middleware.NewSanitizeMiddleware()}
	if opts.Logger != nil {
		mws = append([]middleware.Middleware{middleware.NewLoggingMiddleware(opts.Logger)}, mws...)
	}
	if opts.ReadOnly {
		mws = append([]middleware.Middleware{middleware.NewReadOnlyMiddleware()}, mws...)
	}
	store := middleware.Chain(base, mws...)
	if w, ok := base.(ports.Watchable); ok {
		store = watchableStore{SlideStore: store, Watchable: w}
	}

	return &Backend{Store: store, Locker: locker, Close: closer}, nil
}
