package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/reel/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "reel:"

// maxTxRetries bounds optimistic retries when a watched key changes mid-write.
const maxTxRetries = 5

// Store implements ports.SlideStore and ports.Watchable using Redis.
//
// Each slide is a JSON string under <prefix>slide:<id>; <prefix>slides is a
// set of ids and <prefix>folders holds the folder list. Writes use
// WATCH/MULTI so a concurrent edit is detected, and every accepted write is
// published on <prefix>changes.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to build a Locker on it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) slideKey(id string) string { return s.prefix + "slide:" + id }
func (s *Store) indexKey() string          { return s.prefix + "slides" }
func (s *Store) foldersKey() string        { return s.prefix + "folders" }
func (s *Store) channel() string           { return s.prefix + "changes" }

// Seed replaces the stored deck. Revisions carried by the slides are kept.
func (s *Store) Seed(ctx context.Context, deck *domain.Deck) error {
	old, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list slides: %w", err)
	}
	folders, err := json.Marshal(deck.Folders)
	if err != nil {
		return fmt.Errorf("failed to marshal folders: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range old {
		pipe.Del(ctx, s.slideKey(id))
	}
	pipe.Del(ctx, s.indexKey())
	pipe.Set(ctx, s.foldersKey(), folders, 0)
	for _, sl := range deck.Slides {
		data, err := json.Marshal(sl)
		if err != nil {
			return fmt.Errorf("failed to marshal slide %s: %w", sl.ID, err)
		}
		pipe.Set(ctx, s.slideKey(sl.ID), data, 0)
		pipe.SAdd(ctx, s.indexKey(), sl.ID)
	}
	pipe.Publish(ctx, s.channel(), "seed")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed deck: %w", err)
	}
	return nil
}

// LoadDeck retrieves every slide and folder.
func (s *Store) LoadDeck(ctx context.Context) (*domain.Deck, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list slides: %w", err)
	}
	deck := &domain.Deck{Slides: make([]domain.Slide, 0, len(ids))}

	if raw, err := s.client.Get(ctx, s.foldersKey()).Result(); err == nil {
		if err := json.Unmarshal([]byte(raw), &deck.Folders); err != nil {
			return nil, fmt.Errorf("failed to unmarshal folders: %w", err)
		}
	} else if !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to get folders: %w", err)
	}

	if len(ids) == 0 {
		return deck, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.slideKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get slides: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a slide body; skip it.
			continue
		}
		var sl domain.Slide
		if err := json.Unmarshal([]byte(raw), &sl); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slide %s: %w", ids[i], err)
		}
		deck.Slides = append(deck.Slides, sl)
	}
	return deck, nil
}

// SetOrder implements ports.SlideStore.
func (s *Store) SetOrder(ctx context.Context, slideID string, order int, revision int64) (int64, error) {
	return s.update(ctx, slideID, revision, func(sl *domain.Slide) bool {
		if sl.Order == order {
			return false
		}
		sl.Order = order
		return true
	})
}

// SetConnections implements ports.SlideStore.
func (s *Store) SetConnections(ctx context.Context, slideID string, conns domain.Connections, revision int64) (int64, error) {
	return s.update(ctx, slideID, revision, func(sl *domain.Slide) bool {
		if sl.Connections.Equal(&conns) {
			return false
		}
		sl.Connections = conns.Clone()
		return true
	})
}

// update runs a check-and-set on one slide. mutate reports whether it changed
// anything; an unchanged slide is an idempotent success.
func (s *Store) update(ctx context.Context, slideID string, revision int64, mutate func(*domain.Slide) bool) (int64, error) {
	key := s.slideKey(slideID)
	var rev int64

	txf := func(tx *backend.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, backend.Nil) {
			return fmt.Errorf("%w: %s", domain.ErrSlideNotFound, slideID)
		}
		if err != nil {
			return fmt.Errorf("failed to get slide: %w", err)
		}
		var sl domain.Slide
		if err := json.Unmarshal([]byte(raw), &sl); err != nil {
			return fmt.Errorf("failed to unmarshal slide %s: %w", slideID, err)
		}

		if !mutate(&sl) {
			rev = sl.Revision
			return nil
		}
		if err := domain.CheckRevision(slideID, revision, sl.Revision); err != nil {
			return err
		}
		sl.Revision++
		data, err := json.Marshal(sl)
		if err != nil {
			return fmt.Errorf("failed to marshal slide: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Publish(ctx, s.channel(), slideID)
			return nil
		})
		if err == nil {
			rev = sl.Revision
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return rev, nil
	}
	return 0, fmt.Errorf("slide %s: too much contention: %w", slideID, domain.ErrConflict)
}

// Watch implements ports.Watchable by subscribing to the change channel.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	sub := s.client.Subscribe(ctx, s.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
