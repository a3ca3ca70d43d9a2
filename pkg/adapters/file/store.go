package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/reel/pkg/domain"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the deck file used when none is given.
const DefaultPath = "reel.deck.yaml"

// Store implements ports.SlideStore and ports.Watchable on a single YAML file
// holding the whole deck. Every accepted write rewrites the file atomically.
// Concurrent writers in other processes are detected through slide revisions.
type Store struct {
	Path string

	mu sync.Mutex
}

// New creates a Store for path. If path is empty, it defaults to DefaultPath.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

// Save writes a whole deck, replacing the file.
func (s *Store) Save(ctx context.Context, deck *domain.Deck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(deck)
}

// LoadDeck reads and parses the deck file.
func (s *Store) LoadDeck(ctx context.Context) (*domain.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// SetOrder implements ports.SlideStore.
func (s *Store) SetOrder(ctx context.Context, slideID string, order int, revision int64) (int64, error) {
	return s.update(slideID, revision, func(sl *domain.Slide) bool {
		if sl.Order == order {
			return false
		}
		sl.Order = order
		return true
	})
}

// SetConnections implements ports.SlideStore.
func (s *Store) SetConnections(ctx context.Context, slideID string, conns domain.Connections, revision int64) (int64, error) {
	return s.update(slideID, revision, func(sl *domain.Slide) bool {
		if sl.Connections.Equal(&conns) {
			return false
		}
		sl.Connections = conns.Clone()
		return true
	})
}

func (s *Store) update(slideID string, revision int64, mutate func(*domain.Slide) bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deck, err := s.read()
	if err != nil {
		return 0, err
	}
	for i := range deck.Slides {
		sl := &deck.Slides[i]
		if sl.ID != slideID {
			continue
		}
		if !mutate(sl) {
			return sl.Revision, nil
		}
		if err := domain.CheckRevision(slideID, revision, sl.Revision); err != nil {
			return 0, err
		}
		sl.Revision++
		if err := s.write(deck); err != nil {
			return 0, err
		}
		return sl.Revision, nil
	}
	return 0, fmt.Errorf("%w: %s", domain.ErrSlideNotFound, slideID)
}

func (s *Store) read() (*domain.Deck, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDeckNotFound, s.Path)
		}
		return nil, fmt.Errorf("failed to read deck file: %w", err)
	}
	var deck domain.Deck
	if err := yaml.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("failed to parse deck file %s: %w", s.Path, err)
	}
	return &deck, nil
}

// write persists the deck atomically: temp file in the same directory,
// fsync, then rename over the destination.
func (s *Store) write(deck *domain.Deck) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure deck directory: %w", err)
	}

	data, err := yaml.Marshal(deck)
	if err != nil {
		return fmt.Errorf("failed to marshal deck: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(s.Path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Closed before rename; Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to replace deck file: %w", err)
	}
	return nil
}
