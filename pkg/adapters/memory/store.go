package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/reel/pkg/domain"
)

// Store implements ports.SlideStore and ports.Watchable in memory.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	deck     *domain.Deck
	index    map[string]int
	watchers []chan string
}

// NewStore creates a store seeded with a copy of deck. A nil deck is empty.
func NewStore(deck *domain.Deck) *Store {
	s := &Store{}
	s.replace(deck)
	return s
}

// NewFromSlides creates a store from slides, assigning dense orders when a
// slide has none. This keeps test setup short.
func NewFromSlides(slides ...domain.Slide) (*Store, error) {
	deck := &domain.Deck{}
	seen := make(map[string]bool, len(slides))
	for i, sl := range slides {
		if sl.ID == "" {
			return nil, fmt.Errorf("slide at position %d missing ID", i)
		}
		if seen[sl.ID] {
			return nil, fmt.Errorf("duplicate slide ID %s", sl.ID)
		}
		seen[sl.ID] = true
		if sl.Order == 0 {
			sl.Order = i + 1
		}
		deck.Slides = append(deck.Slides, sl)
	}
	return NewStore(deck), nil
}

func (s *Store) replace(deck *domain.Deck) {
	if deck == nil {
		deck = &domain.Deck{}
	}
	s.deck = deck.Clone()
	s.index = make(map[string]int, len(s.deck.Slides))
	for i, sl := range s.deck.Slides {
		if _, dup := s.index[sl.ID]; !dup {
			s.index[sl.ID] = i
		}
	}
}

// Replace swaps the whole deck and signals watchers.
func (s *Store) Replace(deck *domain.Deck) {
	s.mu.Lock()
	s.replace(deck)
	s.mu.Unlock()
	s.notify("replace")
}

// LoadDeck returns a copy of the stored deck.
func (s *Store) LoadDeck(ctx context.Context) (*domain.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deck.Clone(), nil
}

// SetOrder implements ports.SlideStore.
func (s *Store) SetOrder(ctx context.Context, slideID string, order int, revision int64) (int64, error) {
	s.mu.Lock()
	i, ok := s.index[slideID]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", domain.ErrSlideNotFound, slideID)
	}
	sl := &s.deck.Slides[i]
	if sl.Order == order {
		rev := sl.Revision
		s.mu.Unlock()
		return rev, nil
	}
	if err := domain.CheckRevision(slideID, revision, sl.Revision); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	sl.Order = order
	sl.Revision++
	rev := sl.Revision
	s.mu.Unlock()

	s.notify(slideID)
	return rev, nil
}

// SetConnections implements ports.SlideStore.
func (s *Store) SetConnections(ctx context.Context, slideID string, conns domain.Connections, revision int64) (int64, error) {
	s.mu.Lock()
	i, ok := s.index[slideID]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", domain.ErrSlideNotFound, slideID)
	}
	sl := &s.deck.Slides[i]
	if sl.Connections.Equal(&conns) {
		rev := sl.Revision
		s.mu.Unlock()
		return rev, nil
	}
	if err := domain.CheckRevision(slideID, revision, sl.Revision); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	sl.Connections = conns.Clone()
	sl.Revision++
	rev := sl.Revision
	s.mu.Unlock()

	s.notify(slideID)
	return rev, nil
}

// Watch implements ports.Watchable. The channel closes when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

// notify signals every watcher without blocking; a pending signal already
// means "reload".
func (s *Store) notify(what string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		select {
		case w <- what:
		default:
		}
	}
}
