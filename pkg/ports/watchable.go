package ports

import "context"

// Watchable defines an interface for stores that can notify about backend changes.
// The engine reloads its slide graph on every signal.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying deck changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan string, error)
}
