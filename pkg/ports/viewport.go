package ports

import "github.com/aretw0/reel/pkg/domain"

// Viewport receives the commands a playback controller issues.
// Calls happen on the controller's goroutine and must not block.
type Viewport interface {
	// ScrollTo moves the scroll position to a slide index.
	ScrollTo(cmd domain.ScrollCommand)

	// ForwardAvailable toggles the advisory "forward motion now available" hint.
	ForwardAvailable(active bool)
}

// ViewportFunc adapts a plain function to a Viewport that ignores hints.
type ViewportFunc func(cmd domain.ScrollCommand)

func (f ViewportFunc) ScrollTo(cmd domain.ScrollCommand) { f(cmd) }

func (f ViewportFunc) ForwardAvailable(bool) {}
