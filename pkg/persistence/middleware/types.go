package middleware

import "github.com/aretw0/reel/pkg/ports"

// Middleware allows wrapping a SlideStore to add behavior.
type Middleware func(ports.SlideStore) ports.SlideStore

// Chain applies middlewares so the first one is the outermost.
func Chain(store ports.SlideStore, mws ...Middleware) ports.SlideStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
