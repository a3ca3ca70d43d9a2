/*
Package ports defines the driven ports (interfaces) for the reel engine.

These interfaces decouple the navigation core from external implementations,
allowing the engine to work with various storage backends, viewports and
timer sources.

# Key Interfaces

  - SlideStore: Loads decks and persists order and connection edits.
  - Watchable: Signals that a store's deck changed and must be reloaded.
  - Viewport: Receives scroll commands and forward-available hints.
  - Scheduler: Provides cancellable timers for settle and hint timeouts.
  - DistributedLocker: Provides distributed locking around persistence commits.
*/
package ports
