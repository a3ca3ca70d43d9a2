package ports

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the callback. It reports whether the call stopped the timer.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
// Implementations decide on which goroutine the callback runs; the playback
// loop uses one that posts back into its own event queue.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}
