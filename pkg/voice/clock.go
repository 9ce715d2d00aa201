package voice

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from firing, matching time.Timer semantics.
	Stop() bool
}

// Scheduler schedules delayed callbacks. The default implementation wraps
// time.AfterFunc; tests substitute a virtual scheduler so timing behavior
// is verified without wall-clock waits.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
