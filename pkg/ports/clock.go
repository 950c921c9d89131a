package ports

import "time"

// CancelFunc revokes a pending timer. Calling it after the timer fired is
// a no-op.
type CancelFunc func()

// Clock is the time source behind the effect scheduler and audio fades.
// Production uses the system clock; tests substitute a manual one so timed
// behavior is deterministic.
type Clock interface {
	Now() time.Time

	// AfterFunc arms fn to run once after d. The returned CancelFunc stops
	// it if it has not fired yet.
	AfterFunc(d time.Duration, fn func()) CancelFunc
}
