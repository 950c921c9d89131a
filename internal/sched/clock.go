package sched

import (
	"time"

	"github.com/aretw0/vine/pkg/ports"
)

type systemClock struct{}

// SystemClock returns the wall clock backed by time.AfterFunc.
func SystemClock() ports.Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) ports.CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
