package sched

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/ports"
)

// Handle identifies one pending callback.
type Handle int64

// Scheduler owns every outstanding timed callback of a session. All
// bookkeeping is mutex-guarded because clock callbacks arrive on timer
// goroutines; the callbacks themselves are expected to re-enter the
// session through its own serialization.
type Scheduler struct {
	clock ports.Clock
	log   *slog.Logger

	mu      sync.Mutex
	next    int64
	pending map[Handle]ports.CancelFunc
}

// New creates a Scheduler over the given clock.
func New(clock ports.Clock, log *slog.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Scheduler{
		clock:   clock,
		log:     log,
		pending: make(map[Handle]ports.CancelFunc),
	}
}

// Clock exposes the underlying time source (for timestamps).
func (s *Scheduler) Clock() ports.Clock {
	return s.clock
}

// After arms fn to run once after d and returns its handle. The callback
// runs only if the handle is still pending when the timer fires; Cancel
// and CancelAll revoke it.
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	s.next++
	h := Handle(s.next)
	// Reserve before arming: a clock that fires synchronously (fakes with
	// zero delay) must find the entry claimable.
	s.pending[h] = nil
	s.mu.Unlock()

	cancel := s.clock.AfterFunc(d, func() {
		if s.claim(h) {
			fn()
		}
	})

	s.mu.Lock()
	if _, ok := s.pending[h]; ok {
		s.pending[h] = cancel
	}
	s.mu.Unlock()
	return h
}

// Race arms fn on a timer and returns the trigger for the competing input
// path. Whichever side runs first claims the handle; the other becomes a
// no-op. This backs skippable waits: timer expiry and manual advance must
// fire exactly once between them.
func (s *Scheduler) Race(d time.Duration, fn func()) func() {
	h := s.After(d, fn)
	return func() {
		if s.claim(h) {
			fn()
		}
	}
}

// Cancel revokes one pending handle. Unknown or already-fired handles are
// ignored.
func (s *Scheduler) Cancel(h Handle) {
	s.mu.Lock()
	cancel, ok := s.pending[h]
	delete(s.pending, h)
	s.mu.Unlock()
	if ok && cancel != nil {
		cancel()
	}
}

// CancelAll revokes every pending handle. Called on scene jumps and
// session termination.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	cancels := make([]ports.CancelFunc, 0, len(s.pending))
	for _, c := range s.pending {
		if c != nil {
			cancels = append(cancels, c)
		}
	}
	n := len(s.pending)
	s.pending = make(map[Handle]ports.CancelFunc)
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	if n > 0 {
		s.log.Debug("canceled pending effects", "count", n)
	}
}

// Active returns the number of pending handles.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// claim removes the handle if still pending, arbitrating fire vs cancel.
func (s *Scheduler) claim(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[h]; !ok {
		return false
	}
	delete(s.pending, h)
	return true
}
