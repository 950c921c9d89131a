/*
Package sched is the effect scheduler: delayed, cancellable callbacks
backing scene transitions, waits, screen shakes, flashes, and audio fade
ticks.

Handles are opaque int64 ids. Cancellation is structural: CancelAll is
invoked on every scene jump and at session end, so a stale timer from a
previous scene can never mutate the new scene's state. Race pairs a timer
with a competing input trigger and guarantees exactly one side runs.

Timers come from a ports.Clock, so tests drive time manually.
*/
package sched
