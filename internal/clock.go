package internal

import "time"

// Clock is the engine's view of time. The simulated creation and dispatch
// latencies go through Sleep so tests can swap the clock out and run
// time-independent.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

func RealClock() Clock { return realClock{} }
