// Package scheduler holds the ready queue and the five policies that order
// it. One structure serves every policy: the algorithm tag picks the
// ordering applied by PopNext and the preemption rule consulted by the
// engine. Preemption itself is only ever a decision here; executing the
// context switch is the engine's job, after scheduler state is released.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/osdev-edu/cpusim/internal"
	"github.com/osdev-edu/cpusim/utils/slice"
)

type Scheduler struct {
	mu sync.Mutex

	algorithm internal.Algorithm
	log       *slog.Logger

	// all holds every non-terminated process that ever entered; ready is
	// the subset currently runnable. A PCB appears at most once in ready.
	all   []*internal.PCB
	ready []*internal.PCB
}

// New builds a scheduler for the requested policy. An unmapped algorithm
// is a configuration bug and panics.
func New(algorithm internal.Algorithm, logger *slog.Logger) *Scheduler {
	switch algorithm {
	case internal.AlgorithmFCFS, internal.AlgorithmSJF, internal.AlgorithmSRTF,
		internal.AlgorithmRoundRobin, internal.AlgorithmPriority:
	default:
		panic(fmt.Sprintf("scheduler: unknown algorithm %q", algorithm))
	}

	return &Scheduler{
		algorithm: algorithm,
		log:       logger,
	}
}

func (s *Scheduler) Algorithm() internal.Algorithm { return s.algorithm }

// OnNew registers a process that just entered the system. It joins the
// ready queue only if admission already marked it ready.
func (s *Scheduler) OnNew(pcb *internal.PCB) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.all = append(s.all, pcb)
	if pcb.State() == internal.StateReady {
		s.ready = append(s.ready, pcb)
		pcb.Metrics.NoteReady()
	}
}

// OnReady admits a process to the ready queue: initial arrival, I/O
// completion, or re-admission after preemption.
func (s *Scheduler) OnReady(pcb *internal.PCB) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = append(s.ready, pcb)
	pcb.Metrics.NoteReady()

	if s.algorithm == internal.AlgorithmPriority {
		s.sortReadyByPriority()
	}
}

// OnTerminate drops a process from both queues. Calling it again for the
// same PCB is a no-op.
func (s *Scheduler) OnTerminate(pcb *internal.PCB) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slice.RemoveFunc(&s.all, func(p *internal.PCB) bool { return p == pcb })
	slice.RemoveFunc(&s.ready, func(p *internal.PCB) bool { return p == pcb })
}

// PopNext removes and returns the best ready candidate under the active
// policy, or nil when nothing is ready.
func (s *Scheduler) PopNext() *internal.PCB {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ready) == 0 {
		return nil
	}

	switch s.algorithm {
	case internal.AlgorithmSJF:
		return s.popShortestPredicted()
	case internal.AlgorithmSRTF:
		return s.popShortestRemaining()
	case internal.AlgorithmPriority:
		return s.popHighestPriority()
	default:
		// FCFS and Round Robin both rotate a plain FIFO; the quantum
		// lives in the engine.
		return slice.Shift(&s.ready)
	}
}

// ShouldPreempt decides whether a freshly readied candidate displaces the
// active process. Pure decision: the engine executes the switch.
func (s *Scheduler) ShouldPreempt(active, candidate *internal.PCB) bool {
	if active == nil || candidate == nil {
		return false
	}

	switch s.algorithm {
	case internal.AlgorithmSRTF:
		return active.Proc.RemainingPredictedBurstLength() >
			candidate.Proc.RemainingPredictedBurstLength()
	case internal.AlgorithmPriority:
		return candidate.Priority() > active.Priority()
	default:
		return false
	}
}

// ProcessList snapshots the full process list.
func (s *Scheduler) ProcessList() []*internal.PCB {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*internal.PCB, len(s.all))
	copy(out, s.all)
	return out
}

// ReadyList snapshots the ready queue.
func (s *Scheduler) ReadyList() []*internal.PCB {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*internal.PCB, len(s.ready))
	copy(out, s.ready)
	return out
}

// FullListEmpty reports whether every admitted process has terminated.
func (s *Scheduler) FullListEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.all) == 0
}
