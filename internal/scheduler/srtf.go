package scheduler

import (
	"sort"

	"github.com/osdev-edu/cpusim/internal"
	"github.com/osdev-edu/cpusim/utils/slice"
)

// popShortestRemaining orders the ready queue by the live remaining
// estimate, max(0, tau-progress). Callers hold s.mu.
func (s *Scheduler) popShortestRemaining() *internal.PCB {
	sort.SliceStable(s.ready, func(i, j int) bool {
		ri := s.ready[i].Proc.RemainingPredictedBurstLength()
		rj := s.ready[j].Proc.RemainingPredictedBurstLength()
		if ri != rj {
			return ri < rj
		}
		return s.ready[i].PID < s.ready[j].PID
	})

	next := slice.Shift(&s.ready)
	s.assertReadyOrdered(func(p *internal.PCB) float64 {
		return p.Proc.RemainingPredictedBurstLength()
	})
	return next
}
