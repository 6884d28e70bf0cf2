package scheduler

import (
	"sort"

	"github.com/osdev-edu/cpusim/internal"
	"github.com/osdev-edu/cpusim/utils/slice"
)

// popShortestPredicted orders the ready queue by predicted burst length
// (tau). Ties go to the lower PID, whatever order the processes entered
// the ready queue in. Callers hold s.mu.
func (s *Scheduler) popShortestPredicted() *internal.PCB {
	sort.SliceStable(s.ready, func(i, j int) bool {
		pi := s.ready[i].Proc.PredictedBurstLength()
		pj := s.ready[j].Proc.PredictedBurstLength()
		if pi != pj {
			return pi < pj
		}
		return s.ready[i].PID < s.ready[j].PID
	})

	next := slice.Shift(&s.ready)
	s.assertReadyOrdered(func(p *internal.PCB) float64 {
		return p.Proc.PredictedBurstLength()
	})
	return next
}
