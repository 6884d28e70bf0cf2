package scheduler

import (
	"sort"

	"github.com/osdev-edu/cpusim/internal"
	"github.com/osdev-edu/cpusim/utils/slice"
)

// popHighestPriority returns the ready process with the numerically
// largest current priority. Callers hold s.mu.
func (s *Scheduler) popHighestPriority() *internal.PCB {
	s.sortReadyByPriority()
	return slice.Shift(&s.ready)
}

func (s *Scheduler) sortReadyByPriority() {
	sort.SliceStable(s.ready, func(i, j int) bool {
		return s.ready[i].Priority() > s.ready[j].Priority()
	})
}
