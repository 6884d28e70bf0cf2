//go:build debug

package scheduler

import (
	"fmt"

	"github.com/osdev-edu/cpusim/internal"
)

// assertReadyOrdered verifies, after a PopNext, that the remaining ready
// queue is non-decreasing under the policy's key. Debug builds only.
func (s *Scheduler) assertReadyOrdered(key func(*internal.PCB) float64) {
	for i := 1; i < len(s.ready); i++ {
		if key(s.ready[i]) < key(s.ready[i-1]) {
			panic(fmt.Sprintf("scheduler: ready queue out of order at %d after pop", i))
		}
	}
}
