//go:build !debug

package scheduler

import "github.com/osdev-edu/cpusim/internal"

func (s *Scheduler) assertReadyOrdered(func(*internal.PCB) float64) {}
