// Package generator fabricates the synthetic workloads the simulator
// schedules: every process is a random mix of CPU and I/O bursts.
package generator

import (
	"math/rand"

	"github.com/osdev-edu/cpusim/internal"
)

const (
	cpuBurstProbability = 0.7

	cpuDurationMin = 100
	cpuDurationMax = 2500
	ioDurationMin  = 1000
	ioDurationMax  = 7500

	priorityMax = 10
)

type Generator struct {
	cfg *internal.Config
	rng *rand.Rand
}

// New builds a generator over an explicit seed so runs can be repeated.
func New(cfg *internal.Config, seed int64) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewPCB fabricates one process: burst count uniform in
// [ProcessBurstMinimum, ProcessBurstMaximum], each burst CPU with
// probability 0.7 (duration uniform in [100, 2500]) or I/O otherwise
// (duration uniform in [1000, 7500]). Under the Priority policy the
// initial priority is uniform in [0, 10]; every other policy runs flat.
func (g *Generator) NewPCB() *internal.PCB {
	span := int(g.cfg.ProcessBurstMaximum-g.cfg.ProcessBurstMinimum) + 1
	count := int(g.cfg.ProcessBurstMinimum) + g.rng.Intn(span)

	work := make([]internal.Burst, 0, count)
	for i := 0; i < count; i++ {
		if g.rng.Float64() < cpuBurstProbability {
			work = append(work, internal.Burst{
				Kind:     internal.BurstCPU,
				Duration: g.uniform(cpuDurationMin, cpuDurationMax),
			})
		} else {
			work = append(work, internal.Burst{
				Kind:     internal.BurstIO,
				Duration: g.uniform(ioDurationMin, ioDurationMax),
			})
		}
	}

	pcb := &internal.PCB{
		Proc: internal.NewProcess(work, g.cfg.InitialBurstPrediction, g.cfg.Alpha),
	}

	if g.cfg.Algorithm == internal.AlgorithmPriority {
		prio := uint32(g.rng.Intn(priorityMax + 1))
		pcb.BasePriority = prio
		pcb.SetPriority(prio)
	}

	return pcb
}

func (g *Generator) uniform(min, max uint32) uint32 {
	return min + uint32(g.rng.Intn(int(max-min)+1))
}
