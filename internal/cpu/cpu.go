// Package cpu drives the simulation: a single engine that owns the active
// process slot and the tick clock, pulls candidates from the scheduler,
// charges context-switch and creation latencies, and hands I/O bursts off
// to the interrupt controller.
package cpu

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osdev-edu/cpusim/internal"
	"github.com/osdev-edu/cpusim/internal/interrupt"
	"github.com/osdev-edu/cpusim/internal/scheduler"
	"github.com/osdev-edu/cpusim/pkg/collector"
	"github.com/osdev-edu/cpusim/utils/log"
	"github.com/osdev-edu/cpusim/utils/slice"
)

const (
	// Ready processes wait this many ticks before aging bumps their
	// priority.
	agingThreshold = 5000

	// The active process sheds one aged priority point every decayPeriod
	// ticks, never below its base.
	decayPeriod = 1500
)

type CPU struct {
	cfg    *internal.Config
	logger *slog.Logger
	clock  internal.Clock
	sched  *scheduler.Scheduler
	irq    *interrupt.Controller
	events *collector.Client

	running atomic.Bool

	// mu guards the active slot, the counters, and idle tracking. Per the
	// engine's contract the dispatch-latency sleep happens while holding
	// it: admissions and terminations from the I/O worker block for the
	// duration of a context switch.
	mu        sync.Mutex
	active    *internal.PCB
	tick      uint64
	quantum   uint64
	idle      bool
	idleStart time.Time
	finished  []uint32
}

// New assembles the engine. It owns the scheduler and starts the
// interrupt controller; the caller owns the PCBs and must Close the
// engine when the run is over. events may be nil.
func New(cfg *internal.Config, sched *scheduler.Scheduler, logger *slog.Logger,
	clock internal.Clock, events *collector.Client) *CPU {

	c := &CPU{
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		sched:  sched,
		events: events,
	}
	c.irq = interrupt.New(logger, clock, c.AddProcess, c.TerminateProcess)
	return c
}

// Close stops the interrupt controller and waits for it.
func (c *CPU) Close() { c.irq.Close() }

// Active returns the PCB currently holding the CPU, if any.
func (c *CPU) Active() *internal.PCB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Ticks returns the tick counter.
func (c *CPU) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// FinishedOrder returns PIDs in termination order.
func (c *CPU) FinishedOrder() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint32, len(c.finished))
	copy(out, c.finished)
	return out
}

// AddProcess is the engine's admission entry point. A Created process
// pays the creation cost, receives a PID and joins the system; a Ready
// process (back from I/O or preemption) re-enters the ready queue and may
// preempt the active process under SRTF or Priority. Anything else is a
// misuse of the API.
func (c *CPU) AddProcess(pcb *internal.PCB) {
	switch pcb.State() {
	case internal.StateCreated:
		c.clock.Sleep(time.Duration(c.cfg.ProcessCreationCost) * time.Millisecond)
		c.assignPID(pcb)
		pcb.SetState(internal.StateReady)
		pcb.Metrics.NoteAdmitted(c.clock.Now())
		c.logger.Info(fmt.Sprintf("## (%d) admitted, CREATED -> READY", pcb.PID))
		c.sched.OnNew(pcb)
		c.publish("admitted", pcb.PID)

	case internal.StateReady:
		c.mu.Lock()
		active := c.active
		c.mu.Unlock()

		if c.sched.ShouldPreempt(active, pcb) {
			c.logger.Info(fmt.Sprintf("## (%d) preempts (%d)", pcb.PID, active.PID))
			c.publish("preempted", active.PID)

			displaced := c.contextSwitch(pcb)
			if displaced != nil {
				c.sched.OnReady(displaced)
			}
		} else {
			c.sched.OnReady(pcb)
		}

	default:
		panic(fmt.Sprintf("cpu: add process PID %d in state %s, want CREATED or READY",
			pcb.PID, pcb.State()))
	}
}

// TerminateProcess removes a process from the scheduler and, when it was
// the last one, stops the engine. Safe to call twice for the same PCB.
func (c *CPU) TerminateProcess(pcb *internal.PCB) {
	c.mu.Lock()

	// The interrupt controller marks a process Terminated before calling
	// in, so membership in the full list, not the state, tells a first
	// termination from a repeat.
	alreadyDead := !slice.ContainsFunc(c.sched.ProcessList(),
		func(p *internal.PCB) bool { return p == pcb })

	c.sched.OnTerminate(pcb)
	if c.sched.FullListEmpty() {
		c.logger.Info("no processes remain, stopping engine")
		c.running.Store(false)
	}

	pcb.SetState(internal.StateTerminated)
	if !alreadyDead {
		pcb.Metrics.NoteFinished(c.clock.Now())
		c.finished = append(c.finished, pcb.PID)
	}

	if c.active == pcb {
		c.active = nil
	}
	c.mu.Unlock()

	if !alreadyDead {
		c.logger.Info(fmt.Sprintf("## (%d) TERMINATED", pcb.PID))
		c.publish("terminated", pcb.PID)
	}
}

// assignPID hands out the smallest nonnegative integer not held by any
// live process. With live PIDs {0,1,3} the next admission gets 2.
func (c *CPU) assignPID(pcb *internal.PCB) {
	list := c.sched.ProcessList()

	used := make([]bool, len(list)+1)
	for _, p := range list {
		if int(p.PID) <= len(list) {
			used[p.PID] = true
		}
	}
	for i, taken := range used {
		if !taken {
			pcb.PID = uint32(i)
			return
		}
	}
}

// contextSwitch installs next on the CPU. A displaced process is demoted
// to Ready, its in-progress CPU burst feeding the predictor, and returned
// to the caller for re-admission. The dispatch-latency sleep is charged
// while the engine mutex is held.
func (c *CPU) contextSwitch(next *internal.PCB) (displaced *internal.PCB) {
	c.mu.Lock()

	if c.active != nil {
		old := c.active
		old.SetState(internal.StateReady)

		if burst, ok := old.Proc.Head(); ok {
			if !burst.Complete() {
				c.logger.Debug("in-progress burst suspended",
					log.IntAttr("pid", int(old.PID)),
					log.IntAttr("progress", int(burst.Progress)),
				)
			}
			old.Proc.UpdatePrediction()
		}

		displaced = old
		c.active = nil
	}

	c.clock.Sleep(time.Duration(c.cfg.DispatchLatency) * time.Millisecond)

	c.active = next
	next.SetState(internal.StateRunning)
	if c.sched.Algorithm() == internal.AlgorithmPriority {
		next.InactivePriorityTimer = 0
	}
	c.quantum = 0

	wasIdle := c.idle
	var idled time.Duration
	if wasIdle {
		idled = c.clock.Now().Sub(c.idleStart)
		c.idle = false
	}
	c.mu.Unlock()

	if wasIdle {
		c.logger.Info(fmt.Sprintf("## (%d) READY -> RUNNING, CPU idled %s", next.PID, idled),
			log.AnyAttr("idle_for", idled),
		)
	} else {
		c.logger.Info(fmt.Sprintf("## (%d) READY -> RUNNING", next.PID))
	}

	return displaced
}

// Run resets the engine and ticks until the last process terminates.
func (c *CPU) Run() {
	processCount := len(c.sched.ProcessList())

	c.mu.Lock()
	c.tick = 0
	c.quantum = 0
	c.idle = false
	c.active = nil
	c.mu.Unlock()

	c.running.Store(true)
	c.logger.Info("engine started",
		log.StringAttr("algorithm", string(c.sched.Algorithm())),
		log.IntAttr("processes", processCount),
	)

	for c.running.Load() {
		c.Step()
	}

	c.mu.Lock()
	ticks := c.tick
	c.mu.Unlock()
	c.logger.Info("engine stopped",
		log.AnyAttr("ticks", ticks),
		log.IntAttr("processes", processCount),
	)
	c.publish("engine_stopped", 0)
}

// Step advances the simulation by one tick.
func (c *CPU) Step() {
	c.mu.Lock()
	if c.active != nil && c.active.State() != internal.StateRunning {
		c.logger.Info(fmt.Sprintf("## (%d) state changed to %s externally, dropping from CPU",
			c.active.PID, c.active.State()))
		c.active = nil
	}
	c.tick++
	tick := c.tick
	c.mu.Unlock()

	if c.sched.Algorithm() == internal.AlgorithmPriority {
		c.handlePriorityAging()
	}

	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active != nil {
		c.stepActive(active, tick)
		return
	}

	if next := c.sched.PopNext(); next != nil {
		c.contextSwitch(next)
		return
	}

	c.mu.Lock()
	if !c.idle {
		c.idle = true
		c.idleStart = c.clock.Now()
	}
	c.mu.Unlock()
}

// stepActive advances one unit of work on the active process.
func (c *CPU) stepActive(active *internal.PCB, tick uint64) {
	burst, ok := active.Proc.Head()
	if !ok {
		// Out of work entirely; collect it through the full termination
		// path so the scheduler drops it immediately.
		c.TerminateProcess(active)
		return
	}

	if burst.Kind == internal.BurstIO {
		c.logger.Info(fmt.Sprintf("## (%d) RUNNING -> BLOCKED, I/O for %dms",
			active.PID, burst.Duration))
		active.SetState(internal.StateBlocked)
		c.irq.NotifyBlocked(active)

		c.mu.Lock()
		if c.active == active {
			c.active = nil
		}
		c.mu.Unlock()
		return
	}

	burstDone, procDone := active.Proc.Step()
	active.ProgramCounter++

	if procDone {
		c.TerminateProcess(active)
		return
	}

	if burstDone {
		algo := c.sched.Algorithm()
		if algo == internal.AlgorithmSJF || algo == internal.AlgorithmSRTF {
			c.logger.Info(fmt.Sprintf("## (%d) spent %d ticks in burst, next predicted ~%.1fms",
				active.PID, burst.Duration, active.Proc.PredictedBurstLength()))
		} else {
			c.logger.Info(fmt.Sprintf("## (%d) spent %d ticks in burst", active.PID, burst.Duration))
		}
	}

	switch c.sched.Algorithm() {
	case internal.AlgorithmPriority:
		if tick%decayPeriod == 0 {
			c.decayActive(active)
		}
	case internal.AlgorithmRoundRobin:
		c.enforceQuantum()
	}
}

// enforceQuantum rotates the active process out once its timeslice is
// spent and something else is ready.
func (c *CPU) enforceQuantum() {
	c.mu.Lock()
	c.quantum++
	expired := c.quantum >= c.cfg.RoundRobinTimeQuantum
	c.mu.Unlock()

	if !expired {
		return
	}

	if next := c.sched.PopNext(); next != nil {
		c.logger.Info("timeslice ended")
		displaced := c.contextSwitch(next)
		if displaced != nil {
			c.sched.OnReady(displaced)
		}
		return
	}

	// Nothing else ready; the active process gets a fresh quantum.
	c.mu.Lock()
	c.quantum = 0
	c.mu.Unlock()
}

// handlePriorityAging walks the ready queue once per tick: every waiting
// process accrues inactive time, and any that waited past the threshold
// gains one priority point. If the best waiter now outranks the active
// process, it takes the CPU.
func (c *CPU) handlePriorityAging() {
	ready := c.sched.ReadyList()

	c.mu.Lock()
	active := c.active

	var best *internal.PCB
	for _, pcb := range ready {
		if pcb == active {
			continue
		}

		pcb.InactivePriorityTimer++
		if pcb.InactivePriorityTimer > agingThreshold {
			if prio := pcb.Priority(); prio < math.MaxUint32 {
				pcb.SetPriority(prio + 1)
				c.logger.Info(fmt.Sprintf("## (%d) priority bumped to %d by aging",
					pcb.PID, prio+1))
			}
			pcb.InactivePriorityTimer = 0
		}

		if best == nil || pcb.Priority() > best.Priority() {
			best = pcb
		}
	}
	c.mu.Unlock()

	if best == nil || active == nil || best.Priority() <= active.Priority() {
		return
	}

	c.logger.Info(fmt.Sprintf("## (%d) prio %d preempts (%d) prio %d after aging",
		best.PID, best.Priority(), active.PID, active.Priority()))
	c.publish("preempted", active.PID)

	if next := c.sched.PopNext(); next != nil {
		displaced := c.contextSwitch(next)
		if displaced != nil {
			c.sched.OnReady(displaced)
		}
	}
}

// decayActive sheds one aged priority point from the active process, then
// re-checks whether a waiter now outranks it.
func (c *CPU) decayActive(active *internal.PCB) {
	prio := active.Priority()
	if prio <= active.BasePriority {
		return
	}
	active.SetPriority(prio - 1)
	c.logger.Info(fmt.Sprintf("## (%d) priority decayed to %d", active.PID, prio-1))

	var best *internal.PCB
	for _, pcb := range c.sched.ReadyList() {
		if pcb == active {
			continue
		}
		if best == nil || pcb.Priority() > best.Priority() {
			best = pcb
		}
	}

	if best == nil || best.Priority() <= active.Priority() {
		return
	}

	c.logger.Info(fmt.Sprintf("## (%d) prio %d preempts (%d) prio %d after decay",
		best.PID, best.Priority(), active.PID, active.Priority()))
	c.publish("preempted", active.PID)

	if next := c.sched.PopNext(); next != nil {
		displaced := c.contextSwitch(next)
		if displaced != nil {
			c.sched.OnReady(displaced)
		}
	}
}

func (c *CPU) publish(event string, pid uint32) {
	if c.events == nil {
		return
	}
	c.mu.Lock()
	tick := c.tick
	c.mu.Unlock()
	_ = c.events.Publish(collector.Event{Event: event, PID: pid, Tick: tick})
}
