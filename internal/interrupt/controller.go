// Package interrupt runs the I/O side of the simulation: a single worker
// goroutine that holds every blocked process until its I/O burst elapses,
// then hands it back to the engine through the admission or termination
// handle. The controller never touches the engine's state directly.
package interrupt

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/osdev-edu/cpusim/internal"
	"github.com/osdev-edu/cpusim/utils/log"
)

type ioEvent struct {
	when time.Time
	pcb  *internal.PCB
}

type eventHeap []ioEvent

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)        { *h = append(*h, x.(ioEvent)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}

type Controller struct {
	logger *slog.Logger
	clock  internal.Clock

	// Handles back into the engine; message passing instead of a parent
	// pointer so the controller owns no engine state.
	admit     func(*internal.PCB)
	terminate func(*internal.PCB)

	mu      sync.Mutex
	staging []*internal.PCB
	pending map[*internal.PCB]struct{}
	events  eventHeap

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	stopOnce sync.Once
}

// New builds the controller and starts its worker goroutine.
func New(logger *slog.Logger, clock internal.Clock, admit, terminate func(*internal.PCB)) *Controller {
	c := &Controller{
		logger:    logger,
		clock:     clock,
		admit:     admit,
		terminate: terminate,
		pending:   make(map[*internal.PCB]struct{}),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go c.worker()
	return c
}

// NotifyBlocked stages a freshly blocked process. The caller must have set
// its state to Blocked already. Notifying a process that is still pending
// is a protocol violation and panics.
func (c *Controller) NotifyBlocked(pcb *internal.PCB) {
	c.mu.Lock()
	if _, dup := c.pending[pcb]; dup {
		c.mu.Unlock()
		panic(fmt.Sprintf("interrupt: PID %d blocked twice while still pending", pcb.PID))
	}
	c.pending[pcb] = struct{}{}
	c.staging = append(c.staging, pcb)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Close stops the worker and waits for it to exit.
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Controller) worker() {
	defer close(c.done)

	for {
		// Merge newly staged processes into the wake-time heap.
		now := c.clock.Now()
		c.mu.Lock()
		for _, pcb := range c.staging {
			duration := uint32(0)
			if burst, ok := pcb.Proc.Head(); ok {
				duration = burst.Duration
			}
			heap.Push(&c.events, ioEvent{
				when: now.Add(time.Duration(duration) * time.Millisecond),
				pcb:  pcb,
			})
		}
		c.staging = nil
		empty := len(c.events) == 0
		var next time.Time
		if !empty {
			next = c.events[0].when
		}
		c.mu.Unlock()

		if empty {
			select {
			case <-c.stop:
				return
			case <-c.wake:
			}
			continue
		}

		if wait := next.Sub(c.clock.Now()); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-c.stop:
				timer.Stop()
				return
			case <-c.wake:
				timer.Stop()
				continue
			case <-timer.C:
			}
		}

		c.fireDue()
	}
}

// fireDue pops every event whose wake time has passed and routes its
// process back into the system.
func (c *Controller) fireDue() {
	now := c.clock.Now()

	var due []*internal.PCB
	c.mu.Lock()
	for len(c.events) > 0 && !c.events[0].when.After(now) {
		ev := heap.Pop(&c.events).(ioEvent)
		delete(c.pending, ev.pcb)
		due = append(due, ev.pcb)
	}
	c.mu.Unlock()

	for _, pcb := range due {
		pcb.Proc.PopHead()

		if pcb.Proc.WorkRemaining() > 0 {
			c.logger.Info("process unblocked from I/O burst",
				log.IntAttr("pid", int(pcb.PID)),
			)
			pcb.SetState(internal.StateReady)
			c.admit(pcb)
		} else {
			c.logger.Info("process exited from its final I/O burst",
				log.IntAttr("pid", int(pcb.PID)),
			)
			pcb.SetState(internal.StateTerminated)
			c.terminate(pcb)
		}
	}
}
