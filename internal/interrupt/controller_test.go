package interrupt

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osdev-edu/cpusim/internal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func blockedPCB(pid uint32, work ...internal.Burst) *internal.PCB {
	pcb := &internal.PCB{
		PID:  pid,
		Proc: internal.NewProcess(work, 1000, 0.5),
	}
	pcb.SetState(internal.StateBlocked)
	return pcb
}

func TestCompletedIOReadmitsProcess(t *testing.T) {
	admitted := make(chan *internal.PCB, 1)
	c := New(testLogger(), internal.RealClock(),
		func(pcb *internal.PCB) { admitted <- pcb },
		func(pcb *internal.PCB) { t.Errorf("unexpected termination of PID %d", pcb.PID) },
	)
	defer c.Close()

	pcb := blockedPCB(0,
		internal.Burst{Kind: internal.BurstIO, Duration: 20},
		internal.Burst{Kind: internal.BurstCPU, Duration: 5},
	)
	c.NotifyBlocked(pcb)

	select {
	case got := <-admitted:
		assert.Same(t, pcb, got)
		assert.Equal(t, internal.StateReady, got.State())
		assert.Equal(t, 1, got.Proc.WorkRemaining())
		head, ok := got.Proc.Head()
		assert.True(t, ok)
		assert.Equal(t, internal.BurstCPU, head.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("process was never readmitted")
	}
}

func TestFinalIOTerminatesProcess(t *testing.T) {
	terminated := make(chan *internal.PCB, 1)
	c := New(testLogger(), internal.RealClock(),
		func(pcb *internal.PCB) { t.Errorf("unexpected admission of PID %d", pcb.PID) },
		func(pcb *internal.PCB) { terminated <- pcb },
	)
	defer c.Close()

	pcb := blockedPCB(3, internal.Burst{Kind: internal.BurstIO, Duration: 10})
	c.NotifyBlocked(pcb)

	select {
	case got := <-terminated:
		assert.Same(t, pcb, got)
		assert.Equal(t, internal.StateTerminated, got.State())
		assert.Zero(t, got.Proc.WorkRemaining())
	case <-time.After(2 * time.Second):
		t.Fatal("process was never terminated")
	}
}

func TestWakeOrderFollowsBurstDuration(t *testing.T) {
	admitted := make(chan uint32, 2)
	c := New(testLogger(), internal.RealClock(),
		func(pcb *internal.PCB) { admitted <- pcb.PID },
		func(pcb *internal.PCB) { t.Errorf("unexpected termination of PID %d", pcb.PID) },
	)
	defer c.Close()

	slow := blockedPCB(0,
		internal.Burst{Kind: internal.BurstIO, Duration: 80},
		internal.Burst{Kind: internal.BurstCPU, Duration: 5},
	)
	fast := blockedPCB(1,
		internal.Burst{Kind: internal.BurstIO, Duration: 20},
		internal.Burst{Kind: internal.BurstCPU, Duration: 5},
	)

	c.NotifyBlocked(slow)
	c.NotifyBlocked(fast)

	var order []uint32
	for len(order) < 2 {
		select {
		case pid := <-admitted:
			order = append(order, pid)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got order %v", order)
		}
	}
	assert.Equal(t, []uint32{1, 0}, order)
}

func TestDoubleBlockPanics(t *testing.T) {
	c := New(testLogger(), internal.RealClock(),
		func(*internal.PCB) {},
		func(*internal.PCB) {},
	)
	defer c.Close()

	pcb := blockedPCB(5,
		internal.Burst{Kind: internal.BurstIO, Duration: 500},
		internal.Burst{Kind: internal.BurstCPU, Duration: 5},
	)
	c.NotifyBlocked(pcb)

	assert.Panics(t, func() { c.NotifyBlocked(pcb) })
}

func TestCloseStopsAnIdleWorker(t *testing.T) {
	c := New(testLogger(), internal.RealClock(),
		func(*internal.PCB) {},
		func(*internal.PCB) {},
	)

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
