// Package report renders the end-of-run summary table.
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/osdev-edu/cpusim/internal"
)

// Render writes one row per process: identity, base priority, executed
// CPU ticks, how many times it entered the ready queue, and its wall
// turnaround time.
func Render(w io.Writer, pcbs []*internal.PCB, ticks uint64) {
	_, _ = fmt.Fprintln(w, "Simulation summary")

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"PID", "Base Prio", "CPU Ticks", "Ready Admissions", "Turnaround"})
	for _, pcb := range pcbs {
		table.Append([]string{
			fmt.Sprint(pcb.PID),
			fmt.Sprint(pcb.BasePriority),
			fmt.Sprint(pcb.ProgramCounter),
			fmt.Sprint(pcb.Metrics.ReadyAdmissions()),
			pcb.Metrics.Turnaround().String(),
		})
	}
	table.SetFooter([]string{"Processes", fmt.Sprint(len(pcbs)), "", "Total ticks", fmt.Sprint(ticks)})
	table.Render()
}
