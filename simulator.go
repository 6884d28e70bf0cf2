package main

import (
	"os"
	"time"

	"github.com/osdev-edu/cpusim/internal"
	"github.com/osdev-edu/cpusim/internal/cpu"
	"github.com/osdev-edu/cpusim/internal/generator"
	"github.com/osdev-edu/cpusim/internal/report"
	"github.com/osdev-edu/cpusim/internal/scheduler"
	"github.com/osdev-edu/cpusim/pkg/collector"
	"github.com/osdev-edu/cpusim/utils/config"
	"github.com/osdev-edu/cpusim/utils/log"
)

func main() {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg := internal.DefaultConfig()
	config.Load(configPath, cfg)

	logger := log.BuildLogger(cfg.LogLevel)

	sched := scheduler.New(cfg.Algorithm, logger)

	var events *collector.Client
	if cfg.CollectorURL != "" {
		events = collector.New(cfg.CollectorURL, logger)
	}

	engine := cpu.New(cfg, sched, logger, internal.RealClock(), events)
	defer engine.Close()

	// The PCBs live here, in the harness, for the whole run; every other
	// component holds non-owning references.
	gen := generator.New(cfg, time.Now().UnixNano())
	pcbs := make([]*internal.PCB, 0, cfg.ProcessCount)
	for i := 0; i < cfg.ProcessCount; i++ {
		pcb := gen.NewPCB()
		pcbs = append(pcbs, pcb)
		engine.AddProcess(pcb)
	}

	engine.Run()

	report.Render(os.Stdout, pcbs, engine.Ticks())
}
