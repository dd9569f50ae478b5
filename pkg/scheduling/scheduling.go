// Package scheduling runs a probe workload on a cron schedule.
package scheduling

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"PhaseProfiler/pkg/workload"
)

// Probe runs steps through a workload.Runner on every tick of a schedule.
// Runs never overlap, so the runner's profiler is only used by one
// goroutine at a time.
type Probe struct {
	cron       *cron.Cron
	runner     *workload.Runner
	steps      []workload.Step
	iterations int
	logger     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	runs   atomic.Int64
}

// New parses schedule (six fields with seconds, or a descriptor such as
// "@every 30s") and prepares the probe. Nothing runs until Start.
func New(schedule string, runner *workload.Runner, steps []workload.Step, iterations int, logger *log.Logger) (*Probe, error) {
	if logger == nil {
		logger = &log.DefaultLogger
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Probe{
		runner:     runner,
		steps:      steps,
		iterations: iterations,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	cl := cronLogger{logger}
	p.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := p.cron.AddFunc(schedule, p.RunOnce); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid probe schedule %q: %w", schedule, err)
	}
	return p, nil
}

// RunOnce executes one probe run synchronously.
func (p *Probe) RunOnce() {
	n := p.runs.Add(1)
	p.logger.Debug().Int64("run", n).Int("steps", len(p.steps)).Msg("probe run starting")
	if err := p.runner.Run(p.ctx, p.steps, p.iterations); err != nil {
		p.logger.Warn().Err(err).Int64("run", n).Msg("probe run interrupted")
	}
}

// Runs returns how many probe runs have started.
func (p *Probe) Runs() int64 {
	return p.runs.Load()
}

// Start begins scheduling in the background.
func (p *Probe) Start() {
	p.cron.Start()
}

// Stop cancels any in-flight run and waits for it to return.
func (p *Probe) Stop() {
	p.cancel()
	<-p.cron.Stop().Done()
}

// cronLogger adapts a phuslu logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().KeysAndValues(keysAndValues...).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).KeysAndValues(keysAndValues...).Msg(msg)
}
