package workload

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/phuslu/log"

	"PhaseProfiler/pkg/aggregating"
	"PhaseProfiler/pkg/config"
	"PhaseProfiler/pkg/profiling"
	"PhaseProfiler/pkg/timing"
)

// Step is one phase of a workload. Runs are started and ended under Name
// and recorded under Record, which defaults to Name.
type Step struct {
	Name   string
	Record string
	Run    func() error
}

// Runner drives steps through a profiler into an aggregator.
type Runner struct {
	Profiler   *profiling.Profiler
	Aggregator *aggregating.Aggregator
	Logger     *log.Logger
	// Out receives timer and decoding output; nil discards it.
	Out io.Writer
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return &log.DefaultLogger
	}
	return r.Logger
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

// Measure runs one step as a phase and records the result.
func (r *Runner) Measure(s Step) (profiling.PerfStats, error) {
	record := s.Record
	if record == "" {
		record = s.Name
	}

	r.Profiler.StartPhase(s.Name)
	err := s.Run()
	stats := r.Profiler.EndPhase(s.Name)
	r.Aggregator.RecordStats(record, stats)

	if err != nil {
		return stats, fmt.Errorf("phase %s: %w", s.Name, err)
	}
	return stats, nil
}

// Run executes steps in order, iterations times. A failing step is logged
// and the remaining steps still run.
func (r *Runner) Run(ctx context.Context, steps []Step, iterations int) error {
	for i := 0; i < iterations; i++ {
		for _, s := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats, err := r.Measure(s)
			if err != nil {
				r.logger().Error().Err(err).Msg("workload step failed")
				continue
			}
			r.logger().Debug().Str("phase", s.Name).Int("iteration", i).
				Float64("wall_ms", stats.WallTimeMs).Float64("cpu_sec", stats.CPUTimeSec).Msg("phase recorded")
		}
	}
	return nil
}

// ProbeSteps returns the CPU, I/O and sleep phases driven by cfg.
func ProbeSteps(cfg config.ProbeConfig) []Step {
	return []Step{
		{Name: "CPU_Spin", Run: func() error { Spin(cfg.SpinFor); return nil }},
		{Name: "File_IO", Run: func() error { return FileIO(os.TempDir(), cfg.IOBytes) }},
		{Name: "Sleep", Run: func() error { time.Sleep(cfg.SleepFor); return nil }},
	}
}

// setupPhases are the stages of an inference run, in order.
var setupPhases = []struct {
	name  string
	label string
	io    bool
}{
	{"Model_Loading", "Model Loading", true},
	{"Build_Interpreter", "Interpreter Building", false},
	{"Upload_Tensor", "Tensor Uploading", true},
	{"Load_SentencePiece", "SentencePiece Loading", true},
	{"Build_KVCache", "KV Cache Building", false},
	{"Prepare_Prompt", "Input Prompt Preparation", false},
	{"Prepare_Runners", "Signature Runners Preparation", false},
	{"Prefill", "Prefill Stage", false},
}

// RunPipeline replays an inference-shaped run: setup stages timed with a
// ScopedTimer, then tokens decode steps recorded together as Decode_Token.
func (r *Runner) RunPipeline(ctx context.Context, cfg config.ProbeConfig, tokens int) error {
	for _, ph := range setupPhases {
		if err := ctx.Err(); err != nil {
			return err
		}
		ph := ph
		timer := timing.Start(ph.label, r.out())
		_, err := r.Measure(Step{Name: ph.name, Run: func() error {
			if ph.io {
				return FileIO(os.TempDir(), cfg.IOBytes)
			}
			Spin(cfg.SpinFor)
			return nil
		}})
		timer.Stop()
		if err != nil {
			r.logger().Error().Err(err).Msg("pipeline stage failed")
		}
	}

	metrics := timing.NewDecodingMetrics()
	metrics.StartDecoding()
	inferFor := cfg.SpinFor / 10
	sampleFor := cfg.SpinFor / 50
	for i := 0; i < tokens; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var inference, sampling time.Duration
		tokenStart := time.Now()
		r.Measure(Step{
			Name:   fmt.Sprintf("Decode_Token_%d", i),
			Record: "Decode_Token",
			Run: func() error {
				t := time.Now()
				Spin(inferFor)
				inference = time.Since(t)
				t = time.Now()
				Spin(sampleFor)
				sampling = time.Since(t)
				return nil
			},
		})
		metrics.RecordTimes(tokenStart, inference, sampling)
	}
	return metrics.WriteMetrics(r.out())
}
