package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"PhaseProfiler/pkg/aggregating"
	"PhaseProfiler/pkg/exporting"
	"PhaseProfiler/pkg/workload"
)

var (
	runPipeline bool
	runTokens   int
	runExport   string
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Aliases: []string{"r"},
		Use:     "run",
		Short:   "Run a synthetic workload as phases",
		Long: `Run CPU, file I/O and sleep phases the configured number of times and
print the phase report to stdout.

With --pipeline the phases follow an inference run instead: setup stages,
then one Decode_Token phase per token.

Example:
  phaseprof run -n 10 --spin 100ms
  phaseprof run --pipeline --tokens 32 --hw-counters
  phaseprof run --export csv > phases.csv`,
		RunE: runRun,
	}

	Cfg.AddProfilerFlags(cmd)
	Cfg.AddProbeFlags(cmd)

	cmd.Flags().BoolVar(&runPipeline, "pipeline", false, "Replay inference pipeline phases")
	cmd.Flags().IntVar(&runTokens, "tokens", 16, "Decode steps for --pipeline")
	cmd.Flags().StringVar(&runExport, "export", "", "Write samples to stdout in this format instead of the report (csv, tsv, jsonl, parquet)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	if runExport != "" {
		if _, ok := exporting.Get(runExport); !ok {
			return fmt.Errorf("unsupported export format: %s", runExport)
		}
	}

	p, cleanup, err := newProfiler()
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	agg := aggregating.New(out)
	runner := &workload.Runner{
		Profiler:   p,
		Aggregator: agg,
		Logger:     &log.DefaultLogger,
		Out:        out,
	}
	if runExport != "" {
		runner.Out = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runPipeline {
		err = runner.RunPipeline(ctx, Cfg.Probe, runTokens)
	} else {
		err = runner.Run(ctx, workload.ProbeSteps(Cfg.Probe), Cfg.Probe.Iterations)
	}
	if err != nil {
		log.Warn().Err(err).Msg("workload interrupted")
	}

	if runExport != "" {
		return exporting.Export(out, runExport, exporting.FlattenHistories(Cfg.SessionUUID, agg.Histories()))
	}
	return agg.PrintStats()
}
