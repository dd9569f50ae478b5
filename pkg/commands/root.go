// Package commands provides CLI command implementations.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"PhaseProfiler/pkg/collecting"
	"PhaseProfiler/pkg/config"
	"PhaseProfiler/pkg/logging"
	"PhaseProfiler/pkg/profiling"
)

// Cfg is the shared configuration instance.
var Cfg = config.New()

var configPath string

// gpus lists the devices the energy meter attached to, empty when disabled.
var gpus []collecting.GPUInfo

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "phaseprof",
		Short: "Phase-based performance profiler",
		Long: `PhaseProfiler measures named phases of a process: wall time, CPU time,
I/O volume and per-core event counters, then summarizes repeated phases.

Commands:
  run     Run a synthetic workload as phases and print the report
  exec    Profile a command as a single phase
  serve   Run a scheduled probe and serve reports, exports and metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := Cfg.LoadFile(configPath, cmd.Flags()); err != nil {
				return err
			}
			Cfg.ApplyDefaults()
			logging.Configure(Cfg.Logging)
			return nil
		},
	}

	config.AddConfigFlag(root, &configPath)
	Cfg.AddLoggingFlags(root)

	root.AddCommand(
		NewRunCmd(),
		NewExecCmd(),
		NewServeCmd(),
	)

	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newProfiler builds a profiler from Cfg, attaching the GPU energy meter
// when enabled. The returned cleanup releases both.
func newProfiler(opts ...profiling.Option) (*profiling.Profiler, func(), error) {
	if err := Cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var gpu io.Closer
	if Cfg.EnableNvidia {
		meter, err := collecting.NewNvidiaMeter(logging.Module(log.DefaultLogger, "collecting"))
		if err != nil {
			log.Warn().Err(err).Msg("GPU energy disabled")
		} else {
			gpu = meter
			gpus = meter.Devices()
			opts = append(opts, profiling.WithEnergyMeter(meter))
		}
	}

	opts = append([]profiling.Option{profiling.WithLogger(logging.Module(log.DefaultLogger, "profiling"))}, opts...)
	p, err := profiling.New(Cfg, opts...)
	if err != nil {
		if gpu != nil {
			gpu.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release counters")
		}
		if gpu != nil {
			gpu.Close()
		}
	}
	return p, cleanup, nil
}
