package commands

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"PhaseProfiler/pkg/aggregating"
	"PhaseProfiler/pkg/config"
	"PhaseProfiler/pkg/profiling"
)

var execPhase string

// NewExecCmd creates the exec subcommand.
func NewExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Aliases: []string{"e"},
		Use:     "exec [flags] -- <command> [args...]",
		Short:   "Profile a command as a single phase",
		Long: `Run a command to completion as one phase and print its report.
Specify the command to profile after '--'. CPU time is taken from the
waited-for children and event counters follow the child.

Example:
  phaseprof exec -- python infer.py --prompt "hello"
  phaseprof exec --phase Inference --hw-counters -- ./benchmark`,
		RunE: runExec,
	}

	Cfg.AddProfilerFlags(cmd)
	cmd.Flags().StringVar(&execPhase, "phase", "Command", "Phase name to report")

	return cmd
}

// commandArgs returns the arguments following the separator.
func commandArgs(cmd *cobra.Command, args []string) ([]string, error) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 || dash >= len(args) {
		return nil, fmt.Errorf("no command specified\nUsage: phaseprof exec [flags] %s <command> [args...]", config.CMDSeparator)
	}
	if dash > 0 {
		return nil, fmt.Errorf("unexpected arguments before %q: %v", config.CMDSeparator, args[:dash])
	}
	return args[dash:], nil
}

func runExec(cmd *cobra.Command, args []string) error {
	args, err := commandArgs(cmd, args)
	if err != nil {
		return err
	}

	Cfg.InheritCounters = true
	p, cleanup, err := newProfiler(profiling.WithChildren())
	if err != nil {
		return err
	}
	defer cleanup()

	target := exec.Command(args[0], args[1:]...)
	target.Stdout = os.Stdout
	target.Stderr = os.Stderr
	target.Stdin = os.Stdin

	log.Info().Strs("command", args).Str("phase", execPhase).Msg("profiling command")

	p.StartPhase(execPhase)
	cmdErr := target.Run()
	stats := p.EndPhase(execPhase)

	agg := aggregating.New(cmd.OutOrStdout())
	agg.RecordStats(execPhase, stats)
	if err := agg.PrintStats(); err != nil {
		return err
	}
	return cmdErr
}
