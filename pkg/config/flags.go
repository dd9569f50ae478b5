package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddProfilerFlags adds core selection and counter flags to a command.
func (c *Config) AddProfilerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntSliceVar(&c.Cores, "cores", c.Cores, "Cores to monitor (default: process affinity)")
	flags.BoolVar(&c.HardwareCounters, "hw-counters", c.HardwareCounters, "Enable instruction/cycle hardware counters")
	flags.BoolVar(&c.InheritCounters, "inherit", c.InheritCounters, "Counters follow threads and children created after phase start")
	flags.BoolVar(&c.EnableNvidia, "nvidia", c.EnableNvidia, "Measure NVIDIA GPU energy per phase")
	flags.BoolVar(&c.IOWait.Disabled, "no-io-wait", c.IOWait.Disabled, "Disable the I/O wait estimate")
	flags.Float64Var(&c.IOWait.ThroughputMiBps, "io-throughput", c.IOWait.ThroughputMiBps, "Assumed I/O throughput in MiB/s")
}

// AddProbeFlags adds synthetic workload flags to a command.
func (c *Config) AddProbeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&c.Probe.Iterations, "iterations", "n", c.Probe.Iterations, "Repetitions per phase")
	flags.DurationVar(&c.Probe.SpinFor, "spin", c.Probe.SpinFor, "CPU spin duration per iteration")
	flags.Int64Var(&c.Probe.IOBytes, "io-bytes", c.Probe.IOBytes, "Bytes written and read back per iteration")
	flags.DurationVar(&c.Probe.SleepFor, "sleep", c.Probe.SleepFor, "Sleep duration per iteration")
}

// AddServeFlags adds HTTP server flags to a command.
func (c *Config) AddServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.Serve.Addr, "addr", c.Serve.Addr, "Listen address")
	flags.StringVar(&c.Probe.Schedule, "schedule", c.Probe.Schedule, "Cron spec for the probe workload")
}

// AddLoggingFlags adds logging flags to a command.
func (c *Config) AddLoggingFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&c.Logging.Format, "log-format", c.Logging.Format, "Log format (console, json, logfmt)")
}

// AddConfigFlag adds the --config flag to a command and its children.
func AddConfigFlag(cmd *cobra.Command, path *string) {
	cmd.PersistentFlags().StringVarP(path, "config", "c", "", "YAML config file (default: $"+ConfigEnvVar+")")
}

// LoadFile replaces c with the file at path (or $PHASEPROF_CONFIG when path
// is empty), then re-applies every flag the user set explicitly. A missing
// path and unset variable leave c untouched.
func (c *Config) LoadFile(path string, flags *pflag.FlagSet) error {
	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	if path == "" {
		return nil
	}

	type setFlag struct {
		name   string
		value  string
		values []string
	}
	var explicit []setFlag
	flags.Visit(func(f *pflag.Flag) {
		sf := setFlag{name: f.Name, value: f.Value.String()}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sf.values = append([]string(nil), sv.GetSlice()...)
		}
		explicit = append(explicit, sf)
	})

	loaded, err := Load(path)
	if err != nil {
		return err
	}
	*c = *loaded

	for _, sf := range explicit {
		f := flags.Lookup(sf.name)
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			if err := sv.Replace(sf.values); err != nil {
				return fmt.Errorf("re-applying --%s: %w", sf.name, err)
			}
			continue
		}
		if err := f.Value.Set(sf.value); err != nil {
			return fmt.Errorf("re-applying --%s: %w", sf.name, err)
		}
	}
	return nil
}
