package profiling

import (
	"github.com/phuslu/log"

	"PhaseProfiler/pkg/counting"
)

// EnergyMeter reports a cumulative energy counter in millijoules.
type EnergyMeter interface {
	TotalEnergy() (uint64, bool)
}

// Option customizes a Profiler.
type Option func(*Profiler)

// WithLogger sets the logger warnings are written to.
func WithLogger(l *log.Logger) Option {
	return func(p *Profiler) { p.logger = l }
}

// WithOpener replaces the perf_event_open based counter opener.
func WithOpener(o counting.Opener) Option {
	return func(p *Profiler) { p.opener = o }
}

// WithEstimator replaces the I/O wait estimator.
func WithEstimator(e IOWaitEstimator) Option {
	return func(p *Profiler) { p.estimator = e }
}

// WithProcPaths reads I/O and CPU accounting from the given files.
func WithProcPaths(ioPath, statPath string) Option {
	return func(p *Profiler) {
		p.ioPath = ioPath
		p.statPath = statPath
	}
}

// WithChildren measures rusage of waited-for children instead of the caller.
func WithChildren() Option {
	return func(p *Profiler) { p.rusageWho = rusageChildren }
}

// WithEnergyMeter adds GPU energy deltas to each phase.
func WithEnergyMeter(m EnergyMeter) Option {
	return func(p *Profiler) { p.energy = m }
}
