// Package profiling measures named phases of the running process.
package profiling

import (
	"fmt"
	"os"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sys/unix"

	"PhaseProfiler/pkg/config"
	"PhaseProfiler/pkg/counting"
	"PhaseProfiler/pkg/logging"
	"PhaseProfiler/pkg/probing"
)

const (
	rusageSelf     = unix.RUSAGE_SELF
	rusageChildren = unix.RUSAGE_CHILDREN
)

// Source families checked by EndPhase.
const (
	SourceWall     = "wall"
	SourceRusage   = "rusage"
	SourceIO       = "io"
	SourceCPUTicks = "cpu_ticks"
	SourceCounters = "counters"
)

// phaseSnapshot is the start-of-phase state for one name. A false has* flag
// means that source was not captured.
type phaseSnapshot struct {
	wall    time.Time
	hasWall bool

	rusage    probing.Rusage
	hasRusage bool

	procClock    time.Duration
	hasProcClock bool

	io       probing.IOStats
	ioFields probing.IOFields
	hasIO    bool

	ticks     []probing.CoreTicks
	ticksOK   []bool
	totals    probing.CPUTotals
	hasTicks  bool
	hasTotals bool

	counters []*counting.CounterSet

	energy    uint64
	hasEnergy bool
}

// Profiler records named phases. It is not safe for concurrent use: phases
// are started and ended by a single goroutine.
type Profiler struct {
	cores    []int
	kinds    []counting.Kind
	hardware bool
	pid      int

	opener    counting.Opener
	estimator IOWaitEstimator
	energy    EnergyMeter
	rusageWho int
	ioPath    string
	statPath  string
	logger    *log.Logger

	phases   map[string]*phaseSnapshot
	orphans  []*counting.CounterSet
	failures counting.OpenFailures
}

// New validates cfg and builds a Profiler. Cores default to the process
// affinity mask.
func New(cfg *config.Config, opts ...Option) (*Profiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &Profiler{
		cores:     append([]int(nil), cfg.Cores...),
		kinds:     counting.DefaultKinds(cfg.HardwareCounters),
		hardware:  cfg.HardwareCounters,
		pid:       os.Getpid(),
		opener:    counting.SyscallOpener{Inherit: cfg.InheritCounters},
		rusageWho: rusageSelf,
		ioPath:    config.ProcSelfIO,
		statPath:  config.ProcStat,
		phases:    make(map[string]*phaseSnapshot),
	}
	if cfg.IOWait.Disabled {
		p.estimator = NoIOWait{}
	} else {
		p.estimator = NewThroughputEstimator(cfg.IOWait)
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Module(log.DefaultLogger, "profiling")
	}
	if len(p.cores) == 0 {
		p.cores = probing.DetectActiveCores()
	}

	p.logger.Info().Ints("cores", p.cores).Bool("hardware_counters", p.hardware).Msg("monitoring cores")
	return p, nil
}

// Cores returns the monitored cores in report order.
func (p *Profiler) Cores() []int {
	return append([]int(nil), p.cores...)
}

// StartPhase snapshots every source for name and starts per-core counters.
// Starting a name that is already running replaces its snapshot; the
// replaced counters stay open until Close.
func (p *Profiler) StartPhase(name string) {
	if name == "" {
		p.logger.Warn().Msg("starting phase with empty name")
	}
	if old, ok := p.phases[name]; ok {
		p.logger.Warn().Str("phase", name).Int("counter_sets", len(old.counters)).Msg("phase restarted before end, previous counters orphaned")
		p.orphans = append(p.orphans, old.counters...)
	}

	s := &phaseSnapshot{}
	p.phases[name] = s

	s.wall, s.hasWall = time.Now(), true

	if ru, err := probing.ReadRusage(p.rusageWho); err != nil {
		p.logger.Debug().Str("phase", name).Err(err).Msg("rusage unavailable")
	} else {
		s.rusage, s.hasRusage = ru, true
	}

	if clk, err := probing.ReadProcessCPUClock(); err == nil {
		s.procClock, s.hasProcClock = clk, true
	}

	if io, fields, err := probing.ReadProcessIOFields(p.ioPath); err != nil {
		p.logger.Debug().Str("phase", name).Err(err).Msg("io accounting unavailable")
	} else {
		s.io, s.ioFields, s.hasIO = io, fields, true
	}

	if ticks, ok, err := probing.ReadCoreCPUTimesChecked(p.statPath, p.cores); err != nil {
		p.logger.Debug().Str("phase", name).Err(err).Msg("cpu accounting unavailable")
	} else {
		s.ticks, s.ticksOK, s.hasTicks = ticks, ok, true
		s.totals, s.hasTotals = probing.ReadCPUTotals(p.statPath)
	}

	if p.energy != nil {
		s.energy, s.hasEnergy = p.energy.TotalEnergy()
	}

	s.counters = make([]*counting.CounterSet, len(p.cores))
	for i, core := range p.cores {
		s.counters[i] = counting.OpenTracked(p.opener, core, p.pid, p.kinds, p.logger, &p.failures)
	}
	for _, set := range s.counters {
		set.Activate()
	}
}

// EndPhase completes name and returns its measurement. A missing source is
// logged once and leaves its fields at zero.
func (p *Profiler) EndPhase(name string) PerfStats {
	s, ok := p.phases[name]
	if ok {
		delete(p.phases, name)
	} else {
		s = &phaseSnapshot{}
	}
	stats := newPerfStats(p.cores, p.hardware)

	// Counters stop first so the bookkeeping below is not attributed to the phase.
	var results []counting.Results
	if s.counters != nil {
		results = make([]counting.Results, len(s.counters))
		for i, set := range s.counters {
			results[i] = set.ReadAndClose()
		}
	} else {
		p.missing(name, SourceCounters)
	}

	if s.hasWall {
		stats.WallTimeMs = float64(time.Since(s.wall)) / float64(time.Millisecond)
	} else {
		p.missing(name, SourceWall)
	}

	if s.hasRusage {
		if end, err := probing.ReadRusage(p.rusageWho); err != nil {
			p.logger.Debug().Str("phase", name).Err(err).Msg("rusage read skipped")
		} else {
			d := end.Sub(s.rusage)
			stats.UserTimeSec = d.User.Seconds()
			stats.SystemTimeSec = d.System.Seconds()
			stats.CPUTimeSec = stats.UserTimeSec + stats.SystemTimeSec
		}
	} else {
		p.missing(name, SourceRusage)
	}

	if s.hasProcClock {
		if end, err := probing.ReadProcessCPUClock(); err == nil {
			stats.ProcessCPUTimeSec = max(end-s.procClock, 0).Seconds()
		}
	}

	if s.hasIO {
		if end, fields, err := probing.ReadProcessIOFields(p.ioPath); err != nil {
			p.logger.Debug().Str("phase", name).Err(err).Msg("io read skipped")
		} else {
			valid := s.ioFields & fields
			if valid != probing.AllIOFields {
				p.logger.Debug().Str("phase", name).Uint64("fields", uint64(valid)).Msg("io fields malformed, skipped")
			}
			d := end.Sub(s.io).Only(valid)
			stats.IOBytesRead = d.BytesRead
			stats.IOBytesWritten = d.BytesWritten
			stats.IOReadOps = d.ReadOps
			stats.IOWriteOps = d.WriteOps
		}
	} else {
		p.missing(name, SourceIO)
	}

	if s.hasTicks {
		end, ok, err := probing.ReadCoreCPUTimesChecked(p.statPath, p.cores)
		if err != nil {
			p.logger.Debug().Str("phase", name).Err(err).Msg("cpu ticks read skipped")
		}
		for i, core := range p.cores {
			if !ok[i] || !s.ticksOK[i] {
				if err == nil {
					p.logger.Debug().Str("phase", name).Int("core", core).Msg("cpu line missing, skipped")
				}
				continue
			}
			d := end[i].Sub(s.ticks[i])
			stats.CoreUserTimes[i] = float64(d.User) / config.JiffiesPerSecond
			stats.CoreSystemTimes[i] = float64(d.System) / config.JiffiesPerSecond
		}
		if endTotals, ok := probing.ReadCPUTotals(p.statPath); ok && s.hasTotals {
			stats.SystemIOWaitPct = probing.SystemIOWaitPercent(s.totals, endTotals)
		}
	} else {
		p.missing(name, SourceCPUTicks)
	}

	cycleRatio := make([]float64, len(p.cores))
	for i := range cycleRatio {
		cycleRatio[i] = 1
	}
	for i, res := range results {
		cycleRatio[i] = p.applyCounters(&stats, i, res)
	}
	for i := range p.cores {
		stats.CoreCPUTimes[i] = (stats.CoreUserTimes[i] + stats.CoreSystemTimes[i]) * cycleRatio[i]
	}

	if s.hasEnergy {
		if end, ok := p.energy.TotalEnergy(); ok && end >= s.energy {
			stats.GPUEnergyJoules = float64(end-s.energy) / 1000
		}
	}

	stats.IOWaitTimeMs = p.estimator.EstimateMs(stats.IOBytesRead+stats.IOBytesWritten, stats.WallTimeMs, stats.Migrations)
	return stats
}

// applyCounters overrides tick estimates for core index i with counter
// values and returns the cycle multiplexing ratio to apply to its total.
func (p *Profiler) applyCounters(stats *PerfStats, i int, res counting.Results) float64 {
	if r, ok := res.Get(counting.UserTime); ok {
		stats.CoreUserTimes[i] = r.Scaled() / config.NanosecondsPerSec
	}
	if r, ok := res.Get(counting.SystemTime); ok {
		stats.CoreSystemTimes[i] = r.Scaled() / config.NanosecondsPerSec
	}
	if r, ok := res.Get(counting.Migrations); ok {
		stats.Migrations += r.Value
	}
	if !p.hardware {
		return 1
	}

	ratio := 1.0
	if r, ok := res.Get(counting.Instructions); ok {
		stats.CoreInstructions[i] = r.Value
	}
	if r, ok := res.Get(counting.Cycles); ok {
		stats.CoreCycles[i] = r.Value
		ratio = min(r.Ratio(), 1)
	}
	if r, ok := res.Get(counting.RefCycles); ok {
		stats.CoreRefCycles[i] = r.Value
	}
	return ratio
}

func (p *Profiler) missing(phase, source string) {
	p.logger.Warn().Str("phase", phase).Str("source", source).Msg("no start snapshot for phase")
}

// Close releases counters of phases that were never ended and of phases
// that were restarted. The Profiler must not be used afterwards.
func (p *Profiler) Close() error {
	released := 0
	for name, s := range p.phases {
		for _, set := range s.counters {
			released += set.Len()
			set.Close()
		}
		delete(p.phases, name)
	}
	for _, set := range p.orphans {
		released += set.Len()
		set.Close()
	}
	p.orphans = nil
	if released > 0 {
		p.logger.Debug().Int("counters", released).Msg("released unfinished counters")
	}
	return nil
}
