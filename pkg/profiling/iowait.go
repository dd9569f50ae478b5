package profiling

import (
	"time"

	"PhaseProfiler/pkg/config"
)

// IOWaitEstimator turns I/O volume and migration counts into an I/O wait
// figure. It is a heuristic; nothing in the kernel interfaces used here
// measures per-process I/O wait directly.
type IOWaitEstimator interface {
	EstimateMs(bytes uint64, wallMs float64, migrations uint64) float64
}

// ThroughputEstimator assumes a fixed device throughput, caps the result to a
// fraction of wall time, then adds a fixed cost per CPU migration.
type ThroughputEstimator struct {
	BytesPerSec   float64
	WallCap       float64
	MigrationCost time.Duration
}

// NewThroughputEstimator builds the estimator from configuration.
func NewThroughputEstimator(cfg config.IOWaitConfig) ThroughputEstimator {
	return ThroughputEstimator{
		BytesPerSec:   cfg.ThroughputMiBps * config.BytesPerMegaByte,
		WallCap:       cfg.WallCapFraction,
		MigrationCost: cfg.MigrationCost,
	}
}

func (e ThroughputEstimator) EstimateMs(bytes uint64, wallMs float64, migrations uint64) float64 {
	var ms float64
	if e.BytesPerSec > 0 {
		ms = float64(bytes) / e.BytesPerSec * 1000
	}
	if limit := wallMs * e.WallCap; ms > limit {
		ms = max(limit, 0)
	}
	// migration cost is added after the cap
	ms += float64(migrations) * float64(e.MigrationCost) / float64(time.Millisecond)
	return ms
}

// NoIOWait disables the estimate.
type NoIOWait struct{}

func (NoIOWait) EstimateMs(uint64, float64, uint64) float64 { return 0 }
