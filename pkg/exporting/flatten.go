package exporting

import (
	"fmt"

	"PhaseProfiler/pkg/aggregating"
	"PhaseProfiler/pkg/profiling"
)

// FlattenStats turns one measurement into a row. Per-core values become
// one column per core id.
func FlattenStats(session, phase string, step int, s profiling.PerfStats) Record {
	r := Record{
		"session":              session,
		"phase":                phase,
		"step":                 int64(step),
		"wall_time_ms":         s.WallTimeMs,
		"user_time_sec":        s.UserTimeSec,
		"system_time_sec":      s.SystemTimeSec,
		"cpu_time_sec":         s.CPUTimeSec,
		"process_cpu_time_sec": s.ProcessCPUTimeSec,
		"io_wait_time_ms":      s.IOWaitTimeMs,
		"io_bytes_read":        s.IOBytesRead,
		"io_bytes_written":     s.IOBytesWritten,
		"io_read_ops":          s.IOReadOps,
		"io_write_ops":         s.IOWriteOps,
		"migrations":           s.Migrations,
		"system_io_wait_pct":   s.SystemIOWaitPct,
		"parallel_efficiency":  profiling.ParallelEfficiency(s),
	}
	if s.GPUEnergyJoules > 0 {
		r["gpu_energy_joules"] = s.GPUEnergyJoules
	}

	for i := range s.CoreUserTimes {
		core := i
		if i < len(s.Cores) {
			core = s.Cores[i]
		}
		prefix := fmt.Sprintf("core%d_", core)
		r[prefix+"user_sec"] = s.CoreUserTimes[i]
		r[prefix+"system_sec"] = valueAt(s.CoreSystemTimes, i)
		r[prefix+"total_sec"] = valueAt(s.CoreCPUTimes, i)
		if i < len(s.CoreInstructions) {
			r[prefix+"instructions"] = s.CoreInstructions[i]
			r[prefix+"cycles"] = valueAt(s.CoreCycles, i)
			r[prefix+"ref_cycles"] = valueAt(s.CoreRefCycles, i)
		}
	}
	return r
}

func valueAt[T any](xs []T, i int) T {
	var zero T
	if i < len(xs) {
		return xs[i]
	}
	return zero
}

// FlattenHistories returns one row per recorded sample, phases in report order.
func FlattenHistories(session string, hs []aggregating.History) []Record {
	var records []Record
	for _, h := range hs {
		for i, s := range h.Samples {
			records = append(records, FlattenStats(session, h.Phase, i, s))
		}
	}
	return records
}

// FormatValue renders a record value for text formats.
func FormatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
