package aggregating

import (
	"PhaseProfiler/pkg/profiling"
)

// Summary is the arithmetic mean of a phase history.
type Summary struct {
	Phase             string  `json:"phase"`
	Count             int     `json:"count"`
	WallTimeMs        float64 `json:"wallTimeMs"`
	UserTimeSec       float64 `json:"userTimeSec"`
	SystemTimeSec     float64 `json:"systemTimeSec"`
	CPUTimeSec        float64 `json:"cpuTimeSec"`
	IOWaitTimeMs      float64 `json:"ioWaitTimeMs"`
	IOBytesRead       float64 `json:"ioBytesRead"`
	IOBytesWritten    float64 `json:"ioBytesWritten"`
	CPUUtilizationPct float64 `json:"cpuUtilizationPct"`
}

// Summarize averages every sample of h. No filtering is applied.
func Summarize(h History) Summary {
	s := Summary{Phase: h.Phase, Count: len(h.Samples)}
	if s.Count == 0 {
		return s
	}
	for _, st := range h.Samples {
		s.WallTimeMs += st.WallTimeMs
		s.UserTimeSec += st.UserTimeSec
		s.SystemTimeSec += st.SystemTimeSec
		s.CPUTimeSec += st.CPUTimeSec
		s.IOWaitTimeMs += st.IOWaitTimeMs
		s.IOBytesRead += float64(st.IOBytesRead)
		s.IOBytesWritten += float64(st.IOBytesWritten)
	}
	n := float64(s.Count)
	s.WallTimeMs /= n
	s.UserTimeSec /= n
	s.SystemTimeSec /= n
	s.CPUTimeSec /= n
	s.IOWaitTimeMs /= n
	s.IOBytesRead /= n
	s.IOBytesWritten /= n
	s.CPUUtilizationPct = utilization(s.CPUTimeSec, s.WallTimeMs)
	return s
}

// utilization is CPU time as a percentage of wall time.
func utilization(cpuSec, wallMs float64) float64 {
	return profiling.ParallelEfficiency(profiling.PerfStats{CPUTimeSec: cpuSec, WallTimeMs: wallMs}) * 100
}
