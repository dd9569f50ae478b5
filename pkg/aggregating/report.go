package aggregating

import (
	"bytes"
	"fmt"

	"PhaseProfiler/pkg/config"
	"PhaseProfiler/pkg/profiling"
)

// num formats like a default C++ stream: six significant digits.
func num(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

func mb(b float64) string {
	return num(b / config.BytesPerMegaByte)
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

func writeHistory(buf *bytes.Buffer, h History) {
	fmt.Fprintf(buf, "\n=== Performance Statistics for Phase: %s ===\n", h.Phase)

	if len(h.Samples) == 1 {
		writeSample(buf, h.Samples[0], "")
		return
	}

	s := Summarize(h)
	fmt.Fprintf(buf, "Number of measurements: %d\n", s.Count)
	fmt.Fprintf(buf, "Average wall clock time: %s ms\n", num(s.WallTimeMs))
	fmt.Fprintf(buf, "Average user time: %s sec\n", num(s.UserTimeSec))
	fmt.Fprintf(buf, "Average system time: %s sec\n", num(s.SystemTimeSec))
	fmt.Fprintf(buf, "Average CPU time (user+system): %s sec\n", num(s.CPUTimeSec))
	fmt.Fprintf(buf, "Average I/O wait time: %s ms\n", num(s.IOWaitTimeMs))
	fmt.Fprintf(buf, "Average I/O bytes read: %s MB\n", mb(s.IOBytesRead))
	fmt.Fprintf(buf, "Average I/O bytes written: %s MB\n", mb(s.IOBytesWritten))
	fmt.Fprintf(buf, "CPU utilization: %s%%\n", num(s.CPUUtilizationPct))

	if len(h.Samples) <= detailLimit {
		buf.WriteString("\nPer-step details:\n")
		for i, st := range h.Samples {
			fmt.Fprintf(buf, "Step %d:\n", i)
			writeSample(buf, st, "  ")
		}
	}
}

func writeSample(buf *bytes.Buffer, s profiling.PerfStats, prefix string) {
	fmt.Fprintf(buf, "%sWall clock time: %s ms\n", prefix, num(s.WallTimeMs))
	fmt.Fprintf(buf, "%sUser time: %s sec\n", prefix, num(s.UserTimeSec))
	fmt.Fprintf(buf, "%sSystem time: %s sec\n", prefix, num(s.SystemTimeSec))
	fmt.Fprintf(buf, "%sTotal CPU time (user+system): %s sec\n", prefix, num(s.CPUTimeSec))
	fmt.Fprintf(buf, "%sProcess CPU time (timespec): %s sec\n", prefix, num(s.ProcessCPUTimeSec))
	fmt.Fprintf(buf, "%sI/O wait time: %s ms\n", prefix, num(s.IOWaitTimeMs))
	fmt.Fprintf(buf, "%sI/O bytes read: %s MB\n", prefix, mb(float64(s.IOBytesRead)))
	fmt.Fprintf(buf, "%sI/O bytes written: %s MB\n", prefix, mb(float64(s.IOBytesWritten)))
	fmt.Fprintf(buf, "%sCPU utilization: %s%%\n", prefix, num(utilization(s.CPUTimeSec, s.WallTimeMs)))

	if len(s.CoreUserTimes) == 0 {
		return
	}
	fmt.Fprintf(buf, "%sPer-core statistics:\n", prefix)
	for i := range s.CoreUserTimes {
		core := i
		if i < len(s.Cores) {
			core = s.Cores[i]
		}
		fmt.Fprintf(buf, "%s  Core %d: User=%ss, System=%ss, Total=%ss\n", prefix, core,
			num(s.CoreUserTimes[i]), num(at(s.CoreSystemTimes, i)), num(at(s.CoreCPUTimes, i)))
	}
}
