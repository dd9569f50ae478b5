package profiling

// PerfStats is the measurement of one completed phase. Per-core slices are
// index-aligned to the profiler's core order and always have its length.
type PerfStats struct {
	WallTimeMs        float64 `json:"wallTimeMs"`
	UserTimeSec       float64 `json:"userTimeSec"`
	SystemTimeSec     float64 `json:"systemTimeSec"`
	CPUTimeSec        float64 `json:"cpuTimeSec"`
	ProcessCPUTimeSec float64 `json:"processCpuTimeSec"`

	IOWaitTimeMs   float64 `json:"ioWaitTimeMs"`
	IOBytesRead    uint64  `json:"ioBytesRead"`
	IOBytesWritten uint64  `json:"ioBytesWritten"`
	IOReadOps      uint64  `json:"ioReadOps"`
	IOWriteOps     uint64  `json:"ioWriteOps"`
	Migrations     uint64  `json:"migrations"`

	SystemIOWaitPct float64 `json:"systemIoWaitPct"`
	GPUEnergyJoules float64 `json:"gpuEnergyJoules,omitempty"`

	Cores            []int     `json:"cores"`
	CoreUserTimes    []float64 `json:"coreUserTimes"`
	CoreSystemTimes  []float64 `json:"coreSystemTimes"`
	CoreCPUTimes     []float64 `json:"coreCpuTimes"`
	CoreInstructions []uint64  `json:"coreInstructions,omitempty"`
	CoreCycles       []uint64  `json:"coreCycles,omitempty"`
	CoreRefCycles    []uint64  `json:"coreRefCycles,omitempty"`
}

func newPerfStats(cores []int, hardware bool) PerfStats {
	n := len(cores)
	s := PerfStats{
		Cores:           append([]int(nil), cores...),
		CoreUserTimes:   make([]float64, n),
		CoreSystemTimes: make([]float64, n),
		CoreCPUTimes:    make([]float64, n),
	}
	if hardware {
		s.CoreInstructions = make([]uint64, n)
		s.CoreCycles = make([]uint64, n)
		s.CoreRefCycles = make([]uint64, n)
	}
	return s
}

// ParallelEfficiency is CPU time over wall time, or 0 when no wall time elapsed.
func ParallelEfficiency(s PerfStats) float64 {
	if s.WallTimeMs <= 0 {
		return 0
	}
	return s.CPUTimeSec * 1000 / s.WallTimeMs
}
