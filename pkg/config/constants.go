package config

const (
	JiffiesPerSecond  = 100
	NanosecondsPerSec = 1_000_000_000
	BytesPerMegaByte  = 1048576
	ProcSelfIO        = "/proc/self/io"
	ProcStat          = "/proc/stat"
	ProcSelfFD        = "/proc/self/fd"
	ConfigEnvVar      = "PHASEPROF_CONFIG"
	CMDSeparator      = "--"
)
