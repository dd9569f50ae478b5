package probing

import (
	"strconv"
	"strings"

	"PhaseProfiler/pkg/config"
)

// CoreTicks is a cumulative per-core tick pair from /proc/stat.
type CoreTicks struct {
	User   uint64
	System uint64
}

// Sub returns t - start per field, clamped at zero.
func (t CoreTicks) Sub(start CoreTicks) CoreTicks {
	return CoreTicks{
		User:   clampSub(t.User, start.User),
		System: clampSub(t.System, start.System),
	}
}

// cpuLine holds the eight leading columns of a /proc/stat cpu line.
type cpuLine struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

func (l cpuLine) ticks() CoreTicks {
	return CoreTicks{
		User:   l.user + l.nice,
		System: l.system + l.irq + l.softirq,
	}
}

// parseCPULine parses the numeric columns after the cpu label.
func parseCPULine(fields []string) (cpuLine, bool) {
	var l cpuLine
	if len(fields) < 8 {
		return l, false
	}
	dst := []*uint64{&l.user, &l.nice, &l.system, &l.idle, &l.iowait, &l.irq, &l.softirq, &l.steal}
	for i, p := range dst {
		v, ok := ParseUint64(fields[i])
		if !ok {
			return l, false
		}
		*p = v
	}
	return l, true
}

// readCPULines indexes every cpu line of a stat file by its label.
func readCPULines(path string) (map[string]cpuLine, error) {
	lines, _, err := FileLines(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]cpuLine)
	for _, line := range lines {
		if !strings.HasPrefix(line, "cpu") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if l, ok := parseCPULine(fields[1:]); ok {
			out[fields[0]] = l
		}
	}
	return out, nil
}

func coreLabel(core int) string {
	return "cpu" + strconv.Itoa(core)
}

// ReadCoreCPUTime returns user+nice and system+irq+softirq ticks for one core.
// A missing line or unreadable source yields (0, 0).
func ReadCoreCPUTime(core int) (user, system uint64) {
	return ReadCoreCPUTimeFrom(config.ProcStat, core)
}

// ReadCoreCPUTimeFrom is ReadCoreCPUTime for a given stat file.
func ReadCoreCPUTimeFrom(path string, core int) (user, system uint64) {
	t := ReadCoreCPUTimesFrom(path, []int{core})
	return t[0].User, t[0].System
}

// ReadCoreCPUTimes reads /proc/stat once for a whole core set.
func ReadCoreCPUTimes(cores []int) []CoreTicks {
	return ReadCoreCPUTimesFrom(config.ProcStat, cores)
}

// ReadCoreCPUTimesFrom returns one tick pair per core, index-aligned to cores.
func ReadCoreCPUTimesFrom(path string, cores []int) []CoreTicks {
	out, _, _ := ReadCoreCPUTimesChecked(path, cores)
	return out
}

// ReadCoreCPUTimesChecked is ReadCoreCPUTimesFrom with a per-core flag that
// is false when the core's line was missing or malformed.
func ReadCoreCPUTimesChecked(path string, cores []int) ([]CoreTicks, []bool, error) {
	out := make([]CoreTicks, len(cores))
	ok := make([]bool, len(cores))
	lines, err := readCPULines(path)
	if err != nil {
		return out, ok, err
	}
	for i, core := range cores {
		if l, found := lines[coreLabel(core)]; found {
			out[i], ok[i] = l.ticks(), true
		}
	}
	return out, ok, nil
}

// CPUTotals is a snapshot of the aggregate cpu line used for system iowait.
type CPUTotals struct {
	IOWait uint64
	Total  uint64
}

// ReadCPUTotals reads the aggregate cpu line; ok is false when unavailable.
func ReadCPUTotals(path string) (CPUTotals, bool) {
	lines, err := readCPULines(path)
	if err != nil {
		return CPUTotals{}, false
	}
	l, ok := lines["cpu"]
	if !ok {
		return CPUTotals{}, false
	}
	return CPUTotals{
		IOWait: l.iowait,
		Total:  l.user + l.nice + l.system + l.idle + l.iowait + l.irq + l.softirq + l.steal,
	}, true
}

// SystemIOWaitPercent returns the share of all CPU time spent in iowait
// between two snapshots of the aggregate cpu line.
func SystemIOWaitPercent(start, end CPUTotals) float64 {
	total := clampSub(end.Total, start.Total)
	if total == 0 {
		return 0
	}
	return float64(clampSub(end.IOWait, start.IOWait)) * 100 / float64(total)
}
