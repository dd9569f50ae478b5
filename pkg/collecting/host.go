package collecting

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"

	"PhaseProfiler/pkg/probing"
)

// HostInfo describes the machine a session ran on.
type HostInfo struct {
	Hostname         string  `json:"hostname"`
	NumProcessors    int     `json:"numProcessors"`
	CPUType          string  `json:"cpuType"`
	CPUCache         string  `json:"cpuCache"`
	KernelInfo       string  `json:"kernelInfo"`
	MemoryTotalBytes int64   `json:"memoryTotalBytes"`
	SwapTotalBytes   int64   `json:"swapTotalBytes"`
	TimeSynced       bool    `json:"timeSynced"`
	TimeOffsetSec    float64 `json:"timeOffsetSec"`
}

type hostPaths struct {
	cpuinfo   string
	meminfo   string
	cacheGlob string
}

var defaultHostPaths = hostPaths{
	cpuinfo:   "/proc/cpuinfo",
	meminfo:   "/proc/meminfo",
	cacheGlob: "/sys/devices/system/cpu/cpu*/cache/index*",
}

// CollectHost reads static machine information. Unreadable sources leave
// their fields empty.
func CollectHost() HostInfo {
	return collectHost(defaultHostPaths)
}

func collectHost(paths hostPaths) HostInfo {
	hostname, _ := os.Hostname()
	h := HostInfo{
		Hostname:      hostname,
		NumProcessors: runtime.NumCPU(),
		CPUType:       cpuType(paths.cpuinfo),
		CPUCache:      cpuCache(paths.cacheGlob),
		KernelInfo:    kernelInfo(),
	}

	mem := memInfo(paths.meminfo)
	h.MemoryTotalBytes = mem["MemTotal"] * 1024
	h.SwapTotalBytes = mem["SwapTotal"] * 1024

	h.TimeSynced, h.TimeOffsetSec = ntpInfo()
	return h
}

func cpuType(path string) string {
	lines, _, _ := probing.FileLines(path)
	for _, line := range lines {
		if strings.HasPrefix(line, "model name") {
			if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return "unknown"
}

// cpuCache sums unique cache instances per level, e.g. "L1d:64K L2:2M".
func cpuCache(glob string) string {
	result := make(map[string]int64)
	seen := make(map[string]bool)

	dirs, _ := filepath.Glob(glob)
	for _, dir := range dirs {
		level := readTrimmed(filepath.Join(dir, "level"))
		cType := readTrimmed(filepath.Join(dir, "type"))
		sizeStr := readTrimmed(filepath.Join(dir, "size"))
		shared := readTrimmed(filepath.Join(dir, "shared_cpu_map"))

		id := fmt.Sprintf("L%s-%s-%s", level, cType, shared)
		if seen[id] || level == "" || sizeStr == "" {
			continue
		}
		seen[id] = true

		var size int64
		var unit rune
		_, _ = fmt.Sscanf(sizeStr, "%d%c", &size, &unit)
		switch unit {
		case 'K':
			size *= 1024
		case 'M':
			size *= 1024 * 1024
		}

		suffix := ""
		if level == "1" {
			switch cType {
			case "Data":
				suffix = "d"
			case "Instruction":
				suffix = "i"
			}
		}
		result["L"+level+suffix] += size
	}

	var parts []string
	for _, label := range []string{"L1d", "L1i", "L2", "L3", "L4"} {
		size := result[label]
		switch {
		case size >= 1048576:
			parts = append(parts, fmt.Sprintf("%s:%dM", label, size/1048576))
		case size > 0:
			parts = append(parts, fmt.Sprintf("%s:%dK", label, size/1024))
		}
	}
	return strings.Join(parts, " ")
}

func readTrimmed(path string) string {
	v, _, _ := probing.File(path)
	return strings.TrimSpace(v)
}

func kernelInfo() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return ""
	}
	return fmt.Sprintf("%s %s %s",
		unix.ByteSliceToString(uname.Sysname[:]),
		unix.ByteSliceToString(uname.Release[:]),
		unix.ByteSliceToString(uname.Machine[:]))
}

func ntpInfo() (bool, float64) {
	tx := &unix.Timex{}
	state, err := unix.Adjtimex(tx)
	if err != nil {
		return false, 0
	}
	return state != unix.TIME_ERROR, float64(tx.Offset) / 1_000_000.0
}

// memInfo returns /proc/meminfo values in kB.
func memInfo(path string) map[string]int64 {
	kv, _, err := probing.FileKV(path, ":")
	result := make(map[string]int64)
	if err != nil {
		return result
	}
	for k, v := range kv {
		v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "kB"))
		if n, ok := probing.ParseUint64(v); ok {
			result[k] = int64(n)
		}
	}
	return result
}
