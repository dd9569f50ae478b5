package counting

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Kind identifies one counter of a CounterSet.
type Kind int

const (
	UserTime Kind = iota
	SystemTime
	Migrations
	Instructions
	Cycles
	RefCycles

	numKinds
)

var kindNames = [numKinds]string{
	UserTime:     "user_time",
	SystemTime:   "system_time",
	Migrations:   "migrations",
	Instructions: "instructions",
	Cycles:       "cycles",
	RefCycles:    "ref_cycles",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Hardware reports whether the kind needs a PMU.
func (k Kind) Hardware() bool {
	return k == Instructions || k == Cycles || k == RefCycles
}

// DefaultKinds returns the software counters, plus the hardware ones when asked.
func DefaultKinds(hardware bool) []Kind {
	kinds := []Kind{UserTime, SystemTime, Migrations}
	if hardware {
		kinds = append(kinds, Instructions, Cycles, RefCycles)
	}
	return kinds
}

const readFormat = unix.PERF_FORMAT_TOTAL_TIME_ENABLED | unix.PERF_FORMAT_TOTAL_TIME_RUNNING

// Attr builds the disabled perf_event_attr for a kind.
func Attr(k Kind, inherit bool) (*unix.PerfEventAttr, error) {
	attr := &unix.PerfEventAttr{
		Size:        uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Read_format: readFormat,
		Bits:        unix.PerfBitDisabled | unix.PerfBitExcludeHv,
	}
	if inherit {
		attr.Bits |= unix.PerfBitInherit
	}

	switch k {
	case UserTime:
		attr.Type = unix.PERF_TYPE_SOFTWARE
		attr.Config = unix.PERF_COUNT_SW_TASK_CLOCK
		attr.Bits |= unix.PerfBitExcludeKernel
	case SystemTime:
		attr.Type = unix.PERF_TYPE_SOFTWARE
		attr.Config = unix.PERF_COUNT_SW_TASK_CLOCK
		attr.Bits |= unix.PerfBitExcludeUser
	case Migrations:
		attr.Type = unix.PERF_TYPE_SOFTWARE
		attr.Config = unix.PERF_COUNT_SW_CPU_MIGRATIONS
	case Instructions:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_INSTRUCTIONS
	case Cycles:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_CPU_CYCLES
	case RefCycles:
		attr.Type = unix.PERF_TYPE_HARDWARE
		attr.Config = unix.PERF_COUNT_HW_REF_CPU_CYCLES
	default:
		return nil, ErrUnsupported
	}
	return attr, nil
}
