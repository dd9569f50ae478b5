package probing

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Rusage is the CPU time part of getrusage(2).
type Rusage struct {
	User   time.Duration
	System time.Duration
}

// ReadRusage samples getrusage for who (unix.RUSAGE_SELF or unix.RUSAGE_CHILDREN).
func ReadRusage(who int) (Rusage, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(who, &ru); err != nil {
		return Rusage{}, fmt.Errorf("getrusage: %w", err)
	}
	return Rusage{
		User:   time.Duration(ru.Utime.Nano()),
		System: time.Duration(ru.Stime.Nano()),
	}, nil
}

// Sub returns r - start, clamped at zero per field.
func (r Rusage) Sub(start Rusage) Rusage {
	return Rusage{
		User:   max(r.User-start.User, 0),
		System: max(r.System-start.System, 0),
	}
}

// ReadProcessCPUClock reads CLOCK_PROCESS_CPUTIME_ID.
func ReadProcessCPUClock() (time.Duration, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_PROCESS_CPUTIME_ID, &ts); err != nil {
		return 0, fmt.Errorf("clock_gettime: %w", err)
	}
	return time.Duration(ts.Nano()), nil
}
