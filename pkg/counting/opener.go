package counting

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Handle is one open kernel counter descriptor.
type Handle interface {
	Reset() error
	Enable() error
	Disable() error
	Read(p []byte) (int, error)
	Close() error
}

// Opener creates counter handles. SyscallOpener is the real one; tests
// substitute fakes to count opens and closes.
type Opener interface {
	Open(k Kind, pid, cpu int) (Handle, error)
}

// SyscallOpener opens counters with perf_event_open(2).
type SyscallOpener struct {
	// Inherit makes counters follow threads and children created after open.
	Inherit bool
}

func (o SyscallOpener) Open(k Kind, pid, cpu int) (Handle, error) {
	attr, err := Attr(k, o.Inherit)
	if err != nil {
		return nil, err
	}
	fd, err := unix.PerfEventOpen(attr, pid, cpu, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EOPNOTSUPP) {
			return nil, fmt.Errorf("perf_event_open %s on cpu %d: %w: %w", k, cpu, ErrUnsupported, err)
		}
		return nil, fmt.Errorf("perf_event_open %s on cpu %d: %w", k, cpu, err)
	}
	return perfFD(fd), nil
}

type perfFD int

func (fd perfFD) Reset() error {
	return unix.IoctlSetInt(int(fd), unix.PERF_EVENT_IOC_RESET, 0)
}

func (fd perfFD) Enable() error {
	return unix.IoctlSetInt(int(fd), unix.PERF_EVENT_IOC_ENABLE, 0)
}

func (fd perfFD) Disable() error {
	return unix.IoctlSetInt(int(fd), unix.PERF_EVENT_IOC_DISABLE, 0)
}

func (fd perfFD) Read(p []byte) (int, error) {
	return unix.Read(int(fd), p)
}

func (fd perfFD) Close() error {
	return unix.Close(int(fd))
}
