// Package counting manages per-core perf_event counters as scoped handles.
package counting

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when a counter is read after release.
	ErrClosed = errors.New("counter already closed")
	// ErrUnsupported marks kinds the kernel or hardware cannot count.
	ErrUnsupported = errors.New("counter kind unsupported")
	// ErrShortRead is returned when fewer than recordSize bytes were read.
	ErrShortRead = errors.New("short counter read")
)

// recordSize is {value, time_enabled, time_running}, three u64.
const recordSize = 24

// Reading is a decoded counter record.
type Reading struct {
	Value       uint64
	TimeEnabled uint64
	TimeRunning uint64
}

// Ratio returns time_running / time_enabled, or 1 when nothing was enabled.
func (r Reading) Ratio() float64 {
	if r.TimeEnabled == 0 {
		return 1
	}
	return float64(r.TimeRunning) / float64(r.TimeEnabled)
}

// Scaled returns Value multiplied by Ratio when the counter was multiplexed.
func (r Reading) Scaled() float64 {
	v := float64(r.Value)
	if ratio := r.Ratio(); ratio < 1 {
		v *= ratio
	}
	return v
}

func decodeReading(buf []byte) Reading {
	return Reading{
		Value:       binary.NativeEndian.Uint64(buf[0:8]),
		TimeEnabled: binary.NativeEndian.Uint64(buf[8:16]),
		TimeRunning: binary.NativeEndian.Uint64(buf[16:24]),
	}
}

// noCopy lets go vet flag copies of a Counter.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Counter owns exactly one handle and releases it exactly once.
type Counter struct {
	_ noCopy

	kind   Kind
	h      Handle
	closed bool
}

func newCounter(k Kind, h Handle) *Counter {
	return &Counter{kind: k, h: h}
}

func (c *Counter) Kind() Kind { return c.kind }

// Closed reports whether the handle has been released.
func (c *Counter) Closed() bool { return c.closed }

func (c *Counter) activate() error {
	if c.closed {
		return ErrClosed
	}
	if err := c.h.Reset(); err != nil {
		return fmt.Errorf("reset %s: %w", c.kind, err)
	}
	if err := c.h.Enable(); err != nil {
		return fmt.Errorf("enable %s: %w", c.kind, err)
	}
	return nil
}

// ReadAndClose reads the record, disables and closes the handle. The handle
// is released even when the read fails.
func (c *Counter) ReadAndClose() (Reading, error) {
	if c.closed {
		return Reading{}, ErrClosed
	}
	c.closed = true
	defer c.h.Close()

	buf := make([]byte, recordSize)
	n, err := c.h.Read(buf)
	_ = c.h.Disable()
	if err != nil {
		return Reading{}, fmt.Errorf("read %s: %w", c.kind, err)
	}
	if n < recordSize {
		return Reading{}, fmt.Errorf("read %s: %d of %d bytes: %w", c.kind, n, recordSize, ErrShortRead)
	}
	return decodeReading(buf), nil
}

// Close releases the handle without reading. Safe to call more than once.
func (c *Counter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.h.Disable()
	return c.h.Close()
}
