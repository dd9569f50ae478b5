package counting

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/phuslu/log"
	"golang.org/x/sys/unix"
)

var quiet = &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}

type fakeHandle struct {
	record   Reading
	readN    int // bytes reported by Read; 0 means recordSize
	readErr  error
	enabled  bool
	resets   int
	reads    int
	closes   int
	disables int
}

func (h *fakeHandle) Reset() error   { h.resets++; return nil }
func (h *fakeHandle) Enable() error  { h.enabled = true; return nil }
func (h *fakeHandle) Disable() error { h.enabled = false; h.disables++; return nil }
func (h *fakeHandle) Close() error   { h.closes++; return nil }

func (h *fakeHandle) Read(p []byte) (int, error) {
	h.reads++
	if h.readErr != nil {
		return 0, h.readErr
	}
	binary.NativeEndian.PutUint64(p[0:8], h.record.Value)
	binary.NativeEndian.PutUint64(p[8:16], h.record.TimeEnabled)
	binary.NativeEndian.PutUint64(p[16:24], h.record.TimeRunning)
	if h.readN > 0 {
		return h.readN, nil
	}
	return recordSize, nil
}

type fakeOpener struct {
	deny    map[Kind]bool
	handles []*fakeHandle
	record  Reading
}

func (o *fakeOpener) Open(k Kind, pid, cpu int) (Handle, error) {
	if o.deny[k] {
		return nil, unix.EACCES
	}
	h := &fakeHandle{record: o.record}
	o.handles = append(o.handles, h)
	return h, nil
}

func TestCounterReadAndCloseOnce(t *testing.T) {
	h := &fakeHandle{record: Reading{Value: 42, TimeEnabled: 10, TimeRunning: 10}}
	c := newCounter(UserTime, h)

	r, err := c.ReadAndClose()
	if err != nil {
		t.Fatal(err)
	}
	if r.Value != 42 {
		t.Errorf("Value = %d; want 42", r.Value)
	}
	if _, err := c.ReadAndClose(); !errors.Is(err, ErrClosed) {
		t.Errorf("second ReadAndClose() error = %v; want ErrClosed", err)
	}
	if h.reads != 1 || h.closes != 1 {
		t.Errorf("reads=%d closes=%d; want 1 and 1", h.reads, h.closes)
	}
	if err := c.Close(); err != nil || h.closes != 1 {
		t.Errorf("Close after ReadAndClose touched handle: closes=%d err=%v", h.closes, err)
	}
}

func TestCounterReleasesOnFailedRead(t *testing.T) {
	tests := []struct {
		name string
		h    *fakeHandle
		want error
	}{
		{"read error", &fakeHandle{readErr: unix.EIO}, unix.EIO},
		{"short read", &fakeHandle{readN: 8}, ErrShortRead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCounter(Migrations, tt.h)
			if _, err := c.ReadAndClose(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v; want %v", err, tt.want)
			}
			if tt.h.closes != 1 || tt.h.disables != 1 {
				t.Errorf("closes=%d disables=%d; want 1 and 1", tt.h.closes, tt.h.disables)
			}
			if !c.Closed() {
				t.Error("counter should be closed")
			}
		})
	}
}

func TestReadingScaling(t *testing.T) {
	tests := []struct {
		name string
		r    Reading
		want float64
	}{
		{"not multiplexed", Reading{Value: 1000, TimeEnabled: 50, TimeRunning: 50}, 1000},
		{"half running", Reading{Value: 1000, TimeEnabled: 100, TimeRunning: 50}, 500},
		{"never enabled", Reading{Value: 1000}, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Scaled(); got != tt.want {
				t.Errorf("Scaled() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestCounterSetLifecycle(t *testing.T) {
	o := &fakeOpener{record: Reading{Value: 7, TimeEnabled: 1, TimeRunning: 1}}
	s := Open(o, 3, 0, DefaultKinds(false), quiet)
	if s.Len() != 3 || s.Core() != 3 {
		t.Fatalf("Len()=%d Core()=%d; want 3 and 3", s.Len(), s.Core())
	}

	s.Activate()
	for _, h := range o.handles {
		if h.resets != 1 || !h.enabled {
			t.Errorf("handle not reset and enabled: %+v", h)
		}
	}

	res := s.ReadAndClose()
	for _, k := range DefaultKinds(false) {
		if r, ok := res.Get(k); !ok || r.Value != 7 {
			t.Errorf("Get(%s) = %+v, %v", k, r, ok)
		}
	}
	for _, h := range o.handles {
		if h.closes != 1 {
			t.Errorf("handle closed %d times; want 1", h.closes)
		}
	}

	if again := s.ReadAndClose(); len(again) != 0 {
		t.Errorf("second ReadAndClose() = %v; want empty", again)
	}
	s.Close()
	for _, h := range o.handles {
		if h.closes != 1 {
			t.Errorf("handle closed %d times after Close; want 1", h.closes)
		}
	}
}

func TestCounterSetAbsentSlots(t *testing.T) {
	o := &fakeOpener{deny: map[Kind]bool{SystemTime: true, Cycles: true}}
	s := Open(o, 0, 0, DefaultKinds(true), quiet)
	if s.Len() != 4 {
		t.Fatalf("Len() = %d; want 4", s.Len())
	}
	s.Activate()
	res := s.ReadAndClose()
	if _, ok := res.Get(SystemTime); ok {
		t.Error("denied kind should be absent from results")
	}
	if _, ok := res.Get(Instructions); !ok {
		t.Error("opened kind should be read")
	}
}

func TestCounterSetCloseWithoutRead(t *testing.T) {
	o := &fakeOpener{}
	s := Open(o, 0, 0, DefaultKinds(false), quiet)
	s.Activate()
	s.Close()
	for _, h := range o.handles {
		if h.closes != 1 || h.reads != 0 {
			t.Errorf("closes=%d reads=%d; want 1 and 0", h.closes, h.reads)
		}
	}
}

func TestOpenTrackedWarnsOncePerPair(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Level: log.InfoLevel, Writer: &log.IOWriter{Writer: &buf}}
	o := &fakeOpener{deny: map[Kind]bool{UserTime: true, Migrations: true}}
	var failures OpenFailures

	for i := 0; i < 50; i++ {
		for _, core := range []int{0, 1} {
			s := OpenTracked(o, core, 0, DefaultKinds(false), logger, &failures)
			if s.Len() != 1 {
				t.Fatalf("Len() = %d; want 1", s.Len())
			}
			s.Close()
		}
	}

	if n := strings.Count(buf.String(), `"level":"warn"`); n != 4 {
		t.Errorf("warnings = %d; want one per core and kind (4)", n)
	}
	if failures.Len() != 4 {
		t.Errorf("failures.Len() = %d; want 4", failures.Len())
	}
}

func TestOpenWarnsEveryTime(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Level: log.InfoLevel, Writer: &log.IOWriter{Writer: &buf}}
	o := &fakeOpener{deny: map[Kind]bool{UserTime: true}}
	for i := 0; i < 3; i++ {
		Open(o, 0, 0, []Kind{UserTime}, logger).Close()
	}
	if n := strings.Count(buf.String(), `"level":"warn"`); n != 3 {
		t.Errorf("warnings = %d; want 3", n)
	}
}

func TestAttr(t *testing.T) {
	tests := []struct {
		kind     Kind
		typ      uint32
		config   uint64
		set      uint64
		clear    uint64
		hardware bool
	}{
		{UserTime, unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_TASK_CLOCK, unix.PerfBitExcludeKernel, unix.PerfBitExcludeUser, false},
		{SystemTime, unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_TASK_CLOCK, unix.PerfBitExcludeUser, unix.PerfBitExcludeKernel, false},
		{Migrations, unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CPU_MIGRATIONS, 0, unix.PerfBitExcludeUser, false},
		{Instructions, unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS, 0, 0, true},
		{Cycles, unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES, 0, 0, true},
		{RefCycles, unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_REF_CPU_CYCLES, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			attr, err := Attr(tt.kind, false)
			if err != nil {
				t.Fatal(err)
			}
			if attr.Type != tt.typ || attr.Config != tt.config {
				t.Errorf("type/config = %d/%d; want %d/%d", attr.Type, attr.Config, tt.typ, tt.config)
			}
			if attr.Bits&unix.PerfBitDisabled == 0 || attr.Bits&unix.PerfBitExcludeHv == 0 {
				t.Error("counter must start disabled and exclude hypervisor")
			}
			if attr.Bits&tt.set != tt.set || attr.Bits&tt.clear != 0 {
				t.Errorf("bits = %#x", attr.Bits)
			}
			if attr.Read_format != readFormat {
				t.Errorf("read_format = %#x; want %#x", attr.Read_format, readFormat)
			}
			if tt.kind.Hardware() != tt.hardware {
				t.Errorf("Hardware() = %v", tt.kind.Hardware())
			}
		})
	}

	if _, err := Attr(numKinds, false); !errors.Is(err, ErrUnsupported) {
		t.Errorf("unknown kind error = %v; want ErrUnsupported", err)
	}
	attr, _ := Attr(UserTime, true)
	if attr.Bits&unix.PerfBitInherit == 0 {
		t.Error("inherit bit not set")
	}
}

func TestSyscallOpenerTaskClock(t *testing.T) {
	h, err := SyscallOpener{}.Open(UserTime, os.Getpid(), -1)
	if err != nil {
		t.Skipf("perf_event_open not permitted: %v", err)
	}
	c := newCounter(UserTime, h)
	if err := c.activate(); err != nil {
		t.Fatal(err)
	}
	x := 0
	for i := 0; i < 1_000_000; i++ {
		x += i
	}
	r, err := c.ReadAndClose()
	if err != nil {
		t.Fatal(err)
	}
	if r.TimeEnabled == 0 {
		t.Errorf("time_enabled = 0 after enable (x=%d)", x)
	}
}
