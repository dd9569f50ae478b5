package probing

import (
	"fmt"

	"PhaseProfiler/pkg/config"
)

// IOStats holds the cumulative process I/O counters from /proc/<pid>/io.
type IOStats struct {
	BytesRead    uint64 `json:"bytesRead"`
	BytesWritten uint64 `json:"bytesWritten"`
	ReadOps      uint64 `json:"readOps"`
	WriteOps     uint64 `json:"writeOps"`
}

// ReadProcessIO reads the calling process's I/O counters.
// An unreadable source yields all-zero stats.
func ReadProcessIO() IOStats {
	s, _ := ReadProcessIOFrom(config.ProcSelfIO)
	return s
}

// IOFields is a set of IOStats counters that parsed.
type IOFields uint8

const (
	FieldBytesRead IOFields = 1 << iota
	FieldBytesWritten
	FieldReadOps
	FieldWriteOps

	AllIOFields = FieldBytesRead | FieldBytesWritten | FieldReadOps | FieldWriteOps
)

func (f IOFields) Has(x IOFields) bool { return f&x == x }

// ReadProcessIOFrom parses an io accounting file. Labels that are missing or
// malformed are left at zero; only an unreadable file is an error.
func ReadProcessIOFrom(path string) (IOStats, error) {
	s, _, err := ReadProcessIOFields(path)
	return s, err
}

// ReadProcessIOFields is ReadProcessIOFrom that also reports which labels parsed.
func ReadProcessIOFields(path string) (IOStats, IOFields, error) {
	var s IOStats
	kv, _, err := FileKV(path, ":")
	if err != nil {
		return s, 0, fmt.Errorf("reading %s: %w", path, err)
	}

	fields := []struct {
		label string
		field IOFields
		dst   *uint64
	}{
		{"read_bytes", FieldBytesRead, &s.BytesRead},
		{"write_bytes", FieldBytesWritten, &s.BytesWritten},
		{"syscr", FieldReadOps, &s.ReadOps},
		{"syscw", FieldWriteOps, &s.WriteOps},
	}
	var parsed IOFields
	for _, f := range fields {
		if v, ok := ParseUint64(kv[f.label]); ok {
			*f.dst = v
			parsed |= f.field
		}
	}
	return s, parsed, nil
}

// Only zeroes every counter not in f.
func (s IOStats) Only(f IOFields) IOStats {
	if !f.Has(FieldBytesRead) {
		s.BytesRead = 0
	}
	if !f.Has(FieldBytesWritten) {
		s.BytesWritten = 0
	}
	if !f.Has(FieldReadOps) {
		s.ReadOps = 0
	}
	if !f.Has(FieldWriteOps) {
		s.WriteOps = 0
	}
	return s
}

// Sub returns s - start per counter, clamped at zero.
func (s IOStats) Sub(start IOStats) IOStats {
	return IOStats{
		BytesRead:    clampSub(s.BytesRead, start.BytesRead),
		BytesWritten: clampSub(s.BytesWritten, start.BytesWritten),
		ReadOps:      clampSub(s.ReadOps, start.ReadOps),
		WriteOps:     clampSub(s.WriteOps, start.WriteOps),
	}
}

// TotalBytes is bytes read plus bytes written.
func (s IOStats) TotalBytes() uint64 {
	return s.BytesRead + s.BytesWritten
}

func clampSub(end, start uint64) uint64 {
	if end < start {
		return 0
	}
	return end - start
}
