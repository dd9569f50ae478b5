// Package probing reads the /proc pseudo-files and process clocks the profiler samples.
package probing

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetTimestamp() int64 {
	return time.Now().UnixNano()
}

// File reads a file and returns its content with timestamp
func File(path string) (string, int64, error) {
	ts := GetTimestamp()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ts, err
	}
	return string(data), ts, nil
}

// FileLines reads a file into lines
func FileLines(path string) ([]string, int64, error) {
	v, ts, err := File(path)
	if err != nil {
		return nil, ts, err
	}
	return strings.Split(v, "\n"), ts, nil
}

// FileKV reads a key-value file like /proc/self/io
func FileKV(path, sep string) (map[string]string, int64, error) {
	lines, ts, err := FileLines(path)
	if err != nil {
		return nil, ts, err
	}
	kv := make(map[string]string, len(lines))
	for _, line := range lines {
		if key, val, found := strings.Cut(line, sep); found {
			kv[strings.TrimSpace(key)] = strings.TrimSpace(val)
		}
	}
	return kv, ts, nil
}

// ParseUint64 parses an unsigned counter, returning ok=false on malformed input
func ParseUint64(s string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

// CountDir returns the number of entries in a directory, or -1 if unreadable
func CountDir(path string) int {
	entries, err := os.ReadDir(path)
	if err != nil {
		return -1
	}
	return len(entries)
}
