// Package workload provides synthetic work for the profiler to measure.
package workload

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"time"
)

// Spin burns CPU on the calling goroutine for d and returns the iteration count.
func Spin(d time.Duration) uint64 {
	var n uint64
	for deadline := time.Now().Add(d); time.Now().Before(deadline); {
		n++
	}
	return n
}

// FileIO writes size random bytes to a scratch file in dir, syncs, reads the
// file back and removes it.
func FileIO(dir string, size int64) error {
	f, err := os.CreateTemp(dir, "phaseprof-*.scratch")
	if err != nil {
		return fmt.Errorf("creating scratch file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if _, err := io.CopyN(f, rand.Reader, size); err != nil {
		return fmt.Errorf("writing scratch file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing scratch file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding scratch file: %w", err)
	}
	if _, err := io.Copy(io.Discard, f); err != nil {
		return fmt.Errorf("reading scratch file: %w", err)
	}
	return nil
}
