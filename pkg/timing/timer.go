// Package timing provides elapsed-time helpers layered on the profiler.
package timing

import (
	"fmt"
	"io"
	"os"
	"time"
)

// ScopedTimer prints how long a named scope took when stopped.
//
//	defer timing.Start("Model Loading", nil).Stop()
type ScopedTimer struct {
	name  string
	start time.Time
	out   io.Writer
}

// Start begins timing name. Output goes to w, or stdout when w is nil.
func Start(name string, w io.Writer) *ScopedTimer {
	if w == nil {
		w = os.Stdout
	}
	return &ScopedTimer{name: name, start: time.Now(), out: w}
}

// Stop prints the elapsed whole milliseconds and returns the elapsed time.
func (t *ScopedTimer) Stop() time.Duration {
	d := time.Since(t.start)
	fmt.Fprintf(t.out, "\n[INFO] %s took %d ms\n", t.name, d.Milliseconds())
	return d
}
