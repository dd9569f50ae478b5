// Package aggregating collects phase measurements and renders summaries.
package aggregating

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"PhaseProfiler/pkg/profiling"
)

// detailLimit is the largest history whose samples are printed individually.
const detailLimit = 10

// History is every measurement recorded for one phase, in recording order.
type History struct {
	Phase   string
	Samples []profiling.PerfStats
}

// Aggregator stores histories per phase. Phases are reported in the order
// they were first recorded. Safe for concurrent use.
type Aggregator struct {
	mu        sync.RWMutex
	order     []string
	histories map[string]*History
	out       io.Writer
}

// New creates an Aggregator printing to w, or stdout when w is nil.
func New(w io.Writer) *Aggregator {
	if w == nil {
		w = os.Stdout
	}
	return &Aggregator{
		histories: make(map[string]*History),
		out:       w,
	}
}

// RecordStats appends stats to the history of phase.
func (a *Aggregator) RecordStats(phase string, stats profiling.PerfStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.histories[phase]
	if !ok {
		h = &History{Phase: phase}
		a.histories[phase] = h
		a.order = append(a.order, phase)
	}
	h.Samples = append(h.Samples, stats)
}

// Histories returns a copy of every history in report order.
func (a *Aggregator) Histories() []History {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]History, 0, len(a.order))
	for _, name := range a.order {
		h := a.histories[name]
		out = append(out, History{
			Phase:   h.Phase,
			Samples: append([]profiling.PerfStats(nil), h.Samples...),
		})
	}
	return out
}

// Len returns the number of phases recorded.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order)
}

// Summaries returns the mean of each history in report order.
func (a *Aggregator) Summaries() []Summary {
	hs := a.Histories()
	out := make([]Summary, 0, len(hs))
	for _, h := range hs {
		if len(h.Samples) > 0 {
			out = append(out, Summarize(h))
		}
	}
	return out
}

// PrintStats writes the report to the configured writer.
func (a *Aggregator) PrintStats() error {
	return a.WriteReport(a.out)
}

// Report returns the text PrintStats writes.
func (a *Aggregator) Report() string {
	var buf bytes.Buffer
	a.WriteReport(&buf)
	return buf.String()
}

// WriteReport renders every non-empty history to w.
func (a *Aggregator) WriteReport(w io.Writer) error {
	var buf bytes.Buffer
	for _, h := range a.Histories() {
		if len(h.Samples) == 0 {
			continue
		}
		writeHistory(&buf, h)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
