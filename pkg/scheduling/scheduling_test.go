package scheduling

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/phuslu/log"

	"PhaseProfiler/pkg/aggregating"
	"PhaseProfiler/pkg/config"
	"PhaseProfiler/pkg/counting"
	"PhaseProfiler/pkg/profiling"
	"PhaseProfiler/pkg/workload"
)

var quiet = &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}

type denyOpener struct{}

func (denyOpener) Open(counting.Kind, int, int) (counting.Handle, error) {
	return nil, os.ErrPermission
}

func newRunner(t *testing.T) *workload.Runner {
	t.Helper()
	cfg := config.New()
	cfg.Cores = []int{0}
	p, err := profiling.New(cfg, profiling.WithLogger(quiet), profiling.WithOpener(denyOpener{}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return &workload.Runner{Profiler: p, Aggregator: aggregating.New(io.Discard), Logger: quiet}
}

func steps() []workload.Step {
	return []workload.Step{
		{Name: "Tick", Run: func() error { workload.Spin(time.Millisecond); return nil }},
	}
}

func TestNewInvalidSchedule(t *testing.T) {
	if _, err := New("not a schedule", newRunner(t), steps(), 1, quiet); err == nil {
		t.Error("New() with invalid schedule should fail")
	}
}

func TestNewAcceptsDescriptors(t *testing.T) {
	for _, spec := range []string{"@every 30s", "@hourly", "*/5 * * * * *"} {
		p, err := New(spec, newRunner(t), steps(), 1, quiet)
		if err != nil {
			t.Errorf("New(%q) = %v", spec, err)
			continue
		}
		p.Stop()
	}
}

func TestRunOnce(t *testing.T) {
	r := newRunner(t)
	p, err := New("@every 1h", r, steps(), 3, quiet)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	p.RunOnce()
	if p.Runs() != 1 {
		t.Errorf("Runs() = %d; want 1", p.Runs())
	}
	hs := r.Aggregator.Histories()
	if len(hs) != 1 || hs[0].Phase != "Tick" || len(hs[0].Samples) != 3 {
		t.Errorf("histories = %+v; want Tick x3", hs)
	}
}

func TestScheduledRuns(t *testing.T) {
	r := newRunner(t)
	p, err := New("* * * * * *", r, steps(), 1, quiet)
	if err != nil {
		t.Fatal(err)
	}
	p.Start()
	defer p.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for r.Aggregator.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("probe never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestStopCancelsRuns(t *testing.T) {
	r := newRunner(t)
	p, err := New("@every 1h", r, steps(), 1, quiet)
	if err != nil {
		t.Fatal(err)
	}
	p.Stop()

	p.RunOnce()
	if r.Aggregator.Len() != 0 {
		t.Error("run after Stop should record nothing")
	}
}
