package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"

	"github.com/phuslu/log"

	"PhaseProfiler/pkg/aggregating"
	"PhaseProfiler/pkg/collecting"
	"PhaseProfiler/pkg/graphing"
	"PhaseProfiler/pkg/profiling"
)

var quiet = &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}

func testServer(t *testing.T, record bool) *httptest.Server {
	t.Helper()
	agg := aggregating.New(io.Discard)
	if record {
		agg.RecordStats("Prefill", profiling.PerfStats{WallTimeMs: 12, CPUTimeSec: 0.006, IOBytesRead: 1 << 20})
		agg.RecordStats("Decode_Token", profiling.PerfStats{WallTimeMs: 2})
		agg.RecordStats("Decode_Token", profiling.PerfStats{WallTimeMs: 4})
	}
	info := graphing.PageInfo{SessionID: "sess-test", Cores: []int{0}}
	srv := httptest.NewServer(newPhaseServer(agg, info, quiet).routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestServeIndex(t *testing.T) {
	srv := testServer(t, true)
	resp, body := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "sess-test") || !strings.Contains(body, "2 phases") {
		t.Errorf("index body = %q", body)
	}

	resp, _ = get(t, srv.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d; want 404", resp.StatusCode)
	}
}

func TestServeReport(t *testing.T) {
	srv := testServer(t, true)
	_, body := get(t, srv.URL+"/report")
	for _, want := range []string{
		"=== Performance Statistics for Phase: Prefill ===",
		"=== Performance Statistics for Phase: Decode_Token ===",
		"Number of measurements: 2",
		"Average wall clock time: 3 ms",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Index(body, "Prefill") > strings.Index(body, "Decode_Token") {
		t.Error("phases should be reported in first-recorded order")
	}
}

func TestServeExports(t *testing.T) {
	srv := testServer(t, true)

	resp, body := get(t, srv.URL+"/phases.jsonl")
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("jsonl content type = %q", ct)
	}
	lines := 0
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatal(err)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("jsonl lines = %d; want 3", lines)
	}

	_, body = get(t, srv.URL+"/phases.csv")
	if n := strings.Count(body, "\n"); n != 4 {
		t.Errorf("csv lines = %d; want header + 3", n)
	}

	resp, body = get(t, srv.URL+"/phases.parquet")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(body, "PAR1") {
		t.Errorf("parquet status = %d, prefix = %q", resp.StatusCode, body[:min(4, len(body))])
	}
}

func TestServeChart(t *testing.T) {
	resp, _ := get(t, testServer(t, false).URL+"/chart")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("empty chart status = %d; want 503", resp.StatusCode)
	}

	resp, body := get(t, testServer(t, true).URL+"/chart")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Decode_Token") {
		t.Errorf("chart status = %d", resp.StatusCode)
	}
}

func TestServeChartGPUs(t *testing.T) {
	agg := aggregating.New(io.Discard)
	agg.RecordStats("Prefill", profiling.PerfStats{WallTimeMs: 12})
	info := graphing.PageInfo{SessionID: "sess-gpu", GPUs: []collecting.GPUInfo{{Index: 0, Name: "NVIDIA L4"}}}
	srv := httptest.NewServer(newPhaseServer(agg, info, quiet).routes())
	defer srv.Close()

	_, body := get(t, srv.URL+"/chart")
	if !strings.Contains(body, "GPU 0") || !strings.Contains(body, "NVIDIA L4") {
		t.Error("chart header should list attached GPUs")
	}
}

func TestServeMetrics(t *testing.T) {
	_, body := get(t, testServer(t, true).URL+"/metrics")
	want := `phaseprof_phase_samples{phase="Decode_Token",session="sess-test"} 2`
	if !strings.Contains(body, want) {
		t.Errorf("metrics missing %q", want)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("metrics missing Go runtime collector")
	}
}

func TestRunCommandExport(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--cores", "0", "-n", "1", "--spin", "1ms", "--io-bytes", "4096",
		"--sleep", "1ms", "--export", "jsonl", "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { runExport = "" })

	var phases []string
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		phases = append(phases, m["phase"].(string))
	}
	if got := strings.Join(phases, ","); got != "CPU_Spin,File_IO,Sleep" {
		t.Errorf("phases = %s", got)
	}
}

func TestRunCommandBadExport(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"run", "--export", "xml", "--log-level", "error"})
	t.Cleanup(func() { runExport = "" })
	if err := root.Execute(); err == nil {
		t.Error("run with unknown export format should fail")
	}
}

func TestExecCommand(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"exec", "--cores", "0", "--phase", "Noop", "--log-level", "error", "--", "true"})
	t.Cleanup(func() { execPhase = "Command" })
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "=== Performance Statistics for Phase: Noop ===") {
		t.Errorf("exec report = %q", out.String())
	}
}

func TestExecRequiresCommand(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"exec", "--log-level", "error"})
	if err := root.Execute(); err == nil {
		t.Error("exec without a command should fail")
	}
}

func TestExecRequiresSeparator(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no separator", []string{"exec", "--log-level", "error", "true"}, "no command specified"},
		{"nothing after separator", []string{"exec", "--log-level", "error", "--"}, "no command specified"},
		{"stray argument", []string{"exec", "--log-level", "error", "stray", "--", "true"}, `unexpected arguments before "--"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewRootCmd()
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs(tt.args)
			err := root.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Execute() error = %v; want %q", err, tt.want)
			}
		})
	}
}
