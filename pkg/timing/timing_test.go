package timing

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestScopedTimer(t *testing.T) {
	var buf bytes.Buffer
	timer := Start("Model Loading", &buf)
	time.Sleep(5 * time.Millisecond)
	d := timer.Stop()

	if d < 5*time.Millisecond {
		t.Errorf("elapsed = %v; want >= 5ms", d)
	}
	if !regexp.MustCompile(`^\n\[INFO\] Model Loading took \d+ ms\n$`).MatchString(buf.String()) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

// fakeClock returns successive instants on each call.
type fakeClock struct {
	base  time.Time
	steps []time.Duration
}

func (c *fakeClock) now() time.Time {
	d := c.steps[0]
	c.steps = c.steps[1:]
	return c.base.Add(d)
}

func TestDecodingMetrics(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := &fakeClock{base: base, steps: []time.Duration{
		0,                     // StartDecoding
		30 * time.Millisecond, // first token end
		70 * time.Millisecond, // second token end
	}}
	m := NewDecodingMetrics()
	m.now = clock.now

	m.StartDecoding()
	m.RecordTimes(base, 20*time.Millisecond, 5*time.Millisecond)
	m.RecordTimes(base.Add(30*time.Millisecond), 30*time.Millisecond, 5*time.Millisecond)

	s := m.Summary()
	if s.Tokens != 2 {
		t.Errorf("Tokens = %d; want 2", s.Tokens)
	}
	if s.TimeToFirstMs != 30 {
		t.Errorf("TimeToFirstMs = %v; want 30", s.TimeToFirstMs)
	}
	if s.TotalInferenceMs != 50 || s.TotalSamplingMs != 10 || s.TotalDecodingMs != 70 {
		t.Errorf("totals = %v/%v/%v; want 50/10/70", s.TotalInferenceMs, s.TotalSamplingMs, s.TotalDecodingMs)
	}
	if s.AvgInferenceMs != 25 || s.AvgSamplingMs != 5 || s.AvgDecodingMs != 30 {
		t.Errorf("averages = %v/%v/%v; want 25/5/30", s.AvgInferenceMs, s.AvgSamplingMs, s.AvgDecodingMs)
	}
	if s.InferenceTokensPS != 40 || s.SamplingTokensPS != 200 {
		t.Errorf("speeds = %v/%v; want 40/200", s.InferenceTokensPS, s.SamplingTokensPS)
	}

	var buf bytes.Buffer
	if err := m.WriteMetrics(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"[METRICS] Total Number of Generated Tokens : 2 tokens\n",
		"[METRICS] Time To First Token              : 30 ms\n",
		"[METRICS] Average Inference Latency        : 25 ms/tokens(40 token/s )\n",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestDecodingMetricsEmpty(t *testing.T) {
	s := NewDecodingMetrics().Summary()
	if s.Tokens != 0 || s.AvgDecodingMs != 0 || s.DecodingTokensPS != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}
