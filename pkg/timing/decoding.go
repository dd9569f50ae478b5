package timing

import (
	"fmt"
	"io"
	"time"
)

// DecodingMetrics tracks per-token latencies of a generation loop.
type DecodingMetrics struct {
	now func() time.Time

	start         time.Time
	firstRecorded bool
	ttft          time.Duration

	inference time.Duration
	sampling  time.Duration
	decoding  time.Duration
	tokens    int
}

// DecodingSummary is the derived view printed by WriteMetrics.
type DecodingSummary struct {
	Tokens            int     `json:"tokens"`
	TimeToFirstMs     float64 `json:"timeToFirstTokenMs"`
	TotalInferenceMs  float64 `json:"totalInferenceMs"`
	TotalSamplingMs   float64 `json:"totalSamplingMs"`
	TotalDecodingMs   float64 `json:"totalDecodingMs"`
	AvgInferenceMs    float64 `json:"avgInferenceMs"`
	AvgSamplingMs     float64 `json:"avgSamplingMs"`
	AvgDecodingMs     float64 `json:"avgDecodingMs"`
	InferenceTokensPS float64 `json:"inferenceTokensPerSec"`
	SamplingTokensPS  float64 `json:"samplingTokensPerSec"`
	DecodingTokensPS  float64 `json:"decodingTokensPerSec"`
}

func NewDecodingMetrics() *DecodingMetrics {
	return &DecodingMetrics{now: time.Now}
}

// StartDecoding marks the start of the loop; time to first token counts from here.
func (m *DecodingMetrics) StartDecoding() {
	m.start = m.now()
}

// RecordTimes adds one token. tokenStart is when work on the token began.
func (m *DecodingMetrics) RecordTimes(tokenStart time.Time, inference, sampling time.Duration) {
	end := m.now()
	if !m.firstRecorded {
		m.firstRecorded = true
		m.ttft = end.Sub(m.start)
	}
	m.inference += inference
	m.sampling += sampling
	m.decoding += end.Sub(tokenStart)
	m.tokens++
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func perSecond(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

// Summary computes totals, per-token averages and throughput.
func (m *DecodingMetrics) Summary() DecodingSummary {
	s := DecodingSummary{
		Tokens:           m.tokens,
		TimeToFirstMs:    ms(m.ttft),
		TotalInferenceMs: ms(m.inference),
		TotalSamplingMs:  ms(m.sampling),
		TotalDecodingMs:  ms(m.decoding),
	}
	if m.tokens == 0 {
		return s
	}
	n := float64(m.tokens)
	s.AvgInferenceMs = s.TotalInferenceMs / n
	s.AvgSamplingMs = s.TotalSamplingMs / n
	s.AvgDecodingMs = (s.TotalInferenceMs + s.TotalSamplingMs) / n
	s.InferenceTokensPS = perSecond(m.tokens, m.inference)
	s.SamplingTokensPS = perSecond(m.tokens, m.sampling)
	s.DecodingTokensPS = perSecond(m.tokens, m.decoding)
	return s
}

// WriteMetrics prints the summary block.
func (m *DecodingMetrics) WriteMetrics(w io.Writer) error {
	s := m.Summary()
	_, err := fmt.Fprintf(w, "\n\n================================\n"+
		"[INFO] Decoding stage completed\n"+
		"[METRICS] Total Number of Generated Tokens : %d tokens\n\n"+
		"[METRICS] Total Inference Latency          : %.6g ms\n"+
		"[METRICS] Total Sampling Latency           : %.6g ms\n"+
		"[METRICS] Total Decoding Latency           : %.6g ms\n\n"+
		"[METRICS] Time To First Token              : %.6g ms\n"+
		"[METRICS] Average Inference Latency        : %.6g ms/tokens(%.6g token/s )\n"+
		"[METRICS] Average Sampling Latency         : %.6g ms/tokens(%.6g token/s )\n"+
		"[METRICS] Average Decoding Latency         : %.6g ms/tokens(%.6g token/s )\n",
		s.Tokens,
		s.TotalInferenceMs, s.TotalSamplingMs, s.TotalDecodingMs,
		s.TimeToFirstMs,
		s.AvgInferenceMs, s.InferenceTokensPS,
		s.AvgSamplingMs, s.SamplingTokensPS,
		s.AvgDecodingMs, s.DecodingTokensPS,
	)
	return err
}
