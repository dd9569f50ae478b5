package exporting

import (
	"github.com/prometheus/client_golang/prometheus"

	"PhaseProfiler/pkg/aggregating"
)

// PhaseCollector implements prometheus.Collector over an Aggregator.
// Each scrape reports the current per-phase means.
type PhaseCollector struct {
	agg     *aggregating.Aggregator
	session string

	count       *prometheus.Desc
	wall        *prometheus.Desc
	cpu         *prometheus.Desc
	user        *prometheus.Desc
	system      *prometheus.Desc
	ioWait      *prometheus.Desc
	bytesRead   *prometheus.Desc
	bytesWrite  *prometheus.Desc
	utilization *prometheus.Desc
}

func NewPhaseCollector(agg *aggregating.Aggregator, session string) *PhaseCollector {
	labels := []string{"phase"}
	constLabels := prometheus.Labels{"session": session}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("phaseprof_"+name, help, labels, constLabels)
	}
	return &PhaseCollector{
		agg:         agg,
		session:     session,
		count:       desc("phase_samples", "Number of measurements recorded for the phase"),
		wall:        desc("phase_wall_seconds", "Mean wall clock time per phase"),
		cpu:         desc("phase_cpu_seconds", "Mean user+system CPU time per phase"),
		user:        desc("phase_user_seconds", "Mean user CPU time per phase"),
		system:      desc("phase_system_seconds", "Mean system CPU time per phase"),
		ioWait:      desc("phase_io_wait_seconds", "Mean estimated I/O wait per phase"),
		bytesRead:   desc("phase_io_read_bytes", "Mean bytes read per phase"),
		bytesWrite:  desc("phase_io_written_bytes", "Mean bytes written per phase"),
		utilization: desc("phase_cpu_utilization_ratio", "Mean CPU time over mean wall time"),
	}
}

// Describe implements prometheus.Collector.
func (c *PhaseCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.count
	ch <- c.wall
	ch <- c.cpu
	ch <- c.user
	ch <- c.system
	ch <- c.ioWait
	ch <- c.bytesRead
	ch <- c.bytesWrite
	ch <- c.utilization
}

// Collect implements prometheus.Collector.
func (c *PhaseCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.agg.Summaries() {
		gauge := func(d *prometheus.Desc, v float64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, s.Phase)
		}
		ch <- prometheus.MustNewConstMetric(c.count, prometheus.CounterValue, float64(s.Count), s.Phase)
		gauge(c.wall, s.WallTimeMs/1000)
		gauge(c.cpu, s.CPUTimeSec)
		gauge(c.user, s.UserTimeSec)
		gauge(c.system, s.SystemTimeSec)
		gauge(c.ioWait, s.IOWaitTimeMs/1000)
		gauge(c.bytesRead, s.IOBytesRead)
		gauge(c.bytesWrite, s.IOBytesWritten)
		gauge(c.utilization, s.CPUUtilizationPct/100)
	}
}
