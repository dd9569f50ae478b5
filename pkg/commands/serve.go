package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"PhaseProfiler/pkg/aggregating"
	"PhaseProfiler/pkg/collecting"
	"PhaseProfiler/pkg/exporting"
	"PhaseProfiler/pkg/graphing"
	"PhaseProfiler/pkg/logging"
	"PhaseProfiler/pkg/scheduling"
	"PhaseProfiler/pkg/workload"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Run a scheduled probe and serve its phases",
		Long: `Run the probe workload on a cron schedule and expose the recorded
phases over HTTP. Nothing is written to disk.

Endpoints:
  /                 Status page with links
  /report           Phase report (text)
  /phases.jsonl     Samples as JSON Lines
  /phases.csv       Samples as CSV
  /phases.tsv       Samples as TSV
  /phases.parquet   Samples as Parquet
  /chart            Per-phase chart page
  /metrics          Prometheus metrics

Example:
  phaseprof serve --addr :8080 --schedule "@every 1m"
  phaseprof serve --schedule "*/10 * * * * *" --hw-counters`,
		RunE: runServe,
	}

	Cfg.AddProfilerFlags(cmd)
	Cfg.AddProbeFlags(cmd)
	Cfg.AddServeFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	p, cleanup, err := newProfiler()
	if err != nil {
		return err
	}
	defer cleanup()

	logger := logging.Module(log.DefaultLogger, "serve")
	agg := aggregating.New(nil)
	runner := &workload.Runner{Profiler: p, Aggregator: agg, Logger: logger}

	probe, err := scheduling.New(Cfg.Probe.Schedule, runner, workload.ProbeSteps(Cfg.Probe), Cfg.Probe.Iterations, logger)
	if err != nil {
		return err
	}

	host := collecting.CollectHost()
	if Cfg.Hostname != "" {
		host.Hostname = Cfg.Hostname
	}
	logger.Info().Str("cpu", host.CPUType).Int("processors", host.NumProcessors).Str("kernel", host.KernelInfo).Int("gpus", len(gpus)).Msg("host")
	for _, g := range gpus {
		logger.Info().Int("index", g.Index).Str("name", g.Name).Str("architecture", g.Architecture).Int64("memory", g.MemoryTotalBytes).Msg("gpu")
	}
	info := graphing.PageInfo{SessionID: Cfg.SessionUUID, Cores: p.Cores(), Host: &host, GPUs: gpus}
	srv := &http.Server{
		Addr:              Cfg.Serve.Addr,
		Handler:           newPhaseServer(agg, info, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probe.Start()
	defer probe.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", Cfg.Serve.Addr).Str("schedule", Cfg.Probe.Schedule).Msg("starting phase server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type phaseServer struct {
	agg      *aggregating.Aggregator
	info     graphing.PageInfo
	logger   *log.Logger
	registry *prometheus.Registry
}

func newPhaseServer(agg *aggregating.Aggregator, info graphing.PageInfo, logger *log.Logger) *phaseServer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		exporting.NewPhaseCollector(agg, info.SessionID),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &phaseServer{agg: agg, info: info, logger: logger, registry: reg}
}

func (s *phaseServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/chart", s.handleChart)
	for _, name := range exporting.Names() {
		mux.HandleFunc("/phases."+name, s.handleExport(name))
	}
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *phaseServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>PhaseProfiler</title></head>
<body>
<h1>PhaseProfiler</h1>
<p>Session %s, %d phases recorded</p>
<ul>
<li><a href="/report">Report</a> - Phase summaries</li>
<li><a href="/chart">Chart</a> - Per-phase means</li>
<li><a href="/phases.jsonl">JSONL</a> | <a href="/phases.csv">CSV</a> | <a href="/phases.tsv">TSV</a> | <a href="/phases.parquet">Parquet</a> - Samples</li>
<li><a href="/metrics">Metrics</a> - Prometheus</li>
</ul>
</body>
</html>`, s.info.SessionID, s.agg.Len())
}

func (s *phaseServer) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.agg.WriteReport(w); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write report")
	}
}

func (s *phaseServer) handleChart(w http.ResponseWriter, r *http.Request) {
	histories := s.agg.Histories()
	if len(histories) == 0 {
		http.Error(w, "no phases recorded yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := graphing.Render(w, s.info, histories); err != nil {
		s.logger.Warn().Err(err).Msg("failed to render chart")
	}
}

func (s *phaseServer) handleExport(name string) http.HandlerFunc {
	format, _ := exporting.Get(name)
	return func(w http.ResponseWriter, r *http.Request) {
		records := exporting.FlattenHistories(s.info.SessionID, s.agg.Histories())
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "phases."+name))
		if err := exporting.Export(w, name, records); err != nil {
			s.logger.Warn().Err(err).Str("format", name).Msg("export failed")
		}
	}
}
