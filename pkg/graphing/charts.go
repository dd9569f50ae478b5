package graphing

import (
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"PhaseProfiler/pkg/aggregating"
)

func phaseLabels(summaries []aggregating.Summary) []string {
	labels := make([]string, len(summaries))
	for i, s := range summaries {
		labels[i] = s.Phase
	}
	return labels
}

// createTimeBar compares mean wall, CPU and estimated I/O wait per phase.
func createTimeBar(summaries []aggregating.Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Mean time per phase", Subtitle: "milliseconds"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 30}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	wall := make([]opts.BarData, len(summaries))
	cpu := make([]opts.BarData, len(summaries))
	ioWait := make([]opts.BarData, len(summaries))
	for i, s := range summaries {
		wall[i] = opts.BarData{Value: s.WallTimeMs}
		cpu[i] = opts.BarData{Value: s.CPUTimeSec * 1000}
		ioWait[i] = opts.BarData{Value: s.IOWaitTimeMs}
	}

	bar.SetXAxis(phaseLabels(summaries)).
		AddSeries("wall", wall).
		AddSeries("cpu", cpu).
		AddSeries("io wait", ioWait)
	return bar
}

// createUtilizationBar plots mean CPU time over mean wall time, in percent.
func createUtilizationBar(summaries []aggregating.Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "CPU utilization", Subtitle: "percent of one core"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 30}}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "300px"}),
	)

	data := make([]opts.BarData, len(summaries))
	for i, s := range summaries {
		data[i] = opts.BarData{Value: s.CPUUtilizationPct}
	}
	bar.SetXAxis(phaseLabels(summaries)).AddSeries("utilization", data)
	return bar
}

// createSampleLine shows the wall time of every sample of one phase.
func createSampleLine(h aggregating.History) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: h.Phase, Subtitle: fmt.Sprintf("%d samples, wall ms", len(h.Samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "300px"}),
	)

	labels := make([]string, len(h.Samples))
	data := make([]opts.LineData, len(h.Samples))
	for i, s := range h.Samples {
		labels[i] = fmt.Sprintf("#%d", i+1)
		data[i] = opts.LineData{Value: s.WallTimeMs}
	}
	line.SetXAxis(labels).AddSeries("wall", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}),
	)
	return line
}
