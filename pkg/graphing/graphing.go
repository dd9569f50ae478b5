// Package graphing renders recorded phases as an HTML chart page.
package graphing

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/components"

	"PhaseProfiler/pkg/aggregating"
	"PhaseProfiler/pkg/collecting"
)

// maxSampleCharts bounds how many per-phase sample charts a page carries.
const maxSampleCharts = 16

// PageInfo identifies the run a page was rendered for.
type PageInfo struct {
	SessionID string
	Cores     []int
	Host      *collecting.HostInfo
	GPUs      []collecting.GPUInfo
}

// Render writes a self-contained HTML page: a bar chart of per-phase means,
// a utilization chart and one wall-time line per repeated phase.
func Render(w io.Writer, info PageInfo, histories []aggregating.History) error {
	if len(histories) == 0 {
		return fmt.Errorf("no phases recorded")
	}

	summaries := make([]aggregating.Summary, len(histories))
	for i, h := range histories {
		summaries[i] = aggregating.Summarize(h)
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Phase Profile - %s", info.SessionID)
	page.AddCharts(createTimeBar(summaries), createUtilizationBar(summaries))

	added := 0
	for _, h := range histories {
		if len(h.Samples) < 2 || added == maxSampleCharts {
			continue
		}
		page.AddCharts(createSampleLine(h))
		added++
	}

	var buf strings.Builder
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}

	header, err := renderHeader(info, summaries)
	if err != nil {
		return err
	}
	html := buf.String()
	html = strings.Replace(html, "<body>", "<body>\n"+header, 1)
	html = strings.Replace(html, "</head>", pageCSS+"</head>", 1)

	_, err = io.WriteString(w, html)
	return err
}
