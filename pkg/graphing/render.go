package graphing

import (
	"bytes"
	"fmt"
	"html/template"

	"PhaseProfiler/pkg/aggregating"
)

type headerData struct {
	PageInfo
	Summaries []aggregating.Summary
}

var headerTemplate = template.Must(template.New("header").Funcs(template.FuncMap{
	"formatBytes": formatBytes,
	"float":       func(v int64) float64 { return float64(v) },
}).Parse(`
<div class="run-info">
  <h1>Phase Profile</h1>
  <div class="session-id">{{.SessionID}}</div>
  <table>
    {{with .Host}}
    <tr><td>Host</td><td>{{.Hostname}}</td></tr>
    <tr><td>CPU</td><td>{{.CPUType}} ({{.NumProcessors}} processors{{if .CPUCache}}, {{.CPUCache}}{{end}})</td></tr>
    {{if .KernelInfo}}<tr><td>Kernel</td><td>{{.KernelInfo}}</td></tr>{{end}}
    {{if .MemoryTotalBytes}}<tr><td>Memory</td><td>{{formatBytes (float .MemoryTotalBytes)}}</td></tr>{{end}}
    {{end}}
    {{range .GPUs}}
    <tr><td>GPU {{.Index}}</td><td>{{.Name}}{{if .Architecture}} ({{.Architecture}}){{end}}{{if .MemoryTotalBytes}}, {{formatBytes (float .MemoryTotalBytes)}}{{end}}</td></tr>
    {{end}}
    <tr><td>Cores</td><td>{{range $i, $c := .Cores}}{{if $i}}, {{end}}{{$c}}{{end}}</td></tr>
  </table>
  <table class="phases">
    <tr><th>Phase</th><th>Samples</th><th>Wall ms</th><th>CPU s</th><th>Read</th><th>Written</th><th>Util %</th></tr>
    {{range .Summaries}}
    <tr><td>{{.Phase}}</td><td>{{.Count}}</td><td>{{printf "%.3f" .WallTimeMs}}</td><td>{{printf "%.6f" .CPUTimeSec}}</td><td>{{formatBytes .IOBytesRead}}</td><td>{{formatBytes .IOBytesWritten}}</td><td>{{printf "%.1f" .CPUUtilizationPct}}</td></tr>
    {{end}}
  </table>
</div>
`))

func renderHeader(info PageInfo, summaries []aggregating.Summary) (string, error) {
	var buf bytes.Buffer
	if err := headerTemplate.Execute(&buf, headerData{PageInfo: info, Summaries: summaries}); err != nil {
		return "", fmt.Errorf("failed to execute header template: %w", err)
	}
	return buf.String(), nil
}

// formatBytes formats bytes into human-readable format.
func formatBytes(v float64) string {
	if v == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, units[i])
}

const pageCSS = `
<style>
* {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
}
body {
    max-width: 1400px;
    margin: 0 auto;
    padding: 20px;
}
.run-info {
    margin-bottom: 20px;
    padding: 15px;
    background: #f5f5f5;
    border: 1px solid #ddd;
}
.run-info h1 {
    margin: 0;
    font-size: 18px;
}
.session-id {
    font-size: 11px;
    color: #666;
    font-family: monospace;
}
.run-info table {
    border-collapse: collapse;
    margin-top: 10px;
    font-size: 13px;
}
.run-info td, .run-info th {
    padding: 3px 12px 3px 0;
    text-align: left;
}
.phases th {
    border-bottom: 1px solid #999;
}
</style>
`
