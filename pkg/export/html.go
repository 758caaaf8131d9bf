package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/AnomFIN/AnomRadar/pkg/engine"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// reportTemplate is the built-in report layout. A custom template file
// can override it through RenderHTMLWithTemplate.
const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>AnomRadar Report - {{.Seed}}</title>
<style>
body { font-family: "Segoe UI", Arial, sans-serif; margin: 0; background: #11151c; color: #e6e8eb; }
.wrap { max-width: 1080px; margin: 0 auto; padding: 32px 24px; }
header { border-bottom: 2px solid #2a3342; padding-bottom: 16px; margin-bottom: 24px; }
h1 { margin: 0 0 4px 0; font-size: 26px; }
.sub { color: #8b949e; font-size: 14px; }
.score { display: inline-block; padding: 10px 22px; border-radius: 8px; font-size: 30px; font-weight: 700; margin: 16px 0; }
.level-high { background: #5a1e1e; color: #ff6b6b; }
.level-medium { background: #5a401e; color: #ffb04d; }
.level-low { background: #55501e; color: #ffe066; }
.level-info { background: #1e3a5a; color: #6bc1ff; }
.cards { display: flex; gap: 12px; flex-wrap: wrap; margin-bottom: 24px; }
.card { background: #1a212c; border: 1px solid #2a3342; border-radius: 8px; padding: 12px 18px; min-width: 110px; }
.card .n { font-size: 22px; font-weight: 700; }
.card .l { color: #8b949e; font-size: 12px; text-transform: uppercase; }
table { width: 100%; border-collapse: collapse; margin-bottom: 28px; font-size: 14px; }
th { text-align: left; color: #8b949e; border-bottom: 1px solid #2a3342; padding: 8px; font-size: 12px; text-transform: uppercase; }
td { border-bottom: 1px solid #222a36; padding: 8px; vertical-align: top; }
.sev { font-weight: 700; text-transform: uppercase; font-size: 12px; }
.sev-critical { color: #ff4d4d; }
.sev-high { color: #ff6b6b; }
.sev-medium { color: #ffb04d; }
.sev-low { color: #ffe066; }
.sev-info { color: #6bc1ff; }
.status-ok { color: #6bde8c; }
.status-failed { color: #ff6b6b; }
.status-timedOut { color: #ffb04d; }
.status-skipped { color: #8b949e; }
.rec { color: #8b949e; font-size: 13px; }
footer { color: #5a6370; font-size: 12px; border-top: 1px solid #2a3342; padding-top: 12px; }
h2 { font-size: 18px; border-left: 3px solid #3b82f6; padding-left: 10px; }
</style>
</head>
<body>
<div class="wrap">
<header>
<h1>AnomRadar Security Report</h1>
<div class="sub">Target: <strong>{{.Seed}}</strong> &middot; Generated {{.Timestamp}} &middot; Scan {{.Result.ScanID}}</div>
</header>

<div class="score level-{{.Result.RiskLevel}}">Risk {{.Result.RiskScore}} / 100 &middot; {{.Result.RiskLevel}}</div>

<div class="cards">
<div class="card"><div class="n">{{len .Result.Domains}}</div><div class="l">Domains</div></div>
<div class="card"><div class="n">{{len .Result.Findings}}</div><div class="l">Findings</div></div>
{{range $sev, $count := .Severities}}<div class="card"><div class="n">{{$count}}</div><div class="l">{{$sev}}</div></div>
{{end}}</div>

<h2>Findings</h2>
{{if .Result.Findings}}<table>
<tr><th>Severity</th><th>Type</th><th>Domain</th><th>Detail</th></tr>
{{range .Result.Findings}}<tr>
<td class="sev sev-{{.Severity}}">{{.Severity}}</td>
<td>{{.Type}}</td>
<td>{{if .Domain}}{{.Domain}}{{else}}&ndash;{{end}}</td>
<td>{{.Title}}{{if .Recommendation}}<div class="rec">{{.Recommendation}}</div>{{end}}</td>
</tr>
{{end}}</table>{{else}}<p class="sub">No findings reported.</p>{{end}}

<h2>Probe Outcomes</h2>
<table>
<tr><th>Probe</th><th>Domain</th><th>Status</th><th>Duration</th><th>Attempts</th></tr>
{{range .Result.Outcomes}}<tr>
<td>{{.ProbeName}}</td>
<td>{{if .Domain}}{{.Domain}}{{else}}&ndash;{{end}}</td>
<td class="status-{{.Status}}">{{.Status}}</td>
<td>{{.DurationMs}} ms</td>
<td>{{.Attempts}}</td>
</tr>
{{end}}</table>

<footer>{{.Metadata.Generator}} &middot; format {{.Metadata.FormatVersion}} &middot; {{.Metadata.GeneratedAt}}</footer>
</div>
</body>
</html>
`

type htmlData struct {
	Seed       string
	Timestamp  string
	Result     *engine.ScanResult
	Metadata   metadata
	Severities map[probes.Severity]int
}

var builtinTemplate = template.Must(template.New("report").Parse(reportTemplate))

// RenderHTML renders the built-in report template for one scan result.
func RenderHTML(result *engine.ScanResult) ([]byte, error) {
	return renderHTML(builtinTemplate, result)
}

// RenderHTMLWithTemplate parses a caller-supplied template body and
// renders the result with it. An empty body falls back to the built-in
// layout.
func RenderHTMLWithTemplate(body string, result *engine.ScanResult) ([]byte, error) {
	if body == "" {
		return RenderHTML(result)
	}
	tmpl, err := template.New("report").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return renderHTML(tmpl, result)
}

func renderHTML(tmpl *template.Template, result *engine.ScanResult) ([]byte, error) {
	data := htmlData{
		Seed:       result.Seed,
		Timestamp:  time.Now().Format("2006-01-02 15:04:05"),
		Result:     result,
		Metadata:   newMetadata(),
		Severities: result.SeverityCounts(),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML renders the result and saves it under the writer's output
// directory, returning the full path.
func (w *Writer) WriteHTML(result *engine.ScanResult) (string, error) {
	data, err := RenderHTML(result)
	if err != nil {
		return "", err
	}
	return w.writeFile(w.FileName(result.Seed, FormatHTML), data)
}
