package export

import (
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/AnomFIN/AnomRadar/pkg/engine"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// RenderXLSX builds a workbook with summary, findings, outcome and
// domain sheets for one scan result.
func RenderXLSX(result *engine.ScanResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := buildWorkbook(f, result); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func buildWorkbook(f *excelize.File, result *engine.ScanResult) error {
	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	meta := newMetadata()
	row := 1
	summaryRows := [][]interface{}{
		{"Target", result.Seed},
		{"Scan ID", result.ScanID},
		{"Status", string(result.Status)},
		{"Risk Score", result.RiskScore},
		{"Risk Level", string(result.RiskLevel)},
		{"Started", result.StartedAt.Format("2006-01-02 15:04:05")},
		{"Completed", result.CompletedAt.Format("2006-01-02 15:04:05")},
		{"Domains", len(result.Domains)},
		{"Findings", len(result.Findings)},
	}
	counts := result.SeverityCounts()
	for _, severity := range []probes.Severity{
		probes.SeverityCritical, probes.SeverityHigh, probes.SeverityMedium, probes.SeverityLow, probes.SeverityInfo,
	} {
		if count, ok := counts[severity]; ok {
			summaryRows = append(summaryRows, []interface{}{"Findings (" + string(severity) + ")", count})
		}
	}
	summaryRows = append(summaryRows, []interface{}{"Generated By", meta.Generator + " / " + meta.FormatVersion})
	for _, values := range summaryRows {
		if err := writeRow(f, summarySheet, row, values); err != nil {
			return err
		}
		row++
	}
	f.SetColWidth(summarySheet, "A", "A", 22)
	f.SetColWidth(summarySheet, "B", "B", 42)

	if err := buildFindingsSheet(f, result, headerStyle); err != nil {
		return err
	}
	if err := buildOutcomesSheet(f, result, headerStyle); err != nil {
		return err
	}
	if err := buildDomainsSheet(f, result, headerStyle); err != nil {
		return err
	}
	return nil
}

func buildFindingsSheet(f *excelize.File, result *engine.ScanResult, headerStyle int) error {
	const sheet = "Findings"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create findings sheet: %w", err)
	}
	header := []interface{}{"Severity", "Type", "Domain", "Title", "Description", "Recommendation", "Source Probe", "Evidence"}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	f.SetCellStyle(sheet, "A1", "H1", headerStyle)
	f.SetColWidth(sheet, "A", "C", 16)
	f.SetColWidth(sheet, "D", "F", 36)
	f.SetColWidth(sheet, "G", "H", 24)

	for i, finding := range result.Findings {
		evidence := ""
		if len(finding.Evidence) > 0 {
			if data, err := json.Marshal(finding.Evidence); err == nil {
				evidence = string(data)
			}
		}
		values := []interface{}{
			string(finding.Severity),
			finding.Type,
			finding.Domain,
			finding.Title,
			finding.Description,
			finding.Recommendation,
			finding.SourceProbe,
			evidence,
		}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func buildOutcomesSheet(f *excelize.File, result *engine.ScanResult, headerStyle int) error {
	const sheet = "Outcomes"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create outcomes sheet: %w", err)
	}
	header := []interface{}{"Probe", "Domain", "Status", "Duration (ms)", "Attempts", "Error"}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	f.SetCellStyle(sheet, "A1", "F1", headerStyle)
	f.SetColWidth(sheet, "A", "E", 16)
	f.SetColWidth(sheet, "F", "F", 48)

	for i, outcome := range result.Outcomes {
		values := []interface{}{
			outcome.ProbeName,
			outcome.Domain,
			string(outcome.Status),
			outcome.DurationMs,
			outcome.Attempts,
			outcome.Error,
		}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func buildDomainsSheet(f *excelize.File, result *engine.ScanResult, headerStyle int) error {
	const sheet = "Domains"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create domains sheet: %w", err)
	}
	if err := writeRow(f, sheet, 1, []interface{}{"Domain", "Source"}); err != nil {
		return err
	}
	f.SetCellStyle(sheet, "A1", "B1", headerStyle)
	f.SetColWidth(sheet, "A", "B", 30)

	for i, domain := range result.Domains {
		if err := writeRow(f, sheet, i+2, []interface{}{domain.Name, string(domain.Source)}); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("resolve cell %d/%d: %w", col+1, row, err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("write cell %s on %s: %w", cell, sheet, err)
		}
	}
	return nil
}

// WriteXLSX renders the workbook and saves it under the writer's output
// directory, returning the full path.
func (w *Writer) WriteXLSX(result *engine.ScanResult) (string, error) {
	data, err := RenderXLSX(result)
	if err != nil {
		return "", err
	}
	return w.writeFile(w.FileName(result.Seed, FormatXLSX), data)
}
