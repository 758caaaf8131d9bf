package export

import (
	"encoding/json"
	"fmt"

	"github.com/AnomFIN/AnomRadar/pkg/engine"
)

type jsonReport struct {
	Metadata    metadata           `json:"metadata"`
	ScanResults *engine.ScanResult `json:"scan_results"`
}

type jsonReportList struct {
	Metadata    metadata             `json:"metadata"`
	ScanResults []*engine.ScanResult `json:"scan_results"`
}

// RenderJSON serializes one scan result with export metadata attached.
func RenderJSON(result *engine.ScanResult) ([]byte, error) {
	report := jsonReport{
		Metadata:    newMetadata(),
		ScanResults: result,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scan result: %w", err)
	}
	return data, nil
}

// RenderJSONMany serializes a batch of scan results into one document.
func RenderJSONMany(results []*engine.ScanResult) ([]byte, error) {
	report := jsonReportList{
		Metadata:    newMetadata(),
		ScanResults: results,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scan results: %w", err)
	}
	return data, nil
}

// WriteJSON renders the result and saves it under the writer's output
// directory, returning the full path.
func (w *Writer) WriteJSON(result *engine.ScanResult) (string, error) {
	data, err := RenderJSON(result)
	if err != nil {
		return "", err
	}
	return w.writeFile(w.FileName(result.Seed, FormatJSON), data)
}
