// Package export renders finished scan results as JSON, HTML and XLSX
// reports, on disk or in memory for API delivery.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

const (
	generatorName = "AnomRadar v2"
	formatVersion = "1.0"
)

// Format names accepted by the report endpoints and the CLI.
const (
	FormatJSON = "json"
	FormatHTML = "html"
	FormatXLSX = "xlsx"
)

// metadata is stamped onto every export.
type metadata struct {
	GeneratedAt   string `json:"generated_at"`
	Generator     string `json:"generator"`
	FormatVersion string `json:"format_version"`
}

func newMetadata() metadata {
	return metadata{
		GeneratedAt:   time.Now().Format(time.RFC3339),
		Generator:     generatorName,
		FormatVersion: formatVersion,
	}
}

// Writer saves rendered reports under one output directory.
type Writer struct {
	outputDir string
	log       *logger.Logger
}

func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create report directory %s: %w", outputDir, err)
	}
	return &Writer{
		outputDir: outputDir,
		log:       logger.NewLogger(logrus.InfoLevel),
	}, nil
}

func (w *Writer) OutputDir() string {
	return w.outputDir
}

// FileName builds the report file name for a seed:
// anomradar_<seed>_<timestamp>.<ext> with the seed reduced to
// filename-safe characters.
func (w *Writer) FileName(seed, ext string) string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("anomradar_%s_%s.%s", sanitizeTarget(seed), timestamp, ext)
}

func sanitizeTarget(target string) string {
	if target == "" {
		target = "unknown"
	}
	var b strings.Builder
	for _, r := range target {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (w *Writer) writeFile(filename string, data []byte) (string, error) {
	path := filepath.Join(w.outputDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	w.log.WithFields(logger.Fields{"path": path, "bytes": len(data)}).Info("Report exported")
	return path, nil
}

// ValidFormat reports whether the format name is one of the supported
// exports.
func ValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatHTML, FormatXLSX:
		return true
	}
	return false
}
