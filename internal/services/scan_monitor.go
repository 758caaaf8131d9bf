package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

// ScanMonitor watches a scan's report directory while the scan runs and
// keeps the database row's report paths current. Exports land in the
// directory as the executor renders them, so the row is usable before the
// scan finishes.
type ScanMonitor struct {
	logger    *logger.Logger
	artifacts *ReportArtifacts
}

func newScanMonitor(logger *logger.Logger, artifacts *ReportArtifacts) *ScanMonitor {
	return &ScanMonitor{
		logger:    logger,
		artifacts: artifacts,
	}
}

func (m *ScanMonitor) MonitorReports(scanID, reportDir string, ctx context.Context, done chan struct{}) {
	defer close(done)

	if reportDir == "" {
		m.logger.Warn("Report directory missing for monitoring", logger.Fields{"scan_id": scanID})
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Error("Failed to create report watcher", logger.Fields{"error": err, "scan_id": scanID})
		return
	}
	defer watcher.Close()

	if err := watcher.Add(reportDir); err != nil {
		m.logger.Error("Error adding directory to watcher", logger.Fields{"error": err, "dir": reportDir, "scan_id": scanID})
		return
	}

	m.artifacts.UpdateReportFiles(scanID, reportDir)

	// Throttle updates to avoid too frequent database writes
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	updatePending := false
	var mu sync.Mutex

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if isReportFile(event.Name) {
					mu.Lock()
					updatePending = true
					mu.Unlock()
				}
			}

		case <-ticker.C:
			mu.Lock()
			if updatePending {
				m.artifacts.UpdateReportFiles(scanID, reportDir)
				updatePending = false
			}
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("Report watcher error", logger.Fields{"error": err, "dir": reportDir, "scan_id": scanID})

		case <-ctx.Done():
			m.logger.Info("Stopping report monitor, performing final update", logger.Fields{"dir": reportDir, "scan_id": scanID})
			m.artifacts.UpdateReportFiles(scanID, reportDir)
			return
		}
	}
}

func isReportFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".html", ".xlsx", ".log":
		return true
	}
	return false
}
