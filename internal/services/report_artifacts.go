package services

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/AnomFIN/AnomRadar/internal/dao"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

// ReportArtifacts records the report files a scan has produced on its
// database row. Updates are serialized per scan so the monitor's periodic
// sweeps and the final sweep cannot interleave.
type ReportArtifacts struct {
	scanDao     dao.ScanDAO
	logger      *logger.Logger
	scanMutexes *sync.Map
}

func newReportArtifacts(scanDao dao.ScanDAO, logger *logger.Logger, scanMutexes *sync.Map) *ReportArtifacts {
	return &ReportArtifacts{
		scanDao:     scanDao,
		logger:      logger,
		scanMutexes: scanMutexes,
	}
}

func (a *ReportArtifacts) getScanMutex(scanID string) *sync.Mutex {
	value, _ := a.scanMutexes.LoadOrStore(scanID, &sync.Mutex{})
	return value.(*sync.Mutex)
}

func (a *ReportArtifacts) UpdateReportFiles(scanID, reportDir string) {
	mu := a.getScanMutex(scanID)
	mu.Lock()
	defer mu.Unlock()

	scan, err := a.scanDao.GetScanByUUID(scanID)
	if err != nil {
		a.logger.Error("Failed to load scan for report update", logger.Fields{"error": err, "scan_id": scanID})
		return
	}

	paths := a.collectReportPaths(reportDir)
	if len(paths) == 0 {
		return
	}

	scan.SetReportPaths(paths)

	if err := a.scanDao.UpdateScan(scan); err != nil {
		a.logger.Error("Failed to persist report paths", logger.Fields{"error": err, "scan_id": scanID})
		return
	}

	a.logger.Debug("Updated report paths", logger.Fields{"scan_id": scanID, "files": len(paths)})
}

// collectReportPaths globs the scan's report directory and keys each file
// by its kind. Paths are stored relative to the reports root so they stay
// valid when served over HTTP.
func (a *ReportArtifacts) collectReportPaths(reportDir string) map[string]string {
	if reportDir == "" {
		return nil
	}

	dirName := filepath.Base(reportDir)
	paths := make(map[string]string)

	for _, ext := range []string{"json", "html", "xlsx"} {
		matches, err := filepath.Glob(filepath.Join(reportDir, "*."+ext))
		if err != nil {
			a.logger.Error("Failed to glob report files", logger.Fields{"error": err, "dir": reportDir, "ext": ext})
			continue
		}
		sort.Strings(matches)
		for _, match := range matches {
			filename := filepath.Base(match)
			// scan.log and error.log are keyed separately below.
			if strings.HasSuffix(filename, ".log") {
				continue
			}
			paths[ext] = filepath.Join(dirName, filename)
			break
		}
	}

	for key, filename := range map[string]string{"log": "scan.log", "error_log": "error.log"} {
		fullPath := filepath.Join(reportDir, filename)
		if _, err := os.Stat(fullPath); err == nil {
			paths[key] = filepath.Join(dirName, filename)
		}
	}

	return paths
}
