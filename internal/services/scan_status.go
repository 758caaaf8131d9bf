package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/AnomFIN/AnomRadar/internal/dao"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

type ScanStatusManager struct {
	scanDao dao.ScanDAO
	logger  *logger.Logger
}

func newScanStatusManager(scanDao dao.ScanDAO, logger *logger.Logger) *ScanStatusManager {
	return &ScanStatusManager{
		scanDao: scanDao,
		logger:  logger,
	}
}

// UpdateStatus writes only the status column so it cannot clobber result
// fields persisted concurrently by the engine sink or report monitor.
func (m *ScanStatusManager) UpdateStatus(scanID, status string) error {
	return m.scanDao.UpdateScanFields(scanID, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().Unix(),
	})
}

func (m *ScanStatusManager) MarkFailed(scanID string) {
	m.MarkFailedWithReason(scanID, "Unknown error - check scan logs")
}

func (m *ScanStatusManager) MarkFailedWithReason(scanID string, reason string) {
	err := m.scanDao.UpdateScanFields(scanID, map[string]interface{}{
		"status":        "failed",
		"error_message": reason,
		"updated_at":    time.Now().Unix(),
	})
	if err != nil {
		m.logger.Error("Failed to persist failed scan status", logger.Fields{"error": err, "scan_id": scanID})
		return
	}

	m.logger.Error("Scan marked as failed", logger.Fields{
		"scan_id": scanID,
		"reason":  reason,
	})
}

func (m *ScanStatusManager) MarkCompleted(scanID string) error {
	err := m.scanDao.UpdateScanFields(scanID, map[string]interface{}{
		"status":     "completed",
		"updated_at": time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("persist scan completion: %w", err)
	}
	return nil
}

// MarkCompletedWithWarnings finalizes a scan whose probes partially failed.
// The scan still carries a result, the failed probe names are recorded
// alongside it.
func (m *ScanStatusManager) MarkCompletedWithWarnings(scanID string, failedProbes []string) error {
	scan, err := m.scanDao.GetScanByUUID(scanID)
	if err != nil {
		return fmt.Errorf("load scan: %w", err)
	}
	if scan == nil {
		return fmt.Errorf("scan %s not found", scanID)
	}

	scan.Status = "completed_with_warnings"
	scan.SetFailedProbes(failedProbes)
	scan.UpdatedAt = time.Now().Unix()

	if err := m.scanDao.UpdateScan(scan); err != nil {
		return fmt.Errorf("persist scan completion with warnings: %w", err)
	}

	m.logger.Warn("Scan completed with warnings", logger.Fields{
		"scan_id":       scanID,
		"failed_probes": strings.Join(failedProbes, ", "),
	})
	return nil
}
