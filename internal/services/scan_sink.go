package services

import (
	"fmt"
	"sync"

	"github.com/AnomFIN/AnomRadar/internal/dao"
	"github.com/AnomFIN/AnomRadar/pkg/engine"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

// scanSink persists terminal engine results onto the scan row. It shares
// the per-scan mutex map with the report monitor so their load-update-save
// cycles never interleave.
type scanSink struct {
	scanDao     dao.ScanDAO
	logger      *logger.Logger
	scanMutexes *sync.Map
}

func newScanSink(scanDao dao.ScanDAO, log *logger.Logger, scanMutexes *sync.Map) engine.Sink {
	return &scanSink{
		scanDao:     scanDao,
		logger:      log,
		scanMutexes: scanMutexes,
	}
}

func (s *scanSink) getScanMutex(scanID string) *sync.Mutex {
	value, _ := s.scanMutexes.LoadOrStore(scanID, &sync.Mutex{})
	return value.(*sync.Mutex)
}

func (s *scanSink) Store(result *engine.ScanResult) error {
	mu := s.getScanMutex(result.ScanID)
	mu.Lock()
	defer mu.Unlock()

	scan, err := s.scanDao.GetScanByUUID(result.ScanID)
	if err != nil {
		return fmt.Errorf("load scan %s: %w", result.ScanID, err)
	}

	if err := scan.ApplyResult(result); err != nil {
		return fmt.Errorf("encode scan result: %w", err)
	}
	if result.Status == engine.StatusFailed && result.Error != "" {
		scan.ErrorMessage = result.Error
	}

	if err := s.scanDao.UpdateScan(scan); err != nil {
		return fmt.Errorf("persist scan result: %w", err)
	}

	s.logger.Info("Stored scan result", logger.Fields{
		"scan_id":    result.ScanID,
		"status":     string(result.Status),
		"risk_score": result.RiskScore,
	})
	return nil
}
