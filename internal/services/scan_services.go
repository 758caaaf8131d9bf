package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnomFIN/AnomRadar/internal/config"
	"github.com/AnomFIN/AnomRadar/internal/dao"
	"github.com/AnomFIN/AnomRadar/internal/models"
	"github.com/AnomFIN/AnomRadar/internal/notification"
	"github.com/AnomFIN/AnomRadar/pkg/cache"
	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

type ScanServiceMethods interface {
	StartScan(scan *models.Scan) (string, error)
	GetScanByUUID(id string) (*models.Scan, error)
	ListScans() ([]models.Scan, error)
	ListScansWithPagination(page, limit int) ([]models.Scan, int64, error)
	DeleteScan(id string) error
	Close()
}

type scanService struct {
	scanDao       dao.ScanDAO
	cfg           *config.Config
	logger        *logger.Logger
	statusManager *ScanStatusManager
	executor      *ScanExecutor
	monitor       *ScanMonitor
	artifacts     *ReportArtifacts
	catalog       CatalogServiceMethods
	notifier      *notification.Notifier
	cache         *cache.Cache
}

func NewScanService(scanDao dao.ScanDAO, cfg *config.Config) ScanServiceMethods {
	log := logger.NewLogger(cfg.ParseLogLevel())

	probeCache, err := cache.New(cfg.CacheDir, cfg.CacheTTL)
	if err != nil {
		log.Error("Failed to initialize probe cache, probes run uncached", logger.Fields{"error": err})
		probeCache = nil
	}

	scanMutexes := &sync.Map{}
	artifacts := newReportArtifacts(scanDao, log, scanMutexes)

	s := &scanService{
		scanDao:   scanDao,
		cfg:       cfg,
		logger:    log,
		artifacts: artifacts,
		catalog:   NewCatalogService(),
		notifier:  notification.NewNotifier(),
		cache:     probeCache,
	}
	s.statusManager = newScanStatusManager(scanDao, log)
	s.monitor = newScanMonitor(log, artifacts)
	s.executor = newScanExecutor(s, scanMutexes)

	return s
}

// StartScan validates the request, persists the scan row and dispatches
// execution to the background. The returned UUID identifies the scan for
// the rest of its life.
func (s *scanService) StartScan(scan *models.Scan) (string, error) {
	if scan.Seed == "" {
		return "", apperrors.NewConfigError("seed", "", "seed is required")
	}

	if scan.Plan == "" {
		scan.Plan = "default"
	}
	if _, ok := s.catalog.FindPlan(scan.Plan); !ok {
		return "", apperrors.NewConfigError("plan", scan.Plan, "unknown scan plan")
	}

	id := uuid.New().String()
	now := time.Now().Unix()
	scan.UUID = id
	scan.Status = "created"
	scan.CreatedAt = now
	scan.UpdatedAt = now

	if err := s.scanDao.SaveScan(scan); err != nil {
		s.logger.Error("SaveScan failed", logger.Fields{"error": err})
		return "", err
	}

	s.logger.Info("Scan accepted", logger.Fields{
		"scan_id": id,
		"seed":    scan.Seed,
		"plan":    scan.Plan,
	})

	go s.startScanExecution(scan)

	return id, nil
}

func (s *scanService) GetScanByUUID(id string) (*models.Scan, error) {
	return s.scanDao.GetScanByUUID(id)
}

func (s *scanService) ListScans() ([]models.Scan, error) {
	return s.scanDao.ListScans()
}

func (s *scanService) ListScansWithPagination(page, limit int) ([]models.Scan, int64, error) {
	return s.scanDao.ListScansWithPagination(page, limit)
}

func (s *scanService) DeleteScan(id string) error {
	return s.scanDao.DeleteScan(id)
}

// Close drains the notification workers. Running scans are not
// interrupted.
func (s *scanService) Close() {
	s.notifier.Close()
}
