package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AnomFIN/AnomRadar/internal/models"
	"github.com/AnomFIN/AnomRadar/internal/notification"
	"github.com/AnomFIN/AnomRadar/pkg/engine"
	"github.com/AnomFIN/AnomRadar/pkg/export"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

type ScanExecutor struct {
	scanService *scanService
	scanMutexes *sync.Map
}

func newScanExecutor(s *scanService, scanMutexes *sync.Map) *ScanExecutor {
	return &ScanExecutor{scanService: s, scanMutexes: scanMutexes}
}

// Execute runs one scan end to end in the background: engine run, report
// exports, status transitions and notifications. The engine applies its
// own queueing and timeouts, so Execute never blocks the caller.
func (e *ScanExecutor) Execute(scanID, seed, planName string, simulation bool) {
	svc := e.scanService
	var scanLogger *logger.ScanLogger

	defer func() {
		if r := recover(); r != nil {
			panicMsg := fmt.Sprintf("panic in background scan: %v", r)
			svc.logger.Error(panicMsg, logger.Fields{"scan_id": scanID, "panic": r})

			if scanLogger != nil {
				scanLogger.LogScanFailure("panic during scan execution",
					fmt.Errorf("%v", r),
					map[string]interface{}{"panic_value": r})
				scanLogger.Close()
			}

			svc.statusManager.MarkFailedWithReason(scanID, panicMsg)
		}
	}()

	plan, ok := svc.catalog.FindPlan(planName)
	if !ok {
		svc.statusManager.MarkFailedWithReason(scanID, fmt.Sprintf("unknown scan plan: %s", planName))
		return
	}

	if err := svc.statusManager.UpdateStatus(scanID, "running"); err != nil {
		svc.logger.Error("Failed to update scan to running", logger.Fields{"scan_id": scanID, "error": err})
	}

	svc.logger.Info("Starting scan execution", logger.Fields{"scan_id": scanID, "seed": seed, "plan": planName})

	reportDir := filepath.Join(svc.cfg.ReportDir, scanID)
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		svc.logger.Error("Failed to create report directory", logger.Fields{"error": err, "dir": reportDir, "scan_id": scanID})
		reportDir = ""
	}

	if reportDir != "" {
		var logErr error
		scanLogger, logErr = logger.NewScanLogger(scanID, reportDir, logrus.InfoLevel)
		if logErr != nil {
			svc.logger.Error("Failed to create scan logger", logger.Fields{"error": logErr, "scan_id": scanID})
		} else {
			scanLogger.WithFields(logger.Fields{
				"scan_id": scanID,
				"seed":    seed,
				"plan":    planName,
			}).Info("Scan logger initialized")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var monitoringDone chan struct{}
	if reportDir != "" {
		monitoringDone = make(chan struct{})
		go svc.monitor.MonitorReports(scanID, reportDir, ctx, monitoringDone)
	} else {
		svc.logger.Warn("Report directory not available for monitoring", logger.Fields{"scan_id": scanID})
	}

	engineCfg := svc.cfg.EngineConfig()
	engineCfg.Simulation = simulation

	eng := engine.New(
		engine.WithLogger(svc.logger),
		engine.WithProbeRegistry(BuildProbeRegistry(svc.cache)),
		engine.WithDiscoverers(BuildDiscoverers(svc.cfg.RegistryURL, svc.cache)...),
		engine.WithSink(newScanSink(svc.scanDao, svc.logger, e.scanMutexes)),
		engine.WithPlan(plan),
	)

	req := engine.NewScanRequest(seed, engineCfg)
	req.ScanID = scanID

	result, runErr := eng.Run(ctx, req)

	if result != nil && scanLogger != nil {
		for _, outcome := range result.Outcomes {
			scanLogger.LogProbeOutcome(outcome.ProbeName, outcome.Domain, string(outcome.Status),
				time.Duration(outcome.DurationMs)*time.Millisecond)
		}
	}

	if runErr != nil {
		svc.logger.Error("Scan execution failed", logger.Fields{"scan_id": scanID, "error": runErr})

		if scanLogger != nil {
			scanLogger.LogScanFailure("scan execution error", runErr, map[string]interface{}{
				"seed": seed,
				"plan": planName,
			})
			scanLogger.Close()
		}

		cancel()
		if monitoringDone != nil {
			<-monitoringDone
		}

		svc.statusManager.MarkFailedWithReason(scanID, fmt.Sprintf("Execution failed: %v", runErr))
		svc.notifier.Enqueue(notification.ScanFailedMessage(scanID, seed, runErr.Error()))
		return
	}

	if reportDir != "" {
		e.writeReports(scanID, reportDir, result, scanLogger)
	}

	cancel()
	if monitoringDone != nil {
		svc.logger.Info("Waiting for report monitor to finish", logger.Fields{"scan_id": scanID})
		<-monitoringDone
	}

	if result.Degraded() {
		failed := result.FailedProbes()
		svc.logger.Warn("Scan completed with some probe failures", logger.Fields{
			"scan_id":      scanID,
			"failed_count": len(failed),
		})

		if scanLogger != nil {
			scanLogger.LogScanPartialSuccess(failed)
			scanLogger.Close()
		}

		if err := svc.statusManager.MarkCompletedWithWarnings(scanID, failed); err != nil {
			svc.logger.Error("Failed to mark scan as completed with warnings", logger.Fields{"scan_id": scanID, "error": err})
		}
	} else {
		if scanLogger != nil {
			scanLogger.LogScanSuccess(result.RiskScore, string(result.RiskLevel))
			scanLogger.Close()
		}

		svc.logger.Info("Scan completed successfully", logger.Fields{"scan_id": scanID, "risk_score": result.RiskScore})
		if err := svc.statusManager.MarkCompleted(scanID); err != nil {
			svc.logger.Error("Failed to finalize scan", logger.Fields{"scan_id": scanID, "error": err})
		}
	}

	svc.notifier.Enqueue(notification.ScanCompletedMessage(scanID, seed, result))
}

// writeReports renders the configured export formats into the scan's
// report directory. Export failures degrade the report set, they never
// fail the scan.
func (e *ScanExecutor) writeReports(scanID, reportDir string, result *engine.ScanResult, scanLogger *logger.ScanLogger) {
	svc := e.scanService

	writer, err := export.NewWriter(reportDir)
	if err != nil {
		svc.logger.Error("Failed to create report writer", logger.Fields{"error": err, "scan_id": scanID})
		return
	}

	for _, format := range svc.cfg.ReportFormats {
		var path string
		var writeErr error

		switch format {
		case export.FormatJSON:
			path, writeErr = writer.WriteJSON(result)
		case export.FormatHTML:
			path, writeErr = writer.WriteHTML(result)
		case export.FormatXLSX:
			path, writeErr = writer.WriteXLSX(result)
		default:
			svc.logger.Warn("Skipping unknown report format", logger.Fields{"format": format, "scan_id": scanID})
			continue
		}

		if writeErr != nil {
			svc.logger.Error("Failed to write report", logger.Fields{"error": writeErr, "format": format, "scan_id": scanID})
			if scanLogger != nil {
				scanLogger.LogError("export", writeErr, logger.Fields{"format": format})
			}
			continue
		}

		svc.logger.Info("Report written", logger.Fields{"scan_id": scanID, "format": format, "path": path})
	}
}

func (s *scanService) startScanExecution(scan *models.Scan) {
	s.executor.Execute(scan.UUID, scan.Seed, scan.Plan, scan.Simulation)
}
