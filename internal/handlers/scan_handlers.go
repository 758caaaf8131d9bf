package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/AnomFIN/AnomRadar/internal/models"
	"github.com/AnomFIN/AnomRadar/internal/services"
	"github.com/AnomFIN/AnomRadar/pkg/engine"
	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
	"github.com/AnomFIN/AnomRadar/pkg/export"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

type ScanHandler struct {
	scanService services.ScanServiceMethods
	logger      *logger.Logger
}

func NewScanHandler(scanService services.ScanServiceMethods) *ScanHandler {
	return &ScanHandler{scanService: scanService, logger: logger.NewLogger(logrus.Level(logrus.InfoLevel))}
}

func (h *ScanHandler) StartScan(c *gin.Context) {
	var request ScanRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.Error("Failed to bind JSON:", logger.Fields{"error": err})
		c.JSON(400, gin.H{"error": "Invalid request payload"})
		return
	}

	scanModel := models.Scan{
		Seed:       request.Seed,
		Plan:       request.Plan,
		Simulation: request.Simulation,
	}

	h.logger.Info("Starting scan", logger.Fields{"seed": scanModel.Seed, "plan": scanModel.Plan})
	id, err := h.scanService.StartScan(&scanModel)
	if err != nil {
		var cfgErr *apperrors.ConfigError
		if errors.As(err, &cfgErr) {
			c.JSON(400, gin.H{"error": cfgErr.Error()})
			return
		}
		h.logger.Error("Failed to start scan:", logger.Fields{"error": err})
		c.JSON(500, gin.H{"error": "Failed to start scan"})
		return
	}
	c.JSON(200, ScanResponse{ScanID: id})
}

func (h *ScanHandler) GetScanByUUID(c *gin.Context) {
	scanID := c.Param("id")
	scan, err := h.scanService.GetScanByUUID(scanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, apperrors.ErrScanNotFound) {
			c.JSON(404, gin.H{"error": "Scan not found"})
			return
		}
		h.logger.Error("Failed to get scan:", logger.Fields{"error": err})
		c.JSON(500, gin.H{"error": "Failed to get scan"})
		return
	}
	if scan == nil {
		h.logger.Error("Scan not found", logger.Fields{"scan_id": scanID})
		c.JSON(404, gin.H{"error": "Scan not found"})
		return
	}
	c.JSON(200, scan)
}

func (h *ScanHandler) ListScans(c *gin.Context) {
	pageStr := c.Query("page")
	limitStr := c.Query("limit")

	if pageStr == "" && limitStr == "" {
		scans, err := h.scanService.ListScans()
		if err != nil {
			h.logger.Error("Failed to list scans:", logger.Fields{"error": err})
			c.JSON(500, gin.H{"error": "Failed to list scans"})
			return
		}
		c.JSON(200, scans)
		return
	}

	page, _ := strconv.Atoi(pageStr)
	limit, _ := strconv.Atoi(limitStr)

	scans, total, err := h.scanService.ListScansWithPagination(page, limit)
	if err != nil {
		h.logger.Error("Failed to list scans:", logger.Fields{"error": err})
		c.JSON(500, gin.H{"error": "Failed to list scans"})
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	c.JSON(200, ScanListResponse{Scans: scans, Total: total, Page: page, Limit: limit})
}

func (h *ScanHandler) DeleteScan(c *gin.Context) {
	scanID := c.Param("id")
	if err := h.scanService.DeleteScan(scanID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(404, gin.H{"error": "Scan not found"})
			return
		}
		h.logger.Error("Failed to delete scan:", logger.Fields{"error": err, "scan_id": scanID})
		c.JSON(500, gin.H{"error": "Failed to delete scan"})
		return
	}
	c.Status(204)
}

// GetScanFindings returns only the findings portion of a stored result,
// with the score and per-severity tallies, for clients that do not want
// the full outcome list.
func (h *ScanHandler) GetScanFindings(c *gin.Context) {
	scanID := c.Param("id")
	scan, err := h.scanService.GetScanByUUID(scanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, apperrors.ErrScanNotFound) {
			c.JSON(404, gin.H{"error": "Scan not found"})
			return
		}
		h.logger.Error("Failed to get scan:", logger.Fields{"error": err})
		c.JSON(500, gin.H{"error": "Failed to get scan"})
		return
	}
	if scan == nil {
		c.JSON(404, gin.H{"error": "Scan not found"})
		return
	}

	result, err := scan.Result()
	if err != nil {
		h.logger.Error("Failed to decode scan result:", logger.Fields{"error": err, "scan_id": scanID})
		c.JSON(500, gin.H{"error": "Failed to load findings"})
		return
	}
	if result == nil {
		c.JSON(404, gin.H{"error": "Scan has no result yet"})
		return
	}

	findings := result.Findings
	if findings == nil {
		findings = []probes.Finding{}
	}
	c.JSON(200, FindingsResponse{
		ScanID:     result.ScanID,
		RiskScore:  result.RiskScore,
		RiskLevel:  result.RiskLevel,
		Severities: result.SeverityCounts(),
		Findings:   findings,
	})
}

// GetScanReport re-renders a stored scan result in the requested format.
// Formats never require re-running probes, results are rendered from the
// persisted engine output.
func (h *ScanHandler) GetScanReport(c *gin.Context) {
	scanID := c.Param("id")
	format := c.DefaultQuery("format", export.FormatJSON)

	if !export.ValidFormat(format) {
		c.JSON(400, gin.H{"error": "Invalid report format"})
		return
	}

	scan, err := h.scanService.GetScanByUUID(scanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, apperrors.ErrScanNotFound) {
			c.JSON(404, gin.H{"error": "Scan not found"})
			return
		}
		h.logger.Error("Failed to get scan:", logger.Fields{"error": err})
		c.JSON(500, gin.H{"error": "Failed to get scan"})
		return
	}
	if scan == nil {
		c.JSON(404, gin.H{"error": "Scan not found"})
		return
	}

	result, err := scan.Result()
	if err != nil {
		h.logger.Error("Failed to decode scan result:", logger.Fields{"error": err, "scan_id": scanID})
		c.JSON(500, gin.H{"error": "Failed to render report"})
		return
	}
	if result == nil {
		c.JSON(404, gin.H{"error": "Scan has no result yet"})
		return
	}

	data, contentType, err := renderReport(result, format)
	if err != nil {
		h.logger.Error("Failed to render report:", logger.Fields{"error": err, "scan_id": scanID, "format": format})
		c.JSON(500, gin.H{"error": "Failed to render report"})
		return
	}

	c.Data(200, contentType, data)
}

func renderReport(result *engine.ScanResult, format string) ([]byte, string, error) {
	switch format {
	case export.FormatHTML:
		data, err := export.RenderHTML(result)
		return data, "text/html; charset=utf-8", err
	case export.FormatXLSX:
		data, err := export.RenderXLSX(result)
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	default:
		data, err := export.RenderJSON(result)
		return data, "application/json", err
	}
}
