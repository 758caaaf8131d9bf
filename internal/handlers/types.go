package handlers

import (
	"github.com/AnomFIN/AnomRadar/internal/models"
	"github.com/AnomFIN/AnomRadar/pkg/engine"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

type ScanRequest struct {
	Seed       string `json:"seed" binding:"required"`
	Plan       string `json:"plan"`
	Simulation bool   `json:"simulation"`
}

type ScanResponse struct {
	ScanID string `json:"scan_id"`
}

type ScanListResponse struct {
	Scans []models.Scan `json:"scans"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type FindingsResponse struct {
	ScanID     string                  `json:"scan_id"`
	RiskScore  int                     `json:"risk_score"`
	RiskLevel  engine.RiskLevel        `json:"risk_level"`
	Severities map[probes.Severity]int `json:"severities"`
	Findings   []probes.Finding        `json:"findings"`
}
