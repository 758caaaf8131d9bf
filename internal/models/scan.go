package models

import (
	"encoding/json"
	"time"

	"github.com/AnomFIN/AnomRadar/pkg/engine"
)

// Scan is the persisted record of a single scan run. The full engine result
// is stored as JSON in ResultJSON so reports can be re-rendered later without
// re-running any probes.
type Scan struct {
	UUID          string `gorm:"primaryKey;type:varchar(36)" json:"uuid"`
	Seed          string `json:"seed"`
	Plan          string `json:"plan"`
	Status        string `json:"status"`
	RiskScore     int    `json:"risk_score"`
	RiskLevel     string `json:"risk_level"`
	DomainsCount  int    `json:"domains_count"`
	FindingsCount int    `json:"findings_count"`
	ErrorMessage  string `json:"error_message,omitempty"`
	FailedProbes  string `gorm:"type:text" json:"failed_probes,omitempty"`
	ReportPaths   string `gorm:"type:text" json:"report_paths,omitempty"`
	ResultJSON    string `gorm:"type:text" json:"-"`
	Simulation    bool   `json:"simulation"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// ApplyResult copies the outcome of a finished engine run into the row.
func (s *Scan) ApplyResult(result *engine.ScanResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	s.RiskScore = result.RiskScore
	s.RiskLevel = string(result.RiskLevel)
	s.DomainsCount = len(result.Domains)
	s.FindingsCount = len(result.Findings)
	s.ResultJSON = string(raw)
	s.UpdatedAt = time.Now().Unix()
	return nil
}

// Result decodes the stored engine result. Returns nil when the scan has not
// produced one yet.
func (s *Scan) Result() (*engine.ScanResult, error) {
	if s.ResultJSON == "" {
		return nil, nil
	}
	var result engine.ScanResult
	if err := json.Unmarshal([]byte(s.ResultJSON), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetFailedProbes stores the list of probes that produced no successful
// outcome, encoded as JSON.
func (s *Scan) SetFailedProbes(probes []string) {
	if len(probes) == 0 {
		s.FailedProbes = ""
		return
	}
	raw, err := json.Marshal(probes)
	if err != nil {
		return
	}
	s.FailedProbes = string(raw)
}

// GetFailedProbes decodes the stored failed probe list.
func (s *Scan) GetFailedProbes() []string {
	if s.FailedProbes == "" {
		return nil
	}
	var probes []string
	if err := json.Unmarshal([]byte(s.FailedProbes), &probes); err != nil {
		return nil
	}
	return probes
}

// SetReportPaths stores the rendered report files keyed by format.
func (s *Scan) SetReportPaths(paths map[string]string) {
	if len(paths) == 0 {
		s.ReportPaths = ""
		return
	}
	raw, err := json.Marshal(paths)
	if err != nil {
		return
	}
	s.ReportPaths = string(raw)
}

// GetReportPaths decodes the stored report path map.
func (s *Scan) GetReportPaths() map[string]string {
	if s.ReportPaths == "" {
		return nil
	}
	paths := make(map[string]string)
	if err := json.Unmarshal([]byte(s.ReportPaths), &paths); err != nil {
		return nil
	}
	return paths
}
