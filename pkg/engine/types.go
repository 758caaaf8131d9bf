// Package engine coordinates the two-phase discovery and scan pipeline:
// a seed is expanded into a frozen domain set, every (domain, probe)
// pair runs through a bounded worker pool with per-unit failure
// isolation, and the recorded outcomes reduce to a deterministic
// finding list with a bounded risk score.
package engine

import (
	"time"

	"github.com/AnomFIN/AnomRadar/pkg/errors"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// Source records how a domain entered the target set.
type Source string

const (
	SourceSeed      Source = "seed"
	SourceRegistry  Source = "registry"
	SourceHeuristic Source = "discovery-heuristic"
)

// Domain is one normalized scan target.
type Domain struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
}

// Status tracks a scan through its phases. Completed and Failed are
// terminal; Failed is reachable only before the probe phase starts.
type Status string

const (
	StatusCreated     Status = "created"
	StatusDiscovering Status = "discovering"
	StatusScanning    Status = "scanning"
	StatusScoring     Status = "scoring"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// OutcomeStatus classifies a single probe invocation.
type OutcomeStatus string

const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeFailed   OutcomeStatus = "failed"
	OutcomeTimedOut OutcomeStatus = "timedOut"
	OutcomeSkipped  OutcomeStatus = "skipped"
)

// Outcome is the recorded result of one probe or discoverer invocation.
// Findings are only present when Status is ok.
type Outcome struct {
	ProbeName  string           `json:"probe_name"`
	Domain     string           `json:"domain,omitempty"`
	Status     OutcomeStatus    `json:"status"`
	Findings   []probes.Finding `json:"findings,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Attempts   int              `json:"attempts,omitempty"`
}

// Config is the per-scan configuration. A zero value is usable, every
// field falls back to a default.
type Config struct {
	ProbeTimeout   time.Duration `json:"probe_timeout"`
	ScanTimeout    time.Duration `json:"scan_timeout"`
	MaxConcurrency int           `json:"max_concurrency"`
	MaxRetries     int           `json:"max_retries"`
	Simulation     bool          `json:"simulation"`
	UserAgent      string        `json:"user_agent,omitempty"`
	Resolvers      []string      `json:"resolvers,omitempty"`
	Thresholds     Thresholds    `json:"thresholds"`
}

const (
	defaultMaxConcurrency = 3
	defaultScanTimeout    = 10 * time.Minute
)

func DefaultEngineConfig() Config {
	pc := probes.DefaultConfig()
	return Config{
		ProbeTimeout:   pc.Timeout,
		ScanTimeout:    defaultScanTimeout,
		MaxConcurrency: defaultMaxConcurrency,
		MaxRetries:     pc.MaxRetries,
		UserAgent:      pc.UserAgent,
		Resolvers:      pc.Resolvers,
		Thresholds:     DefaultThresholds(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultEngineConfig()
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = def.ScanTimeout
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = def.MaxConcurrency
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if len(c.Resolvers) == 0 {
		c.Resolvers = def.Resolvers
	}
	if c.Thresholds.IsZero() {
		c.Thresholds = def.Thresholds
	}
	return c
}

func (c Config) probeConfig() probes.Config {
	return probes.Config{
		Timeout:    c.ProbeTimeout,
		MaxRetries: c.MaxRetries,
		Simulation: c.Simulation,
		UserAgent:  c.UserAgent,
		Resolvers:  c.Resolvers,
	}
}

// ScanRequest is the caller-supplied input of one scan. Immutable once
// validated. ScanID is optional; callers that persist scans ahead of
// execution set it so the result carries their identifier.
type ScanRequest struct {
	ScanID      string    `json:"scan_id,omitempty"`
	Seed        string    `json:"seed"`
	Config      Config    `json:"config"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func NewScanRequest(seed string, cfg Config) ScanRequest {
	return ScanRequest{
		Seed:        seed,
		Config:      cfg,
		SubmittedAt: time.Now().UTC(),
	}
}

func (r ScanRequest) Validate() error {
	if r.Seed == "" {
		return errors.NewConfigError("seed", "", "seed is required")
	}
	if r.Config.ProbeTimeout < 0 {
		return errors.NewConfigError("probe_timeout", r.Config.ProbeTimeout.String(), "timeout cannot be negative")
	}
	if r.Config.ScanTimeout < 0 {
		return errors.NewConfigError("scan_timeout", r.Config.ScanTimeout.String(), "timeout cannot be negative")
	}
	if r.Config.MaxConcurrency < 0 {
		return errors.NewConfigError("max_concurrency", r.Config.MaxConcurrency, "concurrency cannot be negative")
	}
	if err := r.Config.Thresholds.Validate(); err != nil {
		return err
	}
	return nil
}

// ScanResult is the immutable record of a finished scan. Nothing in
// the engine mutates it after assembly; every scan produces a fresh
// value.
type ScanResult struct {
	ScanID      string           `json:"scan_id"`
	Seed        string           `json:"seed"`
	Domains     []Domain         `json:"domains"`
	Findings    []probes.Finding `json:"findings"`
	Outcomes    []Outcome        `json:"outcomes"`
	RiskScore   int              `json:"risk_score"`
	RiskLevel   RiskLevel        `json:"risk_level"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	Status      Status           `json:"status"`
	Error       string           `json:"error,omitempty"`
}

// SeverityCounts tallies findings per severity for summaries.
func (r *ScanResult) SeverityCounts() map[probes.Severity]int {
	counts := make(map[probes.Severity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

// FailedProbes lists the probe names of every outcome that is not ok,
// deduplicated, in first-occurrence order.
func (r *ScanResult) FailedProbes() []string {
	seen := make(map[string]bool)
	var failed []string
	for _, o := range r.Outcomes {
		if o.Status == OutcomeOK || seen[o.ProbeName] {
			continue
		}
		seen[o.ProbeName] = true
		failed = append(failed, o.ProbeName)
	}
	return failed
}

// Degraded reports whether any outcome finished as something other
// than ok.
func (r *ScanResult) Degraded() bool {
	for _, o := range r.Outcomes {
		if o.Status != OutcomeOK {
			return true
		}
	}
	return false
}
