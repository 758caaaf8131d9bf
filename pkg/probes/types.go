// Package probes contains the passive reconnaissance probes and the
// discovery collaborators that expand a seed into target domains.
package probes

import "time"

// Severity classifies the impact of a single finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from info (0) to critical (4). Unknown values
// rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// Finding is a single observation produced by a probe. Evidence is an
// opaque payload that is carried through aggregation untouched except
// for duplicate merging.
type Finding struct {
	Type           string                 `json:"type"`
	Severity       Severity               `json:"severity"`
	Domain         string                 `json:"domain,omitempty"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description,omitempty"`
	Recommendation string                 `json:"recommendation,omitempty"`
	Evidence       map[string]interface{} `json:"evidence,omitempty"`
	SourceProbe    string                 `json:"source_probe,omitempty"`
}

// Config carries the per-invocation settings every probe receives.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	Simulation bool
	UserAgent  string
	Resolvers  []string
}

const defaultUserAgent = "AnomRadar/2.0 (Security Scanner)"

// DefaultConfig returns the probe settings used when a scan request
// does not override them.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		UserAgent:  defaultUserAgent,
		Resolvers:  []string{"8.8.8.8:53", "1.1.1.1:53"},
	}
}
