package engine

import (
	"math"

	"github.com/AnomFIN/AnomRadar/pkg/errors"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// RiskLevel is the discrete classification derived from the score.
type RiskLevel string

const (
	RiskInfo   RiskLevel = "info"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Thresholds map a score to a risk level. Evaluated high to low so the
// ranges cannot overlap ambiguously.
type Thresholds struct {
	High   int `json:"high" yaml:"high" mapstructure:"high"`
	Medium int `json:"medium" yaml:"medium" mapstructure:"medium"`
	Low    int `json:"low" yaml:"low" mapstructure:"low"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: 70, Medium: 40, Low: 20}
}

func (t Thresholds) IsZero() bool {
	return t == Thresholds{}
}

func (t Thresholds) Validate() error {
	if t.IsZero() {
		return nil
	}
	if t.Low <= 0 {
		return errors.NewConfigError("thresholds.low", t.Low, "threshold must be positive")
	}
	if t.Medium <= t.Low {
		return errors.NewConfigError("thresholds.medium", t.Medium, "must be above the low threshold")
	}
	if t.High <= t.Medium {
		return errors.NewConfigError("thresholds.high", t.High, "must be above the medium threshold")
	}
	return nil
}

// Level classifies a score, checking thresholds from high down.
func (t Thresholds) Level(score int) RiskLevel {
	switch {
	case score >= t.High:
		return RiskHigh
	case score >= t.Medium:
		return RiskMedium
	case score >= t.Low:
		return RiskLow
	default:
		return RiskInfo
	}
}

var severityWeights = map[probes.Severity]int{
	probes.SeverityCritical: 25,
	probes.SeverityHigh:     15,
	probes.SeverityMedium:   8,
	probes.SeverityLow:      3,
	probes.SeverityInfo:     0,
}

// Score reduces a finding list to a bounded risk score in [0, 100] and
// its level. The severity sum is compressed by 0.8 so a handful of
// critical findings does not saturate the scale, and a square-root
// volume term rewards breadth without letting count dominate. Adding a
// finding never lowers the score.
func Score(findings []probes.Finding, t Thresholds) (int, RiskLevel) {
	if len(findings) == 0 {
		return 0, RiskInfo
	}

	raw := 0
	for _, f := range findings {
		raw += severityWeights[f.Severity]
	}

	adjusted := int(math.Round(float64(raw)*0.8 + math.Sqrt(float64(len(findings)))*2))
	if adjusted > 100 {
		adjusted = 100
	}
	if adjusted < 0 {
		adjusted = 0
	}

	return adjusted, t.Level(adjusted)
}
