package probes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/AnomFIN/AnomRadar/pkg/cache"
	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
)

// WhoisProbe inspects domain registration data: expiry window,
// registration age and registrant contact exposure.
type WhoisProbe struct {
	cache *cache.Cache
}

func NewWhoisProbe(c *cache.Cache) *WhoisProbe {
	return &WhoisProbe{cache: c}
}

func (p *WhoisProbe) Name() string  { return "whois" }
func (p *WhoisProbe) Priority() int { return PriorityWhois }

func (p *WhoisProbe) Run(ctx context.Context, domain string, cfg Config) ([]Finding, error) {
	if cfg.Simulation {
		return p.simulated(domain), nil
	}

	var info whoisparser.WhoisInfo
	if p.cache == nil || !p.cache.Get("whois", domain, &info) {
		raw, err := whois.NewClient().SetTimeout(cfg.Timeout).Whois(domain)
		if err != nil {
			return nil, apperrors.NewProbeError(p.Name(), fmt.Errorf("whois query for %s: %w", domain, err))
		}

		info, err = whoisparser.Parse(raw)
		if err != nil {
			if err == whoisparser.ErrNotFoundDomain {
				return []Finding{{
					Type:        "whois_not_found",
					Severity:    SeverityInfo,
					Domain:      domain,
					Title:       "Domain not found in WHOIS",
					Description: "The registry returned no registration data for this domain.",
					SourceProbe: p.Name(),
				}}, nil
			}
			return nil, apperrors.NewProbeError(p.Name(), fmt.Errorf("parse whois for %s: %w", domain, err))
		}
		if p.cache != nil {
			p.cache.Set("whois", domain, info)
		}
	}

	return evaluateWhois(p.Name(), domain, info, time.Now()), nil
}

// evaluateWhois derives findings from parsed registration data. Pure so
// the severity ladder can be tested against constructed records.
func evaluateWhois(probeName, domain string, info whoisparser.WhoisInfo, now time.Time) []Finding {
	var findings []Finding

	if info.Domain != nil && info.Domain.ExpirationDateInTime != nil {
		exp := *info.Domain.ExpirationDateInTime
		daysLeft := int(exp.Sub(now).Hours() / 24)
		evidence := map[string]interface{}{
			"expires_at": exp.Format(time.RFC3339),
			"days_left":  daysLeft,
		}
		switch {
		case !exp.After(now):
			findings = append(findings, Finding{
				Type:        "whois_domain_expired",
				Severity:    SeverityHigh,
				Domain:      domain,
				Title:       "Domain registration expired",
				Description: fmt.Sprintf("Registration expired on %s and the domain may be released for re-registration.", exp.Format("2006-01-02")),
				Evidence:    evidence,
				SourceProbe: probeName,
			})
		case daysLeft < 30:
			findings = append(findings, Finding{
				Type:        "whois_expiring_soon",
				Severity:    SeverityHigh,
				Domain:      domain,
				Title:       "Domain registration expires within 30 days",
				Description: fmt.Sprintf("Registration expires on %s.", exp.Format("2006-01-02")),
				Evidence:    evidence,
				SourceProbe: probeName,
			})
		case daysLeft < 90:
			findings = append(findings, Finding{
				Type:        "whois_expiring_soon",
				Severity:    SeverityMedium,
				Domain:      domain,
				Title:       "Domain registration expires within 90 days",
				Description: fmt.Sprintf("Registration expires on %s.", exp.Format("2006-01-02")),
				Evidence:    evidence,
				SourceProbe: probeName,
			})
		}
	}

	if info.Domain != nil && info.Domain.CreatedDateInTime != nil {
		created := *info.Domain.CreatedDateInTime
		ageDays := int(now.Sub(created).Hours() / 24)
		if ageDays >= 0 && ageDays < 30 {
			findings = append(findings, Finding{
				Type:        "whois_young_domain",
				Severity:    SeverityMedium,
				Domain:      domain,
				Title:       "Domain registered less than 30 days ago",
				Description: fmt.Sprintf("Domain was registered on %s. Recently registered domains are a common phishing signal.", created.Format("2006-01-02")),
				Evidence: map[string]interface{}{
					"created_at": created.Format(time.RFC3339),
					"age_days":   ageDays,
				},
				SourceProbe: probeName,
			})
		}
	}

	if f := registrantExposure(probeName, domain, info.Registrant); f != nil {
		findings = append(findings, *f)
	}

	return findings
}

func registrantExposure(probeName, domain string, registrant *whoisparser.Contact) *Finding {
	if registrant == nil {
		return nil
	}

	evidence := map[string]interface{}{}
	if email := strings.TrimSpace(registrant.Email); email != "" && !redactedValue(email) {
		evidence["email"] = email
	}
	if phone := strings.TrimSpace(registrant.Phone); phone != "" && !redactedValue(phone) {
		evidence["phone"] = phone
	}
	if name := strings.TrimSpace(registrant.Name); name != "" && !redactedValue(name) {
		evidence["name"] = name
	}
	if len(evidence) == 0 {
		return nil
	}

	return &Finding{
		Type:        "whois_registrant_exposed",
		Severity:    SeverityInfo,
		Domain:      domain,
		Title:       "Registrant contact details visible in WHOIS",
		Description: "Registration records expose registrant contact details instead of a privacy proxy.",
		Evidence:    evidence,
		SourceProbe: probeName,
	}
}

func redactedValue(v string) bool {
	lower := strings.ToLower(v)
	for _, marker := range []string{"redacted", "privacy", "withheld", "gdpr"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (p *WhoisProbe) simulated(domain string) []Finding {
	return []Finding{
		{
			Type:        "whois_expiring_soon",
			Severity:    SeverityMedium,
			Domain:      domain,
			Title:       "Domain registration expires within 90 days",
			Evidence:    map[string]interface{}{"simulated": true, "days_left": 60},
			SourceProbe: p.Name(),
		},
	}
}
