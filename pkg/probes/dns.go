package probes

import (
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"github.com/AnomFIN/AnomRadar/pkg/cache"
)

// DNSProbe checks address records and the email authentication posture
// of a domain: MX, SPF, DMARC and CAA.
type DNSProbe struct {
	cache *cache.Cache
}

func NewDNSProbe(c *cache.Cache) *DNSProbe {
	return &DNSProbe{cache: c}
}

func (p *DNSProbe) Name() string  { return "dns" }
func (p *DNSProbe) Priority() int { return PriorityDNS }

type dnsRecords struct {
	A     []string `json:"a"`
	AAAA  []string `json:"aaaa"`
	MX    []string `json:"mx"`
	NS    []string `json:"ns"`
	TXT   []string `json:"txt"`
	DMARC []string `json:"dmarc"`
	CAA   []string `json:"caa"`
}

func (p *DNSProbe) Run(ctx context.Context, domain string, cfg Config) ([]Finding, error) {
	if cfg.Simulation {
		return p.simulated(domain), nil
	}

	var recs dnsRecords
	if p.cache != nil && p.cache.Get("dns", domain, &recs) {
		return p.evaluate(domain, recs), nil
	}

	recs, err := p.lookup(ctx, domain, cfg)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set("dns", domain, recs); err != nil {
			// cache failures never fail the probe
			_ = err
		}
	}

	return p.evaluate(domain, recs), nil
}

func (p *DNSProbe) lookup(ctx context.Context, domain string, cfg Config) (dnsRecords, error) {
	var recs dnsRecords

	answers, err := exchange(ctx, domain, dns.TypeA, cfg)
	if err != nil {
		return recs, fmt.Errorf("resolving %s: %w", domain, err)
	}
	for _, rr := range answers {
		if a, ok := rr.(*dns.A); ok {
			recs.A = append(recs.A, a.A.String())
		}
	}

	if answers, err := exchange(ctx, domain, dns.TypeAAAA, cfg); err == nil {
		for _, rr := range answers {
			if aaaa, ok := rr.(*dns.AAAA); ok {
				recs.AAAA = append(recs.AAAA, aaaa.AAAA.String())
			}
		}
	}

	if answers, err := exchange(ctx, domain, dns.TypeMX, cfg); err == nil {
		for _, rr := range answers {
			if mx, ok := rr.(*dns.MX); ok {
				recs.MX = append(recs.MX, fmt.Sprintf("%d %s", mx.Preference, strings.TrimSuffix(mx.Mx, ".")))
			}
		}
	}

	if answers, err := exchange(ctx, domain, dns.TypeNS, cfg); err == nil {
		for _, rr := range answers {
			if ns, ok := rr.(*dns.NS); ok {
				recs.NS = append(recs.NS, strings.TrimSuffix(ns.Ns, "."))
			}
		}
	}

	if answers, err := exchange(ctx, domain, dns.TypeTXT, cfg); err == nil {
		for _, rr := range answers {
			if txt, ok := rr.(*dns.TXT); ok {
				recs.TXT = append(recs.TXT, strings.Join(txt.Txt, ""))
			}
		}
	}

	if answers, err := exchange(ctx, "_dmarc."+domain, dns.TypeTXT, cfg); err == nil {
		for _, rr := range answers {
			if txt, ok := rr.(*dns.TXT); ok {
				recs.DMARC = append(recs.DMARC, strings.Join(txt.Txt, ""))
			}
		}
	}

	if answers, err := exchange(ctx, domain, dns.TypeCAA, cfg); err == nil {
		for _, rr := range answers {
			if caa, ok := rr.(*dns.CAA); ok {
				recs.CAA = append(recs.CAA, fmt.Sprintf("%d %s %q", caa.Flag, caa.Tag, caa.Value))
			}
		}
	}

	return recs, nil
}

// exchange queries the configured resolvers in order and returns the
// first answer section obtained.
func exchange(ctx context.Context, name string, qtype uint16, cfg Config) ([]dns.RR, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)

	c := dns.Client{Timeout: cfg.Timeout}

	var lastErr error
	for _, resolver := range cfg.Resolvers {
		in, _, err := c.ExchangeContext(ctx, m, resolver)
		if err != nil {
			lastErr = err
			continue
		}
		if in == nil {
			continue
		}
		return in.Answer, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no resolvers configured")
	}
	return nil, lastErr
}

func (p *DNSProbe) evaluate(domain string, recs dnsRecords) []Finding {
	var findings []Finding

	if len(recs.A)+len(recs.AAAA) == 0 {
		findings = append(findings, Finding{
			Type:        "dns_no_address",
			Severity:    SeverityLow,
			Domain:      domain,
			Title:       "Domain does not resolve to an address",
			Description: "No A or AAAA records were found. The domain may be parked or misconfigured.",
			SourceProbe: p.Name(),
		})
	}

	if len(recs.MX) == 0 {
		findings = append(findings, Finding{
			Type:        "email_no_mx",
			Severity:    SeverityLow,
			Domain:      domain,
			Title:       "No MX records configured",
			Description: "The domain cannot receive mail. Spoofed mail from it is harder to detect without sender policies.",
			SourceProbe: p.Name(),
		})
	}

	spf := firstWithPrefix(recs.TXT, "v=spf1")
	if spf == "" {
		findings = append(findings, Finding{
			Type:           "email_no_spf",
			Severity:       SeverityMedium,
			Domain:         domain,
			Title:          "No SPF record published",
			Description:    "Anyone can send mail claiming to originate from this domain.",
			Recommendation: "Add SPF record to prevent email spoofing",
			Evidence:       map[string]interface{}{"txt_records": len(recs.TXT)},
			SourceProbe:    p.Name(),
		})
	} else if strings.Contains(spf, "+all") {
		findings = append(findings, Finding{
			Type:           "email_spf_permissive",
			Severity:       SeverityMedium,
			Domain:         domain,
			Title:          "SPF record allows any sender",
			Description:    "The SPF record ends in +all which authorizes every host to send mail for the domain.",
			Recommendation: "Replace +all with ~all or -all",
			Evidence:       map[string]interface{}{"spf": spf},
			SourceProbe:    p.Name(),
		})
	}

	dmarc := firstWithPrefix(recs.DMARC, "v=DMARC1")
	if dmarc == "" {
		findings = append(findings, Finding{
			Type:           "email_no_dmarc",
			Severity:       SeverityMedium,
			Domain:         domain,
			Title:          "No DMARC policy published",
			Description:    "Receiving servers get no instruction on how to treat mail that fails authentication.",
			Recommendation: "Add DMARC record for email authentication",
			SourceProbe:    p.Name(),
		})
	} else if policy := dmarcPolicy(dmarc); policy == "none" {
		findings = append(findings, Finding{
			Type:           "email_dmarc_policy_none",
			Severity:       SeverityLow,
			Domain:         domain,
			Title:          "DMARC policy set to none",
			Description:    "DMARC is published but enforces nothing. Failing mail is still delivered.",
			Recommendation: "Move the DMARC policy to quarantine or reject",
			Evidence:       map[string]interface{}{"dmarc": dmarc},
			SourceProbe:    p.Name(),
		})
	}

	if len(recs.CAA) == 0 {
		findings = append(findings, Finding{
			Type:        "dns_no_caa",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "No CAA records published",
			Description: "Any certificate authority may issue certificates for this domain.",
			SourceProbe: p.Name(),
		})
	}

	return findings
}

func firstWithPrefix(records []string, prefix string) string {
	for _, r := range records {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(r)), strings.ToLower(prefix)) {
			return strings.TrimSpace(r)
		}
	}
	return ""
}

func dmarcPolicy(record string) string {
	for _, part := range strings.Split(record, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "p=") {
			return strings.ToLower(strings.TrimPrefix(part, "p="))
		}
	}
	return ""
}

func (p *DNSProbe) simulated(domain string) []Finding {
	return []Finding{
		{
			Type:        "email_no_dmarc",
			Severity:    SeverityMedium,
			Domain:      domain,
			Title:       "No DMARC policy published",
			Evidence:    map[string]interface{}{"simulated": true},
			SourceProbe: p.Name(),
		},
		{
			Type:        "dns_no_caa",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "No CAA records published",
			Evidence:    map[string]interface{}{"simulated": true},
			SourceProbe: p.Name(),
		},
	}
}
