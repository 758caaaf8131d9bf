package probes

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"regexp"
)

// HTTPProbe fetches the site root and grades response headers and
// status. It tries HTTPS first and falls back to plain HTTP.
type HTTPProbe struct{}

func NewHTTPProbe() *HTTPProbe {
	return &HTTPProbe{}
}

func (p *HTTPProbe) Name() string  { return "http" }
func (p *HTTPProbe) Priority() int { return PriorityHTTP }

type httpObservation struct {
	FinalURL   string
	StatusCode int
	StartedTLS bool
	UsedTLS    bool
	Redirects  int
	Header     http.Header
}

func (p *HTTPProbe) Run(ctx context.Context, domain string, cfg Config) ([]Finding, error) {
	if cfg.Simulation {
		return p.simulated(domain), nil
	}

	obs, err := fetchRoot(ctx, domain, cfg)
	if err != nil {
		return nil, err
	}

	return evaluateHTTPObservation(p.Name(), domain, obs), nil
}

func fetchRoot(ctx context.Context, domain string, cfg Config) (httpObservation, error) {
	redirects := 0
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			// certificate quality is graded separately
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			redirects = len(via)
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		redirects = 0
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+domain+"/", nil)
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("User-Agent", cfg.UserAgent)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		return httpObservation{
			FinalURL:   resp.Request.URL.String(),
			StatusCode: resp.StatusCode,
			StartedTLS: scheme == "https",
			UsedTLS:    resp.Request.URL.Scheme == "https",
			Redirects:  redirects,
			Header:     resp.Header,
		}, nil
	}

	return httpObservation{}, fmt.Errorf("fetching %s: %w", domain, lastErr)
}

var serverVersionPattern = regexp.MustCompile(`[0-9]+\.[0-9]+`)

func evaluateHTTPObservation(probeName, domain string, obs httpObservation) []Finding {
	var findings []Finding

	missing := func(ftype string, severity Severity, header, title, description string) {
		if obs.Header.Get(header) != "" {
			return
		}
		findings = append(findings, Finding{
			Type:        ftype,
			Severity:    severity,
			Domain:      domain,
			Title:       title,
			Description: description,
			Evidence:    map[string]interface{}{"header": header, "url": obs.FinalURL},
			SourceProbe: probeName,
		})
	}

	switch {
	case obs.UsedTLS:
		missing("http_missing_hsts", SeverityMedium, "Strict-Transport-Security",
			"Strict-Transport-Security header missing",
			"Browsers are not instructed to pin future visits to HTTPS.")
	case obs.StartedTLS:
		findings = append(findings, Finding{
			Type:        "http_https_downgrade",
			Severity:    SeverityMedium,
			Domain:      domain,
			Title:       "HTTPS request redirected to plain HTTP",
			Evidence:    map[string]interface{}{"final_url": obs.FinalURL},
			SourceProbe: probeName,
		})
	default:
		findings = append(findings, Finding{
			Type:        "http_no_https",
			Severity:    SeverityMedium,
			Domain:      domain,
			Title:       "Site not served over HTTPS",
			Description: "The site root was only reachable over plain HTTP.",
			Evidence:    map[string]interface{}{"url": obs.FinalURL},
			SourceProbe: probeName,
		})
	}

	missing("http_missing_csp", SeverityMedium, "Content-Security-Policy",
		"Content-Security-Policy header missing",
		"No browser-side restriction on script and resource origins.")
	missing("http_missing_x_frame_options", SeverityLow, "X-Frame-Options",
		"X-Frame-Options header missing",
		"The site can be framed by third parties, enabling clickjacking.")
	missing("http_missing_x_content_type_options", SeverityLow, "X-Content-Type-Options",
		"X-Content-Type-Options header missing",
		"Browsers may MIME-sniff responses into executable content.")
	missing("http_missing_referrer_policy", SeverityLow, "Referrer-Policy",
		"Referrer-Policy header missing",
		"Full URLs may leak to external sites through the Referer header.")

	if server := obs.Header.Get("Server"); server != "" && serverVersionPattern.MatchString(server) {
		findings = append(findings, Finding{
			Type:        "http_server_banner",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Server version disclosed",
			Description: fmt.Sprintf("The Server header exposes %q.", server),
			Evidence:    map[string]interface{}{"server": server},
			SourceProbe: probeName,
		})
	}

	switch {
	case obs.StatusCode >= 400:
		findings = append(findings, Finding{
			Type:        "http_error_status",
			Severity:    SeverityMedium,
			Domain:      domain,
			Title:       fmt.Sprintf("Site root returns status %d", obs.StatusCode),
			Evidence:    map[string]interface{}{"status": obs.StatusCode, "url": obs.FinalURL},
			SourceProbe: probeName,
		})
	case obs.StatusCode >= 300:
		findings = append(findings, Finding{
			Type:        "http_unresolved_redirect",
			Severity:    SeverityLow,
			Domain:      domain,
			Title:       "Site root ends in a redirect",
			Evidence:    map[string]interface{}{"status": obs.StatusCode, "url": obs.FinalURL},
			SourceProbe: probeName,
		})
	case obs.Redirects > 0:
		findings = append(findings, Finding{
			Type:        "http_redirect",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Site root redirects",
			Evidence:    map[string]interface{}{"redirects": obs.Redirects, "final_url": obs.FinalURL},
			SourceProbe: probeName,
		})
	}

	return findings
}

func (p *HTTPProbe) simulated(domain string) []Finding {
	return []Finding{
		{
			Type:        "http_missing_csp",
			Severity:    SeverityMedium,
			Domain:      domain,
			Title:       "Content-Security-Policy header missing",
			Evidence:    map[string]interface{}{"simulated": true},
			SourceProbe: p.Name(),
		},
		{
			Type:        "http_server_banner",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Server version disclosed",
			Evidence:    map[string]interface{}{"simulated": true},
			SourceProbe: p.Name(),
		},
	}
}
