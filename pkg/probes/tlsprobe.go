package probes

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"
)

// TLSProbe connects to port 443 and grades the served certificate:
// validity window, self-signed issuers and hostname mismatches.
type TLSProbe struct{}

func NewTLSProbe() *TLSProbe {
	return &TLSProbe{}
}

func (p *TLSProbe) Name() string  { return "tls" }
func (p *TLSProbe) Priority() int { return PriorityTLS }

func (p *TLSProbe) Run(ctx context.Context, domain string, cfg Config) ([]Finding, error) {
	if cfg.Simulation {
		return p.simulated(domain), nil
	}

	dialer := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: cfg.Timeout},
		Config: &tls.Config{
			ServerName: domain,
			// verification happens in evaluateCertificate so that a
			// broken chain still yields findings instead of no data
			InsecureSkipVerify: true,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(domain, "443"))
	if err != nil {
		return nil, fmt.Errorf("tls handshake with %s: %w", domain, err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, fmt.Errorf("unexpected connection type for %s", domain)
	}

	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificate presented by %s", domain)
	}

	return evaluateCertificate(p.Name(), domain, certs[0], len(certs), time.Now()), nil
}

func evaluateCertificate(probeName, domain string, leaf *x509.Certificate, chainLen int, now time.Time) []Finding {
	var findings []Finding

	evidence := map[string]interface{}{
		"subject":   leaf.Subject.String(),
		"issuer":    leaf.Issuer.String(),
		"not_after": leaf.NotAfter.Format(time.RFC3339),
	}

	daysLeft := int(leaf.NotAfter.Sub(now).Hours() / 24)

	switch {
	case now.After(leaf.NotAfter):
		findings = append(findings, Finding{
			Type:        "tls_certificate_expired",
			Severity:    SeverityCritical,
			Domain:      domain,
			Title:       "TLS certificate has expired",
			Description: fmt.Sprintf("The certificate expired on %s.", leaf.NotAfter.Format("2006-01-02")),
			Evidence:    evidence,
			SourceProbe: probeName,
		})
	case daysLeft < 30:
		findings = append(findings, Finding{
			Type:        "tls_certificate_expiring_soon",
			Severity:    SeverityHigh,
			Domain:      domain,
			Title:       "TLS certificate expires within 30 days",
			Description: fmt.Sprintf("The certificate expires in %d days.", daysLeft),
			Evidence:    evidence,
			SourceProbe: probeName,
		})
	case daysLeft < 90:
		findings = append(findings, Finding{
			Type:        "tls_certificate_expiring_soon",
			Severity:    SeverityMedium,
			Domain:      domain,
			Title:       "TLS certificate expires within 90 days",
			Description: fmt.Sprintf("The certificate expires in %d days.", daysLeft),
			Evidence:    evidence,
			SourceProbe: probeName,
		})
	default:
		findings = append(findings, Finding{
			Type:        "tls_certificate_valid",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "TLS certificate is valid",
			Description: fmt.Sprintf("The certificate is valid until %s.", leaf.NotAfter.Format("2006-01-02")),
			Evidence:    evidence,
			SourceProbe: probeName,
		})
	}

	if chainLen == 1 && leaf.Issuer.String() == leaf.Subject.String() {
		findings = append(findings, Finding{
			Type:        "tls_self_signed",
			Severity:    SeverityHigh,
			Domain:      domain,
			Title:       "Self-signed TLS certificate",
			Description: "The served certificate is not issued by a trusted authority.",
			Evidence:    evidence,
			SourceProbe: probeName,
		})
	}

	if err := leaf.VerifyHostname(domain); err != nil {
		findings = append(findings, Finding{
			Type:        "tls_hostname_mismatch",
			Severity:    SeverityHigh,
			Domain:      domain,
			Title:       "Certificate does not match hostname",
			Description: fmt.Sprintf("The certificate is not valid for %s.", domain),
			Evidence:    evidence,
			SourceProbe: probeName,
		})
	}

	return findings
}

func (p *TLSProbe) simulated(domain string) []Finding {
	return []Finding{
		{
			Type:        "tls_certificate_valid",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "TLS certificate is valid",
			Evidence:    map[string]interface{}{"simulated": true},
			SourceProbe: p.Name(),
		},
	}
}
