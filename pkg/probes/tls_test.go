package probes

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

func makeCert(t *testing.T, subject string, dnsNames []string, notBefore, notAfter time.Time) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: subject},
		DNSNames:     dnsNames,
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

func TestEvaluateCertificateExpiryLadder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		notAfter     time.Time
		wantType     string
		wantSeverity Severity
	}{
		{"expired", now.Add(-24 * time.Hour), "tls_certificate_expired", SeverityCritical},
		{"expires in 10 days", now.Add(10 * 24 * time.Hour), "tls_certificate_expiring_soon", SeverityHigh},
		{"expires in 60 days", now.Add(60 * 24 * time.Hour), "tls_certificate_expiring_soon", SeverityMedium},
		{"expires in a year", now.Add(365 * 24 * time.Hour), "tls_certificate_valid", SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := makeCert(t, "example.fi", []string{"example.fi"}, now.Add(-90*24*time.Hour), tt.notAfter)

			// chain length 2 keeps the self-signed check out of the way
			findings := evaluateCertificate("tls", "example.fi", cert, 2, now)
			got := findingTypes(findings)

			severity, ok := got[tt.wantType]
			if !ok {
				t.Fatalf("expected finding %s, got %v", tt.wantType, got)
			}
			if severity != tt.wantSeverity {
				t.Errorf("expected severity %s, got %s", tt.wantSeverity, severity)
			}
		})
	}
}

func TestEvaluateCertificateSelfSigned(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cert := makeCert(t, "example.fi", []string{"example.fi"}, now.Add(-time.Hour), now.Add(365*24*time.Hour))

	// A single-certificate chain with issuer == subject is self-signed.
	got := findingTypes(evaluateCertificate("tls", "example.fi", cert, 1, now))
	if severity, ok := got["tls_self_signed"]; !ok || severity != SeverityHigh {
		t.Errorf("expected high severity tls_self_signed, got %v", got)
	}

	// The same leaf in a longer chain is not flagged.
	got = findingTypes(evaluateCertificate("tls", "example.fi", cert, 2, now))
	if _, ok := got["tls_self_signed"]; ok {
		t.Errorf("did not expect tls_self_signed for chained certificate")
	}
}

func TestEvaluateCertificateHostnameMismatch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cert := makeCert(t, "other.fi", []string{"other.fi"}, now.Add(-time.Hour), now.Add(365*24*time.Hour))

	got := findingTypes(evaluateCertificate("tls", "example.fi", cert, 2, now))
	if severity, ok := got["tls_hostname_mismatch"]; !ok || severity != SeverityHigh {
		t.Errorf("expected high severity tls_hostname_mismatch, got %v", got)
	}

	evidenceChecked := false
	for _, f := range evaluateCertificate("tls", "example.fi", cert, 2, now) {
		if f.Type != "tls_hostname_mismatch" {
			continue
		}
		evidenceChecked = true
		if f.Evidence["not_after"] == "" {
			t.Errorf("mismatch finding missing not_after evidence")
		}
	}
	if !evidenceChecked {
		t.Fatal("tls_hostname_mismatch finding not present")
	}
}
