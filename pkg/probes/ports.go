package probes

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// PortsProbe checks TCP reachability of a short list of well-known
// service ports. Connections are opened and closed immediately, no
// payload is ever sent.
type PortsProbe struct{}

func NewPortsProbe() *PortsProbe {
	return &PortsProbe{}
}

func (p *PortsProbe) Name() string  { return "ports" }
func (p *PortsProbe) Priority() int { return PriorityPorts }

type portSpec struct {
	Port     int
	Service  string
	Type     string
	Severity Severity
	Title    string
}

var watchedPorts = []portSpec{
	{21, "ftp", "port_ftp_exposed", SeverityMedium, "FTP service reachable"},
	{22, "ssh", "port_remote_access", SeverityLow, "SSH service reachable"},
	{23, "telnet", "port_telnet_exposed", SeverityHigh, "Telnet service reachable"},
	{25, "smtp", "port_mail_service", SeverityInfo, "SMTP service reachable"},
	{80, "http", "port_web_service", SeverityInfo, "HTTP service reachable"},
	{110, "pop3", "port_plaintext_mail", SeverityLow, "POP3 service reachable"},
	{143, "imap", "port_plaintext_mail", SeverityLow, "IMAP service reachable"},
	{443, "https", "port_web_service", SeverityInfo, "HTTPS service reachable"},
	{3306, "mysql", "port_database_exposed", SeverityHigh, "MySQL service reachable"},
	{3389, "rdp", "port_remote_desktop", SeverityMedium, "Remote desktop reachable"},
	{5432, "postgresql", "port_database_exposed", SeverityHigh, "PostgreSQL service reachable"},
	{8080, "http-alt", "port_web_service", SeverityInfo, "Alternate HTTP service reachable"},
}

const dialWorkers = 4

func (p *PortsProbe) Run(ctx context.Context, domain string, cfg Config) ([]Finding, error) {
	if cfg.Simulation {
		return p.simulated(domain), nil
	}

	perDial := cfg.Timeout / 4
	if perDial < time.Second {
		perDial = time.Second
	}

	type dialResult struct {
		spec portSpec
		open bool
	}

	jobs := make(chan portSpec, len(watchedPorts))
	results := make(chan dialResult, len(watchedPorts))

	var wg sync.WaitGroup
	for i := 0; i < dialWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dialer := &net.Dialer{Timeout: perDial}
			for spec := range jobs {
				if ctx.Err() != nil {
					results <- dialResult{spec: spec, open: false}
					continue
				}
				addr := net.JoinHostPort(domain, strconv.Itoa(spec.Port))
				conn, err := dialer.DialContext(ctx, "tcp", addr)
				if err == nil {
					conn.Close()
				}
				results <- dialResult{spec: spec, open: err == nil}
			}
		}()
	}

	for _, spec := range watchedPorts {
		jobs <- spec
	}
	close(jobs)
	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var open []portSpec
	for res := range results {
		if res.open {
			open = append(open, res.spec)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Port < open[j].Port })

	findings := make([]Finding, 0, len(open))
	for _, spec := range open {
		findings = append(findings, Finding{
			Type:        spec.Type,
			Severity:    spec.Severity,
			Domain:      domain,
			Title:       spec.Title,
			Description: fmt.Sprintf("TCP port %d (%s) accepts connections.", spec.Port, spec.Service),
			Evidence:    map[string]interface{}{"port": spec.Port, "service": spec.Service},
			SourceProbe: p.Name(),
		})
	}

	return findings, nil
}

func (p *PortsProbe) simulated(domain string) []Finding {
	return []Finding{
		{
			Type:        "port_web_service",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "HTTPS service reachable",
			Evidence:    map[string]interface{}{"simulated": true, "port": 443, "service": "https"},
			SourceProbe: p.Name(),
		},
	}
}
