// Package testutil provides testing utilities for the anomradar application
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AnomFIN/AnomRadar/pkg/engine"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// ProbeResponse scripts how a StubProbe reacts for one domain.
type ProbeResponse struct {
	Findings []probes.Finding
	Err      error
	Delay    time.Duration
	Panic    string
}

// StubProbe implements probes.Probe with scripted responses per domain.
type StubProbe struct {
	ProbeName     string
	ProbePriority int
	Default       ProbeResponse

	mu        sync.RWMutex
	responses map[string]ProbeResponse
	calls     []string
}

func NewStubProbe(name string, priority int) *StubProbe {
	return &StubProbe{
		ProbeName:     name,
		ProbePriority: priority,
		responses:     make(map[string]ProbeResponse),
	}
}

func (p *StubProbe) Name() string  { return p.ProbeName }
func (p *StubProbe) Priority() int { return p.ProbePriority }

// SetResponse scripts the reaction for one domain. Domains without a
// scripted response get the Default.
func (p *StubProbe) SetResponse(domain string, response ProbeResponse) {
	p.mu.Lock()
	p.responses[domain] = response
	p.mu.Unlock()
}

func (p *StubProbe) Run(ctx context.Context, domain string, cfg probes.Config) ([]probes.Finding, error) {
	p.mu.Lock()
	p.calls = append(p.calls, domain)
	response, scripted := p.responses[domain]
	p.mu.Unlock()

	if !scripted {
		response = p.Default
	}

	if response.Panic != "" {
		panic(response.Panic)
	}
	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if response.Err != nil {
		return nil, response.Err
	}

	findings := make([]probes.Finding, len(response.Findings))
	copy(findings, response.Findings)
	for i := range findings {
		if findings[i].Domain == "" {
			findings[i].Domain = domain
		}
		if findings[i].SourceProbe == "" {
			findings[i].SourceProbe = p.ProbeName
		}
	}
	return findings, nil
}

// Calls returns the domains Run was invoked with, in call order.
func (p *StubProbe) Calls() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	calls := make([]string, len(p.calls))
	copy(calls, p.calls)
	return calls
}

// StubDiscoverer implements probes.Discoverer with a fixed result.
type StubDiscoverer struct {
	DiscovererName string
	Result         probes.Discovery
	Err            error
	Delay          time.Duration

	mu    sync.Mutex
	calls []string
}

func (d *StubDiscoverer) Name() string { return d.DiscovererName }

func (d *StubDiscoverer) Discover(ctx context.Context, seed string, cfg probes.Config) (probes.Discovery, error) {
	d.mu.Lock()
	d.calls = append(d.calls, seed)
	d.mu.Unlock()

	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return probes.Discovery{}, ctx.Err()
		}
	}
	if d.Err != nil {
		return probes.Discovery{}, d.Err
	}
	return d.Result, nil
}

func (d *StubDiscoverer) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls := make([]string, len(d.calls))
	copy(calls, d.calls)
	return calls
}

// CollectingSink implements engine.Sink and records every stored
// result.
type CollectingSink struct {
	StoreErr error

	mu      sync.Mutex
	results []*engine.ScanResult
}

func (s *CollectingSink) Store(result *engine.ScanResult) error {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	return s.StoreErr
}

func (s *CollectingSink) Results() []*engine.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]*engine.ScanResult, len(s.results))
	copy(results, s.results)
	return results
}

func (s *CollectingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// TempDir creates a temporary directory for testing and returns a cleanup function
func TempDir(t *testing.T, prefix string) (string, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			t.Errorf("Failed to clean up temp dir %s: %v", dir, err)
		}
	}

	return dir, cleanup
}

// CreateTestFile creates a test file with the given content
func CreateTestFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", filePath, err)
	}

	return filePath
}

// WithTimeout creates a context with timeout for tests
func WithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// AssertNoError asserts that the error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertError asserts that an error occurred
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

// AssertEquals asserts that two values are equal
func AssertEquals(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("Expected %v, got %v", expected, actual)
	}
}
