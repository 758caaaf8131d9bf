package probes

import (
	"context"
	"testing"
	"time"
)

func TestWatchedPortsTable(t *testing.T) {
	seen := map[int]bool{}
	for _, spec := range watchedPorts {
		if seen[spec.Port] {
			t.Errorf("port %d listed twice", spec.Port)
		}
		seen[spec.Port] = true

		if spec.Service == "" || spec.Type == "" || spec.Title == "" {
			t.Errorf("incomplete spec for port %d: %+v", spec.Port, spec)
		}
		if !spec.Severity.Valid() {
			t.Errorf("port %d has invalid severity %q", spec.Port, spec.Severity)
		}
	}

	// Cleartext admin protocols must outrank the plain service ports.
	ranks := map[int]int{}
	for _, spec := range watchedPorts {
		ranks[spec.Port] = spec.Severity.Rank()
	}
	if ranks[23] <= ranks[22] {
		t.Error("telnet should rank above ssh")
	}
	if ranks[3306] <= ranks[80] {
		t.Error("exposed database should rank above a web port")
	}
}

func TestPortsProbeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := NewPortsProbe()
	findings, err := probe.Run(ctx, "192.0.2.10", Config{Timeout: time.Second})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if findings != nil {
		t.Errorf("cancelled probe must not return findings, got %d", len(findings))
	}
}

func TestPortsProbeSimulation(t *testing.T) {
	probe := NewPortsProbe()

	findings, err := probe.Run(context.Background(), "example.fi", Config{Simulation: true})
	if err != nil {
		t.Fatalf("simulated run failed: %v", err)
	}
	if len(findings) != 1 || findings[0].Type != "port_web_service" {
		t.Errorf("unexpected simulated findings %v", findingTypes(findings))
	}
	if findings[0].Evidence["port"] != 443 {
		t.Errorf("unexpected simulated evidence %v", findings[0].Evidence)
	}
}
