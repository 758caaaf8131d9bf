package engine_test

import (
	"reflect"
	"testing"

	"github.com/AnomFIN/AnomRadar/pkg/engine"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

var testPriorityIndex = map[string]int{
	"dns":  0,
	"tls":  1,
	"http": 2,
}

func TestAggregate_DeduplicatesKeepingHighestSeverity(t *testing.T) {
	// Two probes report the same weakness for the same domain at
	// different severities.
	outcomes := []engine.Outcome{
		{
			ProbeName: "dns",
			Domain:    "example.com",
			Status:    engine.OutcomeOK,
			Findings: []probes.Finding{{
				Type:     "email_no_dmarc",
				Severity: probes.SeverityMedium,
				Domain:   "example.com",
				Evidence: map[string]interface{}{"resolver": "8.8.8.8"},
			}},
		},
		{
			ProbeName: "http",
			Domain:    "example.com",
			Status:    engine.OutcomeOK,
			Findings: []probes.Finding{{
				Type:     "email_no_dmarc",
				Severity: probes.SeverityHigh,
				Domain:   "example.com",
				Evidence: map[string]interface{}{"header": "missing"},
			}},
		},
	}

	findings := engine.Aggregate(outcomes, testPriorityIndex)

	if len(findings) != 1 {
		t.Fatalf("Expected 1 deduplicated finding, got %d", len(findings))
	}
	kept := findings[0]
	if kept.Severity != probes.SeverityHigh {
		t.Errorf("Expected the high severity entry to win, got %s", kept.Severity)
	}

	merged, ok := kept.Evidence["merged"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Expected merged evidence, got %#v", kept.Evidence)
	}
	if len(merged) != 1 || merged[0]["resolver"] != "8.8.8.8" {
		t.Errorf("Dropped duplicate's evidence should be merged, got %#v", merged)
	}
	// the winner's own evidence stays at the top level
	if kept.Evidence["header"] != "missing" {
		t.Errorf("Winner evidence should be preserved, got %#v", kept.Evidence)
	}
}

func TestAggregate_DeterministicUnderPermutation(t *testing.T) {
	outcomes := []engine.Outcome{
		{
			ProbeName: "http",
			Domain:    "b.example",
			Status:    engine.OutcomeOK,
			Findings: []probes.Finding{
				{Type: "http_no_https", Severity: probes.SeverityMedium, Domain: "b.example"},
				{Type: "http_missing_csp", Severity: probes.SeverityMedium, Domain: "b.example"},
			},
		},
		{
			ProbeName: "dns",
			Domain:    "a.example",
			Status:    engine.OutcomeOK,
			Findings: []probes.Finding{
				{Type: "email_no_spf", Severity: probes.SeverityMedium, Domain: "a.example"},
			},
		},
		{
			ProbeName: "tls",
			Domain:    "a.example",
			Status:    engine.OutcomeOK,
			Findings: []probes.Finding{
				{Type: "tls_certificate_expiring_soon", Severity: probes.SeverityHigh, Domain: "a.example"},
			},
		},
		{
			ProbeName: "dns",
			Domain:    "b.example",
			Status:    engine.OutcomeFailed,
			Error:     "resolver unreachable",
		},
	}

	expected := engine.Aggregate(outcomes, testPriorityIndex)

	// arrival order must not matter
	permuted := []engine.Outcome{outcomes[3], outcomes[1], outcomes[0], outcomes[2]}
	got := engine.Aggregate(permuted, testPriorityIndex)

	if !reflect.DeepEqual(expected, got) {
		t.Errorf("Aggregation differs under permutation:\nfirst:  %#v\nsecond: %#v", expected, got)
	}

	// and aggregation is idempotent on the same input
	again := engine.Aggregate(outcomes, testPriorityIndex)
	if !reflect.DeepEqual(expected, again) {
		t.Error("Aggregating the same outcomes twice produced different output")
	}
}

func TestAggregate_OnlyOKOutcomesContribute(t *testing.T) {
	outcomes := []engine.Outcome{
		{
			ProbeName: "dns",
			Domain:    "a.example",
			Status:    engine.OutcomeOK,
			Findings:  []probes.Finding{{Type: "email_no_spf", Severity: probes.SeverityMedium, Domain: "a.example"}},
		},
		{
			// malformed on purpose, findings on a failed outcome
			ProbeName: "tls",
			Domain:    "a.example",
			Status:    engine.OutcomeFailed,
			Findings:  []probes.Finding{{Type: "tls_self_signed", Severity: probes.SeverityHigh, Domain: "a.example"}},
		},
		{ProbeName: "http", Domain: "a.example", Status: engine.OutcomeTimedOut},
		{ProbeName: "http", Domain: "b.example", Status: engine.OutcomeSkipped},
	}

	findings := engine.Aggregate(outcomes, testPriorityIndex)

	if len(findings) != 1 {
		t.Fatalf("Only the ok outcome should contribute, got %d findings", len(findings))
	}
	if findings[0].Type != "email_no_spf" {
		t.Errorf("Unexpected surviving finding %s", findings[0].Type)
	}
}

func TestAggregate_CompanyLevelFindingsSortFirst(t *testing.T) {
	outcomes := []engine.Outcome{
		{
			ProbeName: "dns",
			Domain:    "a.example",
			Status:    engine.OutcomeOK,
			Findings:  []probes.Finding{{Type: "email_no_spf", Severity: probes.SeverityMedium, Domain: "a.example"}},
		},
		{
			ProbeName: "discovery:registry",
			Status:    engine.OutcomeOK,
			Findings:  []probes.Finding{{Type: "registry_no_website", Severity: probes.SeverityInfo}},
		},
	}

	findings := engine.Aggregate(outcomes, testPriorityIndex)

	if len(findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(findings))
	}
	if findings[0].Domain != "" {
		t.Errorf("Company-level finding should sort first, got %q", findings[0].Domain)
	}
	if findings[1].Domain != "a.example" {
		t.Errorf("Domain finding should follow, got %q", findings[1].Domain)
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	evidence := map[string]interface{}{"spf": "v=spf1 +all"}
	outcomes := []engine.Outcome{
		{
			ProbeName: "dns",
			Domain:    "a.example",
			Status:    engine.OutcomeOK,
			Findings: []probes.Finding{
				{Type: "email_spf_permissive", Severity: probes.SeverityMedium, Domain: "a.example", Evidence: evidence},
			},
		},
		{
			ProbeName: "http",
			Domain:    "a.example",
			Status:    engine.OutcomeOK,
			Findings: []probes.Finding{
				{Type: "email_spf_permissive", Severity: probes.SeverityHigh, Domain: "a.example", Evidence: map[string]interface{}{"source": "banner"}},
			},
		},
	}

	engine.Aggregate(outcomes, testPriorityIndex)

	if len(evidence) != 1 {
		t.Errorf("Input evidence was mutated: %#v", evidence)
	}
	if _, ok := outcomes[1].Findings[0].Evidence["merged"]; ok {
		t.Error("Winner's evidence in the input gained a merged key")
	}
}
