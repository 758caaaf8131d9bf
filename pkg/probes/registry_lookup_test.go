package probes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
)

const registryFixture = `{
  "totalResults": 3,
  "companies": [
    {
      "businessId": {"value": "1234567-8"},
      "names": [
        {"name": "Testi Softa Oy", "type": "1"},
        {"name": "TS Consulting", "type": "2"}
      ],
      "website": {"url": "https://www.testisofta.fi/"}
    },
    {
      "businessId": {"value": "2345678-9"},
      "names": [{"name": "Testi Holding Oy", "type": "1"}]
    },
    {
      "businessId": {"value": "3456789-0"},
      "names": [{"name": "Testi Sivuliike Oy", "type": "1"}],
      "website": {"url": "www.testisofta.fi"}
    }
  ]
}`

func registryTestServer(t *testing.T, handler http.HandlerFunc) (*RegistryLookup, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRegistryLookup(srv.URL, nil), srv
}

func registryConfig() Config {
	return Config{Timeout: 2 * time.Second, UserAgent: "test-agent"}
}

func TestRegistryLookupByName(t *testing.T) {
	var gotQuery string
	lookup, _ := registryTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/companies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing accept header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(registryFixture))
	})

	result, err := lookup.Discover(context.Background(), "Testi Softa Oy", registryConfig())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if gotQuery != "name=Testi+Softa+Oy" {
		t.Errorf("expected name query, got %s", gotQuery)
	}

	// Both website records point at the same host, deduplicated.
	if len(result.Domains) != 1 || result.Domains[0] != "www.testisofta.fi" {
		t.Errorf("expected single deduplicated domain, got %v", result.Domains)
	}

	types := findingTypes(result.Findings)
	if _, ok := types["discovery_related_domain"]; !ok {
		t.Errorf("expected discovery_related_domain, got %v", types)
	}
	if _, ok := types["registry_no_website"]; !ok {
		t.Errorf("expected registry_no_website for company without site, got %v", types)
	}

	for _, f := range result.Findings {
		if f.Type == "registry_no_website" {
			if f.Domain != "" {
				t.Errorf("company-level finding must not carry a domain, got %q", f.Domain)
			}
			if f.Evidence["company"] != "Testi Holding Oy" {
				t.Errorf("unexpected company evidence %v", f.Evidence)
			}
		}
	}
}

func TestRegistryLookupByBusinessID(t *testing.T) {
	var gotQuery string
	lookup, _ := registryTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"totalResults": 0, "companies": []}`))
	})

	if _, err := lookup.Discover(context.Background(), "1234567-8", registryConfig()); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if gotQuery != "businessId=1234567-8" {
		t.Errorf("expected businessId query, got %s", gotQuery)
	}
}

func TestRegistryLookupSkipsDomainSeeds(t *testing.T) {
	called := false
	lookup, _ := registryTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"totalResults": 0, "companies": []}`))
	})

	result, err := lookup.Discover(context.Background(), "example.fi", registryConfig())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if called {
		t.Error("registry must not be queried for domain seeds")
	}
	if len(result.Domains) != 0 || len(result.Findings) != 0 {
		t.Errorf("expected empty discovery, got %+v", result)
	}
}

func TestRegistryLookupUnavailable(t *testing.T) {
	lookup, _ := registryTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := lookup.Discover(context.Background(), "Testi Softa Oy", registryConfig())
	if err == nil {
		t.Fatal("expected error for upstream failure")
	}
	if !errors.Is(err, apperrors.ErrRegistryUnavailable) {
		t.Errorf("expected ErrRegistryUnavailable, got %v", err)
	}

	var discErr *apperrors.DiscoveryError
	if !errors.As(err, &discErr) {
		t.Errorf("expected DiscoveryError wrapper, got %T", err)
	}
}

func TestRegistryLookupCapsMatches(t *testing.T) {
	// Eight companies with distinct websites, only the first five count.
	body := `{"totalResults": 8, "companies": [`
	for i := 0; i < 8; i++ {
		if i > 0 {
			body += ","
		}
		host := string(rune('a'+i)) + "-testi.fi"
		body += `{"businessId": {"value": "100000` + string(rune('0'+i)) + `-1"},
			"names": [{"name": "Testi ` + string(rune('A'+i)) + ` Oy", "type": "1"}],
			"website": {"url": "https://` + host + `"}}`
	}
	body += `]}`

	lookup, _ := registryTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	result, err := lookup.Discover(context.Background(), "Testi", registryConfig())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(result.Domains) != maxRegistryMatches {
		t.Errorf("expected %d domains, got %d", maxRegistryMatches, len(result.Domains))
	}
}

func TestRegistryLookupSimulation(t *testing.T) {
	lookup := NewRegistryLookup("", nil)

	result, err := lookup.Discover(context.Background(), "Testi Softa Oy", Config{Simulation: true})
	if err != nil {
		t.Fatalf("simulated discovery failed: %v", err)
	}
	if len(result.Domains) != 1 || result.Domains[0] != "testisofta.fi" {
		t.Errorf("expected slug-derived domain, got %v", result.Domains)
	}
}

func TestHostFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.example.fi/", "www.example.fi"},
		{"www.example.fi", "www.example.fi"},
		{"HTTP://Example.FI/path?q=1", "example.fi"},
		{"example.fi.", "example.fi"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := hostFromURL(tt.raw); got != tt.want {
			t.Errorf("hostFromURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestLooksLikeDomain(t *testing.T) {
	if !looksLikeDomain("example.fi") {
		t.Error("example.fi should look like a domain")
	}
	if looksLikeDomain("Testi Softa Oy") {
		t.Error("company name should not look like a domain")
	}
	if looksLikeDomain("Testi Softa Oy.") {
		t.Error("name with spaces should not look like a domain")
	}
}

func TestPrimaryName(t *testing.T) {
	company := registryCompany{
		Names: []registryName{
			{Name: "Aux Name", Type: "2"},
			{Name: "Official Name Oy", Type: "1"},
		},
	}
	if got := primaryName(company); got != "Official Name Oy" {
		t.Errorf("primaryName = %q", got)
	}

	fallback := registryCompany{Names: []registryName{{Name: "Only Name", Type: "3"}}}
	if got := primaryName(fallback); got != "Only Name" {
		t.Errorf("fallback primaryName = %q", got)
	}

	if got := primaryName(registryCompany{}); got != "" {
		t.Errorf("empty company primaryName = %q", got)
	}
}
