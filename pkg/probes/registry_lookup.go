package probes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/AnomFIN/AnomRadar/pkg/cache"
	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
)

const defaultRegistryBaseURL = "https://avoindata.prh.fi/opendata-ytj-api/v3"

// maxRegistryMatches caps how many companies a name search may expand
// into. Broad names like "Testi" match hundreds of records.
const maxRegistryMatches = 5

// RegistryLookup resolves company names and business ids through the
// Finnish business registry open-data API and returns the registered
// website domains.
type RegistryLookup struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache
}

func NewRegistryLookup(baseURL string, c *cache.Cache) *RegistryLookup {
	if baseURL == "" {
		baseURL = defaultRegistryBaseURL
	}
	return &RegistryLookup{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
		cache:   c,
	}
}

func (r *RegistryLookup) Name() string { return "registry" }

type registryResponse struct {
	TotalResults int               `json:"totalResults"`
	Companies    []registryCompany `json:"companies"`
}

type registryCompany struct {
	BusinessID registryValue    `json:"businessId"`
	Names      []registryName   `json:"names"`
	Website    *registryWebsite `json:"website"`
}

type registryValue struct {
	Value string `json:"value"`
}

type registryName struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type registryWebsite struct {
	URL string `json:"url"`
}

var businessIDPattern = regexp.MustCompile(`^\d{7}-\d$`)

func (r *RegistryLookup) Discover(ctx context.Context, seed string, cfg Config) (Discovery, error) {
	if looksLikeDomain(seed) {
		return Discovery{}, nil
	}
	if cfg.Simulation {
		return r.simulated(seed), nil
	}

	var resp registryResponse
	if r.cache == nil || !r.cache.Get("prh", seed, &resp) {
		fetched, err := r.query(ctx, seed, cfg)
		if err != nil {
			return Discovery{}, apperrors.NewDiscoveryError(seed, err)
		}
		resp = fetched
		if r.cache != nil {
			r.cache.Set("prh", seed, resp)
		}
	}

	return r.evaluate(seed, resp), nil
}

func (r *RegistryLookup) query(ctx context.Context, seed string, cfg Config) (registryResponse, error) {
	params := url.Values{}
	if businessIDPattern.MatchString(seed) {
		params.Set("businessId", seed)
	} else {
		params.Set("name", seed)
	}

	endpoint := r.baseURL + "/companies?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return registryResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", cfg.UserAgent)

	httpResp, err := r.client.Do(req)
	if err != nil {
		return registryResponse{}, fmt.Errorf("%w: %v", apperrors.ErrRegistryUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return registryResponse{}, fmt.Errorf("%w: status %d", apperrors.ErrRegistryUnavailable, httpResp.StatusCode)
	}

	var decoded registryResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return registryResponse{}, fmt.Errorf("%w: decode response: %v", apperrors.ErrRegistryUnavailable, err)
	}
	return decoded, nil
}

func (r *RegistryLookup) evaluate(seed string, resp registryResponse) Discovery {
	var result Discovery
	seen := map[string]bool{}

	companies := resp.Companies
	if len(companies) > maxRegistryMatches {
		companies = companies[:maxRegistryMatches]
	}

	for _, company := range companies {
		companyName := primaryName(company)
		businessID := company.BusinessID.Value

		host := ""
		if company.Website != nil {
			host = hostFromURL(company.Website.URL)
		}
		if host == "" {
			result.Findings = append(result.Findings, Finding{
				Type:        "registry_no_website",
				Severity:    SeverityInfo,
				Title:       "Company has no registered website",
				Description: fmt.Sprintf("Business registry record for %q lists no website.", companyName),
				Evidence: map[string]interface{}{
					"company":     companyName,
					"business_id": businessID,
				},
				SourceProbe: "discovery:" + r.Name(),
			})
			continue
		}
		if seen[host] {
			continue
		}
		seen[host] = true

		result.Domains = append(result.Domains, host)
		result.Findings = append(result.Findings, Finding{
			Type:        "discovery_related_domain",
			Severity:    SeverityInfo,
			Domain:      host,
			Title:       "Registered website found in business registry",
			Description: fmt.Sprintf("Business registry record for %q lists this domain as the company website.", companyName),
			Evidence: map[string]interface{}{
				"seed":        seed,
				"method":      r.Name(),
				"company":     companyName,
				"business_id": businessID,
			},
			SourceProbe: "discovery:" + r.Name(),
		})
	}

	return result
}

func primaryName(company registryCompany) string {
	for _, name := range company.Names {
		if name.Type == "1" {
			return name.Name
		}
	}
	if len(company.Names) > 0 {
		return company.Names[0].Name
	}
	return ""
}

func looksLikeDomain(seed string) bool {
	return strings.Contains(seed, ".") && !strings.ContainsAny(seed, " \t")
}

func hostFromURL(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	return strings.TrimSuffix(parsed.Hostname(), ".")
}

func (r *RegistryLookup) simulated(seed string) Discovery {
	slug := CompanySlug(seed)
	if slug == "" {
		return Discovery{}
	}
	host := slug + ".fi"
	return Discovery{
		Domains: []string{host},
		Findings: []Finding{{
			Type:        "discovery_related_domain",
			Severity:    SeverityInfo,
			Domain:      host,
			Title:       "Registered website found in business registry",
			Evidence:    map[string]interface{}{"seed": seed, "method": r.Name(), "simulated": true},
			SourceProbe: "discovery:" + r.Name(),
		}},
	}
}
