package probes

import (
	"context"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"
)

// HeuristicDiscoverer expands a seed domain into nearby candidates
// (www host, common TLD variants for the same slug) and keeps the ones
// that actually resolve.
type HeuristicDiscoverer struct{}

func NewHeuristicDiscoverer() *HeuristicDiscoverer {
	return &HeuristicDiscoverer{}
}

func (d *HeuristicDiscoverer) Name() string { return "heuristic" }

var candidateTLDs = []string{"fi", "com", "net", "eu"}

func (d *HeuristicDiscoverer) Discover(ctx context.Context, seed string, cfg Config) (Discovery, error) {
	candidates := candidateDomains(seed)

	if cfg.Simulation {
		return discoveryResult(d.Name(), seed, candidates), nil
	}

	var resolved []string
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return Discovery{}, ctx.Err()
		}
		if resolves(ctx, candidate, cfg) {
			resolved = append(resolved, candidate)
		}
	}

	return discoveryResult(d.Name(), seed, resolved), nil
}

// candidateDomains lists heuristic neighbours of the seed, seed itself
// excluded, order stable.
func candidateDomains(seed string) []string {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(seed)
	if err != nil {
		registrable = seed
	}
	slug := strings.SplitN(registrable, ".", 2)[0]

	var candidates []string
	seen := map[string]bool{seed: true}
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		candidates = append(candidates, name)
	}

	if !strings.HasPrefix(seed, "www.") {
		add("www." + seed)
	}
	for _, tld := range candidateTLDs {
		add(slug + "." + tld)
	}

	return candidates
}

func resolves(ctx context.Context, name string, cfg Config) bool {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answers, err := exchange(ctx, name, qtype, cfg)
		if err == nil && len(answers) > 0 {
			return true
		}
	}
	return false
}

func discoveryResult(discovererName, seed string, domains []string) Discovery {
	result := Discovery{Domains: domains}
	for _, domain := range domains {
		result.Findings = append(result.Findings, Finding{
			Type:        "discovery_related_domain",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Related domain discovered",
			Description: "Domain resolved while expanding the scan target set.",
			Evidence: map[string]interface{}{
				"seed":   seed,
				"method": discovererName,
			},
			SourceProbe: "discovery:" + discovererName,
		})
	}
	return result
}

// CompanySlug turns a company name into a bare domain slug. Finnish
// legal suffixes and diacritics are stripped so "Testi Öljy Oy"
// becomes "testioljy".
func CompanySlug(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	replacer := strings.NewReplacer("ä", "a", "ö", "o", "å", "a", "ü", "u")
	lower = replacer.Replace(lower)

	var words []string
	for _, word := range strings.Fields(lower) {
		switch word {
		case "oy", "oyj", "ab", "ky", "tmi", "ltd", "inc", "gmbh":
			continue
		}
		words = append(words, word)
	}

	var b strings.Builder
	for _, word := range words {
		for _, r := range word {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
