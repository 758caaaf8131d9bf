package probes

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TechProbe fingerprints the technology stack from the site root HTML:
// generator metas, CMS asset paths and versioned script includes.
type TechProbe struct{}

func NewTechProbe() *TechProbe {
	return &TechProbe{}
}

func (p *TechProbe) Name() string  { return "tech" }
func (p *TechProbe) Priority() int { return PriorityTech }

var versionedScriptPattern = regexp.MustCompile(`(?i)(jquery|bootstrap|angular|vue|react)[-.]([0-9]+(?:\.[0-9]+)+)`)

func (p *TechProbe) Run(ctx context.Context, domain string, cfg Config) ([]Finding, error) {
	if cfg.Simulation {
		return p.simulated(domain), nil
	}

	body, finalURL, err := fetchHTML(ctx, domain, cfg)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", finalURL, err)
	}

	return evaluateTech(p.Name(), domain, doc), nil
}

func evaluateTech(probeName, domain string, doc *goquery.Document) []Finding {
	var findings []Finding

	doc.Find(`meta[name="generator"]`).Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			return
		}
		findings = append(findings, Finding{
			Type:        "tech_generator_exposed",
			Severity:    SeverityLow,
			Domain:      domain,
			Title:       "Generator meta tag discloses platform",
			Description: fmt.Sprintf("The page announces it was generated by %q.", content),
			Evidence:    map[string]interface{}{"generator": content},
			SourceProbe: probeName,
		})
	})

	stack := detectStack(doc)
	if len(stack) > 0 {
		findings = append(findings, Finding{
			Type:        "tech_stack_detected",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Technology stack identified",
			Description: "Frameworks and libraries were identified from page assets.",
			Evidence:    map[string]interface{}{"stack": stack},
			SourceProbe: probeName,
		})
	}

	return findings
}

func detectStack(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var stack []string

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			stack = append(stack, name)
		}
	}

	doc.Find("script[src], link[href]").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			src, _ = s.Attr("href")
		}
		lower := strings.ToLower(src)

		if strings.Contains(lower, "wp-content") || strings.Contains(lower, "wp-includes") {
			add("WordPress")
		}
		if strings.Contains(lower, "/sites/default/files") {
			add("Drupal")
		}
		if m := versionedScriptPattern.FindStringSubmatch(src); m != nil {
			add(fmt.Sprintf("%s %s", strings.ToLower(m[1]), m[2]))
		}
	})

	return stack
}

func (p *TechProbe) simulated(domain string) []Finding {
	return []Finding{
		{
			Type:        "tech_stack_detected",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Technology stack identified",
			Evidence:    map[string]interface{}{"simulated": true, "stack": []string{"WordPress"}},
			SourceProbe: p.Name(),
		},
	}
}
