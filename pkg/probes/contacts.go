package probes

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ContactsProbe scrapes the site root for exposed contact details:
// mailto and tel links plus linked social media profiles.
type ContactsProbe struct{}

func NewContactsProbe() *ContactsProbe {
	return &ContactsProbe{}
}

func (p *ContactsProbe) Name() string  { return "contacts" }
func (p *ContactsProbe) Priority() int { return PriorityContacts }

// Mailbox prefixes treated as role addresses rather than personal ones.
var roleMailboxes = map[string]bool{
	"info":           true,
	"contact":        true,
	"sales":          true,
	"support":        true,
	"admin":          true,
	"office":         true,
	"hello":          true,
	"myynti":         true,
	"asiakaspalvelu": true,
	"toimisto":       true,
}

var socialHosts = []string{
	"facebook.com",
	"instagram.com",
	"linkedin.com",
	"twitter.com",
	"x.com",
	"youtube.com",
	"tiktok.com",
}

func (p *ContactsProbe) Run(ctx context.Context, domain string, cfg Config) ([]Finding, error) {
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

	return evaluateContacts(p.Name(), domain, doc), nil
}

func evaluateContacts(probeName, domain string, doc *goquery.Document) []Finding {
	personal := make(map[string]bool)
	role := make(map[string]bool)
	phones := make(map[string]bool)
	socials := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)

		switch {
		case strings.HasPrefix(strings.ToLower(href), "mailto:"):
			addr := strings.ToLower(href[len("mailto:"):])
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			local, _, found := strings.Cut(addr, "@")
			if !found || local == "" {
				return
			}
			if roleMailboxes[local] {
				role[addr] = true
			} else {
				personal[addr] = true
			}

		case strings.HasPrefix(strings.ToLower(href), "tel:"):
			phones[href[len("tel:"):]] = true

		default:
			if u, err := url.Parse(href); err == nil {
				host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
				for _, social := range socialHosts {
					if host == social {
						socials[u.String()] = true
						break
					}
				}
			}
		}
	})

	var findings []Finding

	if len(personal) > 0 {
		findings = append(findings, Finding{
			Type:        "contact_personal_email",
			Severity:    SeverityLow,
			Domain:      domain,
			Title:       "Personal email addresses exposed",
			Description: "Individually addressable mailboxes on the site are common spear-phishing targets.",
			Evidence:    map[string]interface{}{"addresses": sortedKeys(personal)},
			SourceProbe: probeName,
		})
	}

	if len(role) > 0 {
		findings = append(findings, Finding{
			Type:        "contact_role_email",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Role email addresses published",
			Evidence:    map[string]interface{}{"addresses": sortedKeys(role)},
			SourceProbe: probeName,
		})
	}

	if len(phones) > 0 {
		findings = append(findings, Finding{
			Type:        "contact_phone_exposed",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Phone numbers published",
			Evidence:    map[string]interface{}{"numbers": sortedKeys(phones)},
			SourceProbe: probeName,
		})
	}

	if len(socials) > 0 {
		findings = append(findings, Finding{
			Type:        "contact_social_profile",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Social media profiles linked",
			Evidence:    map[string]interface{}{"profiles": sortedKeys(socials)},
			SourceProbe: probeName,
		})
	}

	return findings
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *ContactsProbe) simulated(domain string) []Finding {
	return []Finding{
		{
			Type:        "contact_role_email",
			Severity:    SeverityInfo,
			Domain:      domain,
			Title:       "Role email addresses published",
			Evidence:    map[string]interface{}{"simulated": true, "addresses": []string{"info@" + domain}},
			SourceProbe: p.Name(),
		},
	}
}
