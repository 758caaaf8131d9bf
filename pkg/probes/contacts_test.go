package probes

import (
	"reflect"
	"testing"
)

func TestEvaluateContacts(t *testing.T) {
	page := `<html><body>
<a href="mailto:info@example.fi">Asiakaspalvelu</a>
<a href="mailto:matti.meikalainen@example.fi?subject=Hei">Matti</a>
<a href="mailto:liisa.virtanen@example.fi">Liisa</a>
<a href="tel:+358401234567">Soita</a>
<a href="https://www.facebook.com/examplefi">Facebook</a>
<a href="https://linkedin.com/company/example">LinkedIn</a>
<a href="https://partner.example.org/">Partner</a>
</body></html>`

	findings := evaluateContacts("contacts", "example.fi", parseHTML(t, page))
	byType := map[string]Finding{}
	for _, f := range findings {
		byType[f.Type] = f
	}

	personal, ok := byType["contact_personal_email"]
	if !ok {
		t.Fatalf("expected contact_personal_email, got %v", findingTypes(findings))
	}
	wantPersonal := []string{"liisa.virtanen@example.fi", "matti.meikalainen@example.fi"}
	if got := personal.Evidence["addresses"].([]string); !reflect.DeepEqual(got, wantPersonal) {
		t.Errorf("personal addresses = %v, want %v", got, wantPersonal)
	}
	if personal.Severity != SeverityLow {
		t.Errorf("personal email severity = %s, want low", personal.Severity)
	}

	role, ok := byType["contact_role_email"]
	if !ok {
		t.Fatal("expected contact_role_email")
	}
	if got := role.Evidence["addresses"].([]string); !reflect.DeepEqual(got, []string{"info@example.fi"}) {
		t.Errorf("role addresses = %v", got)
	}

	phones, ok := byType["contact_phone_exposed"]
	if !ok {
		t.Fatal("expected contact_phone_exposed")
	}
	if got := phones.Evidence["numbers"].([]string); !reflect.DeepEqual(got, []string{"+358401234567"}) {
		t.Errorf("phone numbers = %v", got)
	}

	social, ok := byType["contact_social_profile"]
	if !ok {
		t.Fatal("expected contact_social_profile")
	}
	profiles := social.Evidence["profiles"].([]string)
	if len(profiles) != 2 {
		t.Errorf("expected 2 social profiles, got %v", profiles)
	}
}

func TestEvaluateContactsEmptyPage(t *testing.T) {
	findings := evaluateContacts("contacts", "example.fi", parseHTML(t, "<html><body></body></html>"))
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %v", findingTypes(findings))
	}
}

func TestEvaluateContactsMailtoQueryStripped(t *testing.T) {
	page := `<html><body><a href="MAILTO:Sales@Example.fi?body=hello">Sales</a></body></html>`

	findings := evaluateContacts("contacts", "example.fi", parseHTML(t, page))
	byType := map[string]Finding{}
	for _, f := range findings {
		byType[f.Type] = f
	}

	role, ok := byType["contact_role_email"]
	if !ok {
		t.Fatalf("expected sales@ to count as role address, got %v", findingTypes(findings))
	}
	if got := role.Evidence["addresses"].([]string); !reflect.DeepEqual(got, []string{"sales@example.fi"}) {
		t.Errorf("addresses = %v", got)
	}
}
