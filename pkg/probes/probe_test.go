package probes

import (
	"reflect"
	"testing"
)

func TestRegistryOrdersByPriority(t *testing.T) {
	reg := NewProbeRegistry()
	reg.Register(staticProbe{name: "contacts", priority: 7})
	reg.Register(staticProbe{name: "dns", priority: 1})
	reg.Register(staticProbe{name: "ports", priority: 5})
	reg.Register(staticProbe{name: "tls", priority: 2})

	want := []string{"dns", "tls", "ports", "contacts"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistryPriorityTieBreaksOnName(t *testing.T) {
	reg := NewProbeRegistry()
	reg.Register(staticProbe{name: "beta", priority: 1})
	reg.Register(staticProbe{name: "alpha", priority: 1})

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestRegistryGet(t *testing.T) {
	reg := NewProbeRegistry()
	reg.Register(staticProbe{name: "dns", priority: 1})

	if _, ok := reg.Get("dns"); !ok {
		t.Error("registered probe not found")
	}
	if _, ok := reg.Get("nmap"); ok {
		t.Error("unregistered probe found")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d", reg.Len())
	}
}

func TestRegistryPriorityIndex(t *testing.T) {
	reg := NewProbeRegistry()
	reg.Register(staticProbe{name: "http", priority: 3})
	reg.Register(staticProbe{name: "dns", priority: 1})
	reg.Register(staticProbe{name: "tls", priority: 2})

	want := map[string]int{"dns": 0, "tls": 1, "http": 2}
	if got := reg.PriorityIndex(); !reflect.DeepEqual(got, want) {
		t.Errorf("PriorityIndex() = %v, want %v", got, want)
	}
}

func TestDefaultProbeSetOrder(t *testing.T) {
	reg := NewProbeRegistry()
	reg.Register(NewDNSProbe(nil))
	reg.Register(NewTLSProbe())
	reg.Register(NewHTTPProbe())
	reg.Register(NewTechProbe())
	reg.Register(NewPortsProbe())
	reg.Register(NewWhoisProbe(nil))
	reg.Register(NewContactsProbe())

	want := []string{"dns", "tls", "http", "tech", "ports", "whois", "contacts"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("probe order = %v, want %v", got, want)
	}
}
