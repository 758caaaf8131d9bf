package probes

import (
	"fmt"

	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
)

// Plan names the probes and discovery collaborators a scan should run.
// Plans can be loaded from YAML files or taken from the builtin set.
type Plan struct {
	Name        string   `yaml:"name" mapstructure:"name" json:"name"`
	Description string   `yaml:"description" mapstructure:"description" json:"description"`
	Probes      []string `yaml:"probes" mapstructure:"probes" json:"probes"`
	Discovery   []string `yaml:"discovery" mapstructure:"discovery" json:"discovery"`
}

func (p Plan) Validate() error {
	if p.Name == "" {
		return apperrors.NewConfigError("name", "", "plan name is required")
	}

	seen := map[string]bool{}
	for _, name := range p.Probes {
		if name == "" {
			return apperrors.NewConfigError("probes", "", "probe name cannot be empty")
		}
		if seen[name] {
			return apperrors.NewConfigError("probes", name, "duplicate probe entry")
		}
		seen[name] = true
	}
	return nil
}

// Select resolves the plan's probe names against a registry. An empty
// probe list selects every registered probe.
func (p Plan) Select(reg *Registry) ([]Probe, error) {
	if len(p.Probes) == 0 {
		return reg.All(), nil
	}

	selected := make([]Probe, 0, len(p.Probes))
	for _, name := range p.Probes {
		probe, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrProbeNotFound, name)
		}
		selected = append(selected, probe)
	}
	return sortByPriority(selected), nil
}

// WantsDiscoverer reports whether the plan enables the named discovery
// collaborator. A nil discovery list enables all of them, an explicit
// empty list disables discovery entirely.
func (p Plan) WantsDiscoverer(name string) bool {
	if p.Discovery == nil {
		return true
	}
	for _, enabled := range p.Discovery {
		if enabled == name {
			return true
		}
	}
	return false
}

// BuiltinPlans are always available, config directory or not.
func BuiltinPlans() []Plan {
	return []Plan{
		{
			Name:        "default",
			Description: "DNS, TLS and HTTP posture checks with full discovery",
			Probes:      []string{"dns", "tls", "http"},
		},
		{
			Name:        "full",
			Description: "Every probe including technology, ports, WHOIS and contact exposure",
		},
		{
			Name:        "quick",
			Description: "DNS and HTTP only, no discovery expansion",
			Probes:      []string{"dns", "http"},
			Discovery:   []string{},
		},
	}
}

// FindBuiltin returns the named builtin plan.
func FindBuiltin(name string) (Plan, bool) {
	for _, plan := range BuiltinPlans() {
		if plan.Name == name {
			return plan, true
		}
	}
	return Plan{}, false
}
