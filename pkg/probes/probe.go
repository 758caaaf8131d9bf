package probes

import (
	"context"
	"sort"
	"sync"
)

// Probe inspects a single domain using passive techniques only. Run
// must honor ctx and return quickly once it is cancelled; findings and
// a non-nil error are never returned together.
type Probe interface {
	Name() string
	Priority() int
	Run(ctx context.Context, domain string, cfg Config) ([]Finding, error)
}

// Discovery is the product of a seed-level discovery collaborator.
type Discovery struct {
	Domains  []string
	Findings []Finding
}

// Discoverer expands a scan seed into candidate target domains.
type Discoverer interface {
	Name() string
	Discover(ctx context.Context, seed string, cfg Config) (Discovery, error)
}

// Registry holds the probe set of a scan, ordered by probe priority.
type Registry struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

func NewProbeRegistry() *Registry {
	return &Registry{
		probes: make(map[string]Probe),
	}
}

func (r *Registry) Register(p Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[p.Name()] = p
}

func (r *Registry) Get(name string) (Probe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.probes[name]
	return p, ok
}

// All returns the registered probes sorted by priority, name breaking
// ties. The order is the scheduling order within each domain.
func (r *Registry) All() []Probe {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Probe, 0, len(r.probes))
	for _, p := range r.probes {
		all = append(all, p)
	}
	return sortByPriority(all)
}

func sortByPriority(probes []Probe) []Probe {
	sort.Slice(probes, func(i, j int) bool {
		if probes[i].Priority() != probes[j].Priority() {
			return probes[i].Priority() < probes[j].Priority()
		}
		return probes[i].Name() < probes[j].Name()
	})
	return probes
}

func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, 0, len(all))
	for _, p := range all {
		names = append(names, p.Name())
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.probes)
}

// PriorityIndex maps probe names to their position in the ordered probe
// list. Aggregation uses it as part of the deterministic sort key.
func (r *Registry) PriorityIndex() map[string]int {
	index := make(map[string]int)
	for i, p := range r.All() {
		index[p.Name()] = i
	}
	return index
}

// Probe priorities. Lower runs earlier within a domain.
const (
	PriorityDNS = iota + 1
	PriorityTLS
	PriorityHTTP
	PriorityTech
	PriorityPorts
	PriorityWhois
	PriorityContacts
)
