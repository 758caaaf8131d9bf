package engine

import (
	"net"
	"strings"
	"sync"
)

// DomainRegistry holds the target set of a single scan. It grows during
// discovery and becomes an immutable snapshot once frozen; the frozen
// list is the sole authoritative target set for the probe phase.
type DomainRegistry struct {
	mu      sync.Mutex
	frozen  bool
	domains []Domain
	seen    map[string]bool
}

func NewDomainRegistry() *DomainRegistry {
	return &DomainRegistry{
		seen: make(map[string]bool),
	}
}

// Add inserts a normalized domain. It returns false for duplicates and
// for names that normalize to nothing. Calling Add on a frozen registry
// is a programming error and panics.
func (r *DomainRegistry) Add(name string, source Source) bool {
	normalized := NormalizeDomain(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		panic("engine: Add called on a frozen domain registry")
	}
	if normalized == "" || r.seen[normalized] {
		return false
	}

	r.seen[normalized] = true
	r.domains = append(r.domains, Domain{Name: normalized, Source: source})
	return true
}

// Freeze seals the registry and returns the snapshot in insertion
// order. Idempotent, later calls return the same set.
func (r *DomainRegistry) Freeze() []Domain {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
	snapshot := make([]Domain, len(r.domains))
	copy(snapshot, r.domains)
	return snapshot
}

func (r *DomainRegistry) IsFrozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

func (r *DomainRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.domains)
}

// NormalizeDomain reduces a raw name or URL to a bare lowercase
// hostname: scheme, path, port and the trailing dot are stripped.
func NormalizeDomain(raw string) string {
	name := strings.TrimSpace(strings.ToLower(raw))
	if name == "" {
		return ""
	}

	if idx := strings.Index(name, "://"); idx >= 0 {
		name = name[idx+3:]
	}
	if idx := strings.IndexAny(name, "/?#"); idx >= 0 {
		name = name[:idx]
	}
	if host, _, err := net.SplitHostPort(name); err == nil {
		name = host
	}
	name = strings.TrimSuffix(name, ".")

	if name == "" || strings.ContainsAny(name, " \t") {
		return ""
	}
	return name
}

// IsDomainLike reports whether a seed already names a host rather than
// a company. Company names go through the registry lookup instead of
// being added to the target set directly.
func IsDomainLike(seed string) bool {
	normalized := NormalizeDomain(seed)
	return normalized != "" && strings.Contains(normalized, ".")
}
