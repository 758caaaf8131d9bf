package engine

import (
	"sort"

	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

type flatEntry struct {
	finding probes.Finding
	prio    int
	idx     int
}

type dedupKey struct {
	typ    string
	domain string
}

// Aggregate reduces recorded outcomes to one ordered, deduplicated
// finding list. It is a pure function of its input: the same outcome
// set yields the same output regardless of arrival order, which is
// what keeps concurrent scans deterministic. Only ok outcomes
// contribute findings. Findings sharing (type, domain) collapse to the
// highest-severity entry, earliest in sort order on ties, with the
// dropped entries' evidence carried under a "merged" key. Panics in
// here are never recovered, a failure during aggregation is a bug and
// not a scan condition.
func Aggregate(outcomes []Outcome, priorityIndex map[string]int) []probes.Finding {
	prio := func(name string) int {
		if p, ok := priorityIndex[name]; ok {
			return p
		}
		// discovery collaborators and unknown probes sort before
		// the ordered probe list
		return -1
	}

	ordered := make([]Outcome, len(outcomes))
	copy(ordered, outcomes)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Domain != ordered[j].Domain {
			return ordered[i].Domain < ordered[j].Domain
		}
		pi, pj := prio(ordered[i].ProbeName), prio(ordered[j].ProbeName)
		if pi != pj {
			return pi < pj
		}
		return ordered[i].ProbeName < ordered[j].ProbeName
	})

	var flat []flatEntry
	for _, out := range ordered {
		if out.Status != OutcomeOK {
			continue
		}
		for _, f := range out.Findings {
			flat = append(flat, flatEntry{finding: f, prio: prio(out.ProbeName), idx: len(flat)})
		}
	}

	// company-level findings (empty domain) sort first
	sort.SliceStable(flat, func(i, j int) bool {
		a, b := flat[i], flat[j]
		if a.finding.Domain != b.finding.Domain {
			return a.finding.Domain < b.finding.Domain
		}
		if a.prio != b.prio {
			return a.prio < b.prio
		}
		if a.finding.Type != b.finding.Type {
			return a.finding.Type < b.finding.Type
		}
		return a.idx < b.idx
	})

	winners := make(map[dedupKey]int)
	for pos, entry := range flat {
		key := dedupKey{entry.finding.Type, entry.finding.Domain}
		current, ok := winners[key]
		if !ok || entry.finding.Severity.Rank() > flat[current].finding.Severity.Rank() {
			winners[key] = pos
		}
	}

	result := make([]probes.Finding, 0, len(winners))
	for pos, entry := range flat {
		key := dedupKey{entry.finding.Type, entry.finding.Domain}
		if winners[key] != pos {
			continue
		}

		kept := entry.finding
		if merged := mergedEvidence(flat, key, pos); len(merged) > 0 {
			kept.Evidence = cloneEvidence(kept.Evidence)
			kept.Evidence["merged"] = merged
		}
		result = append(result, kept)
	}
	return result
}

func mergedEvidence(flat []flatEntry, key dedupKey, winnerPos int) []map[string]interface{} {
	var merged []map[string]interface{}
	for pos, entry := range flat {
		if pos == winnerPos {
			continue
		}
		if entry.finding.Type != key.typ || entry.finding.Domain != key.domain {
			continue
		}
		if len(entry.finding.Evidence) == 0 {
			continue
		}
		merged = append(merged, entry.finding.Evidence)
	}
	return merged
}

func cloneEvidence(evidence map[string]interface{}) map[string]interface{} {
	clone := make(map[string]interface{}, len(evidence)+1)
	for k, v := range evidence {
		clone[k] = v
	}
	return clone
}
