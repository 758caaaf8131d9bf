package engine

import (
	"context"
	"sync"
	"time"

	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// scanUnit is one (domain, probe) pair. No pair is ever scheduled
// twice within a scan.
type scanUnit struct {
	probe  probes.Probe
	domain string
}

func buildUnits(domains []Domain, selected []probes.Probe) []scanUnit {
	units := make([]scanUnit, 0, len(domains)*len(selected))
	for _, domain := range domains {
		for _, probe := range selected {
			units = append(units, scanUnit{probe: probe, domain: domain.Name})
		}
	}
	return units
}

// scanDeadline budgets the probe phase: the sum of per-unit timeouts,
// capped by the configured scan timeout.
func scanDeadline(cfg Config, unitCount int) time.Duration {
	budget := cfg.ProbeTimeout * time.Duration(unitCount)
	if budget <= 0 || budget > cfg.ScanTimeout {
		return cfg.ScanTimeout
	}
	return budget
}

// runProbePhase drives the bounded worker pool over every scan unit.
// Workers funnel outcomes through a single collection point, and every
// unit resolves to exactly one outcome: executed units report their
// own status, units cancelled mid-flight come back timedOut from the
// recorder, units never handed to a worker are recorded as skipped.
func (e *Engine) runProbePhase(ctx context.Context, domains []Domain, selected []probes.Probe, cfg Config) []Outcome {
	units := buildUnits(domains, selected)
	if len(units) == 0 {
		return nil
	}

	phaseCtx, cancel := context.WithTimeout(ctx, scanDeadline(cfg, len(units)))
	defer cancel()

	pcfg := cfg.probeConfig()

	workers := cfg.MaxConcurrency
	if workers > len(units) {
		workers = len(units)
	}

	jobs := make(chan scanUnit)
	results := make(chan Outcome, len(units))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range jobs {
				if phaseCtx.Err() != nil {
					results <- skippedOutcome(unit)
					continue
				}
				results <- e.recorder.Invoke(phaseCtx, unit.probe, unit.domain, pcfg)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, unit := range units {
			select {
			case jobs <- unit:
			case <-phaseCtx.Done():
				for _, rest := range units[i:] {
					results <- skippedOutcome(rest)
				}
				return
			}
		}
	}()

	outcomes := make([]Outcome, 0, len(units))
	for i := 0; i < len(units); i++ {
		outcomes = append(outcomes, <-results)
	}
	wg.Wait()

	return outcomes
}

func skippedOutcome(unit scanUnit) Outcome {
	return Outcome{
		ProbeName: unit.probe.Name(),
		Domain:    unit.domain,
		Status:    OutcomeSkipped,
		Error:     "scan deadline reached before start",
	}
}
