package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// Sink receives every terminal scan result exactly once. Store errors
// are logged, they never alter the result handed back to the caller.
type Sink interface {
	Store(result *ScanResult) error
}

type EngineOpts struct {
	log         *logger.Logger
	registry    *probes.Registry
	discoverers []probes.Discoverer
	sink        Sink
	plan        probes.Plan
	queue       *ScanQueue
}

type OptFunc func(*EngineOpts)

// Engine runs the two-phase pipeline. One Engine value serves any
// number of scans; all per-scan state lives inside Run.
type Engine struct {
	EngineOpts
	recorder *Recorder
}

func New(opts ...OptFunc) *Engine {
	o := EngineOpts{
		log:      logger.NewLogger(logrus.InfoLevel),
		registry: probes.NewProbeRegistry(),
		plan:     probes.Plan{Name: "full"},
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.queue == nil {
		o.queue = GetGlobalQueue()
	}

	return &Engine{
		EngineOpts: o,
		recorder:   NewRecorder(o.log),
	}
}

// Run executes one scan end to end: validate, wait for a queue slot,
// discover and freeze the domain set, probe it with bounded
// concurrency, aggregate and score. The returned result is terminal
// and immutable. An error is returned only for invalid requests and
// fatal discovery failures; probe failures degrade outcomes instead.
func (e *Engine) Run(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cfg := req.Config.withDefaults()

	selected, err := e.plan.Select(e.registry)
	if err != nil {
		return nil, err
	}

	var (
		result *ScanResult
		runErr error
	)
	queueErr := e.queue.ExecuteWithQueue(ctx, func() error {
		result, runErr = e.runScan(ctx, req, cfg, selected)
		return runErr
	})
	if result == nil {
		return nil, queueErr
	}
	return result, runErr
}

func (e *Engine) runScan(ctx context.Context, req ScanRequest, cfg Config, selected []probes.Probe) (*ScanResult, error) {
	scanID := req.ScanID
	if scanID == "" {
		scanID = uuid.New().String()
	}
	startedAt := time.Now().UTC()
	scanLog := e.log.WithScan(scanID)

	scanCtx, cancel := context.WithTimeout(ctx, cfg.ScanTimeout)
	defer cancel()

	scanLog.WithFields(logrus.Fields{
		"seed":   req.Seed,
		"status": string(StatusCreated),
		"probes": len(selected),
	}).Info("Scan created")

	scanLog.WithField("status", string(StatusDiscovering)).Info("Discovery phase started")
	registry := NewDomainRegistry()
	outcomes := e.runDiscovery(scanCtx, req.Seed, registry, cfg)
	domains := registry.Freeze()

	if len(domains) == 0 {
		completedAt := time.Now().UTC()
		result := &ScanResult{
			ScanID:      scanID,
			Seed:        req.Seed,
			Domains:     domains,
			Findings:    []probes.Finding{},
			Outcomes:    outcomes,
			RiskLevel:   RiskInfo,
			StartedAt:   startedAt,
			CompletedAt: completedAt,
			Status:      StatusFailed,
			Error:       apperrors.ErrNoDomains.Error(),
		}
		e.store(result)
		scanLog.WithField("status", string(StatusFailed)).Error("Discovery produced no target domains")
		return result, apperrors.NewDiscoveryError(req.Seed, apperrors.ErrNoDomains)
	}

	scanLog.WithFields(logrus.Fields{
		"status":  string(StatusScanning),
		"domains": len(domains),
	}).Info("Probe phase started")
	outcomes = append(outcomes, e.runProbePhase(scanCtx, domains, selected, cfg)...)

	scanLog.WithField("status", string(StatusScoring)).Info("Scoring phase started")
	priorityIndex := make(map[string]int, len(selected))
	for i, p := range selected {
		priorityIndex[p.Name()] = i
	}
	findings := Aggregate(outcomes, priorityIndex)
	score, level := Score(findings, cfg.Thresholds)

	result := &ScanResult{
		ScanID:      scanID,
		Seed:        req.Seed,
		Domains:     domains,
		Findings:    findings,
		Outcomes:    outcomes,
		RiskScore:   score,
		RiskLevel:   level,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
		Status:      StatusCompleted,
	}
	e.store(result)

	scanLog.WithFields(logrus.Fields{
		"status":     string(StatusCompleted),
		"risk_score": score,
		"risk_level": string(level),
		"findings":   len(findings),
		"outcomes":   len(outcomes),
	}).Info("Scan completed")

	return result, nil
}

// runDiscovery feeds the domain registry: a domain-like seed is added
// directly, then every enabled discovery collaborator expands it.
// Collaborator failures are recorded as outcomes and their domains
// dropped; they never abort the phase.
func (e *Engine) runDiscovery(ctx context.Context, seed string, registry *DomainRegistry, cfg Config) []Outcome {
	pcfg := cfg.probeConfig()
	var outcomes []Outcome

	if IsDomainLike(seed) {
		registry.Add(seed, SourceSeed)
	}

	for _, d := range e.discoverers {
		if !e.plan.WantsDiscoverer(d.Name()) {
			continue
		}
		discovery, outcome := e.recorder.InvokeDiscovery(ctx, d, seed, pcfg)
		outcomes = append(outcomes, outcome)
		if outcome.Status != OutcomeOK {
			continue
		}
		for _, domain := range discovery.Domains {
			registry.Add(domain, sourceForDiscoverer(d.Name()))
		}
	}

	return outcomes
}

func sourceForDiscoverer(name string) Source {
	if name == "registry" {
		return SourceRegistry
	}
	return SourceHeuristic
}

func (e *Engine) store(result *ScanResult) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Store(result); err != nil {
		e.log.WithScan(result.ScanID).WithError(err).Error("Failed to store scan result")
	}
}
