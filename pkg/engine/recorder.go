package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AnomFIN/AnomRadar/pkg/logger"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// Recorder wraps every probe and discoverer invocation. It enforces
// the per-unit timeout, turns panics into failed outcomes and measures
// duration, so a broken probe degrades its own outcome and nothing
// else. Invoke never returns an error and never lets one escape.
type Recorder struct {
	log *logger.Logger
}

func NewRecorder(log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.NewLogger(logrus.InfoLevel)
	}
	return &Recorder{log: log}
}

// Invoke runs one probe against one domain and classifies the result.
// Failed attempts are retried up to cfg.MaxRetries times; timeouts are
// not retried, slow targets stay slow.
func (r *Recorder) Invoke(ctx context.Context, probe probes.Probe, domain string, cfg probes.Config) Outcome {
	outcome, _ := r.record(ctx, probe.Name(), domain, cfg, func(attemptCtx context.Context) (probes.Discovery, error) {
		findings, err := probe.Run(attemptCtx, domain, cfg)
		return probes.Discovery{Findings: findings}, err
	})
	outcome.Domain = domain
	return outcome
}

// InvokeDiscovery runs one discovery collaborator for the scan seed.
// Discovered domains are returned separately from the outcome and are
// empty unless the outcome is ok.
func (r *Recorder) InvokeDiscovery(ctx context.Context, d probes.Discoverer, seed string, cfg probes.Config) (probes.Discovery, Outcome) {
	outcome, discovery := r.record(ctx, "discovery:"+d.Name(), seed, cfg, func(attemptCtx context.Context) (probes.Discovery, error) {
		return d.Discover(attemptCtx, seed, cfg)
	})
	return discovery, outcome
}

type attemptResult struct {
	discovery probes.Discovery
	err       error
}

func (r *Recorder) record(ctx context.Context, name, target string, cfg probes.Config, fn func(context.Context) (probes.Discovery, error)) (Outcome, probes.Discovery) {
	start := time.Now()

	if ctx.Err() != nil {
		return Outcome{
			ProbeName: name,
			Status:    OutcomeSkipped,
			Error:     "scan cancelled before invocation",
		}, probes.Discovery{}
	}

	outcome := Outcome{ProbeName: name, Status: OutcomeFailed}
	var discovery probes.Discovery

	maxAttempts := cfg.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt

		status, found, errMsg := r.attempt(ctx, name, target, cfg, fn)
		outcome.Status = status
		outcome.Error = errMsg
		outcome.Findings = nil
		discovery = probes.Discovery{}
		if status == OutcomeOK {
			outcome.Findings = found.Findings
			discovery = found
		}

		// only plain failures are worth another attempt
		if status != OutcomeFailed {
			break
		}
		if attempt < maxAttempts {
			r.log.WithProbe(name, target).WithField("attempt", attempt).Debug("Probe attempt failed, retrying")
		}
	}

	outcome.DurationMs = time.Since(start).Milliseconds()
	r.log.WithProbe(name, target).WithFields(logrus.Fields{
		"status":      string(outcome.Status),
		"duration_ms": outcome.DurationMs,
		"findings":    len(outcome.Findings),
	}).Debug("Probe invocation recorded")

	return outcome, discovery
}

func (r *Recorder) attempt(ctx context.Context, name, target string, cfg probes.Config, fn func(context.Context) (probes.Discovery, error)) (OutcomeStatus, probes.Discovery, string) {
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	// buffered so a probe that outlives the deadline can still exit
	results := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				results <- attemptResult{err: fmt.Errorf("probe panicked: %v", rec)}
			}
		}()
		found, err := fn(attemptCtx)
		results <- attemptResult{discovery: found, err: err}
	}()

	select {
	case res := <-results:
		switch {
		case res.err == nil:
			return OutcomeOK, res.discovery, ""
		case errors.Is(res.err, context.DeadlineExceeded) || errors.Is(res.err, context.Canceled):
			return OutcomeTimedOut, probes.Discovery{}, res.err.Error()
		default:
			return OutcomeFailed, probes.Discovery{}, res.err.Error()
		}
	case <-attemptCtx.Done():
		r.log.WithProbe(name, target).Warn("Probe did not return before deadline")
		return OutcomeTimedOut, probes.Discovery{}, attemptCtx.Err().Error()
	}
}
