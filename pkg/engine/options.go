package engine

import (
	"github.com/AnomFIN/AnomRadar/pkg/logger"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

func WithLogger(log *logger.Logger) OptFunc {
	return func(opts *EngineOpts) {
		opts.log = log
	}
}

func WithProbeRegistry(registry *probes.Registry) OptFunc {
	return func(opts *EngineOpts) {
		opts.registry = registry
	}
}

func WithDiscoverers(discoverers ...probes.Discoverer) OptFunc {
	return func(opts *EngineOpts) {
		opts.discoverers = discoverers
	}
}

func WithSink(sink Sink) OptFunc {
	return func(opts *EngineOpts) {
		opts.sink = sink
	}
}

func WithPlan(plan probes.Plan) OptFunc {
	return func(opts *EngineOpts) {
		opts.plan = plan
	}
}

// WithQueue overrides the process-wide scan queue, mainly so tests can
// run against an isolated one.
func WithQueue(queue *ScanQueue) OptFunc {
	return func(opts *EngineOpts) {
		opts.queue = queue
	}
}

// NewQueue builds a standalone queue with its own capacity, unrelated
// to the global one.
func NewQueue(maxConcurrent int) *ScanQueue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ScanQueue{
		semaphore: make(chan struct{}, maxConcurrent),
		logger:    newQueueLogger(),
	}
}
