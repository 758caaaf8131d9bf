package engine

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AnomFIN/AnomRadar/pkg/logger"
)

// ScanQueue caps how many scans run concurrently across the whole
// process. It is the only process-wide mutable state the engine keeps;
// everything else lives inside a single scan.
type ScanQueue struct {
	semaphore chan struct{}
	running   int
	queued    int
	mu        sync.Mutex
	logger    *logger.Logger
}

var (
	globalQueue *ScanQueue
	queueOnce   sync.Once
)

func newQueueLogger() *logger.Logger {
	return logger.NewLogger(logrus.InfoLevel)
}

// InitGlobalQueue initializes the process-wide queue with the given
// concurrent scan cap. Only the first call takes effect.
func InitGlobalQueue(maxConcurrent int) {
	queueOnce.Do(func() {
		if maxConcurrent < 1 {
			maxConcurrent = 1
		}
		globalQueue = &ScanQueue{
			semaphore: make(chan struct{}, maxConcurrent),
			logger:    newQueueLogger(),
		}
		globalQueue.logger.Info("Scan queue initialized", logger.Fields{
			"max_concurrent": maxConcurrent,
		})
	})
}

// GetGlobalQueue returns the process-wide queue, initializing it with
// the default cap of 3 concurrent scans if needed.
func GetGlobalQueue() *ScanQueue {
	if globalQueue == nil {
		InitGlobalQueue(defaultMaxConcurrency)
	}
	return globalQueue
}

// ExecuteWithQueue blocks until a scan slot is free, then runs fn and
// releases the slot. A cancelled context aborts the wait.
func (q *ScanQueue) ExecuteWithQueue(ctx context.Context, fn func() error) error {
	q.mu.Lock()
	q.queued++
	currentQueued := q.queued
	currentRunning := q.running
	maxSlots := cap(q.semaphore)
	q.mu.Unlock()

	q.logger.Info("Scan added to queue", logger.Fields{
		"queued":  currentQueued,
		"running": currentRunning,
		"slots":   maxSlots,
	})

	select {
	case q.semaphore <- struct{}{}:
	case <-ctx.Done():
		q.mu.Lock()
		q.queued--
		q.mu.Unlock()
		return ctx.Err()
	}

	q.mu.Lock()
	q.queued--
	q.running++
	finalQueued := q.queued
	finalRunning := q.running
	q.mu.Unlock()

	q.logger.Info("Scan execution started", logger.Fields{
		"running": finalRunning,
		"queued":  finalQueued,
	})

	defer func() {
		<-q.semaphore
		q.mu.Lock()
		q.running--
		remainingRunning := q.running
		remainingQueued := q.queued
		q.mu.Unlock()

		q.logger.Info("Scan execution completed, slot released", logger.Fields{
			"running": remainingRunning,
			"queued":  remainingQueued,
		})
	}()

	return fn()
}

// GetStatus returns the current queue occupancy.
func (q *ScanQueue) GetStatus() (running, queued, maxConcurrent int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running, q.queued, cap(q.semaphore)
}
