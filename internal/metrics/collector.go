package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ai-app-builder/internal/logging"
)

// StatusCounter reports how many persisted projects sit in each status.
type StatusCounter interface {
	CountProjectsByStatus(ctx context.Context) (map[string]int64, error)
}

// ProjectCollector periodically refreshes the ProjectsByStatus gauge from
// the project store.
type ProjectCollector struct {
	source   StatusCounter
	metrics  *Metrics
	interval time.Duration
	stopCh   chan struct{}
	logger   *zap.Logger
}

// NewProjectCollector creates a collector that polls source every interval.
func NewProjectCollector(source StatusCounter, interval time.Duration) *ProjectCollector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ProjectCollector{
		source:   source,
		metrics:  Get(),
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logging.L().Named("metrics"),
	}
}

// Start begins periodic collection until Stop is called or ctx ends.
func (pc *ProjectCollector) Start(ctx context.Context) {
	go func() {
		pc.Collect(ctx)

		ticker := time.NewTicker(pc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pc.Collect(ctx)
			case <-pc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the collector
func (pc *ProjectCollector) Stop() {
	close(pc.stopCh)
}

// Collect performs a single collection cycle.
func (pc *ProjectCollector) Collect(ctx context.Context) {
	if pc.source == nil {
		return
	}
	counts, err := pc.source.CountProjectsByStatus(ctx)
	if err != nil {
		pc.logger.Warn("failed to count projects by status", zap.Error(err))
		return
	}

	pc.metrics.ProjectsByStatus.Reset()
	for status, n := range counts {
		pc.metrics.ProjectsByStatus.WithLabelValues(sanitizeLabel(status, "unknown")).Set(float64(n))
	}
}
