package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics groups the synchronization-engine instruments. A nil receiver
// is valid and records nothing.
type EngineMetrics struct {
	eventsApplied   metric.Int64Counter
	syncCompletions metric.Int64Counter
	snapshotsPruned metric.Int64Counter
	priceBatch      metric.Float64Histogram
}

// NewEngineMetrics registers the engine instruments on the provided meter.
func NewEngineMetrics(provider metric.MeterProvider) (*EngineMetrics, error) {
	meter := provider.Meter("termsync/terminal")

	eventsApplied, err := meter.Int64Counter(
		"termsync.events.applied",
		metric.WithDescription("Synchronization events applied to terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	syncCompletions, err := meter.Int64Counter(
		"termsync.sync.completions",
		metric.WithDescription("Full synchronizations completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sync counter: %w", err)
	}
	snapshotsPruned, err := meter.Int64Counter(
		"termsync.snapshots.pruned",
		metric.WithDescription("Per-instance snapshots deleted by lifecycle pruning"),
	)
	if err != nil {
		return nil, fmt.Errorf("create prune counter: %w", err)
	}
	priceBatch, err := meter.Float64Histogram(
		"termsync.prices.batch_duration",
		metric.WithDescription("Price batch projection duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create price histogram: %w", err)
	}

	return &EngineMetrics{
		eventsApplied:   eventsApplied,
		syncCompletions: syncCompletions,
		snapshotsPruned: snapshotsPruned,
		priceBatch:      priceBatch,
	}, nil
}

// EventApplied records one applied event of the given kind.
func (m *EngineMetrics) EventApplied(kind string) {
	if m == nil {
		return
	}
	m.eventsApplied.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", kind)))
}

// SyncCompleted records a completed full synchronization.
func (m *EngineMetrics) SyncCompleted() {
	if m == nil {
		return
	}
	m.syncCompletions.Add(context.Background(), 1)
}

// SnapshotsPruned records deleted snapshots.
func (m *EngineMetrics) SnapshotsPruned(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.snapshotsPruned.Add(context.Background(), int64(count))
}

// PriceBatchObserved records the projection latency for one price batch.
func (m *EngineMetrics) PriceBatchObserved(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.priceBatch.Record(context.Background(), float64(elapsed.Microseconds())/1000.0)
}
