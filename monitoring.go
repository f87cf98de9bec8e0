package graphpack

import (
	"log/slog"

	"github.com/hengadev/graphpack/internal/monitoring"
)

// MetricsCollector receives counters, timings and values. Implementations
// must be safe for concurrent use.
type MetricsCollector = monitoring.MetricsCollector

// ObservabilityHook receives lifecycle events from picklers and unpicklers.
type ObservabilityHook = monitoring.ObservabilityHook

// ObjectEvent describes one object saved into or rebuilt from an archive.
type ObjectEvent = monitoring.ObjectEvent

type (
	NoOpMetricsCollector       = monitoring.NoOpMetricsCollector
	NoOpObservabilityHook      = monitoring.NoOpObservabilityHook
	InMemoryMetricsCollector   = monitoring.InMemoryMetricsCollector
	LoggingObservabilityHook   = monitoring.LoggingObservabilityHook
	MetricsObservabilityHook   = monitoring.MetricsObservabilityHook
	CompositeObservabilityHook = monitoring.CompositeObservabilityHook
)

// Metric names
const (
	MetricObjectsExternalized = monitoring.MetricObjectsExternalized
	MetricReferencesResolved  = monitoring.MetricReferencesResolved
	MetricDumpDuration        = monitoring.MetricDumpDuration
	MetricLoadDuration        = monitoring.MetricLoadDuration
	MetricArchiveBytes        = monitoring.MetricArchiveBytes
	MetricErrors              = monitoring.MetricErrors
)

// NewInMemoryMetricsCollector creates a collector that keeps every metric in memory.
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return monitoring.NewInMemoryMetricsCollector()
}

// NewLoggingObservabilityHook creates a hook that logs every event.
func NewLoggingObservabilityHook(logger *slog.Logger) *LoggingObservabilityHook {
	return monitoring.NewLoggingObservabilityHook(logger)
}

// NewMetricsObservabilityHook creates a hook that turns events into metrics.
func NewMetricsObservabilityHook(collector MetricsCollector) *MetricsObservabilityHook {
	return monitoring.NewMetricsObservabilityHook(collector)
}

// NewCompositeObservabilityHook creates a hook that forwards to every hook given.
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	return monitoring.NewCompositeObservabilityHook(hooks...)
}
