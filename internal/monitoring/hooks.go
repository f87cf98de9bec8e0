package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Operation names passed to hooks.
const (
	OperationDump  = "dump"
	OperationLoad  = "load"
	OperationClose = "close"
	OperationOpen  = "open"
	OperationSweep = "sweep"
)

// ObjectEvent describes one externally-managed object crossing the archive
// boundary: saved into it on dump or rebuilt from it on load.
type ObjectEvent struct {
	Archive string
	Tag     string
	Path    string
	Bytes   int64
}

// ObservabilityHook receives lifecycle events from picklers and unpicklers.
type ObservabilityHook interface {
	// Called before processing starts
	OnProcessStart(ctx context.Context, operation string, metadata map[string]any)

	// Called after processing completes (success or failure)
	OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any)

	// Called when errors occur
	OnError(ctx context.Context, operation string, err error, metadata map[string]any)

	// Called for every externalized or resolved object
	OnObject(ctx context.Context, operation string, event ObjectEvent)
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook
type NoOpObservabilityHook struct{}

func (NoOpObservabilityHook) OnProcessStart(context.Context, string, map[string]any) {}
func (NoOpObservabilityHook) OnProcessComplete(context.Context, string, time.Duration, error, map[string]any) {
}
func (NoOpObservabilityHook) OnError(context.Context, string, error, map[string]any) {}
func (NoOpObservabilityHook) OnObject(context.Context, string, ObjectEvent)          {}

// LoggingObservabilityHook writes every event to a slog logger.
type LoggingObservabilityHook struct {
	logger *slog.Logger
}

// NewLoggingObservabilityHook creates a new logging observability hook
func NewLoggingObservabilityHook(logger *slog.Logger) *LoggingObservabilityHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObservabilityHook{logger: logger}
}

func (l *LoggingObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	l.logger.DebugContext(ctx, "operation started", "operation", operation, "metadata", metadata)
}

func (l *LoggingObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	if err != nil {
		l.logger.ErrorContext(ctx, "operation failed", "operation", operation, "duration", duration, "error", err, "metadata", metadata)
		return
	}
	l.logger.InfoContext(ctx, "operation completed", "operation", operation, "duration", duration, "metadata", metadata)
}

func (l *LoggingObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	l.logger.ErrorContext(ctx, "operation error", "operation", operation, "error", err, "metadata", metadata)
}

func (l *LoggingObservabilityHook) OnObject(ctx context.Context, operation string, event ObjectEvent) {
	l.logger.DebugContext(ctx, "object "+operation,
		"archive", event.Archive, "tag", event.Tag, "path", event.Path, "bytes", event.Bytes)
}

// MetricsObservabilityHook turns hook events into metrics
type MetricsObservabilityHook struct {
	collector MetricsCollector
}

// NewMetricsObservabilityHook creates a new metrics observability hook
func NewMetricsObservabilityHook(collector MetricsCollector) *MetricsObservabilityHook {
	if collector == nil {
		collector = NoOpMetricsCollector{}
	}
	return &MetricsObservabilityHook{collector: collector}
}

func (m *MetricsObservabilityHook) OnProcessStart(context.Context, string, map[string]any) {}

func (m *MetricsObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	tags := map[string]string{"status": "success"}
	if err != nil {
		tags["status"] = "error"
	}
	switch operation {
	case OperationDump, OperationClose:
		m.collector.RecordTiming(MetricDumpDuration, duration, tags)
	case OperationLoad:
		m.collector.RecordTiming(MetricLoadDuration, duration, tags)
	}
	if n, ok := metadata["archive_bytes"].(int64); ok && err == nil {
		m.collector.RecordValue(MetricArchiveBytes, float64(n), nil)
	}
}

func (m *MetricsObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	m.collector.IncrementCounter(MetricErrors, map[string]string{
		"operation": operation,
		"error":     fmt.Sprintf("%T", err),
	})
}

func (m *MetricsObservabilityHook) OnObject(ctx context.Context, operation string, event ObjectEvent) {
	tags := map[string]string{"tag": event.Tag}
	switch operation {
	case OperationDump:
		m.collector.IncrementCounter(MetricObjectsExternalized, tags)
	case OperationLoad:
		m.collector.IncrementCounter(MetricReferencesResolved, tags)
	}
}

// CompositeObservabilityHook fans every event out to several hooks
type CompositeObservabilityHook struct {
	hooks []ObservabilityHook
}

// NewCompositeObservabilityHook creates a new composite hook
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	return &CompositeObservabilityHook{hooks: hooks}
}

func (c *CompositeObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnProcessStart(ctx, operation, metadata)
	}
}

func (c *CompositeObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnProcessComplete(ctx, operation, duration, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnError(ctx, operation, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnObject(ctx context.Context, operation string, event ObjectEvent) {
	for _, hook := range c.hooks {
		hook.OnObject(ctx, operation, event)
	}
}
