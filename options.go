package graphpack

import (
	"fmt"
	"log/slog"
	"strings"
)

// Option configures a Pickler or Unpickler.
type Option func(o *options) error

type options struct {
	config  Config
	logger  *slog.Logger
	metrics MetricsCollector
	hook    ObservabilityHook
}

// WithConfig replaces the whole configuration. Options applied after it still
// override individual fields.
func WithConfig(cfg Config) Option {
	return func(o *options) error {
		o.config = cfg
		o.config.ExcludePatterns = append([]string(nil), cfg.ExcludePatterns...)
		return nil
	}
}

// WithStagingRoot sets the staging directory. It must exist.
func WithStagingRoot(path string) Option {
	return func(o *options) error {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%w: staging root cannot be empty", ErrInvalidConfiguration)
		}
		o.config.StagingRoot = path
		return nil
	}
}

// WithCodec selects the generic value codec by name ("gob" or "cbor").
func WithCodec(name string) Option {
	return func(o *options) error {
		o.config.Codec = name
		return nil
	}
}

// WithCompression selects the zip method for archive entries.
func WithCompression(name string) Option {
	return func(o *options) error {
		o.config.Compression = name
		return nil
	}
}

// WithMinExternalSize keeps Sizer objects smaller than n bytes inline.
func WithMinExternalSize(n int64) Option {
	return func(o *options) error {
		o.config.MinExternalSize = n
		return nil
	}
}

// WithExcludePatterns adds glob patterns for files left out of payloads.
func WithExcludePatterns(patterns ...string) Option {
	return func(o *options) error {
		o.config.ExcludePatterns = append(o.config.ExcludePatterns, patterns...)
		return nil
	}
}

// WithLedgerPath records staged items in the SQLite file at path.
func WithLedgerPath(path string) Option {
	return func(o *options) error {
		o.config.LedgerPath = path
		return nil
	}
}

// WithSkipDigest disables blob digest verification on load.
func WithSkipDigest(skip bool) Option {
	return func(o *options) error {
		o.config.SkipDigest = skip
		return nil
	}
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfiguration)
		}
		o.logger = logger
		return nil
	}
}

// WithMetricsCollector reports metrics to collector.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *options) error {
		if collector == nil {
			return fmt.Errorf("%w: metrics collector cannot be nil", ErrInvalidConfiguration)
		}
		o.metrics = collector
		return nil
	}
}

// WithObservabilityHook sends lifecycle events to hook.
func WithObservabilityHook(hook ObservabilityHook) Option {
	return func(o *options) error {
		if hook == nil {
			return fmt.Errorf("%w: observability hook cannot be nil", ErrInvalidConfiguration)
		}
		o.hook = hook
		return nil
	}
}

func resolveOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = o.config.newLogger()
	}

	var hooks []ObservabilityHook
	if o.metrics != nil {
		hooks = append(hooks, NewMetricsObservabilityHook(o.metrics))
	}
	if o.hook != nil {
		hooks = append(hooks, o.hook)
	}
	switch len(hooks) {
	case 0:
		o.hook = NoOpObservabilityHook{}
	case 1:
		o.hook = hooks[0]
	default:
		o.hook = NewCompositeObservabilityHook(hooks...)
	}
	return o, nil
}
