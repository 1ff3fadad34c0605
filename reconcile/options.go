package reconcile

import (
	"log/slog"
	"time"
)

// Observation summarizes one invocation for metrics sinks.
type Observation struct {
	Operation Operation
	Changed   bool
	// Kind is empty on success.
	Kind      Kind
	Duration  time.Duration
	CheckMode bool
}

// Observer receives one Observation per Reconcile call.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(Observation)
}

// reconcilerOptions holds configuration options for the Reconciler.
type reconcilerOptions struct {
	logger    *slog.Logger
	observer  Observer
	checkMode bool
	timeout   time.Duration
}

// Option is a functional option for configuring the Reconciler.
type Option func(*reconcilerOptions)

// WithLogger configures the reconciler with a custom logger.
// A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(opts *reconcilerOptions) {
		opts.logger = logger
	}
}

// WithObserver reports every invocation to observer.
func WithObserver(observer Observer) Option {
	return func(opts *reconcilerOptions) {
		opts.observer = observer
	}
}

// WithCheckMode computes and reports the decision without mutating anything.
func WithCheckMode() Option {
	return func(opts *reconcilerOptions) {
		opts.checkMode = true
	}
}

// WithTimeout bounds each invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(opts *reconcilerOptions) {
		opts.timeout = d
	}
}

func defaultOptions() *reconcilerOptions {
	return &reconcilerOptions{}
}

func applyOptions(opts *reconcilerOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
}
