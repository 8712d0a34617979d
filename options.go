package romsync

import (
	"time"

	"github.com/romsync/romsync/pkg/errors"
	"github.com/romsync/romsync/pkg/identity"
	"github.com/romsync/romsync/pkg/reconcile"
)

// config holds the assembled collaborators and tuning for a Bridge.
type config struct {
	source      reconcile.Source
	target      reconcile.Target
	store       identity.Store
	workers     int
	retry       reconcile.RetryPolicy
	callTimeout time.Duration
	interval    time.Duration
}

func defaultConfig() *config {
	return &config{
		workers:     4,
		retry:       reconcile.DefaultRetryPolicy,
		callTimeout: 30 * time.Second,
		interval:    15 * time.Minute,
	}
}

func (c *config) validate() error {
	if c.source == nil {
		return &errors.ValidationError{Field: "source", Message: "a source catalog client is required"}
	}
	if c.target == nil {
		return &errors.ValidationError{Field: "target", Message: "a target catalog client is required"}
	}
	if c.store == nil {
		return &errors.ValidationError{Field: "store", Message: "an identity store is required"}
	}
	return nil
}

// Option is a function that configures a Bridge instance.
type Option func(*config) error

// WithSource sets the source catalog client.
func WithSource(source reconcile.Source) Option {
	return func(c *config) error {
		c.source = source
		return nil
	}
}

// WithTarget sets the target catalog client.
func WithTarget(target reconcile.Target) Option {
	return func(c *config) error {
		c.target = target
		return nil
	}
}

// WithStore sets the identity map store.
func WithStore(store identity.Store) Option {
	return func(c *config) error {
		c.store = store
		return nil
	}
}

// WithWorkers sets the bounded concurrency for target mutations.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return &errors.ValidationError{Field: "workers", Message: "worker count must be positive"}
		}
		c.workers = n
		return nil
	}
}

// WithRetry sets the retry budget for transient upstream failures.
func WithRetry(policy reconcile.RetryPolicy) Option {
	return func(c *config) error {
		c.retry = policy
		return nil
	}
}

// WithCallTimeout sets the per-upstream-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return &errors.ValidationError{Field: "callTimeout", Message: "call timeout must be positive"}
		}
		c.callTimeout = d
		return nil
	}
}

// WithInterval sets the scheduling interval for AutoSyncOn.
func WithInterval(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return &errors.ValidationError{Field: "interval", Message: "sync interval must be positive"}
		}
		c.interval = d
		return nil
	}
}

// SyncOptions holds per-pass settings.
type SyncOptions struct {
	// DryRun computes and reports the change plan without mutating the
	// target or the identity map.
	DryRun bool
}

// SyncOption configures one reconciliation pass.
type SyncOption func(*SyncOptions)

// WithDryRun makes the pass report its plan without applying it.
func WithDryRun(enabled bool) SyncOption {
	return func(o *SyncOptions) { o.DryRun = enabled }
}

// NewSyncOptions applies the given options to a default set.
func NewSyncOptions(opts ...SyncOption) *SyncOptions {
	options := &SyncOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
