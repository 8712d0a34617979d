// Package reconcile implements the reconciliation engine: it compares the
// source and target catalog snapshots through the identity map, computes
// an ordered change plan, and executes it against the target with bounded
// concurrency, per-operation retry and partial-failure isolation.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/romsync/romsync/pkg/catalog"
	"github.com/romsync/romsync/pkg/errors"
	"github.com/romsync/romsync/pkg/identity"
	"github.com/romsync/romsync/pkg/logging"
	"github.com/romsync/romsync/pkg/plan"
)

// Source lists the current snapshot of the source catalog. The sequence
// is produced fresh on every call; implementations paginate internally
// and keep a single request in flight per pass.
type Source interface {
	List(ctx context.Context) ([]catalog.SourceItem, error)
}

// Target is the mutable side of the bridge. Create, Update, Delete and
// UploadAsset are idempotent at the call level: retrying the same call is
// safe. They fail with errors matching ErrUpstreamConflict when the
// target id no longer exists and ErrUpstreamUnavailable on transient
// failures.
type Target interface {
	List(ctx context.Context) ([]catalog.TargetItem, error)
	Create(ctx context.Context, item catalog.SourceItem) (targetID string, err error)
	Update(ctx context.Context, targetID string, changes []plan.FieldChange, item catalog.SourceItem) error
	Delete(ctx context.Context, targetID string) error
	UploadAsset(ctx context.Context, targetID string, asset catalog.AssetRef) error
}

// Reconciler runs reconciliation passes for one source/target pair.
type Reconciler struct {
	source Source
	target Target
	store  identity.Store

	workers     int
	retry       RetryPolicy
	callTimeout time.Duration

	// sleep waits between retry attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithWorkers sets the bounded concurrency for target mutations.
func WithWorkers(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithRetryPolicy sets the retry budget for transient upstream failures.
func WithRetryPolicy(p RetryPolicy) ReconcilerOption {
	return func(r *Reconciler) { r.retry = p }
}

// WithCallTimeout sets the per-upstream-call timeout. Timeouts are
// enforced per call, never per pass.
func WithCallTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// New creates a Reconciler for the given catalog pair and identity store.
func New(source Source, target Target, store identity.Store, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		source:      source,
		target:      target,
		store:       store,
		workers:     4,
		retry:       DefaultRetryPolicy,
		callTimeout: 30 * time.Second,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one reconciliation pass. Snapshot-level failures (protocol
// errors, identity store errors) abort the pass with an error and no
// target mutations. Per-item failures are isolated and aggregated into
// the returned summary.
func (r *Reconciler) Run(ctx context.Context, dryRun bool) (*Result, error) {
	start := time.Now()
	passID := uuid.NewString()
	ctx = logging.WithPass(ctx, passID)
	logger := logging.Ctx(ctx)

	// Step 1: Snapshot both catalogs. One in-flight list per upstream.
	sourceItems, err := r.source.List(ctx)
	if err != nil {
		return nil, err
	}
	targetItems, err := r.target.List(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("source_items", len(sourceItems)).
		Int("target_items", len(targetItems)).
		Msg("Snapshots fetched")

	// Step 2: Load the identity map. An unreadable map aborts the pass:
	// mutating the target without it risks duplicate creation.
	mappings, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	// Step 3: Compute the change plan. The planner reports mappings
	// whose target item vanished as stale; their external ids count as
	// unmapped this pass.
	p, stale := plan.Build(sourceItems, targetItems, mappings)
	p.DryRun = dryRun

	logger.Info().
		Str("plan", p.Summary()).
		Int("stale_mappings", len(stale)).
		Msg("Change plan computed")

	// Step 4: Dry run reports the would-be summary, stale mappings
	// included, without touching the target or the identity map.
	if dryRun {
		rec := newRecorder(passID, true)
		for _, op := range p.Ops {
			rec.applied(op)
		}
		result := rec.finish(start, p.Skipped, false)
		result.Pruned = stale
		return result, nil
	}

	// Step 5: Prune stale mappings before any mutation.
	for _, externalID := range stale {
		if err := r.store.Remove(ctx, externalID); err != nil {
			return nil, err
		}
		logger.Info().Str("external_id", externalID).Msg("Pruned stale mapping")
	}

	// Step 6: Execute the plan with bounded concurrency. Deletes run as
	// a second wave so removals can never race their own replacements.
	rec := newRecorder(passID, false)
	canceled := r.execute(ctx, p, rec)

	result := rec.finish(start, p.Skipped, canceled)
	result.Pruned = stale
	logger.Info().
		Str("summary", result.Summary()).
		Dur("duration", result.Duration).
		Msg("Reconciliation pass finished")
	return result, nil
}

// sleepContext waits for d or until the context is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callWithRetry invokes fn with a per-call timeout, retrying transient
// failures until the retry budget is exhausted. In-flight calls are never
// aborted by pass cancellation; the per-call timeout still applies.
func (r *Reconciler) callWithRetry(ctx context.Context, fn func(context.Context) error) error {
	opCtx := context.WithoutCancel(ctx)
	b := r.retry.newBackoff()
	for {
		callCtx, cancel := context.WithTimeout(opCtx, r.callTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !errors.IsUnavailable(err) {
			return err
		}
		delay, ok := b.Next()
		if !ok {
			return err
		}
		// Cancellation is observed between attempts, not mid-call.
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
}
