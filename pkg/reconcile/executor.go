package reconcile

import (
	"context"
	"sync"

	"github.com/romsync/romsync/pkg/catalog"
	"github.com/romsync/romsync/pkg/errors"
	"github.com/romsync/romsync/pkg/identity"
	"github.com/romsync/romsync/pkg/logging"
	"github.com/romsync/romsync/pkg/plan"
)

// execute runs the plan's operations: creates and updates concurrently up
// to the worker limit, then deletes as a second wave. It reports whether
// cancellation was observed. Each operation's failure is isolated; the
// identity map is updated only after the corresponding target mutation is
// confirmed.
func (r *Reconciler) execute(ctx context.Context, p *plan.Plan, rec *recorder) bool {
	var mutations, deletes []plan.Operation
	for _, op := range p.Ops {
		if op.Kind == plan.OpDelete {
			deletes = append(deletes, op)
		} else {
			mutations = append(mutations, op)
		}
	}

	canceled := r.wave(ctx, mutations, rec)
	if canceled {
		// The delete wave never starts, but its operations still belong
		// to the pass summary.
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		for _, op := range deletes {
			rec.failed(op, err)
		}
		return true
	}
	return r.wave(ctx, deletes, rec)
}

// wave executes one batch of operations with a semaphore-bounded worker
// pool. Operations not yet started when cancellation is observed are
// recorded as failed; in-flight operations finish.
func (r *Reconciler) wave(ctx context.Context, ops []plan.Operation, rec *recorder) bool {
	if len(ops) == 0 {
		return ctx.Err() != nil
	}

	semaphore := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	canceled := false

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			canceled = true
			rec.failed(op, err)
			continue
		}

		wg.Add(1)
		go func(op plan.Operation) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			// Re-check after the semaphore wait: cancellation may have
			// arrived while the operation sat in the queue. Only an
			// operation already past this point runs to completion.
			if err := ctx.Err(); err != nil {
				rec.failed(op, err)
				return
			}

			if err := r.apply(ctx, op); err != nil {
				logging.Ctx(ctx).Warn().
					Err(err).
					Str("external_id", op.ExternalID).
					Str("op", string(op.Kind)).
					Msg("Operation failed")
				rec.failed(op, err)
				return
			}
			rec.applied(op)
		}(op)
	}
	wg.Wait()
	return canceled || ctx.Err() != nil
}

// apply executes a single operation to its terminal state: Applied (the
// mapping store reflects it) or Failed (the mapping store is untouched,
// except for conflict-driven pruning).
func (r *Reconciler) apply(ctx context.Context, op plan.Operation) error {
	switch op.Kind {
	case plan.OpCreate:
		return r.applyCreate(ctx, op)
	case plan.OpUpdate:
		return r.applyUpdate(ctx, op)
	case plan.OpDelete:
		return r.applyDelete(ctx, op)
	default:
		return &errors.ValidationError{Field: "op", Message: "unknown operation kind"}
	}
}

// applyCreate creates the target item, persists its mapping immediately
// after the create is confirmed, then uploads the item's assets. The
// mapping write happens before anything else so a crash can never leave a
// confirmed create unmapped.
func (r *Reconciler) applyCreate(ctx context.Context, op plan.Operation) error {
	var targetID string
	err := r.callWithRetry(ctx, func(callCtx context.Context) error {
		id, createErr := r.target.Create(callCtx, op.Item)
		if createErr != nil {
			return createErr
		}
		targetID = id
		return nil
	})
	if err != nil {
		return err
	}

	mapping := newMappingForItem(op.Item, targetID)
	if err := r.store.Upsert(context.WithoutCancel(ctx), mapping); err != nil {
		return err
	}

	r.uploadAssets(ctx, targetID, op.Item.Assets)
	return nil
}

// applyUpdate pushes the changed fields and assets, then refreshes the
// mapping with the new hash. An adoption update (orphaned target item,
// no prior mapping) may carry no changes at all; it still persists the
// mapping. A conflict means the target item vanished mid-pass: the
// mapping is pruned so the next pass recreates the item.
func (r *Reconciler) applyUpdate(ctx context.Context, op plan.Operation) error {
	if len(op.Changes) > 0 {
		err := r.callWithRetry(ctx, func(callCtx context.Context) error {
			return r.target.Update(callCtx, op.TargetID, op.Changes, op.Item)
		})
		if err != nil {
			if errors.IsConflict(err) {
				r.pruneMapping(ctx, op.ExternalID)
			}
			return err
		}
	}

	r.uploadAssets(ctx, op.TargetID, op.Assets)

	return r.store.Upsert(context.WithoutCancel(ctx), newMappingForItem(op.Item, op.TargetID))
}

// applyDelete removes the target item and its mapping. A conflict means
// the item is already gone; the mapping is still removed.
func (r *Reconciler) applyDelete(ctx context.Context, op plan.Operation) error {
	err := r.callWithRetry(ctx, func(callCtx context.Context) error {
		return r.target.Delete(callCtx, op.TargetID)
	})
	if err != nil && !errors.IsConflict(err) {
		return err
	}
	return r.store.Remove(context.WithoutCancel(ctx), op.ExternalID)
}

// uploadAssets pushes changed assets; content hashes are recorded by the
// target client so unchanged bytes are never re-sent. An asset failure
// does not fail the item: the metadata mutation is already confirmed, and
// the missing content hash makes the next pass retry the upload.
func (r *Reconciler) uploadAssets(ctx context.Context, targetID string, assets []catalog.AssetRef) {
	for _, asset := range assets {
		err := r.callWithRetry(ctx, func(callCtx context.Context) error {
			return r.target.UploadAsset(callCtx, targetID, asset)
		})
		if err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("target_id", targetID).
				Str("asset_kind", string(asset.Kind)).
				Msg("Asset upload failed; will retry next pass")
		}
	}
}

// newMappingForItem stamps a fresh mapping for a confirmed mutation.
func newMappingForItem(item catalog.SourceItem, targetID string) identity.Mapping {
	return identity.NewMapping(item.ExternalID, targetID, item.MetadataHash)
}

// pruneMapping removes a mapping after a conflict. Failures here are
// logged, not surfaced: the pass summary already records the item failed.
func (r *Reconciler) pruneMapping(ctx context.Context, externalID string) {
	if err := r.store.Remove(context.WithoutCancel(ctx), externalID); err != nil {
		logging.Ctx(ctx).Error().
			Err(err).
			Str("external_id", externalID).
			Msg("Failed to prune mapping after conflict")
	}
}
