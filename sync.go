package romsync

import (
	"context"

	"github.com/romsync/romsync/pkg/logging"
	"github.com/romsync/romsync/pkg/reconcile"
)

// run executes one reconciliation pass. Callers hold the pass lock.
func (b *bridge) run(ctx context.Context, opts ...SyncOption) (*reconcile.Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Parse options
	options := NewSyncOptions(opts...)

	// Step 2: Run the reconciliation pass
	result, err := b.reconciler.Run(ctx, options.DryRun)
	if err != nil {
		return nil, err
	}

	// Step 3: Log change summary if changes detected
	if result.HasChanges() {
		logging.Info().
			Int("created", len(result.Created)).
			Int("updated", len(result.Updated)).
			Int("deleted", len(result.Deleted)).
			Int("failed", len(result.Failed)).
			Bool("dry_run", result.DryRun).
			Msg("Changes detected")
	} else {
		logging.Info().Msg("No changes detected")
	}

	return result, nil
}
