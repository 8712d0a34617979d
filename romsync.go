// Package romsync bridges a RomM game library into an Emby media server.
// It periodically reconciles the Emby game library against the RomM
// collection through a persistent identity map: new roms appear as Emby
// items, metadata drift is pushed as minimal updates, and roms removed
// from RomM are removed from Emby. Items the bridge did not create are
// never touched.
package romsync

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/romsync/romsync/pkg/errors"
	"github.com/romsync/romsync/pkg/identity"
	"github.com/romsync/romsync/pkg/logging"
	"github.com/romsync/romsync/pkg/reconcile"
)

// Bridge manages reconciliation passes between the source and target
// catalogs, optionally on a fixed interval.
type Bridge interface {
	// Sync runs one reconciliation pass. Passes are serialized: a
	// concurrent call blocks until the in-flight pass finishes.
	Sync(ctx context.Context, opts ...SyncOption) (*reconcile.Result, error)

	// TrySync runs one pass unless another is already in flight, in
	// which case it returns ErrPassInProgress instead of queueing.
	TrySync(ctx context.Context, opts ...SyncOption) (*reconcile.Result, error)

	// AutoSyncOn begins interval-scheduled passes.
	AutoSyncOn() error

	// AutoSyncOff stops interval-scheduled passes.
	AutoSyncOff() error

	// Close stops scheduling and closes the identity store.
	Close() error
}

// bridge is the internal implementation of the Bridge interface.
type bridge struct {
	mu         sync.Mutex // serializes passes
	reconciler *reconcile.Reconciler
	store      identity.Store
	config     *config

	ticker     *time.Ticker
	stopCh     chan struct{}
	autoCancel context.CancelFunc
}

// New creates a Bridge from the given options. Source, target and store
// are required.
func New(opts ...Option) (Bridge, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &bridge{
		config: cfg,
		store:  cfg.store,
		stopCh: make(chan struct{}),
		reconciler: reconcile.New(cfg.source, cfg.target, cfg.store,
			reconcile.WithWorkers(cfg.workers),
			reconcile.WithRetryPolicy(cfg.retry),
			reconcile.WithCallTimeout(cfg.callTimeout),
		),
	}
	return b, nil
}

// TrySync runs one pass unless another is already in flight.
func (b *bridge) TrySync(ctx context.Context, opts ...SyncOption) (*reconcile.Result, error) {
	if !b.mu.TryLock() {
		return nil, errors.ErrPassInProgress
	}
	defer b.mu.Unlock()
	return b.run(ctx, opts...)
}

// Sync runs one reconciliation pass, waiting for any in-flight pass.
func (b *bridge) Sync(ctx context.Context, opts ...SyncOption) (*reconcile.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, opts...)
}

// AutoSyncOn begins interval-scheduled passes. A scheduled pass that
// overlaps a manual one is skipped, not queued.
func (b *bridge) AutoSyncOn() error {
	if b.config.interval <= 0 {
		return &errors.ValidationError{Field: "interval", Message: "sync interval must be positive"}
	}

	// Stop any existing schedule to prevent a leaked goroutine.
	if err := b.AutoSyncOff(); err != nil {
		return err
	}
	b.stopCh = make(chan struct{})
	b.ticker = time.NewTicker(b.config.interval)

	ctx, cancel := context.WithCancel(context.Background())
	b.autoCancel = cancel

	go func(ctx context.Context) {
		for {
			select {
			case <-b.ticker.C:
				result, err := b.TrySync(ctx)
				switch {
				case stderrors.Is(err, errors.ErrPassInProgress):
					logging.Debug().Msg("Scheduled pass skipped, another pass in flight")
				case stderrors.Is(err, context.Canceled):
					return
				case err != nil:
					logging.Error().Err(err).Msg("Scheduled pass failed")
				default:
					logging.Info().Str("summary", result.Summary()).Msg("Scheduled pass finished")
				}
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			}
		}
	}(ctx)

	return nil
}

// AutoSyncOff stops interval-scheduled passes.
func (b *bridge) AutoSyncOff() error {
	if b.ticker != nil {
		b.ticker.Stop()
		b.ticker = nil
	}
	if b.autoCancel != nil {
		b.autoCancel()
		b.autoCancel = nil
	}
	select {
	case <-b.stopCh:
		// Already closed
	default:
		close(b.stopCh)
	}
	return nil
}

// Close stops scheduling and closes the identity store.
func (b *bridge) Close() error {
	if err := b.AutoSyncOff(); err != nil {
		return err
	}
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
