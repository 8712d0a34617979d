// Package identity owns the durable mapping between source items and the
// target items the bridge created for them. The mapping is the only state
// that survives across reconciliation passes.
package identity

import (
	"context"

	"github.com/agentstation/utc"
)

// Mapping is one row of the identity map: the durable correspondence
// between a source item and the target item created for it. Rows are
// written only after a confirmed successful target mutation, never
// speculatively.
type Mapping struct {
	ExternalID     string
	TargetID       string
	LastSyncedHash string
	LastSyncedAt   utc.Time
}

// Store is the persistence contract for the identity map. Implementations
// must make Load, Upsert and Remove individually atomic: a crash mid-write
// must never leave a mapping pointing at a target id that was never
// confirmed created. Implementations must be safe for concurrent use by
// the reconciler's workers.
type Store interface {
	// Load returns every mapping ever persisted by the bridge.
	Load(ctx context.Context) ([]Mapping, error)

	// Upsert inserts or replaces the mapping for its external ID.
	Upsert(ctx context.Context, m Mapping) error

	// Remove deletes the mapping for the external ID. Removing an
	// absent mapping is not an error.
	Remove(ctx context.Context, externalID string) error

	// Close releases the underlying storage handle.
	Close() error
}

// NewMapping builds a mapping stamped with the current time.
func NewMapping(externalID, targetID, hash string) Mapping {
	return Mapping{
		ExternalID:     externalID,
		TargetID:       targetID,
		LastSyncedHash: hash,
		LastSyncedAt:   utc.Now(),
	}
}
