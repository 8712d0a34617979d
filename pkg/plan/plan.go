// Package plan computes the ordered change plan for one reconciliation
// pass: the set of Create, Update and Delete operations that make the
// target catalog mirror the source snapshot, derived through the identity
// map. Planning is pure; execution lives in pkg/reconcile.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/romsync/romsync/pkg/catalog"
	"github.com/romsync/romsync/pkg/identity"
)

// OpKind identifies the kind of a planned operation.
type OpKind string

// Operation kinds, in execution order.
const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// FieldChange records one drifted metadata field for an update operation.
type FieldChange struct {
	Path string
	Old  string
	New  string
}

// Operation is one planned mutation against the target catalog.
type Operation struct {
	Kind       OpKind
	ExternalID string

	// Item carries the full source snapshot for creates and updates.
	Item catalog.SourceItem

	// TargetID is set for updates and deletes.
	TargetID string

	// Changes lists the drifted metadata fields for updates, so the
	// target client can send a minimal payload.
	Changes []FieldChange

	// Assets lists the asset refs whose content changed and must be
	// re-uploaded. Set for updates; creates upload all item assets.
	Assets []catalog.AssetRef
}

// Plan is the ordered change plan for one pass: creates first, then
// updates, then deletes, each category sorted by external id.
type Plan struct {
	Ops     []Operation
	Skipped int // mapped items whose hash was unchanged
	DryRun  bool
}

// Build computes the change plan from the two catalog snapshots and the
// identity map. It also returns the external ids of stale mappings —
// mappings whose target item no longer exists — which the caller must
// prune before executing the plan. Target-native items (no mapping) are
// never touched.
func Build(source []catalog.SourceItem, target []catalog.TargetItem, mappings []identity.Mapping) (*Plan, []string) {
	byTargetID := make(map[string]catalog.TargetItem, len(target))
	byExternalID := make(map[string]catalog.TargetItem)
	for _, t := range target {
		byTargetID[t.TargetID] = t
		if t.SourceExternalID != "" {
			byExternalID[t.SourceExternalID] = t
		}
	}

	// Index mappings by external id, splitting out the stale ones whose
	// target item was deleted out-of-band. Treating their external ids
	// as unmapped this pass is what makes the bridge self-healing.
	bySourceID := make(map[string]identity.Mapping, len(mappings))
	var stale []string
	for _, m := range mappings {
		if _, live := byTargetID[m.TargetID]; !live {
			stale = append(stale, m.ExternalID)
			continue
		}
		bySourceID[m.ExternalID] = m
	}
	sort.Strings(stale)

	p := &Plan{}
	inSource := make(map[string]bool, len(source))

	var creates, updates, deletes []Operation
	for _, item := range source {
		inSource[item.ExternalID] = true

		mapping, mapped := bySourceID[item.ExternalID]
		if !mapped {
			// An unmapped item whose external id already lives in the
			// target is an orphan of an earlier interrupted pass. Adopt
			// it as an update instead of creating a duplicate.
			if orphan, ok := byExternalID[item.ExternalID]; ok {
				updates = append(updates, Operation{
					Kind:       OpUpdate,
					ExternalID: item.ExternalID,
					Item:       item,
					TargetID:   orphan.TargetID,
					Changes:    diffFields(orphan, item, identity.Mapping{}),
					Assets:     catalog.ChangedAssets(item.Assets, orphan.Assets),
				})
				continue
			}
			creates = append(creates, Operation{
				Kind:       OpCreate,
				ExternalID: item.ExternalID,
				Item:       item,
			})
			continue
		}

		live := byTargetID[mapping.TargetID]
		changes := diffFields(live, item, mapping)
		assets := catalog.ChangedAssets(item.Assets, live.Assets)
		if len(changes) == 0 && len(assets) == 0 {
			// A stale last-synced hash with an already-matching target
			// (an update landed but the mapping write didn't) gets an
			// empty update so the hash self-corrects without a network
			// mutation.
			if mapping.LastSyncedHash != item.MetadataHash {
				updates = append(updates, Operation{
					Kind:       OpUpdate,
					ExternalID: item.ExternalID,
					Item:       item,
					TargetID:   mapping.TargetID,
				})
				continue
			}
			p.Skipped++
			continue
		}

		updates = append(updates, Operation{
			Kind:       OpUpdate,
			ExternalID: item.ExternalID,
			Item:       item,
			TargetID:   mapping.TargetID,
			Changes:    changes,
			Assets:     assets,
		})
	}

	// Valid mappings whose external id left the source snapshot. Only
	// bridge-created items are ever deleted.
	for externalID, m := range bySourceID {
		if !inSource[externalID] {
			deletes = append(deletes, Operation{
				Kind:       OpDelete,
				ExternalID: externalID,
				TargetID:   m.TargetID,
			})
		}
	}

	sortOps(creates)
	sortOps(updates)
	sortOps(deletes)

	// Deletes run last so that a rename expressed as delete+create can
	// never leave the library empty mid-pass.
	p.Ops = append(append(creates, updates...), deletes...)
	return p, stale
}

// diffFields compares the source snapshot against the live target item
// and returns the drifted metadata fields. The last-synced hash is the
// cheap first check; the field list keeps update payloads minimal.
func diffFields(live catalog.TargetItem, item catalog.SourceItem, mapping identity.Mapping) []FieldChange {
	if item.MetadataHash == mapping.LastSyncedHash && item.MetadataHash == live.MetadataHash {
		return nil
	}

	var changes []FieldChange
	if item.Title != live.Title {
		changes = append(changes, FieldChange{Path: "title", Old: live.Title, New: item.Title})
	}
	if item.Platform != live.Platform {
		changes = append(changes, FieldChange{Path: "platform", Old: live.Platform, New: item.Platform})
	}
	if item.Summary != live.Summary {
		changes = append(changes, FieldChange{Path: "summary", Old: live.Summary, New: item.Summary})
	}
	if item.ReleaseYear != live.ReleaseYear {
		changes = append(changes, FieldChange{
			Path: "release_year",
			Old:  fmt.Sprintf("%d", live.ReleaseYear),
			New:  fmt.Sprintf("%d", item.ReleaseYear),
		})
	}
	if !equalGenres(item.Genres, live.Genres) {
		changes = append(changes, FieldChange{
			Path: "genres",
			Old:  strings.Join(live.Genres, ","),
			New:  strings.Join(item.Genres, ","),
		})
	}
	return changes
}

// equalGenres compares genre sets ignoring order.
func equalGenres(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// sortOps orders operations by external id for determinism.
func sortOps(ops []Operation) {
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].ExternalID < ops[j].ExternalID
	})
}

// Counts returns the number of planned creates, updates and deletes.
func (p *Plan) Counts() (creates, updates, deletes int) {
	for _, op := range p.Ops {
		switch op.Kind {
		case OpCreate:
			creates++
		case OpUpdate:
			updates++
		case OpDelete:
			deletes++
		}
	}
	return
}

// HasChanges reports whether the plan contains any operations.
func (p *Plan) HasChanges() bool {
	return len(p.Ops) > 0
}

// Summary returns a human-readable summary of the plan.
func (p *Plan) Summary() string {
	c, u, d := p.Counts()
	s := fmt.Sprintf("%d creates, %d updates, %d deletes, %d unchanged", c, u, d, p.Skipped)
	if p.DryRun {
		s += " (dry run)"
	}
	return s
}
