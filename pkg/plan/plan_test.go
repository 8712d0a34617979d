package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romsync/romsync/pkg/catalog"
	"github.com/romsync/romsync/pkg/identity"
)

func sourceItem(id, title string) catalog.SourceItem {
	item := catalog.SourceItem{
		ExternalID:  id,
		Title:       title,
		Platform:    "Super Nintendo",
		Summary:     "summary",
		ReleaseYear: 1995,
	}
	item.MetadataHash = item.Hash()
	return item
}

func targetFor(item catalog.SourceItem, targetID string) catalog.TargetItem {
	t := catalog.TargetItem{
		TargetID:         targetID,
		SourceExternalID: item.ExternalID,
		Title:            item.Title,
		Platform:         item.Platform,
		Summary:          item.Summary,
		ReleaseYear:      item.ReleaseYear,
		Genres:           item.Genres,
		Assets:           item.Assets,
	}
	t.MetadataHash = t.Hash()
	return t
}

func mappingFor(item catalog.SourceItem, targetID string) identity.Mapping {
	return identity.NewMapping(item.ExternalID, targetID, item.MetadataHash)
}

func TestBuildCreatesUnmappedItems(t *testing.T) {
	a := sourceItem("a", "Alpha")
	b := sourceItem("b", "Beta")

	p, stale := Build([]catalog.SourceItem{b, a}, nil, nil)

	require.Empty(t, stale)
	creates, updates, deletes := p.Counts()
	assert.Equal(t, 2, creates)
	assert.Zero(t, updates)
	assert.Zero(t, deletes)

	// Stable order by external id.
	assert.Equal(t, "a", p.Ops[0].ExternalID)
	assert.Equal(t, "b", p.Ops[1].ExternalID)
}

func TestBuildSkipsUnchangedItems(t *testing.T) {
	a := sourceItem("a", "Alpha")
	tgt := targetFor(a, "t1")

	p, stale := Build(
		[]catalog.SourceItem{a},
		[]catalog.TargetItem{tgt},
		[]identity.Mapping{mappingFor(a, "t1")},
	)

	assert.Empty(t, stale)
	assert.False(t, p.HasChanges())
	assert.Equal(t, 1, p.Skipped)
}

func TestBuildMinimalFieldDiff(t *testing.T) {
	a := sourceItem("a", "Alpha")
	tgt := targetFor(a, "t1")
	mapping := mappingFor(a, "t1")

	// Drift exactly one field.
	a.Summary = "rewritten summary"
	a.MetadataHash = a.Hash()

	p, _ := Build([]catalog.SourceItem{a}, []catalog.TargetItem{tgt}, []identity.Mapping{mapping})

	require.Len(t, p.Ops, 1)
	op := p.Ops[0]
	assert.Equal(t, OpUpdate, op.Kind)
	assert.Equal(t, "t1", op.TargetID)
	require.Len(t, op.Changes, 1, "only the drifted field must be carried")
	assert.Equal(t, "summary", op.Changes[0].Path)
	assert.Equal(t, "summary", op.Changes[0].Old)
	assert.Equal(t, "rewritten summary", op.Changes[0].New)
	assert.Empty(t, op.Assets)
}

func TestBuildAssetDriftWithoutMetadataDrift(t *testing.T) {
	a := sourceItem("a", "Alpha")
	a.Assets = []catalog.AssetRef{{Kind: catalog.AssetKindCover, ContentHash: "new"}}
	tgt := targetFor(a, "t1")
	tgt.Assets = []catalog.AssetRef{{Kind: catalog.AssetKindCover, ContentHash: "old"}}

	p, _ := Build([]catalog.SourceItem{a}, []catalog.TargetItem{tgt}, []identity.Mapping{mappingFor(a, "t1")})

	require.Len(t, p.Ops, 1)
	op := p.Ops[0]
	assert.Equal(t, OpUpdate, op.Kind)
	assert.Empty(t, op.Changes)
	require.Len(t, op.Assets, 1)
	assert.Equal(t, "new", op.Assets[0].ContentHash)
}

func TestBuildRefreshesStaleMappingHash(t *testing.T) {
	a := sourceItem("a", "Alpha")
	tgt := targetFor(a, "t1")
	mapping := mappingFor(a, "t1")
	// The target already matches the source but the recorded hash is
	// behind, as after an update whose mapping write was lost.
	mapping.LastSyncedHash = "stale-hash"

	p, stale := Build([]catalog.SourceItem{a}, []catalog.TargetItem{tgt}, []identity.Mapping{mapping})

	assert.Empty(t, stale)
	assert.Zero(t, p.Skipped)
	require.Len(t, p.Ops, 1)
	op := p.Ops[0]
	assert.Equal(t, OpUpdate, op.Kind)
	assert.Equal(t, "t1", op.TargetID)
	assert.Empty(t, op.Changes, "no field drift, so no payload")
	assert.Empty(t, op.Assets)
}

func TestBuildDeletesVanishedItems(t *testing.T) {
	a := sourceItem("a", "Alpha")
	b := sourceItem("b", "Beta")
	tgtA := targetFor(a, "t1")
	tgtB := targetFor(b, "t2")

	p, _ := Build(
		[]catalog.SourceItem{a}, // b removed from source
		[]catalog.TargetItem{tgtA, tgtB},
		[]identity.Mapping{mappingFor(a, "t1"), mappingFor(b, "t2")},
	)

	require.Len(t, p.Ops, 1)
	assert.Equal(t, OpDelete, p.Ops[0].Kind)
	assert.Equal(t, "b", p.Ops[0].ExternalID)
	assert.Equal(t, "t2", p.Ops[0].TargetID)
}

func TestBuildNeverTouchesTargetNativeItems(t *testing.T) {
	native := catalog.TargetItem{TargetID: "native-1", Title: "Hand-added movie"}

	p, stale := Build(nil, []catalog.TargetItem{native}, nil)

	assert.Empty(t, stale)
	assert.False(t, p.HasChanges())
}

func TestBuildPrunesStaleMappingsAndRecreates(t *testing.T) {
	a := sourceItem("a", "Alpha")
	// Mapping exists but the target item was deleted out-of-band.
	mapping := mappingFor(a, "t-gone")

	p, stale := Build([]catalog.SourceItem{a}, nil, []identity.Mapping{mapping})

	assert.Equal(t, []string{"a"}, stale)
	require.Len(t, p.Ops, 1)
	assert.Equal(t, OpCreate, p.Ops[0].Kind, "stale external id is unmapped this pass")
}

func TestBuildOrdering(t *testing.T) {
	a := sourceItem("a", "Alpha")          // will be an update
	c := sourceItem("c", "Gamma")          // new -> create
	deleted := sourceItem("z", "Vanished") // only in mapping/target -> delete

	tgtA := targetFor(a, "t1")
	tgtZ := targetFor(deleted, "t3")
	mapA := mappingFor(a, "t1")
	mapZ := mappingFor(deleted, "t3")

	a.Title = "Alpha Remastered"
	a.MetadataHash = a.Hash()

	p, _ := Build(
		[]catalog.SourceItem{a, c},
		[]catalog.TargetItem{tgtA, tgtZ},
		[]identity.Mapping{mapA, mapZ},
	)

	require.Len(t, p.Ops, 3)
	assert.Equal(t, OpCreate, p.Ops[0].Kind)
	assert.Equal(t, OpUpdate, p.Ops[1].Kind)
	assert.Equal(t, OpDelete, p.Ops[2].Kind, "deletes run last")
}

func TestPlanSummary(t *testing.T) {
	a := sourceItem("a", "Alpha")
	p, _ := Build([]catalog.SourceItem{a}, nil, nil)
	p.DryRun = true

	assert.Contains(t, p.Summary(), "1 creates")
	assert.Contains(t, p.Summary(), "dry run")
}
