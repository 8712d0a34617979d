package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romsync/romsync/pkg/errors"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.True(t, errors.IsStore(err))
}

func TestUpsertLoadRemove(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Upsert(ctx, NewMapping("rom-1", "emby-1", "h1")))
	require.NoError(t, store.Upsert(ctx, NewMapping("rom-2", "emby-2", "h2")))

	mappings, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, "rom-1", mappings[0].ExternalID)
	assert.Equal(t, "emby-1", mappings[0].TargetID)
	assert.Equal(t, "h1", mappings[0].LastSyncedHash)
	assert.False(t, mappings[0].LastSyncedAt.IsZero())

	require.NoError(t, store.Remove(ctx, "rom-1"))
	mappings, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "rom-2", mappings[0].ExternalID)

	// Removing an absent mapping is not an error.
	assert.NoError(t, store.Remove(ctx, "rom-1"))
}

func TestUpsertReplacesRow(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Upsert(ctx, NewMapping("rom-1", "emby-1", "h1")))
	require.NoError(t, store.Upsert(ctx, NewMapping("rom-1", "emby-9", "h2")))

	mappings, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "emby-9", mappings[0].TargetID)
	assert.Equal(t, "h2", mappings[0].LastSyncedHash)
}

func TestBijectionEnforcedBySchema(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Upsert(ctx, NewMapping("rom-1", "emby-1", "h1")))

	// A second external id may not claim the same target id.
	err := store.Upsert(ctx, NewMapping("rom-2", "emby-1", "h2"))
	assert.True(t, errors.IsStore(err))
}

func TestUpsertValidatesIDs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	assert.True(t, errors.IsStore(store.Upsert(ctx, Mapping{TargetID: "emby-1"})))
	assert.True(t, errors.IsStore(store.Upsert(ctx, Mapping{ExternalID: "rom-1"})))
}

func TestLoadEmptyStore(t *testing.T) {
	store := openTestStore(t)

	mappings, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, NewMapping("rom-1", "emby-1", "h1")))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	mappings, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "emby-1", mappings[0].TargetID)
}
