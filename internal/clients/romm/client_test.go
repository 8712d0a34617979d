package romm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romsync/romsync/pkg/catalog"
	"github.com/romsync/romsync/pkg/errors"
)

func romRecord(id int, name string) map[string]any {
	return map[string]any{
		"id":            id,
		"name":          name,
		"summary":       "a game",
		"release_date":  "1995-03-21",
		"platform_slug": "snes",
		"platform_name": "SNES",
		"genres":        []string{"Platformer"},
		"url_cover":     fmt.Sprintf("/assets/covers/%d.png", id),
	}
}

func serveRoms(t *testing.T, records []map[string]any, pageSize int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/roms", r.URL.Path)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		require.Equal(t, pageSize, limit)

		end := offset + limit
		if end > len(records) {
			end = len(records)
		}
		page := []map[string]any{}
		if offset < len(records) {
			page = records[offset:end]
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": page,
			"total": len(records),
		})
	}))
}

func TestListPaginates(t *testing.T) {
	var records []map[string]any
	for i := 1; i <= 5; i++ {
		records = append(records, romRecord(i, fmt.Sprintf("Game %d", i)))
	}
	server := serveRoms(t, records, 2)
	defer server.Close()

	client := New(server.URL, "", WithPageSize(2))
	items, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "1", items[0].ExternalID)
	assert.Equal(t, "Game 5", items[4].Title)
}

func TestListNormalizesRecords(t *testing.T) {
	server := serveRoms(t, []map[string]any{romRecord(7, "Chrono")}, 100)
	defer server.Close()

	platforms := catalog.NewPlatformMap(map[string]string{
		"snes": "Super Nintendo Entertainment System",
	})
	client := New(server.URL, "", WithPlatformMap(platforms))

	items, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "7", item.ExternalID)
	assert.Equal(t, "Chrono", item.Title)
	assert.Equal(t, "Super Nintendo Entertainment System", item.Platform)
	assert.Equal(t, 1995, item.ReleaseYear)
	assert.Equal(t, []string{"Platformer"}, item.Genres)
	assert.Equal(t, item.Hash(), item.MetadataHash, "hash computed at normalization")

	cover, ok := item.Asset(catalog.AssetKindCover)
	require.True(t, ok)
	assert.Equal(t, "/assets/covers/7.png", cover.URL)
	assert.NotEmpty(t, cover.ContentHash)
}

func TestPlatformNamePrecedence(t *testing.T) {
	mapped := catalog.NewPlatformMap(map[string]string{"snes": "Super Nintendo"})

	tests := []struct {
		name string
		raw  rawRom
		m    *catalog.PlatformMap
		want string
	}{
		{"map entry wins", rawRom{PlatformSlug: "snes", PlatformName: "SNES"}, mapped, "Super Nintendo"},
		{"upstream name next", rawRom{PlatformSlug: "ps2", PlatformName: "PlayStation 2"}, mapped, "PlayStation 2"},
		{"slug fallback", rawRom{PlatformSlug: "game-boy-advance"}, nil, "Game Boy Advance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{platforms: tt.m}
			assert.Equal(t, tt.want, c.platformName(tt.raw))
		})
	}
}

func TestListRejectsInvalidRecord(t *testing.T) {
	bad := romRecord(3, "") // missing title
	server := serveRoms(t, []map[string]any{bad}, 100)
	defer server.Close()

	client := New(server.URL, "")
	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsProtocol(err), "a partial snapshot must abort the pass")
}

func TestListSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}, "total": 0})
	}))
	defer server.Close()

	client := New(server.URL, "secret")
	items, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPlatforms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/platforms", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "slug": "snes", "name": "Super Nintendo"},
			{"id": 2, "slug": "ps2", "name": "PlayStation 2"},
		})
	}))
	defer server.Close()

	client := New(server.URL, "")
	platforms, err := client.Platforms(context.Background())
	require.NoError(t, err)
	require.Len(t, platforms, 2)
	assert.Equal(t, "snes", platforms[0].Slug)
}

func TestReleaseYear(t *testing.T) {
	assert.Equal(t, 1998, releaseYear("1998-11-21"))
	assert.Equal(t, 0, releaseYear(""))
	assert.Equal(t, 0, releaseYear("unknown"))
}
