// Package romm implements the source catalog client against a RomM
// game-library server. Raw API records are normalized into
// catalog.SourceItem at this boundary; nothing RomM-shaped leaks past it.
package romm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"

	"github.com/romsync/romsync/internal/transport"
	"github.com/romsync/romsync/pkg/catalog"
	"github.com/romsync/romsync/pkg/errors"
)

const defaultPageSize = 100

// Client is the RomM source catalog client.
type Client struct {
	transport *transport.Client
	platforms *catalog.PlatformMap
	pageSize  int
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize sets the page size used when listing roms.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPlatformMap sets the slug-to-display-name platform map used during
// normalization.
func WithPlatformMap(m *catalog.PlatformMap) Option {
	return func(c *Client) { c.platforms = m }
}

// New creates a RomM client. An empty apiKey means no authentication.
func New(baseURL, apiKey string, opts ...Option) *Client {
	var auth transport.Authenticator = &transport.NoAuth{}
	if apiKey != "" {
		auth = &transport.BearerAuth{Token: apiKey}
	}
	c := &Client{
		transport: transport.New("romm", baseURL, auth),
		pageSize:  defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rawRom is the wire shape of one rom record.
type rawRom struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Summary      string   `json:"summary"`
	ReleaseDate  string   `json:"release_date"`
	PlatformSlug string   `json:"platform_slug"`
	PlatformName string   `json:"platform_name"`
	Genres       []string `json:"genres"`
	CoverURL     string   `json:"url_cover"`
}

// romPage is the wire shape of one page of GET /api/roms.
type romPage struct {
	Items []rawRom `json:"items"`
	Total int      `json:"total"`
}

// List fetches the full source snapshot, paginating until a short page.
// Any record that fails normalization poisons the whole snapshot: a
// partial snapshot would make the reconciler delete the missing items
// from the target.
func (c *Client) List(ctx context.Context) ([]catalog.SourceItem, error) {
	var items []catalog.SourceItem
	for offset := 0; ; offset += c.pageSize {
		query := url.Values{
			"limit":  []string{strconv.Itoa(c.pageSize)},
			"offset": []string{strconv.Itoa(offset)},
		}
		var page romPage
		if err := c.transport.GetJSON(ctx, "/api/roms", query, &page); err != nil {
			return nil, err
		}

		for _, raw := range page.Items {
			item, err := c.normalize(raw)
			if err != nil {
				return nil, errors.WrapProtocol("romm", "/api/roms", err)
			}
			items = append(items, item)
		}

		if len(page.Items) < c.pageSize {
			return items, nil
		}
	}
}

// normalize converts a raw rom record into the internal item model. The
// metadata hash is computed here, once, over the normalized fields.
func (c *Client) normalize(raw rawRom) (catalog.SourceItem, error) {
	item := catalog.SourceItem{
		ExternalID:  strconv.Itoa(raw.ID),
		Title:       raw.Name,
		Platform:    c.platformName(raw),
		Summary:     raw.Summary,
		ReleaseYear: releaseYear(raw.ReleaseDate),
		Genres:      raw.Genres,
	}
	if err := item.Validate(); err != nil {
		return catalog.SourceItem{}, err
	}
	item.MetadataHash = item.Hash()

	if raw.CoverURL != "" {
		item.Assets = append(item.Assets, catalog.AssetRef{
			Kind:        catalog.AssetKindCover,
			URL:         raw.CoverURL,
			ContentHash: hashURL(raw.CoverURL),
		})
	}
	return item, nil
}

// platformName resolves the display name for a rom's platform: an
// explicit platform-map entry wins, then the upstream's own display name,
// then a title-cased rendering of the slug.
func (c *Client) platformName(raw rawRom) string {
	if name, ok := c.platforms.Lookup(raw.PlatformSlug); ok {
		return name
	}
	if raw.PlatformName != "" {
		return raw.PlatformName
	}
	return catalog.NormalizePlatform(raw.PlatformSlug)
}

// releaseYear extracts the year from a YYYY-MM-DD release date.
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// hashURL content-addresses an asset by its upstream URL. RomM rewrites
// the cover URL when the artwork changes, so the URL hash tracks content
// drift without fetching the bytes.
func hashURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])
}

// Platform is one game platform known to the source server.
type Platform struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Platforms lists the platforms known to the source server; the CLI uses
// it to seed a platform map file.
func (c *Client) Platforms(ctx context.Context) ([]Platform, error) {
	var platforms []Platform
	if err := c.transport.GetJSON(ctx, "/api/platforms", nil, &platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}
