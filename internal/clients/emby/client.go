// Package emby implements the target catalog client against an Emby media
// server. Library items are normalized into catalog.TargetItem at this
// boundary; the bridge's items carry the source external id in
// ProviderIds["Romm"], which is how bridge-created items are told apart
// from target-native ones.
package emby

import (
	"context"
	"net/url"

	"github.com/romsync/romsync/internal/transport"
	"github.com/romsync/romsync/pkg/catalog"
	"github.com/romsync/romsync/pkg/errors"
	"github.com/romsync/romsync/pkg/plan"
)

// providerID is the ProviderIds key carrying the source external id.
const providerID = "Romm"

// imageTypes maps internal asset kinds onto Emby image types.
var imageTypes = map[catalog.AssetKind]string{
	catalog.AssetKindCover:      "Primary",
	catalog.AssetKindScreenshot: "Screenshot",
	catalog.AssetKindBackdrop:   "Backdrop",
}

// assetKinds is the inverse of imageTypes.
var assetKinds = map[string]catalog.AssetKind{
	"Primary":    catalog.AssetKindCover,
	"Screenshot": catalog.AssetKindScreenshot,
	"Backdrop":   catalog.AssetKindBackdrop,
}

// Client is the Emby target catalog client.
type Client struct {
	transport *transport.Client
}

// New creates an Emby client authenticating with the X-Emby-Token header.
func New(baseURL, apiKey string) *Client {
	return &Client{
		transport: transport.New("emby", baseURL, &transport.HeaderAuth{
			Header: "X-Emby-Token",
			Value:  apiKey,
		}),
	}
}

// rawItem is the wire shape of one library item.
type rawItem struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Overview       string            `json:"Overview"`
	ProductionYear int               `json:"ProductionYear"`
	Genres         []string          `json:"Genres"`
	GameSystem     string            `json:"GameSystem"`
	ProviderIds    map[string]string `json:"ProviderIds"`
	ImageTags      map[string]string `json:"ImageTags"`
}

// itemsPage is the wire shape of GET /Items.
type itemsPage struct {
	Items            []rawItem `json:"Items"`
	TotalRecordCount int       `json:"TotalRecordCount"`
}

// createResponse is the wire shape of POST /Items.
type createResponse struct {
	ID string `json:"Id"`
}

// List fetches the full game library snapshot.
func (c *Client) List(ctx context.Context) ([]catalog.TargetItem, error) {
	query := url.Values{
		"IncludeItemTypes": []string{"Game"},
		"Recursive":        []string{"true"},
		"Fields":           []string{"ProviderIds,Overview,Genres,ProductionYear,GameSystem"},
	}
	var page itemsPage
	if err := c.transport.GetJSON(ctx, "/Items", query, &page); err != nil {
		return nil, err
	}

	items := make([]catalog.TargetItem, 0, len(page.Items))
	for _, raw := range page.Items {
		item, err := normalize(raw)
		if err != nil {
			return nil, errors.WrapProtocol("emby", "/Items", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// normalize converts a raw library item into the internal model. Image
// tags carry asset content hashes (stamped by UploadAsset), which is what
// lets the planner detect asset drift without fetching bytes.
func normalize(raw rawItem) (catalog.TargetItem, error) {
	if raw.ID == "" {
		return catalog.TargetItem{}, &errors.ValidationError{Field: "Id", Message: "must not be empty"}
	}
	item := catalog.TargetItem{
		TargetID:         raw.ID,
		SourceExternalID: raw.ProviderIds[providerID],
		Title:            raw.Name,
		Platform:         raw.GameSystem,
		Summary:          raw.Overview,
		ReleaseYear:      raw.ProductionYear,
		Genres:           raw.Genres,
	}
	item.MetadataHash = item.Hash()

	for imageType, tag := range raw.ImageTags {
		kind, ok := assetKinds[imageType]
		if !ok {
			continue
		}
		item.Assets = append(item.Assets, catalog.AssetRef{
			Kind:        kind,
			ContentHash: tag,
		})
	}
	return item, nil
}

// Create adds a new game item to the library and returns its id.
func (c *Client) Create(ctx context.Context, item catalog.SourceItem) (string, error) {
	payload := map[string]any{
		"Name":           item.Title,
		"Overview":       item.Summary,
		"ProductionYear": item.ReleaseYear,
		"Genres":         item.Genres,
		"GameSystem":     item.Platform,
		"Type":           "Game",
		"MediaType":      "Game",
		"ProviderIds":    map[string]string{providerID: item.ExternalID},
	}
	var resp createResponse
	if err := c.transport.PostJSON(ctx, "/Items", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.WrapProtocol("emby", "/Items",
			&errors.ValidationError{Field: "Id", Message: "create response carried no item id"})
	}
	return resp.ID, nil
}

// Update pushes only the changed metadata fields to the item.
func (c *Client) Update(ctx context.Context, targetID string, changes []plan.FieldChange, item catalog.SourceItem) error {
	payload := make(map[string]any, len(changes))
	for _, change := range changes {
		switch change.Path {
		case "title":
			payload["Name"] = item.Title
		case "summary":
			payload["Overview"] = item.Summary
		case "release_year":
			payload["ProductionYear"] = item.ReleaseYear
		case "genres":
			payload["Genres"] = item.Genres
		case "platform":
			payload["GameSystem"] = item.Platform
		}
	}
	if len(payload) == 0 {
		return nil
	}
	return c.transport.PostJSON(ctx, "/Items/"+targetID, payload, nil)
}

// Delete removes the item from the library.
func (c *Client) Delete(ctx context.Context, targetID string) error {
	return c.transport.Delete(ctx, "/Items/"+targetID)
}

// UploadAsset has the server fetch the asset from its source URL and
// records the content hash as the image tag, so the next List reports the
// hash and unchanged bytes are never re-sent.
func (c *Client) UploadAsset(ctx context.Context, targetID string, asset catalog.AssetRef) error {
	imageType, ok := imageTypes[asset.Kind]
	if !ok {
		return &errors.ValidationError{Field: "kind", Message: "unknown asset kind " + string(asset.Kind)}
	}
	payload := map[string]any{
		"ImageUrl": asset.URL,
		"Type":     imageType,
		"Tag":      asset.ContentHash,
	}
	return c.transport.PostJSON(ctx, "/Items/"+targetID+"/RemoteImages/Download", payload, nil)
}
