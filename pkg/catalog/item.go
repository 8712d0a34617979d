// Package catalog defines the internal item model shared by both catalog
// clients and the reconciler. Raw upstream shapes are normalized into these
// types at the client boundary and never leak past it.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/romsync/romsync/pkg/errors"
)

// AssetKind identifies the kind of binary asset attached to an item.
type AssetKind string

// Asset kinds understood by both catalog clients.
const (
	AssetKindCover      AssetKind = "cover"
	AssetKindScreenshot AssetKind = "screenshot"
	AssetKindBackdrop   AssetKind = "backdrop"
)

// AssetRef references a binary asset by content. The content hash lets the
// reconciler skip re-uploading unchanged bytes.
type AssetRef struct {
	Kind        AssetKind
	ContentHash string
	URL         string
}

// SourceItem is an immutable snapshot of one game record from the source
// catalog, produced fresh by the source client on every reconciliation pass.
type SourceItem struct {
	ExternalID   string
	Title        string
	Platform     string
	Summary      string
	ReleaseYear  int
	Genres       []string
	MetadataHash string
	Assets       []AssetRef
}

// TargetItem is a snapshot of one library item from the target catalog.
// SourceExternalID is empty for target-native items the bridge did not
// create; those are never touched. The metadata fields are normalized from
// the target's shape so the planner can compute field-level diffs.
type TargetItem struct {
	TargetID         string
	SourceExternalID string
	Title            string
	Platform         string
	Summary          string
	ReleaseYear      int
	Genres           []string
	MetadataHash     string
	Assets           []AssetRef
}

// Hash computes the metadata hash of the target snapshot over the same
// drift-relevant fields as SourceItem.Hash.
func (t *TargetItem) Hash() string {
	s := SourceItem{
		Title:       t.Title,
		Platform:    t.Platform,
		Summary:     t.Summary,
		ReleaseYear: t.ReleaseYear,
		Genres:      t.Genres,
	}
	return s.Hash()
}

// Validate checks that the item carries the fields the reconciler depends on.
func (s *SourceItem) Validate() error {
	if s.ExternalID == "" {
		return &errors.ValidationError{Field: "external_id", Message: "must not be empty"}
	}
	if s.Title == "" {
		return &errors.ValidationError{Field: "title", Message: "must not be empty"}
	}
	return nil
}

// Hash computes the metadata hash over the drift-relevant fields. It is a
// pure function of those fields: an unchanged hash means no network
// mutation is issued for the item.
func (s *SourceItem) Hash() string {
	var b strings.Builder
	b.WriteString(s.Title)
	b.WriteByte('\x1f')
	b.WriteString(s.Platform)
	b.WriteByte('\x1f')
	b.WriteString(s.Summary)
	b.WriteByte('\x1f')
	b.WriteString(strconv.Itoa(s.ReleaseYear))
	b.WriteByte('\x1f')
	// Genres are order-insensitive.
	genres := append([]string(nil), s.Genres...)
	sort.Strings(genres)
	b.WriteString(strings.Join(genres, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Asset returns the asset of the given kind, if present.
func (s *SourceItem) Asset(kind AssetKind) (AssetRef, bool) {
	return findAsset(s.Assets, kind)
}

// Asset returns the asset of the given kind, if present.
func (t *TargetItem) Asset(kind AssetKind) (AssetRef, bool) {
	return findAsset(t.Assets, kind)
}

func findAsset(assets []AssetRef, kind AssetKind) (AssetRef, bool) {
	for _, a := range assets {
		if a.Kind == kind {
			return a, true
		}
	}
	return AssetRef{}, false
}

// ChangedAssets returns the source assets whose content differs from what
// the target currently carries, in stable kind order.
func ChangedAssets(source []AssetRef, target []AssetRef) []AssetRef {
	var changed []AssetRef
	for _, sa := range source {
		ta, ok := findAsset(target, sa.Kind)
		if !ok || ta.ContentHash != sa.ContentHash {
			changed = append(changed, sa)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Kind < changed[j].Kind })
	return changed
}

// String implements fmt.Stringer for log output.
func (s SourceItem) String() string {
	return fmt.Sprintf("%s (%s, %s)", s.Title, s.Platform, s.ExternalID)
}
