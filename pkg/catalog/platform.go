package catalog

import (
	"os"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/romsync/romsync/pkg/errors"
)

// PlatformMap translates source platform slugs into the display names the
// target library should show as the item's game system. Slugs without an
// entry fall back to a title-cased rendering of the slug.
type PlatformMap struct {
	names map[string]string
}

// platformFile is the on-disk YAML shape of a platform map.
//
//	platforms:
//	  snes: Super Nintendo Entertainment System
//	  ps2: PlayStation 2
type platformFile struct {
	Platforms map[string]string `yaml:"platforms"`
}

var titleCaser = cases.Title(language.English)

// NewPlatformMap creates a platform map from explicit entries.
func NewPlatformMap(names map[string]string) *PlatformMap {
	if names == nil {
		names = make(map[string]string)
	}
	return &PlatformMap{names: names}
}

// LoadPlatformMap reads a platform map from a YAML file.
func LoadPlatformMap(path string) (*PlatformMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapStore("open", err)
	}

	var file platformFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &errors.ValidationError{
			Field:   "platforms",
			Message: "malformed platform map: " + err.Error(),
		}
	}
	return NewPlatformMap(file.Platforms), nil
}

// DisplayName resolves a platform slug to its display name.
func (p *PlatformMap) DisplayName(slug string) string {
	if name, ok := p.Lookup(slug); ok {
		return name
	}
	return NormalizePlatform(slug)
}

// Lookup returns the explicit display name for a slug, if one is mapped.
func (p *PlatformMap) Lookup(slug string) (string, bool) {
	if p == nil {
		return "", false
	}
	name, ok := p.names[slug]
	return name, ok
}

// NormalizePlatform renders a platform slug as a human-readable name,
// e.g. "game-boy-advance" becomes "Game Boy Advance".
func NormalizePlatform(slug string) string {
	if slug == "" {
		return ""
	}
	replaced := make([]byte, len(slug))
	for i := 0; i < len(slug); i++ {
		c := slug[i]
		if c == '-' || c == '_' {
			c = ' '
		}
		replaced[i] = c
	}
	return titleCaser.String(string(replaced))
}
