// Package catalog implements ports.AssetResolver over a single manifest
// document: one YAML (or JSON) file mapping asset ids to display names and
// media locations, grouped by kind. Relative locations resolve against the
// manifest's directory, so a story folder stays relocatable.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/vine/pkg/ports"
)

type entry struct {
	Name  string `yaml:"name" json:"name"`
	URL   string `yaml:"url" json:"url"`
	Loop  bool   `yaml:"loop" json:"loop"`
	Video bool   `yaml:"video" json:"video"`
}

type document struct {
	Backgrounds map[string]entry `yaml:"backgrounds" json:"backgrounds"`
	Characters  map[string]entry `yaml:"characters" json:"characters"`
	Audio       map[string]entry `yaml:"audio" json:"audio"`
	Movies      map[string]entry `yaml:"movies" json:"movies"`
	Images      map[string]entry `yaml:"images" json:"images"`
}

// Catalog is an immutable asset manifest.
type Catalog struct {
	baseDir  string
	sections map[ports.AssetKind]map[string]entry
}

// Open reads and parses the manifest at path.
func Open(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset manifest: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	return &Catalog{
		baseDir: filepath.Dir(abs),
		sections: map[ports.AssetKind]map[string]entry{
			ports.AssetBackground: doc.Backgrounds,
			ports.AssetCharacter:  doc.Characters,
			ports.AssetAudio:      doc.Audio,
			ports.AssetMovie:      doc.Movies,
			ports.AssetImage:      doc.Images,
		},
	}, nil
}

func (c *Catalog) lookup(assetID string, kind ports.AssetKind) (entry, bool) {
	section, ok := c.sections[kind]
	if !ok {
		return entry{}, false
	}
	e, ok := section[assetID]
	return e, ok
}

// ResolveURL implements ports.AssetResolver. Manifest entries without a
// location (display-name-only characters, for instance) are a miss.
func (c *Catalog) ResolveURL(assetID string, kind ports.AssetKind) (string, bool) {
	e, ok := c.lookup(assetID, kind)
	if !ok || e.URL == "" {
		return "", false
	}
	if strings.Contains(e.URL, "://") || filepath.IsAbs(e.URL) {
		return e.URL, true
	}
	return filepath.Join(c.baseDir, e.URL), true
}

// Metadata implements ports.AssetResolver.
func (c *Catalog) Metadata(assetID string, kind ports.AssetKind) (ports.AssetMetadata, bool) {
	e, ok := c.lookup(assetID, kind)
	if !ok {
		return ports.AssetMetadata{}, false
	}
	return ports.AssetMetadata{
		Name:    e.Name,
		Loop:    e.Loop,
		IsVideo: e.Video || kind == ports.AssetMovie,
	}, true
}

var _ ports.AssetResolver = (*Catalog)(nil)
