package knowledge

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayFile is the on-disk YAML layout of a knowledge-base overlay.
type overlayFile struct {
	Categories []Category `yaml:"categories"`
}

// ParseYAML decodes an overlay document into categories.
func ParseYAML(r io.Reader) ([]Category, error) {
	var doc overlayFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode knowledge base overlay: %w", err)
	}
	for i := range doc.Categories {
		if err := doc.Categories[i].validate(); err != nil {
			return nil, err
		}
	}
	return doc.Categories, nil
}

// LoadYAML overlays the categories in path onto base. An empty path
// returns base unchanged.
func LoadYAML(base *Registry, path string) (*Registry, error) {
	if path == "" {
		return base, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base overlay: %w", err)
	}
	defer f.Close()

	extra, err := ParseYAML(f)
	if err != nil {
		return nil, err
	}
	return base.Overlay(extra)
}
