// Package catalog holds the static list of huntable items. It is loaded once
// at startup and never changes while the process runs.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"vntrbirds-be/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type document struct {
	Items []domain.Item `yaml:"items"`
}

// Catalog is an immutable, validated item list
type Catalog struct {
	items []domain.Item
	byID  map[string]int
}

// Default parses the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(doc.Items)
}

// New validates items and builds a catalog
func New(items []domain.Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog has no items")
	}

	c := &Catalog{
		items: make([]domain.Item, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	hypeVideos := 0

	for i, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		switch {
		case item.ID == "":
			return nil, fmt.Errorf("catalog item %d has no id", i)
		case strings.TrimSpace(item.Label) == "":
			return nil, fmt.Errorf("catalog item %q has no label", item.ID)
		case item.Points < 0:
			return nil, fmt.Errorf("catalog item %q has negative points", item.ID)
		case item.ItemType != domain.ItemTypeStandard && item.ItemType != domain.ItemTypeSponsor:
			return nil, fmt.Errorf("catalog item %q has unknown item_type %q", item.ID, item.ItemType)
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("catalog item id %q is duplicated", item.ID)
		}
		if item.IsHypeVideo() {
			hypeVideos++
		}

		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}

	if hypeVideos != 1 {
		return nil, fmt.Errorf("catalog must contain exactly one %q item, found %d", domain.HypeVideoItemID, hypeVideos)
	}

	return c, nil
}

// All returns the items in catalog order
func (c *Catalog) All() []domain.Item {
	out := make([]domain.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Get looks an item up by id
func (c *Catalog) Get(id string) (domain.Item, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Item{}, false
	}
	return c.items[idx], true
}

// Len is the number of items, the "of M" in "N of M found"
func (c *Catalog) Len() int {
	return len(c.items)
}

// ByType returns the items of one type in catalog order
func (c *Catalog) ByType(t domain.ItemType) []domain.Item {
	var out []domain.Item
	for _, item := range c.items {
		if item.ItemType == t {
			out = append(out, item)
		}
	}
	return out
}

// Ordered lists sponsor items first, then standard ones
func (c *Catalog) Ordered() []domain.Item {
	out := make([]domain.Item, 0, len(c.items))
	out = append(out, c.ByType(domain.ItemTypeSponsor)...)
	return append(out, c.ByType(domain.ItemTypeStandard)...)
}

// Filter keeps Ordered items whose label contains query, ignoring case
func (c *Catalog) Filter(query string) []domain.Item {
	q := strings.ToLower(strings.TrimSpace(query))
	ordered := c.Ordered()
	if q == "" {
		return ordered
	}

	out := make([]domain.Item, 0, len(ordered))
	for _, item := range ordered {
		if strings.Contains(strings.ToLower(item.Label), q) {
			out = append(out, item)
		}
	}
	return out
}
