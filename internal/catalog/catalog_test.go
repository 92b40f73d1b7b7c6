package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vntrbirds-be/internal/domain"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Greater(t, c.Len(), 0)

	hype, ok := c.Get(domain.HypeVideoItemID)
	require.True(t, ok)
	assert.True(t, hype.IsHypeVideo())
	assert.NotEmpty(t, hype.BonusHint)

	seen := map[string]bool{}
	for _, item := range c.All() {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
		assert.GreaterOrEqual(t, item.Points, 0)
	}
}

func TestOrdered_SponsorsFirst(t *testing.T) {
	c, err := New([]domain.Item{
		{ID: "a", Label: "Alpha", Points: 5, ItemType: domain.ItemTypeStandard},
		{ID: "s1", Label: "Sponsor One", Points: 10, ItemType: domain.ItemTypeSponsor},
		{ID: domain.HypeVideoItemID, Label: "Hype", Points: 30, ItemType: domain.ItemTypeStandard},
		{ID: "s2", Label: "Sponsor Two", Points: 10, ItemType: domain.ItemTypeSponsor},
	})
	require.NoError(t, err)

	var ids []string
	for _, item := range c.Ordered() {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"s1", "s2", "a", domain.HypeVideoItemID}, ids)
}

func TestFilter(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		check func(t *testing.T, items []domain.Item)
	}{
		{
			name:  "empty query returns everything",
			query: "   ",
			check: func(t *testing.T, items []domain.Item) {
				assert.Len(t, items, c.Len())
			},
		},
		{
			name:  "case insensitive contains",
			query: "SUNSET",
			check: func(t *testing.T, items []domain.Item) {
				require.Len(t, items, 1)
				assert.Equal(t, "sunset_silhouette", items[0].ID)
			},
		},
		{
			name:  "no match",
			query: "submarine",
			check: func(t *testing.T, items []domain.Item) {
				assert.Empty(t, items)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, c.Filter(tt.query))
		})
	}
}

func TestNew_Validation(t *testing.T) {
	hype := domain.Item{ID: domain.HypeVideoItemID, Label: "Hype", Points: 30, ItemType: domain.ItemTypeStandard}

	tests := []struct {
		name    string
		items   []domain.Item
		wantErr string
	}{
		{"empty", nil, "no items"},
		{"missing id", []domain.Item{hype, {Label: "x", ItemType: domain.ItemTypeStandard}}, "has no id"},
		{"negative points", []domain.Item{hype, {ID: "x", Label: "x", Points: -1, ItemType: domain.ItemTypeStandard}}, "negative points"},
		{"bad type", []domain.Item{hype, {ID: "x", Label: "x", ItemType: "bonus"}}, "unknown item_type"},
		{"duplicate", []domain.Item{hype, hype}, "duplicated"},
		{"no hype video", []domain.Item{{ID: "x", Label: "x", ItemType: domain.ItemTypeSponsor}}, "exactly one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.items)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	doc := "items:\n  - id: hype_video\n    label: Hype\n    points: 30\n    item_type: standard\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
