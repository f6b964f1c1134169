package inventory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicsort/engine/internal/catalog"
)

func buildTestIndex(t *testing.T) *catalog.Index {
	t.Helper()
	dir := t.TempDir()

	write := func(name string, v any) string {
		path := filepath.Join(dir, name)
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	effectsPath := write("effects.json", []map[string]any{
		{"id": 1, "key": "atk_up", "stacking": true},
		{"id": 2, "key": "def_down", "stacking": "conditional"},
	})
	itemsPath := write("items.json", []map[string]any{
		{"id": 10, "key": "ring_of_power", "color": "Red", "type": "Relic"},
		{"id": 11, "key": "deep_shard", "color": "Blue", "type": "DeepRelic"},
	})
	vesselsPath := write("vessels.json", []map[string]any{})

	idx, err := catalog.LoadIndex(effectsPath, itemsPath, vesselsPath)
	require.NoError(t, err)
	return idx
}

func TestLoadInventory_ResolvesAndFilters(t *testing.T) {
	idx := buildTestIndex(t)
	dir := t.TempDir()
	invPath := filepath.Join(dir, "inventory.json")

	raw := rawInventory{
		CharacterName: "Wylder",
		Relics: []rawRelic{
			{
				ID:        1,
				ItemKey:   "ring_of_power",
				ItemColor: "Red",
				ItemType:  "Relic",
				Effects: [][]rawEffectRef{
					{{Key: "atk_up", NameEN: "Attack Up", NameJA: "攻撃力上昇"}},
				},
			},
			{
				ID:        2,
				ItemKey:   "deep_shard",
				ItemColor: "Blue",
				ItemType:  "DeepRelic",
				Effects: [][]rawEffectRef{
					{{Key: "def_down", NameEN: "Defense Down", NameJA: "防御力低下"}},
				},
			},
			{
				ID:        3,
				ItemKey:   "unknown_item",
				ItemColor: "Red",
				ItemType:  "Relic",
				Effects:   nil,
			},
		},
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(invPath, data, 0o644))

	store, err := LoadInventory(invPath, idx)
	require.NoError(t, err)

	assert.Equal(t, "Wylder", store.CharacterName)
	assert.Len(t, store.All(), 2, "the unknown item key should be skipped, not fatal")

	ordinary := store.ByType(catalog.OrdinaryRelic)
	require.Len(t, ordinary, 1)
	assert.Equal(t, 1, ordinary[0].ID)
	assert.Equal(t, catalog.Red, ordinary[0].Color)

	deep := store.ByType(catalog.DeepRelic)
	require.Len(t, deep, 1)
	assert.Equal(t, 2, deep[0].ID)

	redRelics := store.ByColor(catalog.Red)
	assert.Len(t, redRelics, 1)
}

func TestStore_FilterByTypes(t *testing.T) {
	idx := buildTestIndex(t)
	store := &Store{
		byType: map[catalog.ItemType][]Relic{},
	}
	store.relics = []Relic{
		{ID: 1, Type: catalog.OrdinaryRelic},
		{ID: 2, Type: catalog.DeepRelic},
		{ID: 3, Type: catalog.UniqueRelic},
	}
	_ = idx

	filtered := store.FilterByTypes([]catalog.ItemType{catalog.OrdinaryRelic, catalog.UniqueRelic})
	assert.Len(t, filtered, 2)
	for _, r := range filtered {
		assert.NotEqual(t, catalog.DeepRelic, r.Type)
	}
}
