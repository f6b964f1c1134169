package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadIndex_StackingConflictResolution(t *testing.T) {
	dir := t.TempDir()

	effectsPath := writeJSON(t, dir, "effects.json", []rawEffect{
		{ID: 1, Key: "atk_up", Stacking: json.RawMessage(`false`)},
		{ID: 2, Key: "atk_up", Stacking: json.RawMessage(`true`)},
		{ID: 3, Key: "def_up", Stacking: json.RawMessage(`"conditional"`)},
	})
	itemsPath := writeJSON(t, dir, "items.json", []rawItem{
		{ID: 10, Key: "ring", Color: "Red", Type: "Relic"},
	})
	vesselsPath := writeJSON(t, dir, "vessels.json", []rawVessel{
		{Character: "Wylder", VesselKey: "urn", OrdinarySlots: []string{"Red", "Blue", "Any"}, DeepSlots: []string{"Green", "Any", "Any"}},
	})

	idx, err := LoadIndex(effectsPath, itemsPath, vesselsPath)
	require.NoError(t, err)

	id, ok := idx.EffectByKey("atk_up")
	require.True(t, ok)
	effect, ok := idx.Effect(id)
	require.True(t, ok)
	assert.Equal(t, Stackable, effect.Stacking, "a stackable sighting must win over a non-stackable one")

	id, ok = idx.EffectByKey("def_up")
	require.True(t, ok)
	effect, ok = idx.Effect(id)
	require.True(t, ok)
	assert.Equal(t, Conditional, effect.Stacking)
}

func TestLoadIndex_VesselLookup(t *testing.T) {
	dir := t.TempDir()
	effectsPath := writeJSON(t, dir, "effects.json", []rawEffect{})
	itemsPath := writeJSON(t, dir, "items.json", []rawItem{})
	vesselsPath := writeJSON(t, dir, "vessels.json", []rawVessel{
		{Character: "Wylder", VesselKey: "urn", OrdinarySlots: []string{"Red", "Blue", "Any"}, DeepSlots: []string{"Green", "Any", "Any"}},
		{Character: "Wylder", VesselKey: "chalice", OrdinarySlots: []string{"Red", "Red", "Red"}, DeepSlots: []string{"Green", "Green", "Green"}},
		{Character: "", VesselKey: "shared-bowl", OrdinarySlots: []string{"Any", "Any", "Any"}, DeepSlots: []string{"Any", "Any", "Any"}},
	})

	idx, err := LoadIndex(effectsPath, itemsPath, vesselsPath)
	require.NoError(t, err)

	all := idx.Vessels("Wylder", nil)
	assert.Len(t, all, 3, "character vessels plus universal vessels")

	filtered := idx.Vessels("Wylder", []string{"urn"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "urn", filtered[0].VesselKey)

	none := idx.Vessels("Recluse", nil)
	assert.Len(t, none, 1, "unknown character still gets universal vessels")
}

func TestLoadIndex_MalformedData(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "missing.json")

	_, err := LoadIndex(badPath, badPath, badPath)
	require.Error(t, err)
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"Red", Red, false},
		{"blue", Blue, false},
		{"YELLOW", Yellow, false},
		{" Green ", Green, false},
		{"any", Any, false},
		{"Purple", "", true},
	}
	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		if tc.wantErr {
			assert.Error(t, err)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}
