package resultdoc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicsort/engine/internal/aggregate"
	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/inventory"
	"github.com/relicsort/engine/internal/spec"
)

func buildFixtures(t *testing.T) (*catalog.Index, *inventory.Store, *spec.WeightTable, *spec.WeightTable) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	effectsPath := write("effects.json", `[{"id":1,"key":"atk_up","stacking":true}]`)
	itemsPath := write("items.json", `[{"id":10,"key":"ring","color":"Red","type":"Relic"}]`)
	vesselsPath := write("vessels.json", `[]`)
	idx, err := catalog.LoadIndex(effectsPath, itemsPath, vesselsPath)
	require.NoError(t, err)

	invPath := write("inventory.json", `{"characterName":"Wylder","relics":[
		{"id":1,"itemKey":"ring","itemColor":"Red","itemType":"Relic","effects":[[{"key":"atk_up","name_en":"Attack Up","name_ja":"x"}]]}
	]}`)
	store, err := inventory.LoadInventory(invPath, idx)
	require.NoError(t, err)

	include, exclude, err := spec.Resolver{}.Resolve([]spec.Entry{{Key: "atk_up", Priority: spec.Required}}, idx, map[int][2]string{})
	require.NoError(t, err)

	return idx, store, include, exclude
}

func TestBuild_BestResultIsHighestRanked(t *testing.T) {
	idx, store, include, exclude := buildFixtures(t)

	result := &aggregate.Result{
		Global: []aggregate.RankedEntry{
			{Rank: 1, Score: 50, RequiredMet: true, Relics: []int{1}},
		},
		PerVessel: []aggregate.VesselResult{
			{Character: "Wylder", VesselKey: "urn", Entries: []aggregate.RankedEntry{
				{Rank: 1, Score: 50, RequiredMet: true, Relics: []int{1}, MatchedEffectKeys: []string{"atk_up"}},
			}},
		},
	}

	doc := Build(result, idx, store, include, exclude, "single", 10)
	require.NotNil(t, doc.BestResult)
	assert.Equal(t, 50, doc.BestResult.Result.Score)
	require.Len(t, doc.BestResult.Result.Relics, 1)
	require.Len(t, doc.BestResult.Result.Relics[0].Effects, 1)
	assert.True(t, doc.BestResult.Result.Relics[0].Effects[0].Matched)
	assert.Equal(t, "required", doc.BestResult.Result.Relics[0].Effects[0].Priority)
}

func TestWriteJSON_Deterministic(t *testing.T) {
	idx, store, include, exclude := buildFixtures(t)
	result := &aggregate.Result{
		Global: []aggregate.RankedEntry{{Rank: 1, Score: 10, Relics: []int{1}}},
	}
	doc := Build(result, idx, store, include, exclude, "single", 10)

	var buf1, buf2 bytes.Buffer
	require.NoError(t, doc.WriteJSON(&buf1))
	require.NoError(t, doc.WriteJSON(&buf2))
	assert.Equal(t, buf1.String(), buf2.String())
}
