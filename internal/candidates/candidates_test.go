package candidates

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/inventory"
	"github.com/relicsort/engine/internal/scoring"
	"github.com/relicsort/engine/internal/spec"
)

func buildScorer(t *testing.T) *scoring.Scorer {
	t.Helper()
	dir := t.TempDir()
	effectsPath := dir + "/effects.json"
	itemsPath := dir + "/items.json"
	vesselsPath := dir + "/vessels.json"
	require.NoError(t, os.WriteFile(effectsPath, []byte(`[{"id":1,"key":"A","stacking":true}]`), 0o644))
	require.NoError(t, os.WriteFile(itemsPath, []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(vesselsPath, []byte(`[]`), 0o644))
	idx, err := catalog.LoadIndex(effectsPath, itemsPath, vesselsPath)
	require.NoError(t, err)

	include, exclude, err := spec.Resolver{}.Resolve([]spec.Entry{{Key: "A", Priority: spec.Required}}, idx, map[int][2]string{})
	require.NoError(t, err)

	return scoring.NewScorer(include, exclude, scoring.Constants{ConcentrationConstant: 5, ConditionalPenalty: 0.3, NonStackablePenalty: 0.5})
}

func TestBuildSlotCandidates_NeverDropsIncludeCarrier(t *testing.T) {
	scorer := buildScorer(t)

	pool := []inventory.Relic{
		{ID: 1, Color: catalog.Red, Effects: []inventory.EffectRef{{Key: "A", EffectID: 1}}},
	}
	for i := 2; i <= 40; i++ {
		pool = append(pool, inventory.Relic{ID: i, Color: catalog.Red})
	}

	out := BuildSlotCandidates([3]catalog.Color{catalog.Red, catalog.Red, catalog.Red}, pool, scorer, 5)

	for _, slot := range out {
		found := false
		for _, r := range slot {
			if r.ID == 1 {
				found = true
			}
		}
		assert.True(t, found, "the only relic carrying the REQUIRED effect must survive the cap")
	}
}

func TestBuildSlotCandidates_ColorFilter(t *testing.T) {
	scorer := buildScorer(t)
	pool := []inventory.Relic{
		{ID: 1, Color: catalog.Red},
		{ID: 2, Color: catalog.Blue},
	}

	out := BuildSlotCandidates([3]catalog.Color{catalog.Red, catalog.Blue, catalog.Any}, pool, scorer, 10)

	require.Len(t, out[0], 1)
	assert.Equal(t, 1, out[0][0].ID)
	require.Len(t, out[1], 1)
	assert.Equal(t, 2, out[1][0].ID)
	assert.Len(t, out[2], 2, "an ANY slot accepts both colors")
}

func TestBuildSlotCandidates_SortedDescendingByScore(t *testing.T) {
	scorer := buildScorer(t)
	pool := []inventory.Relic{
		{ID: 1, Color: catalog.Red, Effects: []inventory.EffectRef{{Key: "A", EffectID: 1}}},
		{ID: 2, Color: catalog.Red},
		{ID: 3, Color: catalog.Red, Effects: []inventory.EffectRef{{Key: "A", EffectID: 1}, {Key: "A", EffectID: 1}}},
	}

	out := BuildSlotCandidates([3]catalog.Color{catalog.Red, catalog.Red, catalog.Red}, pool, scorer, 10)

	slot := out[0]
	for i := 1; i < len(slot); i++ {
		assert.GreaterOrEqual(t, scorer.Score(slot[i-1]).Score, scorer.Score(slot[i]).Score)
	}
}
