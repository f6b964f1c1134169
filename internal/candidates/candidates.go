// Package candidates builds the bounded per-slot candidate lists the
// enumerator works from (component E).
package candidates

import (
	"sort"

	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/inventory"
	"github.com/relicsort/engine/internal/scoring"
)

// BuildSlotCandidates produces, for each of the 3 slots in pattern, a
// list of at most cap relics: every relic carrying an include hit is
// guaranteed a place (capped by score if there are more than cap of
// them), then the remainder is padded with the highest-scoring
// relics of the slot's color, and the whole list is sorted
// descending by per-relic score.
func BuildSlotCandidates(pattern [3]catalog.Color, pool []inventory.Relic, scorer *scoring.Scorer, cap int) [3][]inventory.Relic {
	var out [3][]inventory.Relic
	for slot, color := range pattern {
		out[slot] = buildOne(color, pool, scorer, cap)
	}
	return out
}

func buildOne(color catalog.Color, pool []inventory.Relic, scorer *scoring.Scorer, cap int) []inventory.Relic {
	matching := make([]inventory.Relic, 0, len(pool))
	for _, r := range pool {
		if color == catalog.Any || r.Color == color {
			matching = append(matching, r)
		}
	}

	type scored struct {
		relic inventory.Relic
		score int
	}
	scoredMatching := make([]scored, len(matching))
	for i, r := range matching {
		scoredMatching[i] = scored{relic: r, score: scorer.Score(r).Score}
	}
	sort.SliceStable(scoredMatching, func(i, j int) bool {
		return scoredMatching[i].score > scoredMatching[j].score
	})

	mustInclude := make([]scored, 0, len(scoredMatching))
	rest := make([]scored, 0, len(scoredMatching))
	for _, s := range scoredMatching {
		if len(scorer.Score(s.relic).IncludeIndices) > 0 {
			mustInclude = append(mustInclude, s)
		} else {
			rest = append(rest, s)
		}
	}
	if len(mustInclude) > cap {
		mustInclude = mustInclude[:cap]
	}

	selected := make([]inventory.Relic, 0, cap)
	seen := make(map[int]bool, cap)
	for _, s := range mustInclude {
		if len(selected) >= cap {
			break
		}
		selected = append(selected, s.relic)
		seen[s.relic.ID] = true
	}
	for _, s := range rest {
		if len(selected) >= cap {
			break
		}
		if seen[s.relic.ID] {
			continue
		}
		selected = append(selected, s.relic)
		seen[s.relic.ID] = true
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return scorer.Score(selected[i]).Score > scorer.Score(selected[j]).Score
	})

	return selected
}
