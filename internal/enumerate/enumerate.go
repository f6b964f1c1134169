// Package enumerate implements the Three-Slot Enumerator (component
// G): given per-slot candidate lists, it produces every distinct
// relic triple, specialized by slot-pattern shape to avoid needless
// recursive dedup bookkeeping when the shape rules it out.
package enumerate

import (
	"sort"

	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/inventory"
	"github.com/relicsort/engine/internal/scoring"
	"github.com/relicsort/engine/internal/spec"
)

// Triple is a compactly-stored scored three-slot combination: the
// merged include/exclude count vectors (as sparse maps), the score,
// and the three relic ids it is built from. Full result objects
// (matched/missing/excluded key sets) are reconstructed later, only
// for triples that survive to the result document.
type Triple struct {
	RelicIDs      [3]int
	IncludeCounts map[int]int
	ExcludeCounts map[int]int
	Score         int
	SubScore      int
	RequiredMet   bool
}

// EnumerateTriples dispatches to the shape-specialized strategy
// implied by pattern, then scores every resulting triple inline
// against include/exclude, under stackKind's per-index stacking rule.
//
// The five cases below are exhaustive for any 3-element color tuple:
// under pairwise equality, three colors are either all equal, all
// distinct, or have exactly one matching pair, and the three
// pair-plus-one cases cover every position that pair can take.
//
// An Any slot's list can share relics with the other slots' lists, so
// for a pattern containing Any the cases can emit the same unordered
// triple more than once; those repeats are dropped by sorted relic id
// before scoring.
func EnumerateTriples(pattern [3]catalog.Color, slots [3][]inventory.Relic, scorer *scoring.Scorer, include, exclude *spec.WeightTable, stackKind scoring.StackFlagLookup) []Triple {
	var combos [][3]inventory.Relic

	switch {
	case pattern[0] == pattern[1] && pattern[1] == pattern[2]:
		combos = enumerateSameColor(slots[0])
	case pattern[0] == pattern[1] && pattern[1] != pattern[2]:
		combos = enumeratePairPlusOne(slots[0], slots[2])
	case pattern[0] == pattern[2] && pattern[0] != pattern[1]:
		combos = enumeratePairPlusOne(slots[0], slots[1])
	case pattern[1] == pattern[2] && pattern[0] != pattern[1]:
		combos = enumeratePairPlusOne(slots[1], slots[0])
	default:
		combos = enumerateAllDistinct(slots)
	}

	if pattern[0] == catalog.Any || pattern[1] == catalog.Any || pattern[2] == catalog.Any {
		seen := make(map[[3]int]bool, len(combos))
		kept := combos[:0]
		for _, c := range combos {
			ids := []int{c[0].ID, c[1].ID, c[2].ID}
			sort.Ints(ids)
			if seen[[3]int(ids)] {
				continue
			}
			seen[[3]int(ids)] = true
			kept = append(kept, c)
		}
		combos = kept
	}

	triples := make([]Triple, 0, len(combos))
	for _, combo := range combos {
		triples = append(triples, scoreTriple(combo, scorer, include, exclude, stackKind))
	}
	return triples
}

func scoreTriple(combo [3]inventory.Relic, scorer *scoring.Scorer, include, exclude *spec.WeightTable, stackKind scoring.StackFlagLookup) Triple {
	includeCounts := map[int]int{}
	excludeCounts := map[int]int{}
	concentration := 0
	concConst := scorer.ConcentrationConstant()

	var ids [3]int
	for i, r := range combo {
		ids[i] = r.ID
		rs := scorer.Score(r)
		k := len(rs.IncludeIndices)
		if k > 1 {
			concentration += concConst * k * (k - 1) / 2
		}
		for _, idx := range rs.IncludeIndices {
			includeCounts[idx]++
		}
		for _, idx := range rs.ExcludeIndices {
			excludeCounts[idx]++
		}
	}

	conditionalPenalty, nonStackablePenalty := scorer.StackingPenalties()
	includeScore, includeSub := scoring.Combine(includeCounts, include, stackKind, conditionalPenalty, nonStackablePenalty)
	excludePenalty, excludeSub := scoring.ExcludePenalty(excludeCounts, exclude)

	requiredMet := scoring.RequiredMet(includeCounts, excludeCounts, include, exclude)

	return Triple{
		RelicIDs:      ids,
		IncludeCounts: includeCounts,
		ExcludeCounts: excludeCounts,
		Score:         includeScore + concentration - excludePenalty,
		SubScore:      includeSub - excludeSub,
		RequiredMet:   requiredMet,
	}
}

func enumerateSameColor(pool []inventory.Relic) [][3]inventory.Relic {
	var out [][3]inventory.Relic
	n := len(pool)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				out = append(out, [3]inventory.Relic{pool[i], pool[j], pool[k]})
			}
		}
	}
	return out
}

func enumerateAllDistinct(slots [3][]inventory.Relic) [][3]inventory.Relic {
	var out [][3]inventory.Relic
	for _, a := range slots[0] {
		for _, b := range slots[1] {
			if b.ID == a.ID {
				continue
			}
			for _, c := range slots[2] {
				if c.ID == a.ID || c.ID == b.ID {
					continue
				}
				out = append(out, [3]inventory.Relic{a, b, c})
			}
		}
	}
	return out
}

// enumeratePairPlusOne handles two slots sharing a color (pairPool)
// and a third slot of a different color (singlePool).
func enumeratePairPlusOne(pairPool, singlePool []inventory.Relic) [][3]inventory.Relic {
	var out [][3]inventory.Relic
	n := len(pairPool)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for _, c := range singlePool {
				if c.ID == pairPool[i].ID || c.ID == pairPool[j].ID {
					continue
				}
				out = append(out, [3]inventory.Relic{pairPool[i], pairPool[j], c})
			}
		}
	}
	return out
}

