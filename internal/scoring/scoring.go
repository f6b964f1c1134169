// Package scoring implements the Relic Scorer (component D) and the
// Combination Scorer (component F): per-relic contribution caching and
// the stacking-aware arithmetic that scores a multiset of relics.
package scoring

import (
	"math"
	"sync"

	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/inventory"
	"github.com/relicsort/engine/internal/spec"
)

// Constants is the subset of config.Config the scorer needs, kept
// separate so this package does not import internal/config.
type Constants struct {
	ConcentrationConstant int
	ConditionalPenalty    float64
	NonStackablePenalty   float64
}

// RelicScore is a memoized per-relic result: its include/exclude hit
// vectors (as multisets of table indices) plus the final scalar score.
type RelicScore struct {
	IncludeIndices []int // may repeat if a relic's effects hit the same index twice
	ExcludeIndices []int
	Score          int
}

// Scorer computes and caches per-relic scores (component D).
type Scorer struct {
	include *spec.WeightTable
	exclude *spec.WeightTable
	consts  Constants

	mu    sync.RWMutex
	cache map[int]RelicScore
}

// NewScorer builds a Scorer bound to a resolved spec.
func NewScorer(include, exclude *spec.WeightTable, consts Constants) *Scorer {
	return &Scorer{
		include: include,
		exclude: exclude,
		consts:  consts,
		cache:   make(map[int]RelicScore),
	}
}

// Score returns r's memoized contribution, computing it on first
// access. Independent of call order (testable property 9).
func (s *Scorer) Score(r inventory.Relic) RelicScore {
	s.mu.RLock()
	if cached, ok := s.cache[r.ID]; ok {
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	computed := s.compute(r)

	s.mu.Lock()
	s.cache[r.ID] = computed
	s.mu.Unlock()

	return computed
}

func (s *Scorer) compute(r inventory.Relic) RelicScore {
	var includeIdx, excludeIdx []int
	total := 0

	for _, eff := range r.Effects {
		if eff.EffectID < 0 {
			continue
		}
		if i, ok := s.include.IndexOf(eff.Key); ok {
			includeIdx = append(includeIdx, i)
			total += s.include.Weight(i)
		}
		if j, ok := s.exclude.IndexOf(eff.Key); ok {
			excludeIdx = append(excludeIdx, j)
			total -= s.exclude.Weight(j)
		}
	}

	k := len(includeIdx)
	if k > 1 {
		total += s.consts.ConcentrationConstant * k * (k - 1) / 2
	}

	return RelicScore{
		IncludeIndices: includeIdx,
		ExcludeIndices: excludeIdx,
		Score:          total,
	}
}

// ConcentrationConstant exposes the scorer's configured concentration
// bonus constant, needed by the triple scorer to attribute the bonus
// per-relic without duplicating the constant in config.
func (s *Scorer) ConcentrationConstant() int {
	return s.consts.ConcentrationConstant
}

// StackingPenalties exposes the scorer's configured conditional and
// non-stackable discount ratios, for use by Combine at the triple
// level.
func (s *Scorer) StackingPenalties() (conditional, nonStackable float64) {
	return s.consts.ConditionalPenalty, s.consts.NonStackablePenalty
}

// StackFlagLookup answers the combination scorer's per-index stacking
// question; catalog indices are not the scorer's include-table
// indices, so callers pass a closure that maps a table index to its
// catalog StackFlag via the bound effect key.
type StackFlagLookup func(includeIndex int) catalog.StackFlag

// Combine scores an aggregate include-count vector under the stacking
// rules of 4.F. counts[i] is the number of relics in the combination
// carrying include-table index i. It returns the raw score
// contribution (excluding concentration bonus, which is attributed
// per-relic and summed separately by the caller) and the sub_score
// tiebreaker contribution from included indices.
func Combine(counts map[int]int, table *spec.WeightTable, kind StackFlagLookup, conditionalPenalty, nonStackablePenalty float64) (score int, subScore int) {
	for i, c := range counts {
		if c <= 0 {
			continue
		}
		w := table.Weight(i)
		switch kind(i) {
		case catalog.Stackable:
			score += w * c
		case catalog.Conditional:
			score += w - int(math.Floor(conditionalPenalty*float64(w)))*(c-1)
		case catalog.NonStackable:
			score += w - int(math.Floor(nonStackablePenalty*float64(w)))*(c-1)
		}
		subScore += table.SubRank(i)
	}
	return score, subScore
}

// ExcludePenalty sums exclude weights present in counts and the
// exclude sub_score contribution, matching 4.F's exclude handling:
// every occurrence is penalized at full weight (no stacking discount),
// while the sub_score contribution counts each present index once.
func ExcludePenalty(counts map[int]int, table *spec.WeightTable) (penalty int, subScore int) {
	for i, c := range counts {
		if c <= 0 {
			continue
		}
		penalty += table.Weight(i) * c
		subScore += table.SubRank(i)
	}
	return penalty, subScore
}

// RequiredMet reports whether every REQUIRED include index in
// includeCounts is present and no REQUIRED exclude index in
// excludeCounts is present.
func RequiredMet(includeCounts, excludeCounts map[int]int, includeTable, excludeTable *spec.WeightTable) bool {
	for _, i := range includeTable.RequiredIndices() {
		if includeCounts[i] <= 0 {
			return false
		}
	}
	for _, j := range excludeTable.RequiredIndices() {
		if excludeCounts[j] > 0 {
			return false
		}
	}
	return true
}
