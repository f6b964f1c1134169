// Package aggregate implements the Aggregator (component I): it runs
// the enumerator per vessel configuration, optionally pairs ordinary
// and deep triples in combined mode, and merges per-vessel top-N
// results into a single global ranking.
package aggregate

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/relicsort/engine/internal/candidates"
	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/config"
	"github.com/relicsort/engine/internal/enginecache"
	"github.com/relicsort/engine/internal/engineerr"
	"github.com/relicsort/engine/internal/enumerate"
	"github.com/relicsort/engine/internal/inventory"
	"github.com/relicsort/engine/internal/log"
	"github.com/relicsort/engine/internal/monitor"
	"github.com/relicsort/engine/internal/pairing"
	"github.com/relicsort/engine/internal/scoring"
	"github.com/relicsort/engine/internal/spec"
)

// RankedEntry is one ranked combination, carrying enough to build the
// result document's JSON shape without re-deriving scores.
type RankedEntry struct {
	Rank                int
	Score               int
	SubScore            int
	RequiredMet         bool
	MatchedEffectKeys   []string
	MissingRequiredKeys []string
	ExcludedPresentKeys []string
	VesselCharacter     string
	VesselKey           string
	// Single-side mode populates Relics; combined mode populates
	// NormalRelics and DeepRelics instead.
	Relics       []int
	NormalRelics []int
	DeepRelics   []int
}

// VesselResult is one vessel's own top-N, prior to global merge.
type VesselResult struct {
	Character string
	VesselKey string
	Entries   []RankedEntry
}

// Result is the Aggregator's full output.
type Result struct {
	Global    []RankedEntry
	PerVessel []VesselResult
}

// Progress reports "k of N vessels processed" on a best-effort,
// non-blocking channel (section 5: loss-tolerant diagnostics).
type Progress struct {
	Done  int
	Total int
}

// Run implements component I end to end for single-side, combined, or
// color-legacy mode. progress and counters may both be nil.
func Run(ctx context.Context, idx *catalog.Index, store *inventory.Store, include, exclude *spec.WeightTable, cfg config.Config, progress chan<- Progress, counters *monitor.Counters) (*Result, error) {
	if cfg.Mode == config.ModeColorLegacy {
		return runColorLegacy(ctx, idx, store, include, exclude, cfg, progress, counters)
	}

	vessels := idx.Vessels(store.CharacterName, cfg.VesselKeys)
	if len(vessels) == 0 {
		return nil, engineerr.NewNoVesselMatchError(store.CharacterName)
	}

	scorer := scoring.NewScorer(include, exclude, scoring.Constants{
		ConcentrationConstant: cfg.ConcentrationConstant,
		ConditionalPenalty:    cfg.ConditionalPenalty,
		NonStackablePenalty:   cfg.NonStackablePenalty,
	})
	stackKind := stackFlagLookup(idx, include)

	triplePatternCache := enginecache.New[string, []enumerate.Triple]()

	ordinaryTypes := cfg.Types
	if len(ordinaryTypes) == 0 {
		ordinaryTypes = []catalog.ItemType{catalog.OrdinaryRelic, catalog.UniqueRelic}
	}
	ordinaryPool := store.FilterByTypes(ordinaryTypes)
	deepPool := store.FilterByTypes([]catalog.ItemType{catalog.DeepRelic})

	var mu sync.Mutex
	perVessel := make([]VesselResult, 0, len(vessels))
	var done int

	g, gCtx := errgroup.WithContext(ctx)
	for _, vc := range vessels {
		vc := vc
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}

			vr, err := runVessel(vc, cfg, ordinaryPool, deepPool, scorer, include, exclude, stackKind, triplePatternCache, counters)
			if err != nil {
				if ee, ok := err.(*engineerr.EngineError); ok && !ee.Fatal {
					log.ForVessel(vc.Character, vc.VesselKey).Warn("vessel produced no candidates", "error", ee.Error())
				} else {
					return err
				}
			}

			if counters != nil {
				counters.AddVesselsProcessed(1)
			}

			mu.Lock()
			if vr != nil {
				perVessel = append(perVessel, *vr)
			}
			done++
			d := done
			mu.Unlock()

			if progress != nil {
				select {
				case progress <- Progress{Done: d, Total: len(vessels)}:
				default:
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(perVessel, func(i, j int) bool {
		if perVessel[i].Character != perVessel[j].Character {
			return perVessel[i].Character < perVessel[j].Character
		}
		return perVessel[i].VesselKey < perVessel[j].VesselKey
	})

	global := mergeGlobal(perVessel, cfg.TopN)

	return &Result{Global: global, PerVessel: perVessel}, nil
}

func runVessel(vc catalog.VesselConfig, cfg config.Config, ordinaryPool, deepPool []inventory.Relic, scorer *scoring.Scorer, include, exclude *spec.WeightTable, stackKind scoring.StackFlagLookup, triplePatternCache *enginecache.Cache[string, []enumerate.Triple], counters *monitor.Counters) (*VesselResult, error) {
	if cfg.Mode != config.ModeCombined {
		pattern, pool := vc.OrdinarySlots, ordinaryPool
		ph := phaseOrdinary
		if cfg.UseDeep {
			pattern, pool = vc.DeepSlots, deepPool
			ph = phaseDeep
		}
		triples := cachedTriples(triplePatternCache, ph, pattern, pool, scorer, include, exclude, stackKind, cfg.CandidatesPerSlot)
		if counters != nil {
			counters.AddTriplesEnumerated(int64(len(triples)))
		}
		if len(triples) == 0 {
			return nil, engineerr.NewEmptyCandidatesError(vc.VesselKey)
		}
		sort.Slice(triples, func(i, j int) bool { return tripleBetter(triples[i], triples[j]) })
		if len(triples) > cfg.TopN {
			triples = triples[:cfg.TopN]
		}
		entries := make([]RankedEntry, 0, len(triples))
		for _, t := range triples {
			entries = append(entries, buildSingleEntry(t, include, exclude, vc))
		}
		return &VesselResult{Character: vc.Character, VesselKey: vc.VesselKey, Entries: entries}, nil
	}

	ordinaryTriples := cachedTriples(triplePatternCache, phaseOrdinary, vc.OrdinarySlots, ordinaryPool, scorer, include, exclude, stackKind, cfg.CandidatesPerSlot)
	deepTriples := cachedTriples(triplePatternCache, phaseDeep, vc.DeepSlots, deepPool, scorer, include, exclude, stackKind, cfg.CandidatesPerSlot)
	if counters != nil {
		counters.AddTriplesEnumerated(int64(len(ordinaryTriples) + len(deepTriples)))
	}
	if len(ordinaryTriples) == 0 || len(deepTriples) == 0 {
		return nil, engineerr.NewEmptyCandidatesError(vc.VesselKey)
	}

	// PairSixSlot's pruning bounds need both sides sorted descending by Score.
	sort.Slice(ordinaryTriples, func(i, j int) bool { return ordinaryTriples[i].Score > ordinaryTriples[j].Score })
	sort.Slice(deepTriples, func(i, j int) bool { return deepTriples[i].Score > deepTriples[j].Score })

	pairs := pairing.PairSixSlot(ordinaryTriples, deepTriples, cfg.MaxPairs, cfg.TopN, counters)
	if len(pairs) == 0 {
		return nil, engineerr.NewEmptyCandidatesError(vc.VesselKey)
	}

	entries := make([]RankedEntry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, buildCombinedEntry(p, include, exclude, vc))
	}
	return &VesselResult{Character: vc.Character, VesselKey: vc.VesselKey, Entries: entries}, nil
}

// runColorLegacy implements the color-only legacy path (4.I, last
// paragraph): no character was given, so each of the four colors is
// treated as its own pseudo-vessel with a (color,color,color)
// pattern, over the top LegacyCandidates relics of that color.
func runColorLegacy(ctx context.Context, idx *catalog.Index, store *inventory.Store, include, exclude *spec.WeightTable, cfg config.Config, progress chan<- Progress, counters *monitor.Counters) (*Result, error) {
	scorer := scoring.NewScorer(include, exclude, scoring.Constants{
		ConcentrationConstant: cfg.ConcentrationConstant,
		ConditionalPenalty:    cfg.ConditionalPenalty,
		NonStackablePenalty:   cfg.NonStackablePenalty,
	})
	stackKind := stackFlagLookup(idx, include)
	legacyTypes := cfg.Types
	if len(legacyTypes) == 0 {
		legacyTypes = []catalog.ItemType{catalog.OrdinaryRelic, catalog.UniqueRelic}
	}
	pool := store.FilterByTypes(legacyTypes)

	colors := []catalog.Color{catalog.Red, catalog.Blue, catalog.Yellow, catalog.Green}
	perVessel := make([]VesselResult, 0, len(colors))

	for i, color := range colors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pattern := [3]catalog.Color{color, color, color}
		slots := candidates.BuildSlotCandidates(pattern, pool, scorer, cfg.LegacyCandidates)
		triples := enumerate.EnumerateTriples(pattern, slots, scorer, include, exclude, stackKind)
		if counters != nil {
			counters.AddTriplesEnumerated(int64(len(triples)))
		}
		if len(triples) == 0 {
			log.Warn("color produced no candidates", "color", color)
			continue
		}
		sort.Slice(triples, func(a, b int) bool { return tripleBetter(triples[a], triples[b]) })
		if len(triples) > cfg.TopN {
			triples = triples[:cfg.TopN]
		}

		entries := make([]RankedEntry, 0, len(triples))
		for _, t := range triples {
			entries = append(entries, buildSingleEntry(t, include, exclude, catalog.VesselConfig{VesselKey: string(color)}))
		}
		perVessel = append(perVessel, VesselResult{VesselKey: string(color), Entries: entries})
		if counters != nil {
			counters.AddVesselsProcessed(1)
		}

		if progress != nil {
			select {
			case progress <- Progress{Done: i + 1, Total: len(colors)}:
			default:
			}
		}
	}

	global := mergeGlobal(perVessel, cfg.TopN)
	return &Result{Global: global, PerVessel: perVessel}, nil
}

// phase discriminates which relic pool a cached triple list came from.
// Phase 1 (ordinary) and Phase 2 (deep, 4.H) enumerate against disjoint
// pools, but their slot patterns can share the same color multiset, so
// the cache key must carry the phase or the two phases collide.
type phase string

const (
	phaseOrdinary phase = "ordinary"
	phaseDeep     phase = "deep"
)

func cachedTriples(cache *enginecache.Cache[string, []enumerate.Triple], ph phase, pattern [3]catalog.Color, pool []inventory.Relic, scorer *scoring.Scorer, include, exclude *spec.WeightTable, stackKind scoring.StackFlagLookup, candidatesPerSlot int) []enumerate.Triple {
	key := string(ph) + ":" + patternKey(pattern)
	cached := cache.GetOrCompute(key, func() []enumerate.Triple {
		slots := candidates.BuildSlotCandidates(pattern, pool, scorer, candidatesPerSlot)
		return enumerate.EnumerateTriples(pattern, slots, scorer, include, exclude, stackKind)
	})
	// Each caller sorts and truncates its own copy: the cached slice is
	// shared by vessels running concurrently.
	return append([]enumerate.Triple(nil), cached...)
}

// patternKey is the sorted slot-pattern tuple: triples don't depend on
// slot order, only on the multiset of colors (9.Design notes).
func patternKey(pattern [3]catalog.Color) string {
	sorted := []string{string(pattern[0]), string(pattern[1]), string(pattern[2])}
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

func tripleBetter(a, b enumerate.Triple) bool {
	if a.RequiredMet != b.RequiredMet {
		return a.RequiredMet
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SubScore > b.SubScore
}

func stackFlagLookup(idx *catalog.Index, include *spec.WeightTable) scoring.StackFlagLookup {
	return func(includeIndex int) catalog.StackFlag {
		key := include.Key(includeIndex)
		id, ok := idx.EffectByKey(key)
		if !ok {
			return catalog.Stackable
		}
		effect, _ := idx.Effect(id)
		return effect.Stacking
	}
}

func buildSingleEntry(t enumerate.Triple, include, exclude *spec.WeightTable, vc catalog.VesselConfig) RankedEntry {
	return RankedEntry{
		Score:               t.Score,
		SubScore:            t.SubScore,
		RequiredMet:         t.RequiredMet,
		MatchedEffectKeys:   matchedKeys(t.IncludeCounts, include),
		MissingRequiredKeys: missingRequired(t.IncludeCounts, include),
		ExcludedPresentKeys: matchedKeys(t.ExcludeCounts, exclude),
		VesselCharacter:     vc.Character,
		VesselKey:           vc.VesselKey,
		Relics:              []int{t.RelicIDs[0], t.RelicIDs[1], t.RelicIDs[2]},
	}
}

func buildCombinedEntry(p pairing.Pairing, include, exclude *spec.WeightTable, vc catalog.VesselConfig) RankedEntry {
	mergedInclude := mergeCounts(p.Ordinary.IncludeCounts, p.Deep.IncludeCounts)
	mergedExclude := mergeCounts(p.Ordinary.ExcludeCounts, p.Deep.ExcludeCounts)

	return RankedEntry{
		Score:               p.Score,
		SubScore:            p.SubScore,
		RequiredMet:         p.RequiredMet,
		MatchedEffectKeys:   matchedKeys(mergedInclude, include),
		MissingRequiredKeys: missingRequired(mergedInclude, include),
		ExcludedPresentKeys: matchedKeys(mergedExclude, exclude),
		VesselCharacter:     vc.Character,
		VesselKey:           vc.VesselKey,
		NormalRelics:        []int{p.Ordinary.RelicIDs[0], p.Ordinary.RelicIDs[1], p.Ordinary.RelicIDs[2]},
		DeepRelics:          []int{p.Deep.RelicIDs[0], p.Deep.RelicIDs[1], p.Deep.RelicIDs[2]},
	}
}

func mergeCounts(a, b map[int]int) map[int]int {
	out := make(map[int]int, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

func matchedKeys(counts map[int]int, table *spec.WeightTable) []string {
	var keys []string
	for i, c := range counts {
		if c > 0 {
			keys = append(keys, table.Key(i))
		}
	}
	sort.Strings(keys)
	return keys
}

func missingRequired(counts map[int]int, table *spec.WeightTable) []string {
	var keys []string
	for _, i := range table.RequiredIndices() {
		if counts[i] <= 0 {
			keys = append(keys, table.Key(i))
		}
	}
	sort.Strings(keys)
	return keys
}

// mergeGlobal flattens every vessel's entries, re-sorts by
// (required_met, score, sub_score) descending, truncates to topN, and
// renumbers ranks starting at 1.
func mergeGlobal(perVessel []VesselResult, topN int) []RankedEntry {
	var all []RankedEntry
	for _, vr := range perVessel {
		all = append(all, vr.Entries...)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.RequiredMet != b.RequiredMet {
			return a.RequiredMet
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.SubScore > b.SubScore
	})
	if len(all) > topN {
		all = all[:topN]
	}
	for i := range all {
		all[i].Rank = i + 1
	}
	return all
}
