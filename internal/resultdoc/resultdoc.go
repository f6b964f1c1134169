// Package resultdoc builds and serializes the engine's result
// document: the "bestResult"/"allResults" JSON shape described in
// section 6 of the external interface.
package resultdoc

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/relicsort/engine/internal/aggregate"
	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/inventory"
	"github.com/relicsort/engine/internal/spec"
)

// EffectAnnotation is one effect listed on a relic within a ranked
// entry, carrying its match/exclude status against the resolved spec.
type EffectAnnotation struct {
	Key             string `json:"key"`
	Matched         bool   `json:"matched"`
	Priority        string `json:"priority,omitempty"`
	Excluded        bool   `json:"excluded,omitempty"`
	ExcludePriority string `json:"excludePriority,omitempty"`
}

// RelicView is a relic as it appears inside a ranked entry.
type RelicView struct {
	ID      int                `json:"id"`
	Effects []EffectAnnotation `json:"effects"`
}

// RankedEntryView is the wire shape of a ranked_entry from section 6.
type RankedEntryView struct {
	Rank            int         `json:"rank"`
	Score           int         `json:"score"`
	SubScore        int         `json:"subScore"`
	RequiredMet     bool        `json:"requiredMet"`
	MatchedEffects  []string    `json:"matchedEffects"`
	MissingRequired []string    `json:"missingRequired"`
	ExcludedPresent []string    `json:"excludedPresent"`
	Relics          []RelicView `json:"relics,omitempty"`
	NormalRelics    []RelicView `json:"normalRelics,omitempty"`
	DeepRelics      []RelicView `json:"deepRelics,omitempty"`
}

// Parameters echoes the run's configuration alongside its results, so
// a consumer reading the result document does not need the original
// CLI invocation to interpret it.
type Parameters struct {
	Character string `json:"character,omitempty"`
	VesselKey string `json:"vesselKey,omitempty"`
	Mode      string `json:"mode"`
	TopN      int    `json:"topN"`
}

// VesselBlock is one entry of "allResults".
type VesselBlock struct {
	Parameters Parameters        `json:"parameters"`
	Results    []RankedEntryView `json:"results"`
}

// BestBlock is "bestResult".
type BestBlock struct {
	Parameters Parameters      `json:"parameters"`
	Result     RankedEntryView `json:"result"`
}

// Document is the full result document.
type Document struct {
	BestResult *BestBlock    `json:"bestResult"`
	AllResults []VesselBlock `json:"allResults"`
}

// Build assembles a Document from an Aggregator result. idx, store,
// include, and exclude supply the relic and effect detail the wire
// shape needs beyond the compact RankedEntry bookkeeping.
func Build(result *aggregate.Result, idx *catalog.Index, store *inventory.Store, include, exclude *spec.WeightTable, mode string, topN int) *Document {
	relicByID := make(map[int]inventory.Relic, len(store.All()))
	for _, r := range store.All() {
		relicByID[r.ID] = r
	}

	doc := &Document{}

	if len(result.Global) > 0 {
		best := result.Global[0]
		doc.BestResult = &BestBlock{
			Parameters: Parameters{Character: best.VesselCharacter, VesselKey: best.VesselKey, Mode: mode, TopN: topN},
			Result:     viewOf(best, relicByID, include, exclude),
		}
	}

	for _, vr := range result.PerVessel {
		views := make([]RankedEntryView, 0, len(vr.Entries))
		for _, e := range vr.Entries {
			views = append(views, viewOf(e, relicByID, include, exclude))
		}
		doc.AllResults = append(doc.AllResults, VesselBlock{
			Parameters: Parameters{Character: vr.Character, VesselKey: vr.VesselKey, Mode: mode, TopN: topN},
			Results:    views,
		})
	}

	return doc
}

func viewOf(e aggregate.RankedEntry, relicByID map[int]inventory.Relic, include, exclude *spec.WeightTable) RankedEntryView {
	view := RankedEntryView{
		Rank:            e.Rank,
		Score:           e.Score,
		SubScore:        e.SubScore,
		RequiredMet:     e.RequiredMet,
		MatchedEffects:  nonNil(e.MatchedEffectKeys),
		MissingRequired: nonNil(e.MissingRequiredKeys),
		ExcludedPresent: nonNil(e.ExcludedPresentKeys),
	}
	if len(e.Relics) > 0 {
		view.Relics = relicViews(e.Relics, relicByID, include, exclude)
	}
	if len(e.NormalRelics) > 0 {
		view.NormalRelics = relicViews(e.NormalRelics, relicByID, include, exclude)
	}
	if len(e.DeepRelics) > 0 {
		view.DeepRelics = relicViews(e.DeepRelics, relicByID, include, exclude)
	}
	return view
}

func relicViews(ids []int, relicByID map[int]inventory.Relic, include, exclude *spec.WeightTable) []RelicView {
	out := make([]RelicView, 0, len(ids))
	for _, id := range ids {
		r, ok := relicByID[id]
		if !ok {
			out = append(out, RelicView{ID: id})
			continue
		}
		var effects []EffectAnnotation
		for _, eff := range r.Effects {
			ann := EffectAnnotation{Key: eff.Key}
			if i, ok := include.IndexOf(eff.Key); ok {
				ann.Matched = true
				ann.Priority = string(include.Priority(i))
			}
			if _, ok := exclude.IndexOf(eff.Key); ok {
				ann.Excluded = true
				if j, ok := exclude.IndexOf(eff.Key); ok {
					ann.ExcludePriority = string(exclude.Priority(j))
				}
			}
			effects = append(effects, ann)
		}
		out = append(out, RelicView{ID: id, Effects: effects})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	sort.Strings(s)
	return s
}

// WriteJSON serializes the document deterministically (sorted keys
// are already enforced when building matched/missing/excluded lists;
// struct field order and relic ordering are otherwise stable by
// construction), so two runs on identical inputs produce
// byte-identical output under this serializer.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
