// Package spec resolves a user-supplied wish list of desired and
// undesired effects into the two integer-indexed weight tables the
// rest of the engine scores against (component C).
package spec

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/engineerr"
	"github.com/relicsort/engine/internal/log"
)

// Priority is a wish-list entry's tier. Unknown labels are coerced to
// NiceToHave (section 7).
type Priority string

const (
	Required   Priority = "required"
	Preferred  Priority = "preferred"
	NiceToHave Priority = "nice_to_have"
)

// Weight returns the tier's scoring weight.
func (p Priority) Weight() int {
	switch p {
	case Required:
		return 100
	case Preferred:
		return 10
	default:
		return 1
	}
}

// TierMultiplier returns the sub-rank multiplier for the tier, large
// enough that any required tiebreaker dominates any preferred one
// regardless of tier size, per the documented ~100-entries-per-tier
// assumption (9.Open Questions).
func (p Priority) TierMultiplier() int {
	switch p {
	case Required:
		return 10000
	case Preferred:
		return 100
	default:
		return 1
	}
}

// MaxEntriesPerTier is the ceiling the sub-rank multipliers were
// calibrated against; entries beyond it still work but tiebreakers
// between adjacent tiers may no longer dominate correctly.
const MaxEntriesPerTier = 99

// Entry is one line of the user's wish list, as read from the spec
// file or expanded from a name substring.
type Entry struct {
	Key      string
	NameEN   string
	NameJA   string
	Priority Priority
	Rank     int
	Exclude  bool
}

type rawEntry struct {
	Key      string `json:"key"`
	NameEN   string `json:"name_en"`
	NameJA   string `json:"name_ja"`
	Priority string `json:"priority"`
	Rank     int    `json:"rank"`
	Exclude  bool   `json:"exclude"`
}

type rawSpecFile struct {
	Effects []rawEntry `json:"effects"`
}

// LoadEntries reads a spec file. Unknown priority labels are coerced
// to NiceToHave with a warning rather than aborting the load.
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engineerr.NewIOError("reading spec file", err)
	}
	var raw rawSpecFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, engineerr.NewMalformedSpecError("parsing spec file", err, true)
	}

	entries := make([]Entry, 0, len(raw.Effects))
	for _, re := range raw.Effects {
		priority := normalizePriority(re.Priority)
		entries = append(entries, Entry{
			Key:      re.Key,
			NameEN:   re.NameEN,
			NameJA:   re.NameJA,
			Priority: priority,
			Rank:     re.Rank,
			Exclude:  re.Exclude,
		})
	}
	return entries, nil
}

func normalizePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "required":
		return Required
	case "preferred":
		return Preferred
	case "nice_to_have", "nicetohave", "":
		return NiceToHave
	default:
		log.Warn("unknown priority label, coercing to nice_to_have", "priority", raw)
		return NiceToHave
	}
}

// Binding is a resolved wish-list entry: an integer index into its
// table, plus the weight and sub-rank used by the scorer.
type Binding struct {
	Key      string
	Priority Priority
	Weight   int
	SubRank  int
}

// WeightTable is the resolved, integer-indexed form of either the
// include or the exclude half of a spec.
type WeightTable struct {
	bindings   []Binding
	indexByKey map[string]int
}

// Len returns the number of bound keys.
func (t *WeightTable) Len() int {
	return len(t.bindings)
}

// IndexOf returns the table index bound to key, if any.
func (t *WeightTable) IndexOf(key string) (int, bool) {
	i, ok := t.indexByKey[key]
	return i, ok
}

// Weight returns the weight at index i.
func (t *WeightTable) Weight(i int) int {
	return t.bindings[i].Weight
}

// SubRank returns the sub-rank at index i.
func (t *WeightTable) SubRank(i int) int {
	return t.bindings[i].SubRank
}

// Key returns the effect key at index i.
func (t *WeightTable) Key(i int) string {
	return t.bindings[i].Key
}

// Priority returns the priority tier at index i.
func (t *WeightTable) Priority(i int) Priority {
	return t.bindings[i].Priority
}

// RequiredIndices returns every index bound to a REQUIRED entry.
func (t *WeightTable) RequiredIndices() []int {
	var out []int
	for i, b := range t.bindings {
		if b.Priority == Required {
			out = append(out, i)
		}
	}
	return out
}

// Resolver turns wish-list entries into the include/exclude weight
// tables, expanding name substrings against the live catalog and
// inventory.
type Resolver struct{}

// Resolve implements component C in full: direct key binding, name
// substring expansion, first-binding-wins per table, and sub_rank
// computation per tier group.
func (Resolver) Resolve(entries []Entry, idx *catalog.Index, effectNames map[int][2]string) (include, exclude *WeightTable, err error) {
	type boundKey = struct {
		key      string
		priority Priority
		rank     int
	}

	var includeKeys, excludeKeys []boundKey
	includeSeen := map[string]bool{}
	excludeSeen := map[string]bool{}

	bind := func(key string, e Entry) {
		seen := includeSeen
		if e.Exclude {
			seen = excludeSeen
		}
		if seen[key] {
			return // first binding wins
		}
		seen[key] = true
		bk := boundKey{key: key, priority: e.Priority, rank: e.Rank}
		if e.Exclude {
			excludeKeys = append(excludeKeys, bk)
		} else {
			includeKeys = append(includeKeys, bk)
		}
	}

	for _, e := range entries {
		if e.Key != "" {
			bind(e.Key, e)
			continue
		}
		// Name-substring expansion: scan the localized names in
		// effectNames (collected from the inventory's relics). English
		// matches case-insensitively; the other language matches by
		// exact substring.
		for id, names := range effectNames {
			en, ja := names[0], names[1]
			matched := false
			if e.NameEN != "" && strings.Contains(strings.ToLower(en), strings.ToLower(e.NameEN)) {
				matched = true
			}
			if e.NameJA != "" && strings.Contains(ja, e.NameJA) {
				matched = true
			}
			if !matched {
				continue
			}
			effect, ok := idx.Effect(id)
			if !ok {
				continue
			}
			bind(effect.Key, e)
		}
	}

	includeTable := buildTable(includeKeys)
	excludeTable := buildTable(excludeKeys)

	for _, tbl := range []*WeightTable{includeTable, excludeTable} {
		for _, group := range groupByPriority(tbl) {
			if len(group) > MaxEntriesPerTier {
				log.Warn("priority tier exceeds sub-rank multiplier calibration, tiebreakers may not dominate correctly",
					"tier_size", len(group), "max_recommended", MaxEntriesPerTier)
			}
		}
	}

	return includeTable, excludeTable, nil
}

func buildTable(keys []struct {
	key      string
	priority Priority
	rank     int
}) *WeightTable {
	// Group by priority to compute sub_rank = (G - r) * multiplier.
	byPriority := map[Priority][]int{} // priority -> indices into keys
	for i, k := range keys {
		byPriority[k.priority] = append(byPriority[k.priority], i)
	}

	subRank := make([]int, len(keys))
	for priority, idxs := range byPriority {
		g := len(idxs)
		for _, i := range idxs {
			r := keys[i].rank
			subRank[i] = (g - r) * priority.TierMultiplier()
		}
	}

	table := &WeightTable{indexByKey: make(map[string]int, len(keys))}
	for i, k := range keys {
		table.indexByKey[k.key] = len(table.bindings)
		table.bindings = append(table.bindings, Binding{
			Key:      k.key,
			Priority: k.priority,
			Weight:   k.priority.Weight(),
			SubRank:  subRank[i],
		})
	}
	return table
}

func groupByPriority(t *WeightTable) map[Priority][]Binding {
	out := map[Priority][]Binding{}
	for _, b := range t.bindings {
		out[b.Priority] = append(out[b.Priority], b)
	}
	return out
}

// sortedKeys returns a table's bound keys in lexical order.
func sortedKeys(t *WeightTable) []string {
	out := make([]string, 0, len(t.bindings))
	for _, b := range t.bindings {
		out = append(out, b.Key)
	}
	sort.Strings(out)
	return out
}
