// Package catalog holds the immutable reference data an engine run is
// built against: the effect catalog, the item catalog, and the vessel
// catalog. All three are read once at startup and never mutated.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/relicsort/engine/internal/engineerr"
	"github.com/relicsort/engine/internal/log"
)

// Color is one of the four socket/item colors, or Any for a
// color-agnostic slot.
type Color string

const (
	Red    Color = "Red"
	Blue   Color = "Blue"
	Yellow Color = "Yellow"
	Green  Color = "Green"
	Any    Color = "Any"
)

// ParseColor normalizes a catalog or CLI color string.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "blue":
		return Blue, nil
	case "yellow":
		return Yellow, nil
	case "green":
		return Green, nil
	case "any":
		return Any, nil
	default:
		return "", fmt.Errorf("unrecognized color %q", s)
	}
}

// ItemType is the broad category an item template belongs to.
type ItemType string

const (
	OrdinaryRelic ItemType = "ORDINARY_RELIC"
	UniqueRelic   ItemType = "UNIQUE_RELIC"
	DeepRelic     ItemType = "DEEP_RELIC"
)

// ParseItemType normalizes the inventory file's "itemType" strings.
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "Relic":
		return OrdinaryRelic, nil
	case "UniqueRelic":
		return UniqueRelic, nil
	case "DeepRelic":
		return DeepRelic, nil
	default:
		return "", fmt.Errorf("unrecognized item type %q", s)
	}
}

// StackFlag governs how duplicate include hits of the same effect are
// discounted by the combination scorer (4.F).
type StackFlag int

const (
	Stackable StackFlag = iota
	Conditional
	NonStackable
)

// combine resolves a stacking-flag conflict seen while loading the
// effect catalog: STACKABLE beats CONDITIONAL beats NON_STACKABLE, so
// any stackable sighting wins (4.A).
func combine(existing, incoming StackFlag) StackFlag {
	if existing == Stackable || incoming == Stackable {
		return Stackable
	}
	if existing == Conditional || incoming == Conditional {
		return Conditional
	}
	return NonStackable
}

// Effect is a catalog entry: a stable id, a stable key, and the
// stacking rule that applies to duplicates of it within a combination.
type Effect struct {
	ID       int
	Key      string
	Stacking StackFlag
}

// Item is the template shared by every relic instance of that item.
type Item struct {
	ID    int
	Key   string
	Color Color
	Type  ItemType
}

// VesselConfig names a character's vessel and its two slot patterns.
// Universal vessels carry an empty Character and apply to every
// character in addition to their own character-specific vessels.
type VesselConfig struct {
	Character     string
	VesselKey     string
	OrdinarySlots [3]Color
	DeepSlots     [3]Color
}

// Index is the immutable, read-once reference index (component A).
type Index struct {
	effectsByID  map[int]Effect
	effectsByKey map[string]int
	items        map[int]Item
	vessels      map[string][]VesselConfig // lower-cased character -> its vessels
	universal    []VesselConfig
}

// rawEffect mirrors the effect catalog's JSON shape. Stacking is
// true|false|"conditional" per section 6.
type rawEffect struct {
	ID       int             `json:"id"`
	Key      string          `json:"key"`
	Stacking json.RawMessage `json:"stacking"`
}

type rawItem struct {
	ID    int    `json:"id"`
	Key   string `json:"key"`
	Color string `json:"color"`
	Type  string `json:"type"`
}

type rawVessel struct {
	Character     string   `json:"character"`
	VesselKey     string   `json:"vesselKey"`
	OrdinarySlots []string `json:"ordinarySlots"`
	DeepSlots     []string `json:"deepSlots"`
}

// LoadIndex reads the three reference-data files and builds an Index.
// Any read or structural failure is fatal per section 7, so it is
// wrapped in an engineerr.EngineError rather than returned bare.
func LoadIndex(effectsPath, itemsPath, vesselsPath string) (*Index, error) {
	rawEffects, err := loadFromFile[rawEffect](effectsPath)
	if err != nil {
		return nil, engineerr.NewMalformedDataError("effect catalog", err)
	}
	rawItems, err := loadFromFile[rawItem](itemsPath)
	if err != nil {
		return nil, engineerr.NewMalformedDataError("item catalog", err)
	}
	rawVessels, err := loadFromFile[rawVessel](vesselsPath)
	if err != nil {
		return nil, engineerr.NewMalformedDataError("vessel catalog", err)
	}

	idx := &Index{
		effectsByID:  make(map[int]Effect, len(rawEffects)),
		effectsByKey: make(map[string]int, len(rawEffects)),
		items:        make(map[int]Item, len(rawItems)),
		vessels:      make(map[string][]VesselConfig),
	}

	for _, re := range rawEffects {
		flag, err := parseStacking(re.Stacking)
		if err != nil {
			return nil, engineerr.NewMalformedDataError(fmt.Sprintf("effect %q stacking", re.Key), err)
		}
		if existingID, ok := idx.effectsByKey[re.Key]; ok {
			existing := idx.effectsByID[existingID]
			existing.Stacking = combine(existing.Stacking, flag)
			idx.effectsByID[existingID] = existing
			log.Debug("duplicate effect key in catalog, merging stacking flag", "key", re.Key)
			continue
		}
		idx.effectsByKey[re.Key] = re.ID
		idx.effectsByID[re.ID] = Effect{ID: re.ID, Key: re.Key, Stacking: flag}
	}

	for _, ri := range rawItems {
		color, err := ParseColor(ri.Color)
		if err != nil {
			return nil, engineerr.NewMalformedDataError(fmt.Sprintf("item %q color", ri.Key), err)
		}
		itemType, err := parseCatalogItemType(ri.Type)
		if err != nil {
			return nil, engineerr.NewMalformedDataError(fmt.Sprintf("item %q type", ri.Key), err)
		}
		idx.items[ri.ID] = Item{ID: ri.ID, Key: ri.Key, Color: color, Type: itemType}
	}

	for _, rv := range rawVessels {
		ordinary, err := parseSlotPattern(rv.OrdinarySlots)
		if err != nil {
			return nil, engineerr.NewMalformedDataError(fmt.Sprintf("vessel %q ordinary slots", rv.VesselKey), err)
		}
		deep, err := parseSlotPattern(rv.DeepSlots)
		if err != nil {
			return nil, engineerr.NewMalformedDataError(fmt.Sprintf("vessel %q deep slots", rv.VesselKey), err)
		}
		vc := VesselConfig{
			Character:     rv.Character,
			VesselKey:     rv.VesselKey,
			OrdinarySlots: ordinary,
			DeepSlots:     deep,
		}
		if rv.Character == "" || strings.EqualFold(rv.Character, "universal") {
			idx.universal = append(idx.universal, vc)
			continue
		}
		key := strings.ToLower(rv.Character)
		idx.vessels[key] = append(idx.vessels[key], vc)
	}

	log.Info("reference index loaded",
		"effects", len(idx.effectsByID), "items", len(idx.items),
		"characters", len(idx.vessels), "universal_vessels", len(idx.universal))

	return idx, nil
}

func parseStacking(raw json.RawMessage) (StackFlag, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return Stackable, nil
		}
		return NonStackable, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "conditional") {
			return Conditional, nil
		}
		return 0, fmt.Errorf("unrecognized stacking string %q", s)
	}
	return 0, fmt.Errorf("stacking value must be bool or %q", "conditional")
}

// parseCatalogItemType accepts both the inventory file's capitalized
// forms and the broad internal constants, so a hand-authored catalog
// can use either spelling.
func parseCatalogItemType(s string) (ItemType, error) {
	switch strings.ToUpper(s) {
	case "RELIC", "ORDINARY_RELIC":
		return OrdinaryRelic, nil
	case "UNIQUERELIC", "UNIQUE_RELIC":
		return UniqueRelic, nil
	case "DEEPRELIC", "DEEP_RELIC":
		return DeepRelic, nil
	default:
		return "", fmt.Errorf("unrecognized item type %q", s)
	}
}

func parseSlotPattern(raw []string) ([3]Color, error) {
	var out [3]Color
	if len(raw) != 3 {
		return out, fmt.Errorf("slot pattern must have exactly 3 entries, got %d", len(raw))
	}
	for i, s := range raw {
		c, err := ParseColor(s)
		if err != nil {
			return out, err
		}
		out[i] = c
	}
	return out, nil
}

func loadFromFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return out, nil
}

// Effect looks up an effect by id.
func (idx *Index) Effect(id int) (Effect, bool) {
	e, ok := idx.effectsByID[id]
	return e, ok
}

// EffectByKey looks up an effect's id by its stable key.
func (idx *Index) EffectByKey(key string) (int, bool) {
	id, ok := idx.effectsByKey[key]
	return id, ok
}

// AllEffects returns every catalog effect, keyed by id.
func (idx *Index) AllEffects() map[int]Effect {
	return idx.effectsByID
}

// Item looks up an item template by id.
func (idx *Index) Item(id int) (Item, bool) {
	it, ok := idx.items[id]
	return it, ok
}

// AllItems returns every catalog item, keyed by id.
func (idx *Index) AllItems() map[int]Item {
	return idx.items
}

// Vessels returns every vessel configuration for a character, plus the
// universal vessels, optionally restricted to a set of vessel keys.
func (idx *Index) Vessels(character string, vesselKeys []string) []VesselConfig {
	all := append(append([]VesselConfig{}, idx.vessels[strings.ToLower(character)]...), idx.universal...)
	if len(vesselKeys) == 0 {
		return all
	}
	allowed := make(map[string]bool, len(vesselKeys))
	for _, k := range vesselKeys {
		allowed[strings.ToLower(k)] = true
	}
	var filtered []VesselConfig
	for _, vc := range all {
		if allowed[strings.ToLower(vc.VesselKey)] {
			filtered = append(filtered, vc)
		}
	}
	return filtered
}
