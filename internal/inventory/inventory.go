// Package inventory loads and holds the player's relic inventory: the
// relic instances produced by the save-file reader, resolved against
// the reference index (component B).
package inventory

import (
	"encoding/json"
	"os"

	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/engineerr"
	"github.com/relicsort/engine/internal/log"
)

// EffectRef is one listed effect on a relic, as carried in the
// inventory file: a key plus both localized names, used by the
// specification resolver's name-substring expansion.
type EffectRef struct {
	Key      string
	NameEN   string
	NameJA   string
	EffectID int // resolved against the catalog at load time
}

// Relic is a player-owned instance of an Item.
type Relic struct {
	ID      int
	ItemID  int
	Color   catalog.Color
	Type    catalog.ItemType
	Effects []EffectRef // flattened across effect groups, primary + sub-effects
}

// Store is the loaded, immutable relic inventory.
type Store struct {
	CharacterName string
	relics        []Relic
	byType        map[catalog.ItemType][]Relic
	byColor       map[catalog.Color][]Relic
}

type rawEffectRef struct {
	Key    string `json:"key"`
	NameEN string `json:"name_en"`
	NameJA string `json:"name_ja"`
}

type rawRelic struct {
	ID        int              `json:"id"`
	ItemKey   string           `json:"itemKey"`
	ItemColor string           `json:"itemColor"`
	ItemType  string           `json:"itemType"`
	Effects   [][]rawEffectRef `json:"effects"`
}

type rawInventory struct {
	CharacterName string     `json:"characterName"`
	Relics        []rawRelic `json:"relics"`
}

// LoadInventory reads a relic-inventory JSON document and resolves
// each relic's item and effects against idx. A relic whose item key is
// unknown to the catalog is skipped with a warning rather than
// aborting the whole load, since one bad record should not block the
// rest of the inventory.
func LoadInventory(path string, idx *catalog.Index) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engineerr.NewIOError("reading relic inventory", err)
	}
	var raw rawInventory
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, engineerr.NewMalformedDataError("relic inventory", err)
	}

	itemIDByKey := buildItemKeyIndex(idx)

	store := &Store{
		CharacterName: raw.CharacterName,
		byType:        make(map[catalog.ItemType][]Relic),
		byColor:       make(map[catalog.Color][]Relic),
	}

	for _, rr := range raw.Relics {
		itemID, ok := itemIDByKey[rr.ItemKey]
		if !ok {
			log.Warn("skipping relic with unknown item key", "relic_id", rr.ID, "item_key", rr.ItemKey)
			continue
		}
		item, _ := idx.Item(itemID)

		itemType, err := catalog.ParseItemType(rr.ItemType)
		if err != nil {
			log.Warn("skipping relic with unrecognized item type", "relic_id", rr.ID, "item_type", rr.ItemType)
			continue
		}

		var effects []EffectRef
		for _, group := range rr.Effects {
			for _, re := range group {
				effectID, ok := idx.EffectByKey(re.Key)
				if !ok {
					log.Warn("unknown effect key on relic, keeping entry unresolved", "relic_id", rr.ID, "effect_key", re.Key)
					effectID = -1
				}
				effects = append(effects, EffectRef{
					Key:      re.Key,
					NameEN:   re.NameEN,
					NameJA:   re.NameJA,
					EffectID: effectID,
				})
			}
		}

		relic := Relic{
			ID:      rr.ID,
			ItemID:  itemID,
			Color:   item.Color,
			Type:    itemType,
			Effects: effects,
		}
		store.relics = append(store.relics, relic)
		store.byType[itemType] = append(store.byType[itemType], relic)
		store.byColor[item.Color] = append(store.byColor[item.Color], relic)
	}

	log.Info("relic inventory loaded", "character", store.CharacterName, "relics", len(store.relics))

	return store, nil
}

func buildItemKeyIndex(idx *catalog.Index) map[string]int {
	out := make(map[string]int)
	for id, item := range idx.AllItems() {
		out[item.Key] = id
	}
	return out
}

// All returns every loaded relic.
func (s *Store) All() []Relic {
	return s.relics
}

// ByType returns relics whose item type matches t.
func (s *Store) ByType(t catalog.ItemType) []Relic {
	return s.byType[t]
}

// ByColor returns relics whose item color matches c.
func (s *Store) ByColor(c catalog.Color) []Relic {
	return s.byColor[c]
}

// FilterByTypes returns relics whose type is in allowed.
func (s *Store) FilterByTypes(allowed []catalog.ItemType) []Relic {
	allowedSet := make(map[catalog.ItemType]bool, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = true
	}
	var out []Relic
	for _, r := range s.relics {
		if allowedSet[r.Type] {
			out = append(out, r)
		}
	}
	return out
}
