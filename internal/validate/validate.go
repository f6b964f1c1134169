// Package validate performs pre-flight validation of CLI input before
// any engine work begins, mirroring the teacher's security/validation
// package's fail-fast-with-diagnostic shape.
package validate

import (
	"fmt"

	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/engineerr"
)

// Input is the subset of CLI flags worth validating before load.
type Input struct {
	Character  string
	Color      string
	Combined   bool
	Deep       bool
	TopN       int
	Candidates int
	MaxPairs   int
	Types      []string
}

var validTypes = map[string]catalog.ItemType{
	"Relic":       catalog.OrdinaryRelic,
	"UniqueRelic": catalog.UniqueRelic,
	"DeepRelic":   catalog.DeepRelic,
}

// Validate rejects a CLI invocation that cannot possibly succeed,
// before any file is loaded.
func Validate(in Input) error {
	if in.Character == "" && in.Color == "" {
		return engineerr.NewInvalidInputError("either --character or --color must be given")
	}
	if in.Character != "" && in.Color != "" {
		return engineerr.NewInvalidInputError("--character and --color are mutually exclusive")
	}
	if in.Color != "" {
		c, err := catalog.ParseColor(in.Color)
		if err != nil {
			return engineerr.NewInvalidInputError(fmt.Sprintf("invalid --color: %v", err))
		}
		if c == catalog.Any {
			return engineerr.NewInvalidInputError("invalid --color: must be Red, Blue, Yellow or Green")
		}
		if in.Combined {
			return engineerr.NewInvalidInputError("--combined is not valid in color-only legacy mode")
		}
	}
	if in.TopN <= 0 {
		return engineerr.NewInvalidInputError("--top must be positive")
	}
	if in.Candidates <= 0 {
		return engineerr.NewInvalidInputError("--candidates must be positive")
	}
	if in.MaxPairs <= 0 {
		return engineerr.NewInvalidInputError("--max-pairs must be positive")
	}
	for _, t := range in.Types {
		if _, ok := validTypes[t]; !ok {
			return engineerr.NewInvalidInputError(fmt.Sprintf("unrecognized --types entry %q", t))
		}
	}
	return nil
}

// ResolveTypes maps validated --types strings to catalog item types.
func ResolveTypes(types []string) []catalog.ItemType {
	out := make([]catalog.ItemType, 0, len(types))
	for _, t := range types {
		if it, ok := validTypes[t]; ok {
			out = append(out, it)
		}
	}
	return out
}
