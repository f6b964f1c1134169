package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_OverridesDefaults(t *testing.T) {
	for k, v := range map[string]string{
		"RELICSORT_TOP_N":                  "25",
		"RELICSORT_CANDIDATES_PER_SLOT":    "12",
		"RELICSORT_MAX_PAIRS":              "250",
		"RELICSORT_CONCENTRATION_CONSTANT": "7",
		"RELICSORT_CONDITIONAL_PENALTY":    "0.4",
	} {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg := FromEnv(Default())

	assert.Equal(t, 25, cfg.TopN)
	assert.Equal(t, 12, cfg.CandidatesPerSlot)
	assert.Equal(t, 250, cfg.MaxPairs)
	assert.Equal(t, 7, cfg.ConcentrationConstant)
	assert.Equal(t, 0.4, cfg.ConditionalPenalty)
}

func TestFromEnv_InvalidFallsBackToDefault(t *testing.T) {
	os.Setenv("RELICSORT_TOP_N", "not-a-number")
	defer os.Unsetenv("RELICSORT_TOP_N")

	cfg := FromEnv(Default())
	assert.Equal(t, Default().TopN, cfg.TopN)
}

func TestDefaultForMode_CombinedLowersCandidateCap(t *testing.T) {
	single := DefaultForMode(ModeSingleSide)
	combined := DefaultForMode(ModeCombined)

	assert.Equal(t, 30, single.CandidatesPerSlot)
	assert.Equal(t, 15, combined.CandidatesPerSlot)
}

func TestValidate_RejectsNonPositiveKnobs(t *testing.T) {
	cfg := Default()
	cfg.TopN = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ConditionalPenalty = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	assert.NoError(t, cfg.Validate())
}
