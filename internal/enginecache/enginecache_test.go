package enginecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOrCompute_ComputesOnceAndTracksStats(t *testing.T) {
	cache := New[string, int]()
	calls := 0
	compute := func() int {
		calls++
		return 42
	}

	first := cache.GetOrCompute("a", compute)
	second := cache.GetOrCompute("a", compute)

	assert.Equal(t, 42, first)
	assert.Equal(t, 42, second)
	assert.Equal(t, 1, calls, "compute must run at most once per key")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestGet_MissingKey(t *testing.T) {
	cache := New[int, string]()
	_, ok := cache.Get(1)
	assert.False(t, ok)
}
