// Package pairing implements the Six-Slot Pairer (component H):
// cross-pairing scored ordinary and deep triples into six-slot
// results via branch-and-bound against a min-heap of the current
// top-N.
package pairing

import (
	"container/heap"
	"sort"

	"github.com/relicsort/engine/internal/enumerate"
	"github.com/relicsort/engine/internal/monitor"
)

// Pairing is a surviving cross-pair: an ordinary triple plus a deep
// triple, with the combined score the heap ordered it by.
type Pairing struct {
	Ordinary    enumerate.Triple
	Deep        enumerate.Triple
	Score       int
	SubScore    int
	RequiredMet bool
}

// heapEntry is the compact bookkeeping record the min-heap orders.
// Full Pairing objects are only materialized for the entries still in
// the heap once the loop ends: building one for every visited
// candidate would dominate when the pairing loop visits hundreds of
// thousands of pairs.
type heapEntry struct {
	ordinaryIdx int
	deepIdx     int
	requiredMet bool
	score       int
	subScore    int
	counter     int64
}

// better reports whether a strictly outranks b under
// (required_met, score, sub_score, counter) descending. counter breaks
// ties between otherwise-equal candidates by insertion order, so the
// heap's eviction choice among equals is deterministic.
func better(a, b heapEntry) bool {
	if a.requiredMet != b.requiredMet {
		return a.requiredMet
	}
	if a.score != b.score {
		return a.score > b.score
	}
	if a.subScore != b.subScore {
		return a.subScore > b.subScore
	}
	return a.counter > b.counter
}

type minHeap []heapEntry

// Less must put the weakest entry at the root so Pop evicts it first.
func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(heapEntry)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// boundKey is the coarse (required_met, score) pair the branch-and-
// bound break conditions compare against, per the spec's documented
// simplification of comparing bounds "lexicographically with the
// feasibility flag" — the sub_score tiebreaker is not part of the
// bound, only of final heap admission.
type boundKey struct {
	requiredMet bool
	score       int
}

func boundBetter(a, b boundKey) bool {
	if a.requiredMet != b.requiredMet {
		return a.requiredMet
	}
	return a.score > b.score
}

// PairSixSlot implements Phase 3 of component H: cross-pairing
// ordinary and deep triples with admissibility pruning, keeping only
// the top N by (required_met, score, sub_score).
//
// ordinary and deep must already be sorted descending by Score; the
// caller (the aggregator, via its Phase-1/Phase-2 cache) owns that.
// counters may be nil.
func PairSixSlot(ordinary, deep []enumerate.Triple, maxPairs, topN int, counters *monitor.Counters) []Pairing {
	if len(ordinary) > maxPairs {
		ordinary = ordinary[:maxPairs]
	}
	if len(deep) > maxPairs {
		deep = deep[:maxPairs]
	}
	if len(ordinary) == 0 || len(deep) == 0 {
		return nil
	}

	bestDeepScore := deep[0].Score

	// Required-coverage feasibility: a pairing meets its requirements
	// only when both of its triples do, so a side with no required-met
	// triple caps every bound at requiredMet=false.
	ordinaryCanMeet, deepCanMeet := false, false
	for _, o := range ordinary {
		ordinaryCanMeet = ordinaryCanMeet || o.RequiredMet
	}
	for _, d := range deep {
		deepCanMeet = deepCanMeet || d.RequiredMet
	}

	h := &minHeap{}
	heap.Init(h)
	var counter int64

	for oi, o := range ordinary {
		if h.Len() == topN {
			worst := boundKey{(*h)[0].requiredMet, (*h)[0].score}
			outerBound := boundKey{ordinaryCanMeet && deepCanMeet, o.Score + bestDeepScore}
			if !boundBetter(outerBound, worst) {
				// ordinary is sorted descending by Score, so every
				// remaining ordinary triple has an even weaker bound.
				break
			}
		}

		for di, d := range deep {
			requiredMet := o.RequiredMet && d.RequiredMet
			candidateScore := o.Score + d.Score
			candidateSub := o.SubScore + d.SubScore

			if h.Len() == topN {
				worst := boundKey{(*h)[0].requiredMet, (*h)[0].score}
				innerBound := boundKey{o.RequiredMet && deepCanMeet, candidateScore}
				if !boundBetter(innerBound, worst) {
					// deep is sorted descending by Score, so every
					// remaining d in this inner loop is weaker too.
					break
				}
			}

			counter++
			entry := heapEntry{
				ordinaryIdx: oi,
				deepIdx:     di,
				requiredMet: requiredMet,
				score:       candidateScore,
				subScore:    candidateSub,
				counter:     counter,
			}
			if counters != nil {
				counters.AddPairsVisited(1)
			}

			if h.Len() < topN {
				heap.Push(h, entry)
				if counters != nil {
					counters.AddHeapInsertions(1)
				}
			} else if better(entry, (*h)[0]) {
				heap.Pop(h)
				heap.Push(h, entry)
				if counters != nil {
					counters.AddHeapInsertions(1)
					counters.AddHeapEvictions(1)
				}
			}
		}
	}

	results := make([]Pairing, 0, h.Len())
	for _, e := range *h {
		results = append(results, Pairing{
			Ordinary:    ordinary[e.ordinaryIdx],
			Deep:        deep[e.deepIdx],
			Score:       e.score,
			SubScore:    e.subScore,
			RequiredMet: e.requiredMet,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.RequiredMet != b.RequiredMet {
			return a.RequiredMet
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.SubScore > b.SubScore
	})

	return results
}
