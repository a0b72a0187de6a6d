// Package delegation implements the DelegationPlanner: it converts
// scored validators into a target fractional distribution over up to K
// pool slots.
package delegation

import "sort"

// Candidate is one validator's scoring output as seen by the planner.
type Candidate struct {
	HistoryIndex int
	Score        uint64
	RawScore     uint64
}

// Allocation is one entry of the delegations[] array: a fraction
// numerator over a shared denominator.
type Allocation struct {
	HistoryIndex int
	Numerator    uint64
}

// Result is the DelegationPlanner's output: the allocations, plus the
// two sorted-index rankings that drive rebalance priority.
type Result struct {
	Denominator            uint64
	Delegations            []Allocation
	SortedByScoreDesc      []int // history indices, by final score desc
	SortedByRawScoreDesc   []int // history indices, by raw_score desc
}

// Plan runs the partial-sort-and-allocate algorithm.
// K is num_delegation_validators. candidates must contain one entry per
// pool validator (score 0 for ineligible validators is expected and
// correctly excluded from selection).
func Plan(candidates []Candidate, k uint32) Result {
	n := len(candidates)

	sortedByScore := make([]int, n)
	for i := range sortedByScore {
		sortedByScore[i] = i
	}
	// Tie-break: score desc, then raw_score desc, then history_index asc.
	sort.Slice(sortedByScore, func(a, b int) bool {
		ca, cb := candidates[sortedByScore[a]], candidates[sortedByScore[b]]
		if ca.Score != cb.Score {
			return ca.Score > cb.Score
		}
		if ca.RawScore != cb.RawScore {
			return ca.RawScore > cb.RawScore
		}
		return ca.HistoryIndex < cb.HistoryIndex
	})

	sortedByRawScore := make([]int, n)
	for i := range sortedByRawScore {
		sortedByRawScore[i] = i
	}
	sort.Slice(sortedByRawScore, func(a, b int) bool {
		ca, cb := candidates[sortedByRawScore[a]], candidates[sortedByRawScore[b]]
		if ca.RawScore != cb.RawScore {
			return ca.RawScore > cb.RawScore
		}
		return ca.HistoryIndex < cb.HistoryIndex
	})

	eligibleCount := 0
	for _, c := range candidates {
		if c.Score > 0 {
			eligibleCount++
		}
	}

	selectCount := int(k)
	if eligibleCount < selectCount {
		selectCount = eligibleCount
	}

	sortedByScoreIndices := make([]int, n)
	sortedByRawScoreIndices := make([]int, n)
	for rank, idx := range sortedByScore {
		sortedByScoreIndices[rank] = candidates[idx].HistoryIndex
	}
	for rank, idx := range sortedByRawScore {
		sortedByRawScoreIndices[rank] = candidates[idx].HistoryIndex
	}

	res := Result{
		SortedByScoreDesc:    sortedByScoreIndices,
		SortedByRawScoreDesc: sortedByRawScoreIndices,
	}

	if selectCount == 0 {
		res.Denominator = uint64(k)
		if res.Denominator == 0 {
			res.Denominator = 1
		}
		return res
	}

	// If fewer than K have score>0, distribute 1/N among the N
	// eligible; otherwise 1/K among the top K.
	denominator := uint64(k)
	if eligibleCount < int(k) {
		denominator = uint64(eligibleCount)
	}
	res.Denominator = denominator

	for i := 0; i < selectCount; i++ {
		idx := sortedByScore[i]
		if candidates[idx].Score == 0 {
			break // never allocate to an ineligible validator
		}
		res.Delegations = append(res.Delegations, Allocation{
			HistoryIndex: candidates[idx].HistoryIndex,
			Numerator:    1,
		})
	}

	return res
}
