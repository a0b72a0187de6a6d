package delegation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jito-foundation/steward-core/internal/steward/delegation"
)

func TestPlanSelectsTopKEligible(t *testing.T) {
	candidates := []delegation.Candidate{
		{HistoryIndex: 0, Score: 900, RawScore: 900}, // V_A
		{HistoryIndex: 1, Score: 850, RawScore: 850}, // V_B
		{HistoryIndex: 2, Score: 0, RawScore: 400},   // V_C ineligible
	}
	res := delegation.Plan(candidates, 2)

	require.Equal(t, uint64(2), res.Denominator)
	require.Len(t, res.Delegations, 2)
	require.Equal(t, 0, res.Delegations[0].HistoryIndex)
	require.Equal(t, 1, res.Delegations[1].HistoryIndex)
	for _, d := range res.Delegations {
		require.Equal(t, uint64(1), d.Numerator)
	}
}

func TestPlanFewerThanKEligibleDistributesAmongN(t *testing.T) {
	// Selection size is min(K, number of validators with score > 0).
	candidates := []delegation.Candidate{
		{HistoryIndex: 0, Score: 900, RawScore: 900},
		{HistoryIndex: 1, Score: 0, RawScore: 100},
		{HistoryIndex: 2, Score: 0, RawScore: 50},
	}
	res := delegation.Plan(candidates, 5)

	require.Equal(t, uint64(1), res.Denominator)
	require.Len(t, res.Delegations, 1)
	require.Equal(t, 0, res.Delegations[0].HistoryIndex)
}

func TestPlanZeroEligible(t *testing.T) {
	candidates := []delegation.Candidate{
		{HistoryIndex: 0, Score: 0, RawScore: 10},
		{HistoryIndex: 1, Score: 0, RawScore: 5},
	}
	res := delegation.Plan(candidates, 2)

	require.Empty(t, res.Delegations)
}

func TestPlanTieBreaksByRawScoreThenIndex(t *testing.T) {
	candidates := []delegation.Candidate{
		{HistoryIndex: 5, Score: 100, RawScore: 100},
		{HistoryIndex: 2, Score: 100, RawScore: 200},
		{HistoryIndex: 3, Score: 100, RawScore: 200},
	}
	res := delegation.Plan(candidates, 2)

	require.Len(t, res.Delegations, 2)
	// Both index 2 and 3 tie on score and raw_score; index 2 wins the
	// tie-break by history_index ascending.
	require.Equal(t, 2, res.Delegations[0].HistoryIndex)
	require.Equal(t, 3, res.Delegations[1].HistoryIndex)
}

func TestSortedIndicesArePermutations(t *testing.T) {
	// The planner's rankings must be permutations of the
	// history-index set.
	candidates := []delegation.Candidate{
		{HistoryIndex: 0, Score: 10, RawScore: 30},
		{HistoryIndex: 1, Score: 20, RawScore: 20},
		{HistoryIndex: 2, Score: 30, RawScore: 10},
	}
	res := delegation.Plan(candidates, 2)

	seenScore := map[int]bool{}
	for _, idx := range res.SortedByScoreDesc {
		seenScore[idx] = true
	}
	require.Len(t, seenScore, 3)

	seenRaw := map[int]bool{}
	for _, idx := range res.SortedByRawScoreDesc {
		seenRaw[idx] = true
	}
	require.Len(t, seenRaw, 3)
}
