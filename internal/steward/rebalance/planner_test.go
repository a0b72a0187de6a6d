package rebalance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jito-foundation/steward-core/internal/steward/pool"
	"github.com/jito-foundation/steward-core/internal/steward/rebalance"
)

func TestStakeDepositAttribution(t *testing.T) {
	// internal_lamports=1000, pool.active=1500, target=1100.
	// Decrease=400: stake_deposit layer consumes
	// min(excess 400, deposit excess 500, cap_remaining) = 400;
	// scoring layer handles none.
	validators := []rebalance.ValidatorState{{
		HistoryIndex:     0,
		ActiveLamports:   1500,
		InternalLamports: 1000,
		DelegationNum:    1,
		DelegationDen:    1,
	}}
	caps := rebalance.Caps{
		StakeDepositCapTotal: 10_000,
		ScoringCapTotal:      10_000,
		InstantCapTotal:      10_000,
	}
	snap := rebalance.NewSnapshot(1100, 0, validators, caps, []int{0}, []int{0})

	outcome, usage := rebalance.Decide(snap, 0)
	require.Equal(t, rebalance.OutcomeDecrease, outcome.Kind)
	require.Equal(t, uint64(400), outcome.Delta)
	require.Equal(t, pool.DecreaseReasonStakeDeposit, outcome.Reason)
	require.Equal(t, uint64(400), usage.StakeDeposit)
	require.Equal(t, uint64(0), usage.Scoring)
}

func TestInstantLayerCappedIndependently(t *testing.T) {
	validators := []rebalance.ValidatorState{{
		HistoryIndex:     1,
		ActiveLamports:   1000,
		InternalLamports: 1000, // no deposit excess
		DelegationNum:    0,
		DelegationDen:    1,
		InstantUnstake:   true,
	}}
	caps := rebalance.Caps{
		InstantCapTotal: 300, // only enough for part of the 1000 excess
		ScoringCapTotal: 10_000,
	}
	snap := rebalance.NewSnapshot(0, 0, validators, caps, []int{1}, []int{1})

	outcome, usage := rebalance.Decide(snap, 1)
	require.Equal(t, rebalance.OutcomeDecrease, outcome.Kind)
	// Once flagged instant, the entire non-deposit excess is attributed
	// to the instant layer and capped there; it does not spill into
	// scoring within a single Decide call: once flagged, the whole
	// non-deposit remainder is routed to the Instant layer.
	require.Equal(t, uint64(300), outcome.Delta)
	require.Equal(t, uint64(300), usage.Instant)
	require.Equal(t, uint64(0), usage.Scoring)
}

func TestDecreaseCappedByWorseClaims(t *testing.T) {
	// Two validators both want to decrease under the scoring cap. The
	// worse-ranked validator's claim can fully consume the cap, leaving
	// nothing for the better-ranked one -- i.e. priority runs from
	// worst-raw-score to best, so the WORSE validator's decrease is
	// serviced first when both are contending for the same cap headroom.
	validators := []rebalance.ValidatorState{
		{HistoryIndex: 0, ActiveLamports: 1000, InternalLamports: 1000, DelegationNum: 0, DelegationDen: 1, RawScore: 100},
		{HistoryIndex: 1, ActiveLamports: 1000, InternalLamports: 1000, DelegationNum: 0, DelegationDen: 1, RawScore: 50},
	}
	caps := rebalance.Caps{ScoringCapTotal: 1000}
	// sortedByRawScore: best to worst => [0 (raw=100), 1 (raw=50)]
	snap := rebalance.NewSnapshot(0, 0, validators, caps, []int{0, 1}, []int{0, 1})

	better, _ := rebalance.Decide(snap, 0) // ranks better (higher raw score)
	worse, _ := rebalance.Decide(snap, 1)  // ranks worse

	// The worse validator (index 1) has no one worse than it, so it can
	// claim the full 1000 excess up to the cap.
	require.Equal(t, rebalance.OutcomeDecrease, worse.Kind)
	require.Equal(t, uint64(1000), worse.Delta)

	// The better validator (index 0) is behind the worse one's claim of
	// 1000 against a cap of 1000: no headroom left.
	require.Equal(t, rebalance.OutcomeNoOpWithProgress, better.Kind)
}

func TestIncreaseBoundedByReserveAndBetterClaims(t *testing.T) {
	validators := []rebalance.ValidatorState{
		{HistoryIndex: 0, ActiveLamports: 0, DelegationNum: 1, DelegationDen: 2, Score: 100}, // better rank
		{HistoryIndex: 1, ActiveLamports: 0, DelegationNum: 1, DelegationDen: 2, Score: 50},  // worse rank
	}
	// pool TVL 1000 => target 500 each; reserve only 600.
	snap := rebalance.NewSnapshot(1000, 600, validators, rebalance.Caps{}, []int{0, 1}, []int{0, 1})

	better, _ := rebalance.Decide(snap, 0)
	worse, _ := rebalance.Decide(snap, 1)

	require.Equal(t, rebalance.OutcomeIncrease, better.Kind)
	require.Equal(t, uint64(500), better.Delta) // fully funded, no one better ahead of it

	require.Equal(t, rebalance.OutcomeIncrease, worse.Kind)
	require.Equal(t, uint64(100), worse.Delta) // 600 reserve - 500 claimed by the better validator
}

func TestNoOpWhenAlreadyAtTarget(t *testing.T) {
	validators := []rebalance.ValidatorState{
		{HistoryIndex: 0, ActiveLamports: 500, DelegationNum: 1, DelegationDen: 2},
	}
	snap := rebalance.NewSnapshot(1000, 0, validators, rebalance.Caps{}, []int{0}, []int{0})

	outcome, _ := rebalance.Decide(snap, 0)
	require.Equal(t, rebalance.OutcomeNone, outcome.Kind)
}

func TestProgressAlreadySetReturnsNoOp(t *testing.T) {
	// A validator with its rebalance progress bit set is never re-adjusted
	// in the same cycle phase.
	validators := []rebalance.ValidatorState{
		{HistoryIndex: 0, ActiveLamports: 0, DelegationNum: 1, DelegationDen: 1, ProgressSet: true},
	}
	snap := rebalance.NewSnapshot(1000, 1000, validators, rebalance.Caps{}, []int{0}, []int{0})

	outcome, _ := rebalance.Decide(snap, 0)
	require.Equal(t, rebalance.OutcomeNoOpWithProgress, outcome.Kind)
}

func TestBpsCapRoundsTowardZero(t *testing.T) {
	// 1000 bps of 12345 = 1234.5, must truncate to 1234.
	require.Equal(t, uint64(1234), rebalance.BpsCap(1000, 12345))
}

func TestTargetLamportsRoundsTowardZero(t *testing.T) {
	// 1/3 of 100 = 33.33.., truncates to 33.
	require.Equal(t, uint64(33), rebalance.TargetLamports(1, 3, 100))
}
