package history_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jito-foundation/steward-core/internal/steward/history"
)

func credits(n uint32) *uint32 { return &n }

func buildFixture(t *testing.T) (*history.ValidatorHistory, *history.ClusterHistory) {
	t.Helper()
	vh := history.NewValidatorHistory(0, "VoteAccountA")
	ch := history.NewClusterHistory()

	for epoch := uint16(1); epoch <= 5; epoch++ {
		vh.Entries.Push(history.ValidatorEntry{
			Epoch:            epoch,
			Commission:       5,
			MevCommissionBps: 800,
			EpochCredits:     credits(400_000),
		})
		ch.Entries.Push(history.ClusterEntry{
			Epoch:       epoch,
			TotalBlocks: 432_000,
		})
	}
	return vh, ch
}

func TestMaxCommissionOverRange(t *testing.T) {
	vh, ch := buildFixture(t)
	vh.Entries.Push(history.ValidatorEntry{Epoch: 6, Commission: 20, MevCommissionBps: 100, EpochCredits: credits(1)})
	v := history.NewView(vh, ch)

	max, err := v.MaxCommission(1, 6)
	require.NoError(t, err)
	require.Equal(t, uint8(20), max)
}

func TestMaxCommissionEmptyWindowErrors(t *testing.T) {
	vh, ch := buildFixture(t)
	v := history.NewView(vh, ch)

	_, err := v.MaxCommission(100, 110)
	require.Error(t, err)
}

func TestAvgMevCommissionEmptyWindowIsWorstCase(t *testing.T) {
	vh := history.NewValidatorHistory(0, "V")
	ch := history.NewClusterHistory()
	v := history.NewView(vh, ch)

	require.Equal(t, history.MaxBps, v.AvgMevCommission(1, 10))
}

func TestAvgMevCommissionCeilingDivision(t *testing.T) {
	vh := history.NewValidatorHistory(0, "V")
	ch := history.NewClusterHistory()
	vh.Entries.Push(history.ValidatorEntry{Epoch: 1, MevCommissionBps: 1})
	vh.Entries.Push(history.ValidatorEntry{Epoch: 2, MevCommissionBps: 2})
	v := history.NewView(vh, ch)

	// (1+2)/2 = 1.5, ceiling => 2
	require.Equal(t, uint16(2), v.AvgMevCommission(1, 2))
}

func TestDelinquencyOkTreatsMissingCreditsAsZero(t *testing.T) {
	vh := history.NewValidatorHistory(0, "V")
	ch := history.NewClusterHistory()
	ch.Entries.Push(history.ClusterEntry{Epoch: 1, TotalBlocks: 100})
	// no validator entry for epoch 1: credits treated as 0
	v := history.NewView(vh, ch)

	require.False(t, v.DelinquencyOk(1, 2, 1, 1))
}

func TestDelinquencyOkExactBoundary(t *testing.T) {
	vh := history.NewValidatorHistory(0, "V")
	ch := history.NewClusterHistory()
	ch.Entries.Push(history.ClusterEntry{Epoch: 1, TotalBlocks: 100})
	vh.Entries.Push(history.ValidatorEntry{Epoch: 1, EpochCredits: credits(50)})
	v := history.NewView(vh, ch)

	// 50/100 is not strictly greater than 1/2.
	require.False(t, v.DelinquencyOk(1, 2, 1, 1))
	// 50/100 is strictly greater than 49/100.
	require.True(t, v.DelinquencyOk(49, 100, 1, 1))
}

func TestVoteCreditsRatioZeroDenominator(t *testing.T) {
	vh, _ := buildFixture(t)
	ch := history.NewClusterHistory() // empty
	v := history.NewView(vh, ch)

	num, den := v.VoteCreditsRatio(1, 5)
	require.Equal(t, uint64(0), num)
	require.Equal(t, uint64(1), den)
	require.Equal(t, uint32(0), history.RatioToTier(num, den))
}

func TestRatioToTierTruncatesTowardZero(t *testing.T) {
	// 1/3 * 1e7 = 3333333.33..., must truncate not round.
	tier := history.RatioToTier(1, 3)
	require.Equal(t, uint32(3333333), tier)
}

func TestRatioToTierClampsAtMax(t *testing.T) {
	tier := history.RatioToTier(1000, 1) // wildly over 1.0
	require.Equal(t, uint32((1<<25)-1), tier)
}

func TestValidatorAgeCountsNonNullCreditsOnly(t *testing.T) {
	vh := history.NewValidatorHistory(0, "V")
	ch := history.NewClusterHistory()
	vh.Entries.Push(history.ValidatorEntry{Epoch: 1, EpochCredits: credits(10)})
	vh.Entries.Push(history.ValidatorEntry{Epoch: 2, EpochCredits: nil})
	vh.Entries.Push(history.ValidatorEntry{Epoch: 3, EpochCredits: credits(30)})
	v := history.NewView(vh, ch)

	require.Equal(t, uint32(2), v.ValidatorAge())
}
