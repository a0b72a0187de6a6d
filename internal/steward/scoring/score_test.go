package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jito-foundation/steward-core/internal/steward/config"
	"github.com/jito-foundation/steward-core/internal/steward/history"
	"github.com/jito-foundation/steward-core/internal/steward/scoring"
)

func credits(n uint32) *uint32 { return &n }

func fixtureValidator(t *testing.T, commissionPct uint8, mevBps uint16, creditsFraction float64, epochs uint16) *history.ValidatorHistory {
	t.Helper()
	vh := history.NewValidatorHistory(0, "V")
	for e := uint16(1); e <= epochs; e++ {
		c := uint32(creditsFraction * 432_000)
		vh.Entries.Push(history.ValidatorEntry{
			Epoch:            e,
			Commission:       commissionPct,
			MevCommissionBps: mevBps,
			EpochCredits:     credits(c),
		})
	}
	return vh
}

func fixtureCluster(epochs uint16) *history.ClusterHistory {
	ch := history.NewClusterHistory()
	for e := uint16(1); e <= epochs; e++ {
		ch.Entries.Push(history.ClusterEntry{Epoch: e, TotalBlocks: 432_000})
	}
	return ch
}

func baseConfig() *config.Config {
	c := config.Default()
	c.AllowedMerkleRootAuthorities = []uint8{1}
	c.AllowedPriorityFeeRootAuthorities = []uint8{1}
	return c
}

func TestScoreZeroWhenAnyFilterFails(t *testing.T) {
	// score == 0 iff at least one eligibility flag is false.
	cfg := baseConfig()
	vh := fixtureValidator(t, 5, 800, 0.70, 25) // fails delinquency (scoring threshold 0.85)
	ch := fixtureCluster(25)
	view := history.NewView(vh, ch)

	sc, err := scoring.Compute(view, cfg, 0, 25, 1, 1)
	require.NoError(t, err)
	require.False(t, sc.Eligibility.AllOk())
	require.Equal(t, uint64(0), sc.Score)
	require.NotZero(t, sc.RawScore) // raw_score still computed for unstake ordering
}

func TestScoreNonZeroWhenAllFiltersPass(t *testing.T) {
	cfg := baseConfig()
	vh := fixtureValidator(t, 5, 800, 0.98, 25)
	ch := fixtureCluster(25)
	view := history.NewView(vh, ch)

	sc, err := scoring.Compute(view, cfg, 0, 25, 1, 1)
	require.NoError(t, err)
	require.True(t, sc.Eligibility.AllOk())
	require.Equal(t, sc.RawScore, sc.Score)
	require.NotZero(t, sc.Score)
}

func TestBlacklistedValidatorScoresZero(t *testing.T) {
	cfg := baseConfig()
	cfg.Blacklist.Set(0)
	vh := fixtureValidator(t, 5, 800, 0.98, 25)
	ch := fixtureCluster(25)
	view := history.NewView(vh, ch)

	sc, err := scoring.Compute(view, cfg, 0, 25, 1, 1)
	require.NoError(t, err)
	require.False(t, sc.Eligibility.BlacklistedOk)
	require.Equal(t, uint64(0), sc.Score)
}

func TestScoreOrderingAcrossValidators(t *testing.T) {
	cfg := baseConfig()
	ch := fixtureCluster(25)

	vhA := fixtureValidator(t, 5, 800, 0.98, 25)
	vhB := fixtureValidator(t, 10, 500, 0.99, 25)
	vhC := fixtureValidator(t, 5, 1200, 0.70, 25) // delinquent

	scoreA, err := scoring.Compute(history.NewView(vhA, ch), cfg, 0, 25, 1, 1)
	require.NoError(t, err)
	scoreB, err := scoring.Compute(history.NewView(vhB, ch), cfg, 1, 25, 1, 1)
	require.NoError(t, err)
	scoreC, err := scoring.Compute(history.NewView(vhC, ch), cfg, 2, 25, 1, 1)
	require.NoError(t, err)

	require.Zero(t, scoreC.Score)
	// Tier 1 (commission) dominates: A's lower commission (5% vs B's
	// 10%) wins regardless of B's better MEV and credits tiers.
	require.Greater(t, scoreA.Score, scoreB.Score)
}

func TestCommissionAbove100ClampedBeforeEncoding(t *testing.T) {
	// Boundary: commission percent > 100 in raw data is clamped to 100.
	require.Equal(t, uint64(0), scoring.InflationTier(150))
}
