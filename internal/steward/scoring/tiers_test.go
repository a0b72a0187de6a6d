package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jito-foundation/steward-core/internal/steward/scoring"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	// Unpack(Pack(tiers)) == tiers for every well-formed
	// packed u64 (no padding bits set; Pack masks every tier so any
	// four in-range tier values round-trip exactly).
	rapid.Check(t, func(rt *rapid.T) {
		tiers := scoring.Tiers{
			Inflation: rapid.Uint64Range(0, (1<<scoring.InflationTierBits)-1).Draw(rt, "inflation"),
			Mev:       rapid.Uint64Range(0, (1<<scoring.MevTierBits)-1).Draw(rt, "mev"),
			Age:       rapid.Uint64Range(0, (1<<scoring.AgeTierBits)-1).Draw(rt, "age"),
			Credits:   rapid.Uint64Range(0, (1<<scoring.CreditsTierBits)-1).Draw(rt, "credits"),
		}
		packed := scoring.Pack(tiers)
		require.Equal(t, tiers, scoring.Unpack(packed))
	})
}

func TestTierDominance(t *testing.T) {
	// V_X has worse lower tiers but a strictly better inflation
	// tier than V_Y; raw_score(V_X) must exceed raw_score(V_Y)
	// regardless.
	vx := scoring.Pack(scoring.Tiers{
		Inflation: scoring.InflationTier(0),
		Mev:       scoring.MevTier(1000),
		Age:       scoring.AgeTier(100),
		Credits:   scoring.CreditsTier(9_500_000),
	})
	vy := scoring.Pack(scoring.Tiers{
		Inflation: scoring.InflationTier(1),
		Mev:       scoring.MevTier(0),
		Age:       scoring.AgeTier(500),
		Credits:   scoring.CreditsTier((1 << 25) - 1),
	})
	require.Greater(t, vx, vy)
}

func TestRawScoreMonotoneInCreditsTier(t *testing.T) {
	// Increasing credits_tier with other tiers fixed strictly
	// increases raw_score.
	rapid.Check(t, func(rt *rapid.T) {
		base := scoring.Tiers{
			Inflation: rapid.Uint64Range(0, (1<<scoring.InflationTierBits)-1).Draw(rt, "inflation"),
			Mev:       rapid.Uint64Range(0, (1<<scoring.MevTierBits)-1).Draw(rt, "mev"),
			Age:       rapid.Uint64Range(0, (1<<scoring.AgeTierBits)-1).Draw(rt, "age"),
		}
		lo := rapid.Uint64Range(0, (1<<scoring.CreditsTierBits)-2).Draw(rt, "lo")
		hi := rapid.Uint64Range(lo+1, (1<<scoring.CreditsTierBits)-1).Draw(rt, "hi")

		low := base
		low.Credits = lo
		high := base
		high.Credits = hi

		require.Less(t, scoring.Pack(low), scoring.Pack(high))
	})
}

func TestRawScoreMonotoneAcrossTierDominance(t *testing.T) {
	// Higher-tier dominance: any increase in a higher tier outweighs
	// any possible configuration of strictly lower tiers.
	rapid.Check(t, func(rt *rapid.T) {
		loInflation := rapid.Uint64Range(0, (1<<scoring.InflationTierBits)-2).Draw(rt, "loInf")
		hiInflation := rapid.Uint64Range(loInflation+1, (1<<scoring.InflationTierBits)-1).Draw(rt, "hiInf")

		worst := scoring.Tiers{
			Inflation: loInflation,
			Mev:       (1 << scoring.MevTierBits) - 1,
			Age:       (1 << scoring.AgeTierBits) - 1,
			Credits:   (1 << scoring.CreditsTierBits) - 1,
		}
		best := scoring.Tiers{
			Inflation: hiInflation,
			Mev:       0,
			Age:       0,
			Credits:   0,
		}
		require.Greater(t, scoring.Pack(best), scoring.Pack(worst))
	})
}
