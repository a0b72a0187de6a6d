package scoring

// Bit widths and shifts for the hierarchical quality score packed into a
// single u64, MSB to LSB. Tier 1 dominates Tier 2 dominates Tier 3
// dominates Tier 4 under plain unsigned integer comparison.
const (
	InflationTierBits = 8
	MevTierBits       = 14
	AgeTierBits       = 17
	CreditsTierBits   = 25

	InflationTierShift = 56
	MevTierShift       = 42
	AgeTierShift       = 25
	CreditsTierShift   = 0

	inflationTierMax = (1 << InflationTierBits) - 1
	mevTierMax       = (1 << MevTierBits) - 1
	ageTierMax       = (1 << AgeTierBits) - 1
	creditsTierMax   = (1 << CreditsTierBits) - 1
)

// Tiers is the unpacked form of a raw_score, used for logging and tests.
type Tiers struct {
	Inflation uint64
	Mev       uint64
	Age       uint64
	Credits   uint64
}

// InflationTier computes tier 1: 100 - min(maxCommission, 100).
func InflationTier(maxCommissionPercent uint8) uint64 {
	c := maxCommissionPercent
	if c > 100 {
		c = 100
	}
	return uint64(100 - c)
}

// MevTier computes tier 2: 10000 - min(avgMevCommissionBps, 10000).
func MevTier(avgMevCommissionBps uint16) uint64 {
	m := avgMevCommissionBps
	if m > 10000 {
		m = 10000
	}
	return uint64(10000 - m)
}

// AgeTier computes tier 3: min(validatorAge, 2^17-1).
func AgeTier(validatorAge uint32) uint64 {
	if uint64(validatorAge) > ageTierMax {
		return ageTierMax
	}
	return uint64(validatorAge)
}

// CreditsTier computes tier 4: min(creditsTier, 2^25-1). The caller must
// have already quantized the ratio via history.RatioToTier.
func CreditsTier(quantized uint32) uint64 {
	if uint64(quantized) > creditsTierMax {
		return creditsTierMax
	}
	return uint64(quantized)
}

// Pack combines the four tiers into a single raw_score. Each
// tier value must already be within its bit width; Pack masks
// defensively rather than trusting the caller.
func Pack(t Tiers) uint64 {
	return ((t.Inflation & inflationTierMax) << InflationTierShift) |
		((t.Mev & mevTierMax) << MevTierShift) |
		((t.Age & ageTierMax) << AgeTierShift) |
		((t.Credits & creditsTierMax) << CreditsTierShift)
}

// Unpack decomposes a packed raw_score into its four tiers. Used for
// display and the round-trip property test.
func Unpack(raw uint64) Tiers {
	return Tiers{
		Inflation: (raw >> InflationTierShift) & inflationTierMax,
		Mev:       (raw >> MevTierShift) & mevTierMax,
		Age:       (raw >> AgeTierShift) & ageTierMax,
		Credits:   (raw >> CreditsTierShift) & creditsTierMax,
	}
}
