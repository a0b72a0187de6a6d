// Package config holds StewardConfig, the process-wide parameters
// mutated only by privileged instructions, and a viper-backed loader
// layering file, environment, and flag overrides.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MaxValidators is the fixed maximum size of the blacklist bitset and of
// all StewardState parallel arrays, matching the pool capacity the
// real program budgets for.
const MaxValidators = 5000

// Authority identifies one of the three privileged signers.
type Authority int

const (
	AuthorityAdmin Authority = iota
	AuthorityParameters
	AuthorityBlacklist
)

func (a Authority) String() string {
	switch a {
	case AuthorityAdmin:
		return "admin"
	case AuthorityParameters:
		return "parameters"
	case AuthorityBlacklist:
		return "blacklist"
	default:
		return "unknown"
	}
}

// Config is StewardConfig: scoring thresholds and windows, the
// three authorities, the pause flag, the blacklist bitset, and the pool
// binding. Fields are grouped by width under the comments below, with
// exceptions: ComputeScoreSlotRange (64-bit) and FirstReliableEpoch
// (16-bit) sit in the 32-bit group, and the 64-bit ratio fields come
// after the 8-bit group. Storage encodes Config as JSON, so field order
// does not determine a binary layout.
type Config struct {
	// 64-bit fields.
	MinimumStakeLamports uint64

	// 32-bit fields.
	MevCommissionRange                     uint32 // M: window for MEV filters, epochs
	CommissionRange                        uint32 // C: window for commission filter, epochs
	EpochCreditsRange                      uint32 // E: window for delinquency/credits, epochs
	NumDelegationValidators                uint32 // K
	MinimumVotingEpochs                    uint32
	NumEpochsBetweenScoring                uint32 // N
	ComputeScoreSlotRange                  uint64
	FirstReliableEpoch                     uint16

	// 16-bit fields.
	MevCommissionBpsThreshold uint16
	ScoringUnstakeCapBps      uint16
	InstantUnstakeCapBps      uint16
	StakeDepositUnstakeCapBps uint16

	// 8-bit fields.
	CommissionThreshold           uint8
	HistoricalCommissionThreshold uint8

	// Fixed-point rationals expressed as numerator/denominator over
	// 1_000_000, to keep the persisted layout integer-only while
	// preserving the semantics of a ratio threshold.
	ScoringDelinquencyThresholdRatioNum        uint64
	ScoringDelinquencyThresholdRatioDen        uint64
	InstantUnstakeDelinquencyThresholdRatioNum uint64
	InstantUnstakeDelinquencyThresholdRatioDen uint64
	InstantUnstakeEpochProgressNum             uint64
	InstantUnstakeEpochProgressDen             uint64
	InstantUnstakeInputsEpochProgressNum       uint64
	InstantUnstakeInputsEpochProgressDen       uint64

	// Authorities and pause.
	AdminAuthority      string
	ParametersAuthority string
	BlacklistAuthority  string
	Paused              bool

	// Pool binding: the address/identifier of the ExternalStakePool
	// this config governs.
	PoolBinding string

	// Blacklist bitset, sized to MaxValidators bits.
	Blacklist *Bitset

	// Allow-lists for merkle-root and priority-fee merkle-root upload
	// authorities.
	AllowedMerkleRootAuthorities      []uint8
	AllowedPriorityFeeRootAuthorities []uint8
}

// New returns a Config with the blacklist bitset allocated and every
// other field zero. Callers should apply Default() or a loaded file on
// top.
func New() *Config {
	return &Config{Blacklist: NewBitset(MaxValidators)}
}

// Default returns the steward's default parameters.
func Default() *Config {
	c := New()
	c.MinimumStakeLamports = 1_000_000_000 // 1 SOL-equivalent base unit
	c.MevCommissionRange = 20
	c.CommissionRange = 20
	c.EpochCreditsRange = 20
	c.NumDelegationValidators = 200
	c.MinimumVotingEpochs = 5
	c.NumEpochsBetweenScoring = 10
	c.ComputeScoreSlotRange = 50_000
	c.FirstReliableEpoch = 0
	c.MevCommissionBpsThreshold = 1000
	c.ScoringUnstakeCapBps = 1000
	c.InstantUnstakeCapBps = 1000
	c.StakeDepositUnstakeCapBps = 1000
	c.CommissionThreshold = 10
	c.HistoricalCommissionThreshold = 20
	c.ScoringDelinquencyThresholdRatioNum = 850_000
	c.ScoringDelinquencyThresholdRatioDen = 1_000_000
	c.InstantUnstakeDelinquencyThresholdRatioNum = 700_000
	c.InstantUnstakeDelinquencyThresholdRatioDen = 1_000_000
	c.InstantUnstakeEpochProgressNum = 900_000
	c.InstantUnstakeEpochProgressDen = 1_000_000
	c.InstantUnstakeInputsEpochProgressNum = 100_000
	c.InstantUnstakeInputsEpochProgressDen = 1_000_000
	return c
}

// BindFlags registers viper/pflag bindings for the subset of parameters
// that may be overridden at process start, with the usual
// flag-over-env-over-file precedence.
func BindFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	flags.Uint32("num-delegation-validators", 200, "K: size of the target delegation set")
	flags.Uint32("num-epochs-between-scoring", 10, "N: cycle length in epochs")
	flags.Uint16("commission-threshold", 10, "maximum allowed commission percent")
	flags.Uint16("mev-commission-bps-threshold", 1000, "maximum allowed MEV commission in bps")
	flags.String("pool-binding", "", "identifier of the pool this steward governs")

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("could not bind steward config flags: %w", err)
	}
	return nil
}

// FromViper overlays values bound by BindFlags onto a base config,
// returning a new Config. Values absent from viper (unset flag, env, or
// file) leave the base value untouched.
func FromViper(v *viper.Viper, base *Config) *Config {
	c := *base
	if v.IsSet("num-delegation-validators") {
		c.NumDelegationValidators = v.GetUint32("num-delegation-validators")
	}
	if v.IsSet("num-epochs-between-scoring") {
		c.NumEpochsBetweenScoring = v.GetUint32("num-epochs-between-scoring")
	}
	if v.IsSet("commission-threshold") {
		c.CommissionThreshold = uint8(v.GetUint32("commission-threshold"))
	}
	if v.IsSet("mev-commission-bps-threshold") {
		c.MevCommissionBpsThreshold = uint16(v.GetUint32("mev-commission-bps-threshold"))
	}
	if v.IsSet("pool-binding") {
		c.PoolBinding = v.GetString("pool-binding")
	}
	return &c
}

// Patch is a partial update applied by update_parameters. Only
// non-nil fields are merged onto the target config.
type Patch struct {
	MevCommissionRange            *uint32
	CommissionRange               *uint32
	EpochCreditsRange              *uint32
	MevCommissionBpsThreshold     *uint16
	CommissionThreshold           *uint8
	HistoricalCommissionThreshold *uint8
	NumDelegationValidators       *uint32
	ScoringUnstakeCapBps          *uint16
	InstantUnstakeCapBps          *uint16
	StakeDepositUnstakeCapBps     *uint16
	ComputeScoreSlotRange         *uint64
	NumEpochsBetweenScoring       *uint32
	MinimumStakeLamports          *uint64
	MinimumVotingEpochs           *uint32
}

// Validate checks that the patch's values are internally consistent
// before Apply commits it (caps must not exceed 10000 bps, thresholds
// must not exceed 100%).
func (p Patch) Validate() error {
	if p.CommissionThreshold != nil && *p.CommissionThreshold > 100 {
		return fmt.Errorf("commission threshold %d exceeds 100", *p.CommissionThreshold)
	}
	if p.HistoricalCommissionThreshold != nil && *p.HistoricalCommissionThreshold > 100 {
		return fmt.Errorf("historical commission threshold %d exceeds 100", *p.HistoricalCommissionThreshold)
	}
	for name, bps := range map[string]*uint16{
		"mev_commission_bps_threshold": p.MevCommissionBpsThreshold,
		"scoring_unstake_cap_bps":      p.ScoringUnstakeCapBps,
		"instant_unstake_cap_bps":      p.InstantUnstakeCapBps,
		"stake_deposit_unstake_cap_bps": p.StakeDepositUnstakeCapBps,
	} {
		if bps != nil && *bps > 10000 {
			return fmt.Errorf("%s value %d exceeds 10000 bps", name, *bps)
		}
	}
	return nil
}

// Apply merges the patch onto a copy of c and returns the result. The
// caller is responsible for calling Validate first.
func (p Patch) Apply(c *Config) *Config {
	out := *c
	if p.MevCommissionRange != nil {
		out.MevCommissionRange = *p.MevCommissionRange
	}
	if p.CommissionRange != nil {
		out.CommissionRange = *p.CommissionRange
	}
	if p.EpochCreditsRange != nil {
		out.EpochCreditsRange = *p.EpochCreditsRange
	}
	if p.MevCommissionBpsThreshold != nil {
		out.MevCommissionBpsThreshold = *p.MevCommissionBpsThreshold
	}
	if p.CommissionThreshold != nil {
		out.CommissionThreshold = *p.CommissionThreshold
	}
	if p.HistoricalCommissionThreshold != nil {
		out.HistoricalCommissionThreshold = *p.HistoricalCommissionThreshold
	}
	if p.NumDelegationValidators != nil {
		out.NumDelegationValidators = *p.NumDelegationValidators
	}
	if p.ScoringUnstakeCapBps != nil {
		out.ScoringUnstakeCapBps = *p.ScoringUnstakeCapBps
	}
	if p.InstantUnstakeCapBps != nil {
		out.InstantUnstakeCapBps = *p.InstantUnstakeCapBps
	}
	if p.StakeDepositUnstakeCapBps != nil {
		out.StakeDepositUnstakeCapBps = *p.StakeDepositUnstakeCapBps
	}
	if p.ComputeScoreSlotRange != nil {
		out.ComputeScoreSlotRange = *p.ComputeScoreSlotRange
	}
	if p.NumEpochsBetweenScoring != nil {
		out.NumEpochsBetweenScoring = *p.NumEpochsBetweenScoring
	}
	if p.MinimumStakeLamports != nil {
		out.MinimumStakeLamports = *p.MinimumStakeLamports
	}
	if p.MinimumVotingEpochs != nil {
		out.MinimumVotingEpochs = *p.MinimumVotingEpochs
	}
	return &out
}
