// Package scoring implements the ScoringEngine: a pure function from
// (validator history, cluster history, config, blacklist, current epoch)
// to a Score record.
package scoring

import (
	"github.com/jito-foundation/steward-core/internal/steward/config"
	"github.com/jito-foundation/steward-core/internal/steward/history"
)

// Eligibility is the set of binary eligibility flags.
type Eligibility struct {
	MevCommissionOk        bool
	CommissionOk           bool
	HistoricalCommissionOk bool
	BlacklistedOk          bool
	SuperminorityOk        bool
	DelinquencyOk          bool
	RunningJitoOk          bool
	MerkleRootOk           bool
	PriorityFeeOk          bool
	MinVotingEpochsOk      bool
}

// AllOk reports whether every eligibility flag is true.
func (e Eligibility) AllOk() bool {
	return e.MevCommissionOk && e.CommissionOk && e.HistoricalCommissionOk &&
		e.BlacklistedOk && e.SuperminorityOk && e.DelinquencyOk &&
		e.RunningJitoOk && e.MerkleRootOk && e.PriorityFeeOk && e.MinVotingEpochsOk
}

// Score is the public contract of the ScoringEngine.
type Score struct {
	Eligibility     Eligibility
	RawScore        uint64
	Score           uint64
	InstantUnstake  bool
}

// contains reports whether needle is present in haystack.
func contains(haystack []uint8, needle uint8) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// Compute evaluates the full ScoringEngine contract for one validator at
// currentEpoch. historyIndex identifies the validator in cfg.Blacklist.
// Compute leaves the returned InstantUnstake flag false; the "this epoch"
// instant-unstake predicate used during ComputeInstantUnstake is
// computed separately by InstantUnstake and InstantUnstakeDelinquent
// below, since it fires on a different phase's cadence.
func Compute(view *history.View, cfg *config.Config, historyIndex int, currentEpoch uint16, merkleAuthority, priorityFeeAuthority uint8) (Score, error) {
	elig, err := computeEligibility(view, cfg, historyIndex, currentEpoch, merkleAuthority, priorityFeeAuthority)
	if err != nil {
		return Score{}, err
	}

	raw, err := computeRawScore(view, cfg, currentEpoch)
	if err != nil {
		return Score{}, err
	}

	sc := uint64(0)
	if elig.AllOk() {
		sc = raw
	}

	return Score{
		Eligibility: elig,
		RawScore:    raw,
		Score:       sc,
	}, nil
}

func computeEligibility(view *history.View, cfg *config.Config, historyIndex int, currentEpoch uint16, merkleAuthority, priorityFeeAuthority uint8) (Eligibility, error) {
	mevFrom := windowFrom(currentEpoch, cfg.MevCommissionRange)
	maxMev, err := view.MaxMevCommission(mevFrom, currentEpoch)
	mevOk := err == nil && maxMev <= cfg.MevCommissionBpsThreshold

	commissionFrom := windowFrom(currentEpoch, cfg.CommissionRange)
	maxCommission, err := view.MaxCommission(commissionFrom, currentEpoch)
	commissionOk := err == nil && maxCommission <= cfg.CommissionThreshold

	historicalMax := view.CommissionMaxEver(cfg.FirstReliableEpoch)
	historicalOk := historicalMax <= cfg.HistoricalCommissionThreshold

	blacklistedOk := true
	if historyIndex >= 0 && historyIndex < cfg.Blacklist.Size() {
		blacklistedOk = !cfg.Blacklist.Get(historyIndex)
	}

	superminorityOk := !view.IsSuperminorityNow()

	creditsFrom := epochsBack(currentEpoch, cfg.EpochCreditsRange)
	creditsTo := prevEpoch(currentEpoch)
	delinquencyOk := view.DelinquencyOk(
		cfg.ScoringDelinquencyThresholdRatioNum, cfg.ScoringDelinquencyThresholdRatioDen,
		creditsFrom, creditsTo,
	)

	runningJitoOk := view.AnyMevCommission(mevFrom, currentEpoch)

	// merkle_root_ok / priority_fee_ok: equality of recorded authority
	// against an allow-list. contains() over the configured allow-list.
	merkleOk := contains(cfg.AllowedMerkleRootAuthorities, merkleAuthority)
	priorityFeeOk := contains(cfg.AllowedPriorityFeeRootAuthorities, priorityFeeAuthority)

	minVotingOk := view.ValidatorAge() >= cfg.MinimumVotingEpochs

	return Eligibility{
		MevCommissionOk:        mevOk,
		CommissionOk:           commissionOk,
		HistoricalCommissionOk: historicalOk,
		BlacklistedOk:          blacklistedOk,
		SuperminorityOk:        superminorityOk,
		DelinquencyOk:          delinquencyOk,
		RunningJitoOk:          runningJitoOk,
		MerkleRootOk:           merkleOk,
		PriorityFeeOk:          priorityFeeOk,
		MinVotingEpochsOk:      minVotingOk,
	}, nil
}

func computeRawScore(view *history.View, cfg *config.Config, currentEpoch uint16) (uint64, error) {
	commissionFrom := windowFrom(currentEpoch, cfg.CommissionRange)
	maxCommission, err := view.MaxCommission(commissionFrom, currentEpoch)
	if err != nil {
		// A validator with no commission history in the scoring window
		// cannot be scored; treat as worst-case commission so it sorts
		// last rather than failing the whole batch.
		maxCommission = 100
	}

	mevFrom := windowFrom(currentEpoch, cfg.MevCommissionRange)
	avgMev := view.AvgMevCommission(mevFrom, currentEpoch)

	age := view.ValidatorAge()

	creditsFrom := epochsBack(currentEpoch, cfg.EpochCreditsRange)
	creditsTo := prevEpoch(currentEpoch)
	num, den := view.VoteCreditsRatio(creditsFrom, creditsTo)
	creditsTier := history.RatioToTier(num, den)

	tiers := Tiers{
		Inflation: InflationTier(maxCommission),
		Mev:       MevTier(avgMev),
		Age:       AgeTier(age),
		Credits:   CreditsTier(creditsTier),
	}
	return Pack(tiers), nil
}

// InstantUnstake evaluates the instant-unstake predicate,
// computed on the "this epoch" snapshot rather than a window.
func InstantUnstake(view *history.View, cfg *config.Config, historyIndex int, merkleAuthority, priorityFeeAuthority uint8) bool {
	if historyIndex >= 0 && historyIndex < cfg.Blacklist.Size() && cfg.Blacklist.Get(historyIndex) {
		return true
	}
	if !contains(cfg.AllowedMerkleRootAuthorities, merkleAuthority) {
		return true
	}
	if !contains(cfg.AllowedPriorityFeeRootAuthorities, priorityFeeAuthority) {
		return true
	}
	if commission, ok := view.CommissionNow(); ok && commission > cfg.CommissionThreshold {
		return true
	}
	if mev, ok := view.MevCommissionNow(); ok && mev > cfg.MevCommissionBpsThreshold {
		return true
	}
	// delinquency ratio this epoch < instant threshold is not checked
	// here: it needs currentEpoch and is evaluated by
	// InstantUnstakeDelinquent, which callers OR with this result.
	return false
}

// InstantUnstakeDelinquent evaluates the delinquency leg of the
// instant-unstake predicate for a single epoch, since it needs
// currentEpoch which InstantUnstake's signature omits to keep history
// windowing centralized in one place.
func InstantUnstakeDelinquent(view *history.View, cfg *config.Config, currentEpoch uint16) bool {
	return !view.DelinquencyOk(
		cfg.InstantUnstakeDelinquencyThresholdRatioNum, cfg.InstantUnstakeDelinquencyThresholdRatioDen,
		currentEpoch, currentEpoch,
	)
}

func windowFrom(currentEpoch uint16, window uint32) uint16 {
	if uint32(currentEpoch) < window {
		return 0
	}
	return currentEpoch - uint16(window)
}

func epochsBack(currentEpoch uint16, window uint32) uint16 {
	if uint32(currentEpoch) < window {
		return 0
	}
	return currentEpoch - uint16(window)
}

func prevEpoch(currentEpoch uint16) uint16 {
	if currentEpoch == 0 {
		return 0
	}
	return currentEpoch - 1
}
