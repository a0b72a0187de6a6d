// Package rebalance implements the RebalancePlanner: a per-validator
// local decision procedure that produces globally coherent stake
// increases/decreases despite being invoked out of order, using
// real-time priority ordering against three parallel unstaking caps.
package rebalance

import (
	"math/big"

	"github.com/jito-foundation/steward-core/internal/steward/pool"
)

// Outcome is the result of Decide for one validator.
type Outcome struct {
	Kind   OutcomeKind
	Delta  uint64
	Reason pool.DecreaseReason // valid only when Kind == Decrease
}

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeIncrease
	OutcomeDecrease
	OutcomeNoOpWithProgress
)

// Caps holds the three parallel per-cycle unstake caps, already
// converted to base units (bps * tvl / 10000, round toward zero),
// and how much of each has been consumed so far this cycle.
type Caps struct {
	ScoringCapTotal      uint64
	ScoringConsumed      uint64
	InstantCapTotal      uint64
	InstantConsumed      uint64
	StakeDepositCapTotal uint64
	StakeDepositConsumed uint64
}

func (c Caps) scoringRemaining() uint64      { return remaining(c.ScoringCapTotal, c.ScoringConsumed) }
func (c Caps) instantRemaining() uint64      { return remaining(c.InstantCapTotal, c.InstantConsumed) }
func (c Caps) stakeDepositRemaining() uint64 { return remaining(c.StakeDepositCapTotal, c.StakeDepositConsumed) }

func remaining(total, consumed uint64) uint64 {
	if consumed >= total {
		return 0
	}
	return total - consumed
}

// CapUsage reports how much of each cap an enacted Decrease consumed, so
// the caller (cycle.Machine) can update its per-cycle counters
// atomically.
type CapUsage struct {
	Scoring      uint64
	Instant      uint64
	StakeDeposit uint64
}

// BpsCap converts a basis-points cap and a TVL into a base-unit cap using
// a 128-bit intermediate, rounding toward zero.
func BpsCap(bps uint16, tvl uint64) uint64 {
	num := new(big.Int).Mul(big.NewInt(int64(bps)), new(big.Int).SetUint64(tvl))
	num.Div(num, big.NewInt(10000))
	return num.Uint64()
}

// TargetLamports computes delegations[i]/denominator * poolTVL using a
// 128-bit intermediate, rounding toward zero.
func TargetLamports(numerator, denominator, poolTVL uint64) uint64 {
	if denominator == 0 {
		return 0
	}
	v := new(big.Int).Mul(new(big.Int).SetUint64(numerator), new(big.Int).SetUint64(poolTVL))
	v.Div(v, new(big.Int).SetUint64(denominator))
	return v.Uint64()
}

// Snapshot is the global-state view passed to Decide for validator i.
// cycle.Machine builds a fresh one for each Rebalance call; its
// per-validator claim aggregates are precomputed by NewSnapshot so each
// individual Decide call is O(1) beyond its own lookups.
type Snapshot struct {
	PoolTVL uint64
	Reserve uint64

	// Parallel arrays, one entry per pool validator, indexed by history
	// index position within these slices (not by the raw history index
	// value itself; callers pass a HistoryIndex field per entry).
	Validators []ValidatorState

	Caps Caps

	// SortedByScoreDesc / SortedByRawScoreDesc are history indices, in
	// descending rank order, as produced by delegation.Result.
	SortedByScoreDesc    []int
	SortedByRawScoreDesc []int

	// precomputed suffix-sum claim tables, keyed by rank position within
	// the corresponding sorted slice.
	suffixScoringClaims []uint64
	suffixInstantClaims []uint64
	prefixBetterClaims  []uint64

	byHistoryIndex map[int]int // history index -> position in Validators
}

// ValidatorState is one validator's slice of global state, as seen by
// the rebalance planner.
type ValidatorState struct {
	HistoryIndex     int
	ActiveLamports   uint64
	InternalLamports uint64
	DelegationNum    uint64
	DelegationDen    uint64
	Score            uint64
	RawScore         uint64
	InstantUnstake   bool
	ProgressSet      bool
}

// NewSnapshot builds a Snapshot and precomputes the suffix/prefix claim
// tables used by real-time priority ordering.
func NewSnapshot(poolTVL, reserve uint64, validators []ValidatorState, caps Caps, sortedByScore, sortedByRawScore []int) *Snapshot {
	s := &Snapshot{
		PoolTVL:              poolTVL,
		Reserve:              reserve,
		Validators:           validators,
		Caps:                 caps,
		SortedByScoreDesc:    sortedByScore,
		SortedByRawScoreDesc: sortedByRawScore,
		byHistoryIndex:       make(map[int]int, len(validators)),
	}
	for pos, v := range validators {
		s.byHistoryIndex[v.HistoryIndex] = pos
	}

	// Decrease-side claims are ordered worst-first by raw_score (a
	// validator ranks "worse" the lower its raw_score); the excess a
	// validator with index i can claim from a layer is the amount of
	// decrease it would want to make if it went first. We build claim
	// arrays ordered from worst to best raw_score rank, then take a
	// running total so that "claims from everyone worse than rank r"
	// is a single lookup.
	n := len(validators)
	scoringExcessByRawRank := make([]uint64, n)
	instantExcessByRawRank := make([]uint64, n)
	for rank, hIdx := range sortedByRawScore {
		pos, ok := s.byHistoryIndex[hIdx]
		if !ok {
			continue
		}
		v := validators[pos]
		target := TargetLamports(v.DelegationNum, v.DelegationDen, poolTVL)
		if v.ActiveLamports <= target {
			continue
		}
		excess := v.ActiveLamports - target
		stakeDepositExcess := uint64(0)
		if v.ActiveLamports > v.InternalLamports {
			stakeDepositExcess = v.ActiveLamports - v.InternalLamports
		}
		layerAmt := excess
		if stakeDepositExcess < layerAmt {
			layerAmt -= stakeDepositExcess
		} else {
			layerAmt = 0
		}
		if v.InstantUnstake {
			instantExcessByRawRank[rank] = layerAmt
		} else {
			scoringExcessByRawRank[rank] = layerAmt
		}
	}
	// sortedByRawScore is best-to-worst (descending); ranks worse than r
	// are those with index > r. Suffix sum from the end gives, for each
	// rank r, the total claim of everyone strictly worse.
	s.suffixScoringClaims = suffixSumExclusive(scoringExcessByRawRank)
	s.suffixInstantClaims = suffixSumExclusive(instantExcessByRawRank)

	// Increase-side claims: validators ranking better by score
	// (ascending index in sortedByScore = better rank) that still need
	// stake. Prefix sum from the start gives, for each rank r, the
	// total deficit of everyone strictly better.
	deficitByScoreRank := make([]uint64, n)
	for rank, hIdx := range sortedByScore {
		pos, ok := s.byHistoryIndex[hIdx]
		if !ok {
			continue
		}
		v := validators[pos]
		target := TargetLamports(v.DelegationNum, v.DelegationDen, poolTVL)
		if target > v.ActiveLamports {
			deficitByScoreRank[rank] = target - v.ActiveLamports
		}
	}
	s.prefixBetterClaims = prefixSumExclusive(deficitByScoreRank)

	return s
}

// suffixSumExclusive returns, at index i, the sum of amounts[i+1:].
func suffixSumExclusive(amounts []uint64) []uint64 {
	n := len(amounts)
	out := make([]uint64, n)
	var running uint64
	for i := n - 1; i >= 0; i-- {
		out[i] = running
		running += amounts[i]
	}
	return out
}

// prefixSumExclusive returns, at index i, the sum of amounts[:i].
func prefixSumExclusive(amounts []uint64) []uint64 {
	n := len(amounts)
	out := make([]uint64, n)
	var running uint64
	for i := 0; i < n; i++ {
		out[i] = running
		running += amounts[i]
	}
	return out
}

func (s *Snapshot) rawRankOf(historyIndex int) (int, bool) {
	return indexOf(s.SortedByRawScoreDesc, historyIndex)
}

func (s *Snapshot) scoreRankOf(historyIndex int) (int, bool) {
	return indexOf(s.SortedByScoreDesc, historyIndex)
}

func indexOf(slice []int, v int) (int, bool) {
	// Sorted slices here are permutations of a few thousand indices at
	// most, produced fresh each Rebalance phase; a linear scan keeps
	// this package free of an extra index structure. Callers that need
	// this hot should build their own map from delegation.Result once.
	for i, x := range slice {
		if x == v {
			return i, true
		}
	}
	return -1, false
}

// Decide computes the outcome for validator i (identified by history
// index) given the snapshot.
func Decide(s *Snapshot, historyIndex int) (Outcome, CapUsage) {
	pos, ok := s.byHistoryIndex[historyIndex]
	if !ok {
		return Outcome{Kind: OutcomeNone}, CapUsage{}
	}
	v := s.Validators[pos]
	if v.ProgressSet {
		return Outcome{Kind: OutcomeNoOpWithProgress}, CapUsage{}
	}

	target := TargetLamports(v.DelegationNum, v.DelegationDen, s.PoolTVL)
	current := v.ActiveLamports

	switch {
	case current > target:
		return decideDecrease(s, v, target, current)
	case target > current:
		return decideIncrease(s, v, target, current)
	default:
		return Outcome{Kind: OutcomeNone}, CapUsage{}
	}
}

func decideDecrease(s *Snapshot, v ValidatorState, target, current uint64) (Outcome, CapUsage) {
	excess := current - target

	stakeDepositExcess := uint64(0)
	if v.ActiveLamports > v.InternalLamports {
		stakeDepositExcess = v.ActiveLamports - v.InternalLamports
	}
	layerDeposit := min64(excess, stakeDepositExcess)
	remainder := excess - layerDeposit

	var layerInstant, layerScoring uint64
	if v.InstantUnstake {
		layerInstant = remainder
		remainder = 0
	}
	layerScoring = remainder

	rank, found := s.rawRankOf(v.HistoryIndex)
	var worseScoringClaims, worseInstantClaims uint64
	if found {
		worseScoringClaims = s.suffixScoringClaims[rank]
		worseInstantClaims = s.suffixInstantClaims[rank]
	}

	depositAmt := capLayer(layerDeposit, s.Caps.stakeDepositRemaining(), 0)
	instantAmt := capLayer(layerInstant, s.Caps.instantRemaining(), worseInstantClaims)
	scoringAmt := capLayer(layerScoring, s.Caps.scoringRemaining(), worseScoringClaims)

	total := depositAmt + instantAmt + scoringAmt
	if total == 0 {
		return Outcome{Kind: OutcomeNoOpWithProgress}, CapUsage{}
	}

	reason := pool.DecreaseReasonStakeDeposit
	dominant := depositAmt
	if instantAmt > dominant {
		reason = pool.DecreaseReasonInstant
		dominant = instantAmt
	}
	if scoringAmt > dominant {
		reason = pool.DecreaseReasonScoring
	}

	return Outcome{Kind: OutcomeDecrease, Delta: total, Reason: reason}, CapUsage{
		Scoring:      scoringAmt,
		Instant:      instantAmt,
		StakeDeposit: depositAmt,
	}
}

// capLayer applies the real-time-priority cap rule: if
// worseClaims already consumes the remaining cap, this validator's
// layer amount is 0; otherwise it's min(layerExcess, remainingCap -
// worseClaims).
func capLayer(layerExcess, remainingCap, worseClaims uint64) uint64 {
	if layerExcess == 0 {
		return 0
	}
	if worseClaims >= remainingCap {
		return 0
	}
	available := remainingCap - worseClaims
	return min64(layerExcess, available)
}

func decideIncrease(s *Snapshot, v ValidatorState, target, current uint64) (Outcome, CapUsage) {
	deficit := target - current

	rank, found := s.scoreRankOf(v.HistoryIndex)
	var betterClaims uint64
	if found {
		betterClaims = s.prefixBetterClaims[rank]
	}

	var available uint64
	if s.Reserve > betterClaims {
		available = s.Reserve - betterClaims
	}

	delta := min64(deficit, available)
	if delta == 0 {
		return Outcome{Kind: OutcomeNoOpWithProgress}, CapUsage{}
	}
	return Outcome{Kind: OutcomeIncrease, Delta: delta}, CapUsage{}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
