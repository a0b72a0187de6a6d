package history

import (
	stewerrors "github.com/jito-foundation/steward-core/internal/steward/errors"
)

// ValidatorHistory is one validator's retained history: an identity key,
// a capacity-512 ring buffer of entries, and timestamps of last
// gossip-sourced updates.
type ValidatorHistory struct {
	HistoryIndex       int
	VoteAccount        string
	Entries            *Ring[ValidatorEntry]
	LastGossipSlot     uint64
	LastUpdateSlot     uint64
}

// NewValidatorHistory constructs an empty history for the given index.
func NewValidatorHistory(historyIndex int, voteAccount string) *ValidatorHistory {
	return &ValidatorHistory{
		HistoryIndex: historyIndex,
		VoteAccount:  voteAccount,
		Entries:      NewRing(RingCapacity, func(e ValidatorEntry) uint16 { return e.Epoch }),
	}
}

// ClusterHistory is the 512-deep cluster-wide ring buffer.
type ClusterHistory struct {
	Entries *Ring[ClusterEntry]
}

func NewClusterHistory() *ClusterHistory {
	return &ClusterHistory{
		Entries: NewRing(RingCapacity, func(e ClusterEntry) uint16 { return e.Epoch }),
	}
}

// View is the read-only HistoryView facade. It is constructed
// per-query against a validator's history and the cluster history, and
// never mutates either.
type View struct {
	validator *ValidatorHistory
	cluster   *ClusterHistory
}

// NewView builds a HistoryView over the given validator and cluster
// histories.
func NewView(validator *ValidatorHistory, cluster *ClusterHistory) *View {
	return &View{validator: validator, cluster: cluster}
}

// MaxCommission returns the maximum commission over all non-null entries
// in [from, to]. Fails NotEnoughHistory if no entry exists for an epoch
// in range that the caller expected present; here, the reduction simply
// skips epochs with no recorded entry (null = excluded from the max),
// and returns NotEnoughHistory only when the window is entirely empty.
func (v *View) MaxCommission(from, to uint16) (uint8, error) {
	var max uint8
	var found bool
	v.validator.Entries.Range(from, to, func(e ValidatorEntry) {
		found = true
		if e.Commission > max {
			max = e.Commission
		}
	})
	if !found {
		return 0, stewerrors.NotEnoughHistoryError{Epoch: to, Reason: "no commission entries in range"}
	}
	return max, nil
}

// MaxMevCommission returns the maximum MEV commission (bps) over all
// non-null entries in [from, to].
func (v *View) MaxMevCommission(from, to uint16) (uint16, error) {
	var max uint16
	var found bool
	v.validator.Entries.Range(from, to, func(e ValidatorEntry) {
		found = true
		if e.MevCommissionBps > max {
			max = e.MevCommissionBps
		}
	})
	if !found {
		return 0, stewerrors.NotEnoughHistoryError{Epoch: to, Reason: "no mev commission entries in range"}
	}
	return max, nil
}

// MaxBps is the basis-points ceiling (10000 = 100%), used as the
// worst-case value for avg_mev_commission over an empty window.
const MaxBps uint16 = 10000

// AvgMevCommission returns the ceiling-divided average MEV commission
// (bps) over [from, to]. An empty window (no non-null entries) returns
// MaxBps, the conservative worst case, never an error. This differs
// from MaxMevCommission, which does error on an empty window.
func (v *View) AvgMevCommission(from, to uint16) uint16 {
	var sum uint64
	var count uint64
	v.validator.Entries.Range(from, to, func(e ValidatorEntry) {
		sum += uint64(e.MevCommissionBps)
		count++
	})
	if count == 0 {
		return MaxBps
	}
	// ceiling division: penalize missing/higher values conservatively.
	avg := (sum + count - 1) / count
	if avg > uint64(MaxBps) {
		avg = uint64(MaxBps)
	}
	return uint16(avg)
}

// AnyMevCommission reports whether any entry in [from, to] carries a
// recorded (non-null) MEV commission, i.e. the validator is running
// Jito at some point in the window.
func (v *View) AnyMevCommission(from, to uint16) bool {
	found := false
	v.validator.Entries.Range(from, to, func(e ValidatorEntry) {
		found = true
	})
	return found
}

// CommissionMaxEver returns the maximum commission over the entire
// retained history starting at firstReliableEpoch.
func (v *View) CommissionMaxEver(firstReliableEpoch uint16) uint8 {
	var max uint8
	v.validator.Entries.All(func(e ValidatorEntry) {
		if e.Epoch < firstReliableEpoch {
			return
		}
		if e.Commission > max {
			max = e.Commission
		}
	})
	return max
}

// DelinquencyOk reports whether, for every epoch t in [from, to] for
// which cluster.total_blocks(t) is known, validator credits/blocks
// exceeds thresholdNum/thresholdDen. Missing validator epoch_credits is
// treated as 0. Epochs with unknown cluster total_blocks are skipped
// (not counted against the validator). The comparison is exact integer
// cross-multiplication: credits*den > num*blocks never touches floating
// point, so every honest caller reaches the same verdict.
func (v *View) DelinquencyOk(thresholdNum, thresholdDen uint64, from, to uint16) bool {
	ok := true
	v.cluster.Entries.Range(from, to, func(ce ClusterEntry) {
		if ce.TotalBlocks == 0 {
			return
		}
		var credits uint32
		if ve, present := v.validator.Entries.Get(ce.Epoch); present && ve.EpochCredits != nil {
			credits = *ve.EpochCredits
		}
		if uint64(credits)*thresholdDen <= thresholdNum*uint64(ce.TotalBlocks) {
			ok = false
		}
	})
	return ok
}

// VoteCreditsRatio returns sum(validator.epoch_credits) /
// sum(cluster.total_blocks) over [from, to], as an exact rational
// (numerator, denominator). 0/1 if the denominator is 0. Callers that
// need the quantized tier must use RatioToTier, not a float conversion
// of this result, to preserve determinism.
func (v *View) VoteCreditsRatio(from, to uint16) (numerator, denominator uint64) {
	var creditSum uint64
	var blockSum uint64
	v.validator.Entries.Range(from, to, func(e ValidatorEntry) {
		if e.EpochCredits != nil {
			creditSum += uint64(*e.EpochCredits)
		}
	})
	v.cluster.Entries.Range(from, to, func(e ClusterEntry) {
		blockSum += uint64(e.TotalBlocks)
	})
	if blockSum == 0 {
		return 0, 1
	}
	return creditSum, blockSum
}

// ValidatorAge returns the count of epochs with non-null epoch_credits in
// the retained window.
func (v *View) ValidatorAge() uint32 {
	var count uint32
	v.validator.Entries.All(func(e ValidatorEntry) {
		if e.EpochCredits != nil {
			count++
		}
	})
	return count
}

// IsSuperminorityNow reports the is_superminority flag of the most
// recently inserted entry.
func (v *View) IsSuperminorityNow() bool {
	latest, ok := v.latest()
	if !ok {
		return false
	}
	return latest.IsSuperminority
}

// CommissionNow, MevCommissionNow return the most recent epoch's raw
// values, used by the instant-unstake predicate.
func (v *View) CommissionNow() (uint8, bool) {
	e, ok := v.latest()
	if !ok {
		return 0, false
	}
	return e.Commission, true
}

func (v *View) MevCommissionNow() (uint16, bool) {
	e, ok := v.latest()
	if !ok {
		return 0, false
	}
	return e.MevCommissionBps, true
}

func (v *View) latest() (ValidatorEntry, bool) {
	var result ValidatorEntry
	var found bool
	v.validator.Entries.All(func(e ValidatorEntry) {
		result = e
		found = true
	})
	return result, found
}

// RatioToTier quantizes a rational (numerator/denominator) into the
// 25-bit credits tier by truncation (round toward zero):
// ratio * 10^7, clamped to [0, 2^25-1]. Computed entirely in
// integer arithmetic so every honest caller produces an identical
// result; no floating point.
func RatioToTier(numerator, denominator uint64) uint32 {
	if denominator == 0 {
		return 0
	}
	const scale = 10_000_000
	scaled := (numerator * scale) / denominator // truncating integer division
	const tierMax = (1 << 25) - 1
	if scaled > tierMax {
		return tierMax
	}
	return uint32(scaled)
}

