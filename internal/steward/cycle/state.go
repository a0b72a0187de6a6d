package cycle

import (
	"go.uber.org/atomic"

	"github.com/jito-foundation/steward-core/internal/steward/config"
)

// State is StewardState: the core's mutable state, sized to
// num_pool_validators. Every parallel array is indexed by "position",
// the validator's slot within these arrays -- distinct from history
// index, which identifies the validator in the immutable
// ValidatorHistory/blacklist address space. cycle.Machine is
// responsible for keeping the position<->history-index mapping
// consistent as validators are added and removed.
type State struct {
	Phase             atomic.Uint32 // cast to/from Phase
	CurrentEpoch      uint64
	CycleStartEpoch   uint64
	NumPoolValidators uint64

	HistoryIndices []int // position -> history index

	Scores                  []uint64
	RawScores               []uint64
	SortedScoreIndices      []int // positions, by score desc
	SortedRawScoreIndices   []int // positions, by raw_score desc
	InstantUnstakeFlags     *config.Bitset
	ProgressComputeScores   *config.Bitset
	ProgressRebalance       *config.Bitset
	DelegationNumerators    []uint64
	DelegationDenominator   uint64
	InternalLamports        []uint64

	// per-cycle unstake counters.
	ScoringUnstakeTotal      uint64
	InstantUnstakeTotal      uint64
	StakeDepositUnstakeTotal uint64

	ValidatorsToRemove          *config.Bitset
	ValidatorsForImmediateRemoval *config.Bitset

	StartComputingScoresSlot uint64
}

// NewState allocates a State with room for capacity validators (typically
// config.MaxValidators), all parallel arrays zeroed and phase set to
// ComputeScores.
func NewState(capacity int) *State {
	s := &State{
		HistoryIndices:        make([]int, 0, capacity),
		Scores:                make([]uint64, 0, capacity),
		RawScores:             make([]uint64, 0, capacity),
		SortedScoreIndices:    nil,
		SortedRawScoreIndices: nil,
		InstantUnstakeFlags:   config.NewBitset(capacity),
		ProgressComputeScores: config.NewBitset(capacity),
		ProgressRebalance:     config.NewBitset(capacity),
		DelegationNumerators:  make([]uint64, 0, capacity),
		InternalLamports:      make([]uint64, 0, capacity),
		ValidatorsToRemove:            config.NewBitset(capacity),
		ValidatorsForImmediateRemoval: config.NewBitset(capacity),
	}
	s.Phase.Store(uint32(PhaseComputeScores))
	return s
}

// GetPhase returns the current phase.
func (s *State) GetPhase() Phase {
	return Phase(s.Phase.Load())
}

// setPhase transitions to p. Callers must hold Machine's lock.
func (s *State) setPhase(p Phase) {
	s.Phase.Store(uint32(p))
}

// PositionOf returns the array position for a given history index, or
// (-1, false) if that validator is not currently in the pool.
func (s *State) PositionOf(historyIndex int) (int, bool) {
	for pos, h := range s.HistoryIndices {
		if h == historyIndex {
			return pos, true
		}
	}
	return -1, false
}

// AddValidator appends a new validator at the next position, growing
// every parallel array. Never reorders existing positions.
func (s *State) AddValidator(historyIndex int) int {
	pos := len(s.HistoryIndices)
	s.HistoryIndices = append(s.HistoryIndices, historyIndex)
	s.Scores = append(s.Scores, 0)
	s.RawScores = append(s.RawScores, 0)
	s.DelegationNumerators = append(s.DelegationNumerators, 0)
	s.InternalLamports = append(s.InternalLamports, 0)
	s.NumPoolValidators++
	newCap := len(s.HistoryIndices)
	s.InstantUnstakeFlags.Grow(newCap)
	s.ProgressComputeScores.Grow(newCap)
	s.ProgressRebalance.Grow(newCap)
	s.ValidatorsToRemove.Grow(newCap)
	s.ValidatorsForImmediateRemoval.Grow(newCap)
	return pos
}

// removeAtPosition removes the validator at pos by swapping in the last
// element and truncating, matching the swap-remove idiom the pool's
// validator_list uses. Bitsets keep their size: the removal scan bound
// depends on bit positions surviving past a shrink.
func (s *State) removeAtPosition(pos int) {
	last := len(s.HistoryIndices) - 1
	s.HistoryIndices[pos] = s.HistoryIndices[last]
	s.Scores[pos] = s.Scores[last]
	s.RawScores[pos] = s.RawScores[last]
	s.DelegationNumerators[pos] = s.DelegationNumerators[last]
	s.InternalLamports[pos] = s.InternalLamports[last]

	s.HistoryIndices = s.HistoryIndices[:last]
	s.Scores = s.Scores[:last]
	s.RawScores = s.RawScores[:last]
	s.DelegationNumerators = s.DelegationNumerators[:last]
	s.InternalLamports = s.InternalLamports[:last]
	s.NumPoolValidators--
}

// resetCycle clears all per-cycle arrays and bitsets (the ComputeScores
// entry action), preserving pool membership (HistoryIndices,
// InternalLamports) since those survive across cycles.
func (s *State) resetCycle(currentEpoch, startSlot uint64) {
	for i := range s.Scores {
		s.Scores[i] = 0
		s.RawScores[i] = 0
	}
	s.SortedScoreIndices = nil
	s.SortedRawScoreIndices = nil
	s.InstantUnstakeFlags.ClearAll()
	s.ProgressComputeScores.ClearAll()
	s.ProgressRebalance.ClearAll()
	for i := range s.DelegationNumerators {
		s.DelegationNumerators[i] = 0
	}
	s.DelegationDenominator = 0
	s.ScoringUnstakeTotal = 0
	s.InstantUnstakeTotal = 0
	s.StakeDepositUnstakeTotal = 0
	s.CycleStartEpoch = currentEpoch
	s.StartComputingScoresSlot = startSlot
}
