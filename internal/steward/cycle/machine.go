// Package cycle implements the CycleStateMachine: phase, per-phase
// progress bitmasks, epoch bookkeeping, pool-membership mutations,
// pause, and admin authorities.
package cycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jito-foundation/steward-core/internal/steward/config"
	"github.com/jito-foundation/steward-core/internal/steward/delegation"
	stewerrors "github.com/jito-foundation/steward-core/internal/steward/errors"
	"github.com/jito-foundation/steward-core/internal/steward/history"
	"github.com/jito-foundation/steward-core/internal/steward/metrics"
	"github.com/jito-foundation/steward-core/internal/steward/pool"
	"github.com/jito-foundation/steward-core/internal/steward/rebalance"
	"github.com/jito-foundation/steward-core/internal/steward/scoring"
)

// HistorySource is the read-only history dependency the Machine needs:
// a windowed view per validator, freshness timestamps, and the
// authority fields the eligibility filters compare against an
// allow-list. It is a narrow slice of HistoryView's full read surface,
// scoped to what CycleStateMachine's instruction handlers use.
type HistorySource interface {
	View(historyIndex int) (*history.View, error)
	ValidatorLastUpdateSlot(historyIndex int) uint64
	ClusterLastUpdateSlot() uint64
	MerkleRootAuthority(historyIndex int) uint8
	PriorityFeeMerkleRootAuthority(historyIndex int) uint8
}

// Clock supplies the runtime facts the Machine cannot derive from its
// own state: the current slot and the current epoch's progress ratio.
// Modeled as an interface (rather than reading a wall clock directly)
// because epoch progress is runtime-reported, never wall-clock derived.
type Clock interface {
	CurrentSlot() uint64
	EpochProgress() float64  // fraction of the current epoch elapsed, [0,1]
	EpochLengthSlots() uint64
}

// Machine is the CycleStateMachine. All exported methods correspond to
// one core instruction and serialize against a single mutex, modeling
// the single-writer, many-reader runtime guarantee:
// there is no intra-instruction concurrency, and this process is the
// analogue of the on-chain runtime's sequencer for in-process callers.
type Machine struct {
	mu sync.Mutex

	cfg     *config.Config
	state   *State
	history HistorySource
	poolAdapter pool.Pool
	metrics metrics.Collector
	log     zerolog.Logger
	clock   Clock

	// instantUnstakeVisited tracks per-position completion of the
	// current ComputeInstantUnstake round. It is distinct from
	// ProgressRebalance (which tracks the following phase) because both
	// phases are serviced "one call per validator" and need independent
	// bitmasks.
	instantUnstakeVisited *config.Bitset
}

// NewMachine constructs a Machine over the given state.
func NewMachine(cfg *config.Config, state *State, hist HistorySource, poolAdapter pool.Pool, coll metrics.Collector, log zerolog.Logger, clock Clock) *Machine {
	if coll == nil {
		coll = metrics.NewNoopCollector()
	}
	return &Machine{
		cfg:                   cfg,
		state:                 state,
		history:               hist,
		poolAdapter:           poolAdapter,
		metrics:               coll,
		log:                   log.With().Str("component", "steward_cycle").Logger(),
		clock:                 clock,
		instantUnstakeVisited: config.NewBitset(config.MaxValidators),
	}
}

// requirePhase checks state.phase against allowed, returning a
// PhaseMismatchError otherwise. Callers must hold mu.
func (m *Machine) requirePhase(instruction string, allowed ...Phase) error {
	have := m.state.GetPhase()
	for _, p := range allowed {
		if have == p {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, p := range allowed {
		names[i] = p.String()
	}
	return stewerrors.PhaseMismatchError{Instruction: instruction, Have: have.String(), Want: names}
}

// requireNotPaused rejects mutating instructions while config.Paused is
// true; admin instructions call their own path and never call this.
func (m *Machine) requireNotPaused() error {
	if m.cfg.Paused {
		return stewerrors.ErrPaused
	}
	return nil
}

func (m *Machine) fail(instruction string, err error) error {
	kind := "anomaly"
	switch {
	case stewerrors.IsPhaseMismatch(err):
		kind = "phase_mismatch"
	case stewerrors.IsStaleInputs(err):
		kind = "stale_inputs"
	case stewerrors.IsOutOfCoherenceWindow(err):
		kind = "out_of_coherence_window"
	case stewerrors.IsNotEnoughHistory(err):
		kind = "not_enough_history"
	case stewerrors.IsInvalidIndex(err):
		kind = "invalid_index"
	}
	m.metrics.InstructionError(instruction, kind)
	if stewerrors.IsBenign(err) {
		m.log.Warn().Err(err).Str("instruction", instruction).Msg("benign instruction failure")
	} else {
		m.log.Error().Err(err).Str("instruction", instruction).Msg("instruction failed")
	}
	return err
}

func (m *Machine) transition(to Phase) {
	from := m.state.GetPhase()
	m.state.setPhase(to)
	m.metrics.PhaseTransition(from.String(), to.String())
	m.log.Info().Str("from", from.String()).Str("to", to.String()).Msg("phase transition")
}

// ComputeScore is the compute_score(validator_index, history_index)
// instruction. It may only append to scores[] while
// phase==ComputeScores and the caller is within the coherence window.
func (m *Machine) ComputeScore(historyIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "compute_score"
	if err := m.requireNotPaused(); err != nil {
		return m.fail(instr, err)
	}

	// ComputeScores entry action: if a new cycle is due, reset before
	// scoring the first validator of the batch.
	m.maybeStartNewCycle()

	if err := m.requirePhase(instr, PhaseComputeScores); err != nil {
		return m.fail(instr, err)
	}

	pos, ok := m.state.PositionOf(historyIndex)
	if !ok {
		return m.fail(instr, stewerrors.InvalidIndexError{Index: historyIndex, Bound: len(m.state.HistoryIndices)})
	}

	currentSlot := m.clock.CurrentSlot()
	if m.state.StartComputingScoresSlot == 0 {
		m.state.StartComputingScoresSlot = currentSlot
	}
	if currentSlot < m.state.StartComputingScoresSlot ||
		currentSlot-m.state.StartComputingScoresSlot > m.cfg.ComputeScoreSlotRange {
		return m.fail(instr, stewerrors.OutOfCoherenceWindowError{
			StartSlot:   m.state.StartComputingScoresSlot,
			CurrentSlot: currentSlot,
			Range:       m.cfg.ComputeScoreSlotRange,
		})
	}

	view, err := m.history.View(historyIndex)
	if err != nil {
		return m.fail(instr, err)
	}

	merkle := m.history.MerkleRootAuthority(historyIndex)
	pf := m.history.PriorityFeeMerkleRootAuthority(historyIndex)
	sc, err := scoring.Compute(view, m.cfg, historyIndex, uint16(m.state.CurrentEpoch), merkle, pf)
	if err != nil {
		return m.fail(instr, err)
	}

	m.state.Scores[pos] = sc.Score
	m.state.RawScores[pos] = sc.RawScore
	m.state.ProgressComputeScores.Set(pos)
	m.metrics.ScoreComputed(historyIndex, sc.Score, sc.RawScore, sc.Eligibility.AllOk())

	if m.state.ProgressComputeScores.AllOnes(len(m.state.HistoryIndices)) {
		m.transition(PhaseComputeDelegations)
	}
	return nil
}

// ComputeDelegations is the compute_delegations() instruction. It runs
// atomically in a single call.
func (m *Machine) ComputeDelegations() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "compute_delegations"
	if err := m.requireNotPaused(); err != nil {
		return m.fail(instr, err)
	}
	if err := m.requirePhase(instr, PhaseComputeDelegations); err != nil {
		return m.fail(instr, err)
	}

	candidates := make([]delegation.Candidate, len(m.state.HistoryIndices))
	for pos, hIdx := range m.state.HistoryIndices {
		candidates[pos] = delegation.Candidate{
			HistoryIndex: hIdx,
			Score:        m.state.Scores[pos],
			RawScore:     m.state.RawScores[pos],
		}
	}

	res := delegation.Plan(candidates, m.cfg.NumDelegationValidators)

	for i := range m.state.DelegationNumerators {
		m.state.DelegationNumerators[i] = 0
	}
	m.state.DelegationDenominator = res.Denominator
	for _, alloc := range res.Delegations {
		pos, ok := m.state.PositionOf(alloc.HistoryIndex)
		if !ok {
			continue
		}
		m.state.DelegationNumerators[pos] = alloc.Numerator
	}

	m.state.SortedScoreIndices = toPositions(m.state, res.SortedByScoreDesc)
	m.state.SortedRawScoreIndices = toPositions(m.state, res.SortedByRawScoreDesc)

	m.transition(PhaseIdle)
	return nil
}

func toPositions(s *State, historyIndices []int) []int {
	out := make([]int, 0, len(historyIndices))
	for _, h := range historyIndices {
		if pos, ok := s.PositionOf(h); ok {
			out = append(out, pos)
		}
	}
	return out
}

// Idle is the idle() instruction: advances out of Idle when
// epoch_progress() >= instant_unstake_epoch_progress and inputs are
// fresh.
func (m *Machine) Idle() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "idle"
	if err := m.requireNotPaused(); err != nil {
		return m.fail(instr, err)
	}
	if err := m.requirePhase(instr, PhaseIdle); err != nil {
		return m.fail(instr, err)
	}

	progress := m.clock.EpochProgress()
	threshold := ratioOf(m.cfg.InstantUnstakeEpochProgressNum, m.cfg.InstantUnstakeEpochProgressDen)
	if progress < threshold {
		return m.fail(instr, stewerrors.PhaseMismatchError{Instruction: instr, Have: "epoch not far enough along", Want: []string{"epoch_progress >= threshold"}})
	}

	freshnessThreshold := ratioOf(m.cfg.InstantUnstakeInputsEpochProgressNum, m.cfg.InstantUnstakeInputsEpochProgressDen)
	clusterSlot := m.history.ClusterLastUpdateSlot()
	if !m.isFresh(clusterSlot, freshnessThreshold) {
		return m.fail(instr, stewerrors.StaleInputsError{LastUpdateSlot: clusterSlot, CurrentSlot: m.clock.CurrentSlot(), Threshold: freshnessThreshold})
	}
	for _, hIdx := range m.state.HistoryIndices {
		slot := m.history.ValidatorLastUpdateSlot(hIdx)
		if !m.isFresh(slot, freshnessThreshold) {
			return m.fail(instr, stewerrors.StaleInputsError{LastUpdateSlot: slot, CurrentSlot: m.clock.CurrentSlot(), Threshold: freshnessThreshold})
		}
	}

	m.transition(PhaseComputeInstantUnstake)
	return nil
}

// isFresh reports whether lastUpdateSlot is within thresholdProgress of
// an epoch's worth of slots from the current slot
// (instant_unstake_inputs_epoch_progress).
func (m *Machine) isFresh(lastUpdateSlot uint64, thresholdProgress float64) bool {
	currentSlot := m.clock.CurrentSlot()
	if lastUpdateSlot > currentSlot {
		return true
	}
	epochLength := m.clock.EpochLengthSlots()
	if epochLength == 0 {
		return true
	}
	staleness := currentSlot - lastUpdateSlot
	return float64(staleness)/float64(epochLength) <= thresholdProgress
}

func ratioOf(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// ComputeInstantUnstake is the compute_instant_unstake(validator_index,
// history_index) instruction.
func (m *Machine) ComputeInstantUnstake(historyIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "compute_instant_unstake"
	if err := m.requireNotPaused(); err != nil {
		return m.fail(instr, err)
	}
	if err := m.requirePhase(instr, PhaseComputeInstantUnstake); err != nil {
		return m.fail(instr, err)
	}

	pos, ok := m.state.PositionOf(historyIndex)
	if !ok {
		return m.fail(instr, stewerrors.InvalidIndexError{Index: historyIndex, Bound: len(m.state.HistoryIndices)})
	}

	view, err := m.history.View(historyIndex)
	if err != nil {
		return m.fail(instr, err)
	}

	merkle := m.history.MerkleRootAuthority(historyIndex)
	pf := m.history.PriorityFeeMerkleRootAuthority(historyIndex)
	flagged := scoring.InstantUnstake(view, m.cfg, historyIndex, merkle, pf) ||
		scoring.InstantUnstakeDelinquent(view, m.cfg, uint16(m.state.CurrentEpoch))

	if flagged {
		m.state.InstantUnstakeFlags.Set(pos)
	}

	// compute_instant_unstake is a single round serviced one index per
	// call; the phase transitions once every position has been visited.
	m.instantUnstakeVisited.Set(pos)
	if m.instantUnstakeVisited.AllOnes(len(m.state.HistoryIndices)) {
		m.instantUnstakeVisited.ClearAll()
		m.transition(PhaseRebalance)
	}
	return nil
}

// Rebalance is the rebalance(validator_index, history_index) instruction
//: a single-validator operation with global-snapshot
// semantics. It builds a fresh rebalance.Snapshot from the current
// StewardState and pool reads, then delegates the actual decision to the
// pure rebalance.Decide function.
func (m *Machine) Rebalance(ctx context.Context, historyIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "rebalance"
	if err := m.requireNotPaused(); err != nil {
		return m.fail(instr, err)
	}
	if err := m.requirePhase(instr, PhaseRebalance); err != nil {
		return m.fail(instr, err)
	}

	pos, ok := m.state.PositionOf(historyIndex)
	if !ok {
		return m.fail(instr, stewerrors.InvalidIndexError{Index: historyIndex, Bound: len(m.state.HistoryIndices)})
	}

	if m.state.ProgressRebalance.Get(pos) {
		// Idempotence: a second caller for the same i within this
		// phase observes the updated progress bit and no-ops.
		return nil
	}

	snap, err := m.buildRebalanceSnapshot(ctx)
	if err != nil {
		return m.fail(instr, err)
	}

	outcome, usage := rebalance.Decide(snap, historyIndex)

	switch outcome.Kind {
	case rebalance.OutcomeIncrease:
		if err := m.poolAdapter.RequestIncrease(ctx, historyIndex, outcome.Delta); err != nil {
			return m.fail(instr, fmt.Errorf("pool increase request failed: %w", err))
		}
		m.state.InternalLamports[pos] += outcome.Delta
	case rebalance.OutcomeDecrease:
		if err := m.poolAdapter.RequestDecrease(ctx, historyIndex, outcome.Delta, outcome.Reason); err != nil {
			return m.fail(instr, fmt.Errorf("pool decrease request failed: %w", err))
		}
		if outcome.Delta > m.state.InternalLamports[pos] {
			m.state.InternalLamports[pos] = 0
		} else {
			m.state.InternalLamports[pos] -= outcome.Delta
		}
		m.state.ScoringUnstakeTotal += usage.Scoring
		m.state.InstantUnstakeTotal += usage.Instant
		m.state.StakeDepositUnstakeTotal += usage.StakeDeposit
		if usage.Scoring > 0 {
			m.metrics.CapConsumed(pool.DecreaseReasonScoring, usage.Scoring)
		}
		if usage.Instant > 0 {
			m.metrics.CapConsumed(pool.DecreaseReasonInstant, usage.Instant)
		}
		if usage.StakeDeposit > 0 {
			m.metrics.CapConsumed(pool.DecreaseReasonStakeDeposit, usage.StakeDeposit)
		}
	}

	m.state.ProgressRebalance.Set(pos)
	if m.state.ProgressRebalance.AllOnes(len(m.state.HistoryIndices)) {
		m.transition(PhaseIdle)
	}
	return nil
}

func (m *Machine) buildRebalanceSnapshot(ctx context.Context) (*rebalance.Snapshot, error) {
	tvl, err := m.poolAdapter.TotalValueLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read pool TVL: %w", err)
	}
	reserve, err := m.poolAdapter.ReserveLamports(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read pool reserve: %w", err)
	}

	validators := make([]rebalance.ValidatorState, len(m.state.HistoryIndices))
	for pos, hIdx := range m.state.HistoryIndices {
		snap, err := m.poolAdapter.Snapshot(ctx, hIdx)
		if err != nil {
			return nil, fmt.Errorf("could not read pool snapshot for validator %d: %w", hIdx, err)
		}
		validators[pos] = rebalance.ValidatorState{
			HistoryIndex:     hIdx,
			ActiveLamports:   snap.ActiveLamports,
			InternalLamports: m.state.InternalLamports[pos],
			DelegationNum:    m.state.DelegationNumerators[pos],
			DelegationDen:    m.state.DelegationDenominator,
			Score:            m.state.Scores[pos],
			RawScore:         m.state.RawScores[pos],
			InstantUnstake:   m.state.InstantUnstakeFlags.Get(pos),
			ProgressSet:      m.state.ProgressRebalance.Get(pos),
		}
	}

	caps := rebalance.Caps{
		ScoringCapTotal:      rebalance.BpsCap(m.cfg.ScoringUnstakeCapBps, tvl),
		ScoringConsumed:      m.state.ScoringUnstakeTotal,
		InstantCapTotal:      rebalance.BpsCap(m.cfg.InstantUnstakeCapBps, tvl),
		InstantConsumed:      m.state.InstantUnstakeTotal,
		StakeDepositCapTotal: rebalance.BpsCap(m.cfg.StakeDepositUnstakeCapBps, tvl),
		StakeDepositConsumed: m.state.StakeDepositUnstakeTotal,
	}

	sortedByScore := historyIndicesOf(m.state, m.state.SortedScoreIndices)
	sortedByRawScore := historyIndicesOf(m.state, m.state.SortedRawScoreIndices)

	return rebalance.NewSnapshot(tvl, reserve, validators, caps, sortedByScore, sortedByRawScore), nil
}

func historyIndicesOf(s *State, positions []int) []int {
	out := make([]int, 0, len(positions))
	for _, pos := range positions {
		if pos >= 0 && pos < len(s.HistoryIndices) {
			out = append(out, s.HistoryIndices[pos])
		}
	}
	return out
}

// maybeStartNewCycle applies the ComputeScores entry action: if
// the current epoch is far enough past cycle_start_epoch, clear all
// per-cycle arrays and bitsets and start a fresh cycle. Callers must
// hold mu.
func (m *Machine) maybeStartNewCycle() {
	if m.state.GetPhase() != PhaseComputeScores {
		return
	}
	if m.state.CurrentEpoch-m.state.CycleStartEpoch < uint64(m.cfg.NumEpochsBetweenScoring) && m.state.StartComputingScoresSlot != 0 {
		return
	}
	m.state.resetCycle(m.state.CurrentEpoch, m.clock.CurrentSlot())
	m.instantUnstakeVisited.ClearAll()
	m.metrics.CycleAge(0)
}
