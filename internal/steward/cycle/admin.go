package cycle

import (
	"github.com/jito-foundation/steward-core/internal/steward/config"
	stewerrors "github.com/jito-foundation/steward-core/internal/steward/errors"
)

// MembershipCandidate carries the facts an auto-add/auto-remove
// predicate needs.
type MembershipCandidate struct {
	HistoryIndex      int
	VoteAccountExists bool
	Age               uint32
	StakeLamports     uint64
	ConsecutiveDelinquentEpochs int
}

// AutoAddValidatorFromPool is the auto_add_validator_from_pool(vote_key)
// instruction. It is permissionless but gated by the
// membership predicate: vote account exists, age >= minimum_voting_
// epochs, stake >= minimum_stake_lamports, not blacklisted.
func (m *Machine) AutoAddValidatorFromPool(c MembershipCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "auto_add_validator_from_pool"
	if err := m.requireNotPaused(); err != nil {
		return m.fail(instr, err)
	}

	if _, alreadyMember := m.state.PositionOf(c.HistoryIndex); alreadyMember {
		return m.fail(instr, stewerrors.ErrMembershipRejected)
	}

	blacklisted := c.HistoryIndex >= 0 && c.HistoryIndex < m.cfg.Blacklist.Size() && m.cfg.Blacklist.Get(c.HistoryIndex)
	ok := c.VoteAccountExists &&
		c.Age >= m.cfg.MinimumVotingEpochs &&
		c.StakeLamports >= m.cfg.MinimumStakeLamports &&
		!blacklisted
	if !ok {
		return m.fail(instr, stewerrors.ErrMembershipRejected)
	}

	pos := m.state.AddValidator(c.HistoryIndex)
	m.instantUnstakeVisited.Grow(len(m.state.HistoryIndices))
	m.log.Info().Int("history_index", c.HistoryIndex).Int("position", pos).Msg("validator added to pool")
	return nil
}

// AutoRemoveValidatorFromPool is the
// auto_remove_validator_from_pool(validator_index) instruction: vote
// account closed, or delinquent for >= 5 consecutive epochs.
// Removal sets the deferred bitset; the next EpochMaintenance flushes it.
func (m *Machine) AutoRemoveValidatorFromPool(c MembershipCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "auto_remove_validator_from_pool"
	if err := m.requireNotPaused(); err != nil {
		return m.fail(instr, err)
	}

	pos, ok := m.state.PositionOf(c.HistoryIndex)
	if !ok {
		return m.fail(instr, stewerrors.InvalidIndexError{Index: c.HistoryIndex, Bound: len(m.state.HistoryIndices)})
	}

	const consecutiveDelinquentThreshold = 5
	eligible := !c.VoteAccountExists || c.ConsecutiveDelinquentEpochs >= consecutiveDelinquentThreshold
	if !eligible {
		return m.fail(instr, stewerrors.ErrMembershipRejected)
	}

	m.state.ValidatorsToRemove.Set(pos)
	m.log.Info().Int("history_index", c.HistoryIndex).Int("position", pos).Msg("validator flagged for deferred removal")
	return nil
}

// InstantRemoveValidator is the instant_remove_validator(validator_index)
// admin instruction: sets the immediate removal bitset, bypassing
// the next EpochMaintenance scan's normal ordering.
func (m *Machine) InstantRemoveValidator(signer string, historyIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "instant_remove_validator"
	if err := m.requireAuthority(signer, config.AuthorityAdmin); err != nil {
		return m.fail(instr, err)
	}

	pos, ok := m.state.PositionOf(historyIndex)
	if !ok {
		return m.fail(instr, stewerrors.InvalidIndexError{Index: historyIndex, Bound: len(m.state.HistoryIndices)})
	}
	m.state.ValidatorsForImmediateRemoval.Set(pos)
	return nil
}

// requireAuthority checks signer against the configured authority for
// role; admin instructions are never gated by pause.
func (m *Machine) requireAuthority(signer string, role config.Authority) error {
	var want string
	switch role {
	case config.AuthorityAdmin:
		want = m.cfg.AdminAuthority
	case config.AuthorityParameters:
		want = m.cfg.ParametersAuthority
	case config.AuthorityBlacklist:
		want = m.cfg.BlacklistAuthority
	}
	if want != "" && signer != want {
		return stewerrors.ErrUnauthorized
	}
	return nil
}

// UpdateParameters is the update_parameters(config-patch) admin
// instruction.
func (m *Machine) UpdateParameters(signer string, patch config.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "update_parameters"
	if err := m.requireAuthority(signer, config.AuthorityParameters); err != nil {
		return m.fail(instr, err)
	}
	if err := patch.Validate(); err != nil {
		return m.fail(instr, err)
	}
	*m.cfg = *patch.Apply(m.cfg)
	return nil
}

// SetAuthority is the set_authority({admin|parameters|blacklist},
// new_key) admin instruction.
func (m *Machine) SetAuthority(signer string, role config.Authority, newKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "set_authority"
	if err := m.requireAuthority(signer, config.AuthorityAdmin); err != nil {
		return m.fail(instr, err)
	}
	switch role {
	case config.AuthorityAdmin:
		m.cfg.AdminAuthority = newKey
	case config.AuthorityParameters:
		m.cfg.ParametersAuthority = newKey
	case config.AuthorityBlacklist:
		m.cfg.BlacklistAuthority = newKey
	}
	return nil
}

// AddToBlacklist / RemoveFromBlacklist are the add_to_blacklist /
// remove_from_blacklist admin instructions, gated by the blacklist
// authority.
func (m *Machine) AddToBlacklist(signer string, historyIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "add_to_blacklist"
	if err := m.requireAuthority(signer, config.AuthorityBlacklist); err != nil {
		return m.fail(instr, err)
	}
	if historyIndex < 0 || historyIndex >= m.cfg.Blacklist.Size() {
		return m.fail(instr, stewerrors.InvalidIndexError{Index: historyIndex, Bound: m.cfg.Blacklist.Size()})
	}
	m.cfg.Blacklist.Set(historyIndex)
	return nil
}

func (m *Machine) RemoveFromBlacklist(signer string, historyIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "remove_from_blacklist"
	if err := m.requireAuthority(signer, config.AuthorityBlacklist); err != nil {
		return m.fail(instr, err)
	}
	if historyIndex < 0 || historyIndex >= m.cfg.Blacklist.Size() {
		return m.fail(instr, stewerrors.InvalidIndexError{Index: historyIndex, Bound: m.cfg.Blacklist.Size()})
	}
	m.cfg.Blacklist.Clear(historyIndex)
	return nil
}

// Pause / Resume are the pause / resume admin instructions, gated
// by the admin authority and never themselves gated by pause.
func (m *Machine) Pause(signer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireAuthority(signer, config.AuthorityAdmin); err != nil {
		return m.fail("pause", err)
	}
	m.cfg.Paused = true
	return nil
}

func (m *Machine) Resume(signer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireAuthority(signer, config.AuthorityAdmin); err != nil {
		return m.fail("resume", err)
	}
	m.cfg.Paused = false
	return nil
}

// ResetState is the reset_state admin instruction: discards all
// per-cycle progress and returns to ComputeScores, preserving pool
// membership. Gated by the admin authority; not gated by pause.
func (m *Machine) ResetState(signer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireAuthority(signer, config.AuthorityAdmin); err != nil {
		return m.fail("reset_state", err)
	}
	m.state.resetCycle(m.state.CurrentEpoch, 0)
	m.instantUnstakeVisited.ClearAll()
	m.state.setPhase(PhaseComputeScores)
	return nil
}

// ResizeValidatorCapacity is the admin operation that grows every
// parallel array's addressable bitset capacity ahead of pool growth.
// It never shrinks.
func (m *Machine) ResizeValidatorCapacity(signer string, newCapacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireAuthority(signer, config.AuthorityAdmin); err != nil {
		return m.fail("resize_validator_capacity", err)
	}
	m.state.InstantUnstakeFlags.Grow(newCapacity)
	m.state.ProgressComputeScores.Grow(newCapacity)
	m.state.ProgressRebalance.Grow(newCapacity)
	m.state.ValidatorsToRemove.Grow(newCapacity)
	m.state.ValidatorsForImmediateRemoval.Grow(newCapacity)
	m.instantUnstakeVisited.Grow(newCapacity)
	return nil
}

// GetPhase exposes the current phase for read-only CLI subcommands.
func (m *Machine) GetPhase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetPhase()
}

// ScoreOf returns one validator's score and raw score, for the
// `steward show score` CLI; ok is false when historyIndex is not in the
// pool.
func (m *Machine) ScoreOf(historyIndex int) (score, rawScore uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, found := m.state.PositionOf(historyIndex)
	if !found {
		return 0, 0, false
	}
	return m.state.Scores[pos], m.state.RawScores[pos], true
}
