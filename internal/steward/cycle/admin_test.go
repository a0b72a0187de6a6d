package cycle

import (
	"testing"

	"github.com/jito-foundation/steward-core/internal/steward/config"
	stewerrors "github.com/jito-foundation/steward-core/internal/steward/errors"
)

func TestAutoAddValidatorFromPoolAcceptsEligible(t *testing.T) {
	m, state := newTestMachine(t, 0)
	m.cfg.MinimumVotingEpochs = 5
	m.cfg.MinimumStakeLamports = 1000

	err := m.AutoAddValidatorFromPool(MembershipCandidate{
		HistoryIndex:      7,
		VoteAccountExists: true,
		Age:               10,
		StakeLamports:     5000,
	})
	if err != nil {
		t.Fatalf("AutoAddValidatorFromPool: %v", err)
	}
	if _, ok := state.PositionOf(7); !ok {
		t.Fatalf("validator 7 was not added")
	}
}

func TestAutoAddValidatorFromPoolRejectsBelowMinimumStake(t *testing.T) {
	m, _ := newTestMachine(t, 0)
	m.cfg.MinimumVotingEpochs = 5
	m.cfg.MinimumStakeLamports = 10_000

	err := m.AutoAddValidatorFromPool(MembershipCandidate{
		HistoryIndex:      7,
		VoteAccountExists: true,
		Age:               10,
		StakeLamports:     1,
	})
	if err != stewerrors.ErrMembershipRejected {
		t.Fatalf("err = %v, want ErrMembershipRejected", err)
	}
}

func TestAutoAddValidatorFromPoolRejectsBlacklisted(t *testing.T) {
	m, _ := newTestMachine(t, 0)
	m.cfg.MinimumVotingEpochs = 0
	m.cfg.MinimumStakeLamports = 0
	m.cfg.Blacklist.Set(7)

	err := m.AutoAddValidatorFromPool(MembershipCandidate{
		HistoryIndex:      7,
		VoteAccountExists: true,
		Age:               10,
		StakeLamports:     10,
	})
	if err != stewerrors.ErrMembershipRejected {
		t.Fatalf("err = %v, want ErrMembershipRejected", err)
	}
}

func TestAutoAddValidatorFromPoolRejectsWhilePaused(t *testing.T) {
	m, _ := newTestMachine(t, 0)
	m.cfg.Paused = true

	err := m.AutoAddValidatorFromPool(MembershipCandidate{HistoryIndex: 1, VoteAccountExists: true})
	if err != stewerrors.ErrPaused {
		t.Fatalf("err = %v, want ErrPaused", err)
	}
}

func TestAutoRemoveValidatorFromPoolFlagsDelinquent(t *testing.T) {
	m, state := newTestMachine(t, 3)

	err := m.AutoRemoveValidatorFromPool(MembershipCandidate{
		HistoryIndex:                1,
		VoteAccountExists:           true,
		ConsecutiveDelinquentEpochs: 5,
	})
	if err != nil {
		t.Fatalf("AutoRemoveValidatorFromPool: %v", err)
	}
	if !state.ValidatorsToRemove.Get(1) {
		t.Fatalf("ValidatorsToRemove bit not set at position 1")
	}
}

func TestAutoRemoveValidatorFromPoolRejectsHealthy(t *testing.T) {
	m, _ := newTestMachine(t, 3)

	err := m.AutoRemoveValidatorFromPool(MembershipCandidate{
		HistoryIndex:                1,
		VoteAccountExists:           true,
		ConsecutiveDelinquentEpochs: 0,
	})
	if err != stewerrors.ErrMembershipRejected {
		t.Fatalf("err = %v, want ErrMembershipRejected", err)
	}
}

func TestInstantRemoveValidatorRequiresAdminAuthority(t *testing.T) {
	m, _ := newTestMachine(t, 3)
	m.cfg.AdminAuthority = "admin-key"

	if err := m.InstantRemoveValidator("someone-else", 1); err != stewerrors.ErrUnauthorized {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if err := m.InstantRemoveValidator("admin-key", 1); err != nil {
		t.Fatalf("InstantRemoveValidator with correct authority: %v", err)
	}
}

func TestInstantRemoveValidatorSetsImmediateBitset(t *testing.T) {
	m, state := newTestMachine(t, 3)

	if err := m.InstantRemoveValidator("", 2); err != nil {
		t.Fatalf("InstantRemoveValidator: %v", err)
	}
	if !state.ValidatorsForImmediateRemoval.Get(2) {
		t.Fatalf("ValidatorsForImmediateRemoval bit not set at position 2")
	}
}

func TestUpdateParametersRejectsInvalidPatch(t *testing.T) {
	m, _ := newTestMachine(t, 0)
	badBps := uint16(20000)

	err := m.UpdateParameters("", config.Patch{InstantUnstakeCapBps: &badBps})
	if err == nil {
		t.Fatalf("expected error for bps value exceeding 10000")
	}
	if m.cfg.InstantUnstakeCapBps == badBps {
		t.Fatalf("invalid patch was applied despite failing validation")
	}
}

func TestUpdateParametersAppliesValidPatch(t *testing.T) {
	m, _ := newTestMachine(t, 0)
	m.cfg.ParametersAuthority = "params-key"
	newK := uint32(50)

	if err := m.UpdateParameters("someone-else", config.Patch{NumDelegationValidators: &newK}); err != stewerrors.ErrUnauthorized {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}

	if err := m.UpdateParameters("params-key", config.Patch{NumDelegationValidators: &newK}); err != nil {
		t.Fatalf("UpdateParameters: %v", err)
	}
	if m.cfg.NumDelegationValidators != 50 {
		t.Fatalf("NumDelegationValidators = %d, want 50", m.cfg.NumDelegationValidators)
	}
}

func TestPauseResumeGateOtherInstructions(t *testing.T) {
	m, _ := newTestMachine(t, 0)
	m.cfg.AdminAuthority = "admin-key"

	if err := m.Pause("admin-key"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !m.cfg.Paused {
		t.Fatalf("Paused flag not set")
	}

	err := m.AutoAddValidatorFromPool(MembershipCandidate{HistoryIndex: 1, VoteAccountExists: true})
	if err != stewerrors.ErrPaused {
		t.Fatalf("err = %v, want ErrPaused while paused", err)
	}

	if err := m.Resume("admin-key"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if m.cfg.Paused {
		t.Fatalf("Paused flag still set after Resume")
	}
}

func TestResetStatePreservesMembershipAndReturnsToComputeScores(t *testing.T) {
	m, state := newTestMachine(t, 3)
	state.setPhase(PhaseIdle)
	state.Scores[0] = 123

	if err := m.ResetState(""); err != nil {
		t.Fatalf("ResetState: %v", err)
	}
	if state.GetPhase() != PhaseComputeScores {
		t.Fatalf("GetPhase() = %v, want ComputeScores", state.GetPhase())
	}
	if len(state.HistoryIndices) != 3 {
		t.Fatalf("membership not preserved across reset")
	}
	if state.Scores[0] != 0 {
		t.Fatalf("Scores[0] = %d, want 0 after reset", state.Scores[0])
	}
}

func TestResizeValidatorCapacityGrowsAllBitsets(t *testing.T) {
	m, state := newTestMachine(t, 3)

	if err := m.ResizeValidatorCapacity("", 200); err != nil {
		t.Fatalf("ResizeValidatorCapacity: %v", err)
	}
	if state.ValidatorsToRemove.Size() < 200 {
		t.Fatalf("ValidatorsToRemove.Size() = %d, want >= 200", state.ValidatorsToRemove.Size())
	}
	if m.instantUnstakeVisited.Size() < 200 {
		t.Fatalf("instantUnstakeVisited.Size() = %d, want >= 200", m.instantUnstakeVisited.Size())
	}
}
