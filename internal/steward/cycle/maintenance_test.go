package cycle

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/jito-foundation/steward-core/internal/steward/config"
	"github.com/jito-foundation/steward-core/internal/steward/metrics"
)

func newTestMachine(t *testing.T, numValidators int) (*Machine, *State) {
	t.Helper()
	cfg := config.Default()
	state := NewState(config.MaxValidators)
	for i := 0; i < numValidators; i++ {
		state.AddValidator(i)
	}
	m := NewMachine(cfg, state, nil, nil, metrics.NewNoopCollector(), zerolog.Nop(), fakeClock{})
	return m, state
}

type fakeClock struct{}

func (fakeClock) CurrentSlot() uint64      { return 1000 }
func (fakeClock) EpochProgress() float64   { return 0.5 }
func (fakeClock) EpochLengthSlots() uint64 { return 10000 }

func TestEpochMaintenanceAdvancesWhenBitsetsEmpty(t *testing.T) {
	m, state := newTestMachine(t, 3)
	state.CurrentEpoch = 10
	state.CycleStartEpoch = 0
	m.cfg.NumEpochsBetweenScoring = 100 // keep it from also transitioning phase

	err := m.EpochMaintenance(11, 3, func(int) error { return nil })
	if err != nil {
		t.Fatalf("EpochMaintenance: %v", err)
	}
	if state.CurrentEpoch != 11 {
		t.Fatalf("CurrentEpoch = %d, want 11", state.CurrentEpoch)
	}
}

func TestEpochMaintenanceDrainsBeforeAdvancing(t *testing.T) {
	m, state := newTestMachine(t, 3)
	state.CurrentEpoch = 10
	state.ValidatorsToRemove.Set(1) // position 1, history index 1

	var removed []int
	err := m.EpochMaintenance(11, 3, func(historyIndex int) error {
		removed = append(removed, historyIndex)
		return nil
	})
	if err != nil {
		t.Fatalf("EpochMaintenance: %v", err)
	}
	if len(removed) != 1 || removed[0] != 1 {
		t.Fatalf("removed = %v, want [1]", removed)
	}
	if state.CurrentEpoch != 10 {
		t.Fatalf("CurrentEpoch advanced to %d during the same call that drained a removal; want deferred to next call", state.CurrentEpoch)
	}
	if len(state.HistoryIndices) != 2 {
		t.Fatalf("len(HistoryIndices) = %d, want 2 after drain", len(state.HistoryIndices))
	}
}

// TestEpochMaintenanceScansBeyondShrunkValidatorList is the regression
// test for the stuck-removal bug: a removal bit set at a position beyond the
// current (already-shrunk) HistoryIndices must still be scanned and
// cleared using the caller-reported validatorListLen/num_pool_validators
// upper bound, not len(HistoryIndices) alone.
func TestEpochMaintenanceScansBeyondShrunkValidatorList(t *testing.T) {
	m, state := newTestMachine(t, 3) // positions 0,1,2 populated

	// Simulate a prior shrink that left a stale removal bit at position 5,
	// beyond the current 3-element HistoryIndices, while num_pool_validators
	// (reported by the caller as validatorListLen) still reflects 6.
	state.ValidatorsForImmediateRemoval.Grow(6)
	state.ValidatorsForImmediateRemoval.Set(5)

	called := false
	err := m.EpochMaintenance(99, 6, func(historyIndex int) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("EpochMaintenance: %v", err)
	}
	if called {
		t.Fatalf("remover should not be called for a position with no live validator behind it")
	}
	if state.ValidatorsForImmediateRemoval.Get(5) {
		t.Fatalf("stale removal bit at position 5 was never cleared: this is the stuck-pool bug")
	}
}

func TestEpochMaintenanceNoopWhenEpochNotAdvanced(t *testing.T) {
	m, state := newTestMachine(t, 2)
	state.CurrentEpoch = 50

	if err := m.EpochMaintenance(50, 2, func(int) error { return nil }); err != nil {
		t.Fatalf("EpochMaintenance: %v", err)
	}
	if state.CurrentEpoch != 50 {
		t.Fatalf("CurrentEpoch changed to %d though runtimeEpoch did not advance", state.CurrentEpoch)
	}
}
