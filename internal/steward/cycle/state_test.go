package cycle

import "testing"

func TestStateAddValidatorAssignsPositionsInOrder(t *testing.T) {
	s := NewState(8)
	p0 := s.AddValidator(10)
	p1 := s.AddValidator(20)
	p2 := s.AddValidator(30)

	if p0 != 0 || p1 != 1 || p2 != 2 {
		t.Fatalf("expected positions 0,1,2 got %d,%d,%d", p0, p1, p2)
	}
	if s.NumPoolValidators != 3 {
		t.Fatalf("NumPoolValidators = %d, want 3", s.NumPoolValidators)
	}
	for _, want := range []int{10, 20, 30} {
		if pos, ok := s.PositionOf(want); !ok {
			t.Fatalf("PositionOf(%d) not found", want)
		} else if s.HistoryIndices[pos] != want {
			t.Fatalf("HistoryIndices[%d] = %d, want %d", pos, s.HistoryIndices[pos], want)
		}
	}
}

func TestStateRemoveAtPositionSwapsLastIn(t *testing.T) {
	s := NewState(8)
	s.AddValidator(10)
	s.AddValidator(20)
	s.AddValidator(30)
	s.Scores[0], s.Scores[1], s.Scores[2] = 100, 200, 300

	s.removeAtPosition(0) // swap-remove: history index 30 moves into position 0

	if len(s.HistoryIndices) != 2 {
		t.Fatalf("len(HistoryIndices) = %d, want 2", len(s.HistoryIndices))
	}
	if s.HistoryIndices[0] != 30 {
		t.Fatalf("HistoryIndices[0] = %d, want 30 (swapped from last)", s.HistoryIndices[0])
	}
	if s.Scores[0] != 300 {
		t.Fatalf("Scores[0] = %d, want 300 (swapped alongside history index)", s.Scores[0])
	}
	if s.NumPoolValidators != 2 {
		t.Fatalf("NumPoolValidators = %d, want 2", s.NumPoolValidators)
	}
	if _, ok := s.PositionOf(10); ok {
		t.Fatalf("removed validator 10 still found")
	}
}

func TestStateResetCyclePreservesMembership(t *testing.T) {
	s := NewState(8)
	s.AddValidator(10)
	s.AddValidator(20)
	s.Scores[0] = 999
	s.InstantUnstakeFlags.Set(0)
	s.ScoringUnstakeTotal = 42

	s.resetCycle(5, 100)

	if len(s.HistoryIndices) != 2 {
		t.Fatalf("membership not preserved: len(HistoryIndices) = %d", len(s.HistoryIndices))
	}
	if s.Scores[0] != 0 {
		t.Fatalf("Scores[0] = %d, want 0 after reset", s.Scores[0])
	}
	if !s.InstantUnstakeFlags.IsEmpty() {
		t.Fatalf("InstantUnstakeFlags not cleared")
	}
	if s.ScoringUnstakeTotal != 0 {
		t.Fatalf("ScoringUnstakeTotal = %d, want 0", s.ScoringUnstakeTotal)
	}
	if s.CycleStartEpoch != 5 {
		t.Fatalf("CycleStartEpoch = %d, want 5", s.CycleStartEpoch)
	}
}

func TestNewStatePhaseStartsAtComputeScores(t *testing.T) {
	s := NewState(8)
	if s.GetPhase() != PhaseComputeScores {
		t.Fatalf("GetPhase() = %v, want ComputeScores", s.GetPhase())
	}
}
