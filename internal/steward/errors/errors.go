// Package errors defines the steward core's error taxonomy. Every
// instruction handler fails atomically with exactly one of these kinds;
// there are no partial writes on error.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no additional context.
var (
	// ErrPaused is returned by any mutating instruction while the
	// steward config's pause flag is set.
	ErrPaused = errors.New("steward is paused")

	// ErrUnauthorized is returned when an admin instruction is signed
	// by a key other than the authority it requires.
	ErrUnauthorized = errors.New("signer is not the required authority")

	// ErrArithmeticOverflow is fatal: a programmer-error condition in
	// the rebalance or scoring arithmetic.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrMembershipRejected is returned when an auto-add or auto-remove
	// predicate evaluates false.
	ErrMembershipRejected = errors.New("membership predicate not satisfied")
)

// PhaseMismatchError is returned when an instruction is invoked while
// state.phase does not permit it.
type PhaseMismatchError struct {
	Instruction string
	Have        string
	Want        []string
}

func (e PhaseMismatchError) Error() string {
	return fmt.Sprintf("instruction %q requires phase in %v, have %q", e.Instruction, e.Want, e.Have)
}

// IsPhaseMismatch reports whether err is (or wraps) a PhaseMismatchError.
func IsPhaseMismatch(err error) bool {
	var e PhaseMismatchError
	return errors.As(err, &e)
}

// NotEnoughHistoryError is returned when a windowed reduction requires an
// entry that is null (absent) in the ring buffer.
type NotEnoughHistoryError struct {
	Epoch  uint16
	Reason string
}

func (e NotEnoughHistoryError) Error() string {
	return fmt.Sprintf("not enough history at epoch %d: %s", e.Epoch, e.Reason)
}

func IsNotEnoughHistory(err error) bool {
	var e NotEnoughHistoryError
	return errors.As(err, &e)
}

// StaleInputsError is returned when cluster or validator last-update slot
// fails a freshness check.
type StaleInputsError struct {
	LastUpdateSlot uint64
	CurrentSlot    uint64
	Threshold      float64
}

func (e StaleInputsError) Error() string {
	return fmt.Sprintf("stale inputs: last update at slot %d is not within %.4f epoch progress of slot %d",
		e.LastUpdateSlot, e.Threshold, e.CurrentSlot)
}

func IsStaleInputs(err error) bool {
	var e StaleInputsError
	return errors.As(err, &e)
}

// OutOfCoherenceWindowError is returned when ComputeScores is called too
// far from start_computing_scores_slot.
type OutOfCoherenceWindowError struct {
	StartSlot   uint64
	CurrentSlot uint64
	Range       uint64
}

func (e OutOfCoherenceWindowError) Error() string {
	return fmt.Sprintf("slot %d is outside coherence window [%d, %d]",
		e.CurrentSlot, e.StartSlot, e.StartSlot+e.Range)
}

func IsOutOfCoherenceWindow(err error) bool {
	var e OutOfCoherenceWindowError
	return errors.As(err, &e)
}

// InvalidIndexError is returned when an index is outside the current
// logical arrays.
type InvalidIndexError struct {
	Index int
	Bound int
}

func (e InvalidIndexError) Error() string {
	return fmt.Sprintf("index %d out of bounds [0, %d)", e.Index, e.Bound)
}

func IsInvalidIndex(err error) bool {
	var e InvalidIndexError
	return errors.As(err, &e)
}

// IsBenign reports whether err is one of the kinds clients should treat as
// retry-or-skip rather than an anomaly: PhaseMismatch, StaleInputs, and
// OutOfCoherenceWindow.
func IsBenign(err error) bool {
	return IsPhaseMismatch(err) || IsStaleInputs(err) || IsOutOfCoherenceWindow(err)
}
