// Package pool defines the narrow interface the steward core consumes
// to read pool state and request stake movement. The pool's account
// model, stake-account mechanics, and
// transaction submission live outside this module;
// this package only declares the contract.
package pool

import "context"

// Snapshot is a read-only view of one validator's current position in
// the pool, as needed by the RebalancePlanner.
type Snapshot struct {
	HistoryIndex     int
	ActiveLamports   uint64
	TransientLamports uint64
}

// Pool is the ExternalStakePool adapter. Implementations are expected to
// be backed by the real on-chain pool account; the steward core treats
// every method as a snapshot read or a fire-and-forget instruction
// request, never a synchronous multi-step transaction.
type Pool interface {
	// ValidatorList returns the current logical membership of the pool,
	// identified by history index.
	ValidatorList(ctx context.Context) ([]int, error)

	// Snapshot returns the current active/transient stake for the given
	// validator.
	Snapshot(ctx context.Context, historyIndex int) (Snapshot, error)

	// TotalValueLocked returns the pool's total value locked, across all
	// validators plus the reserve.
	TotalValueLocked(ctx context.Context) (uint64, error)

	// ReserveLamports returns the pool's uncommitted reserve balance.
	ReserveLamports(ctx context.Context) (uint64, error)

	// RequestIncrease asks the pool to move `amount` base units from the
	// reserve into the given validator's stake account. The pool
	// serializes this against its own account state; the core does not
	// wait for activation.
	RequestIncrease(ctx context.Context, historyIndex int, amount uint64) error

	// RequestDecrease asks the pool to begin deactivating `amount` base
	// units of the given validator's active stake.
	RequestDecrease(ctx context.Context, historyIndex int, amount uint64, reason DecreaseReason) error
}

// DecreaseReason tags why a Decrease instruction was issued.
type DecreaseReason int

const (
	DecreaseReasonScoring DecreaseReason = iota
	DecreaseReasonInstant
	DecreaseReasonStakeDeposit
)

func (r DecreaseReason) String() string {
	switch r {
	case DecreaseReasonScoring:
		return "scoring"
	case DecreaseReasonInstant:
		return "instant"
	case DecreaseReasonStakeDeposit:
		return "stake_deposit"
	default:
		return "unknown"
	}
}
