// Package keeper implements the permissioned-but-optional off-chain
// cranker loop: it wakes each
// slot tick, inspects the cycle's phase, and drives whichever core
// instruction is next runnable across the pool's validator set. It is
// ambient tooling around the core, not a new core instruction, and
// calls through the same Machine instruction handlers a permissionless
// caller would use, so the core's single-writer semantics are
// unaffected by running it in-process.
package keeper

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/jito-foundation/steward-core/internal/steward/cycle"
	stewerrors "github.com/jito-foundation/steward-core/internal/steward/errors"
)

// PoolLister supplies the set of validator history indices currently in
// the pool, so the keeper knows which indices to sweep each tick.
type PoolLister interface {
	ValidatorList(ctx context.Context) ([]int, error)
}

// Config controls the cranker's cadence and concurrency.
type Config struct {
	// TickInterval is how often the keeper wakes to inspect phase and
	// drive the next runnable instruction.
	TickInterval time.Duration

	// SweepConcurrency bounds how many compute_score /
	// compute_instant_unstake / rebalance calls the worker pool runs
	// concurrently across the validator set, so a single keeper process
	// can drive a full pool (up to 5,000 indices) without serializing
	// every call.
	SweepConcurrency int

	// RuntimeEpoch and ValidatorListLen are supplied by the caller each
	// tick for the epoch_maintenance call, since they come from the
	// external pool/runtime rather than the steward core itself.
	RuntimeEpoch      func() uint64
	ValidatorListLen  func() int
	RemoveFromPool    func(historyIndex int) error
}

// Keeper is the autonomous cranker. It owns no state of its own beyond
// its run loop; all mutation goes through machine.
type Keeper struct {
	machine *cycle.Machine
	pool    PoolLister
	cfg     Config
	log     zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

// New constructs a Keeper over machine. Start blocks and Stop waits,
// so a caller can drive a clean shutdown rather than abandoning a bare
// goroutine.
func New(machine *cycle.Machine, poolLister PoolLister, cfg Config, log zerolog.Logger) *Keeper {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.SweepConcurrency <= 0 {
		cfg.SweepConcurrency = 8
	}
	return &Keeper{
		machine: machine,
		pool:    poolLister,
		cfg:     cfg,
		log:     log.With().Str("component", "steward_keeper").Logger(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the cranker loop until ctx is cancelled or Stop is called.
// It blocks; callers typically run it in its own goroutine.
func (k *Keeper) Start(ctx context.Context) {
	defer close(k.done)
	ticker := time.NewTicker(k.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-k.stop:
			return
		case <-ticker.C:
			runID := uuid.New()
			if err := k.tick(ctx); err != nil {
				k.log.Warn().Err(err).Str("run_id", runID.String()).Msg("cranker tick encountered errors")
			}
		}
	}
}

// Stop signals the run loop to exit and blocks until it has.
func (k *Keeper) Stop() {
	close(k.stop)
	<-k.done
}

// tick inspects the current phase and drives the sweep appropriate to
// it, returning an aggregated error from any per-validator failures
// (each validator's failure does not abort the others' calls).
func (k *Keeper) tick(ctx context.Context) error {
	validators, err := k.pool.ValidatorList(ctx)
	if err != nil {
		return err
	}

	phase := k.machine.GetPhase()
	var result *multierror.Error

	switch phase {
	case cycle.PhaseComputeScores:
		result = k.sweep(validators, func(h int) error {
			return k.machine.ComputeScore(h)
		})
	case cycle.PhaseComputeDelegations:
		if err := k.machine.ComputeDelegations(); err != nil && !stewerrors.IsBenign(err) {
			result = multierror.Append(result, err)
		}
	case cycle.PhaseIdle:
		if err := k.machine.Idle(); err != nil && !stewerrors.IsBenign(err) {
			result = multierror.Append(result, err)
		}
	case cycle.PhaseComputeInstantUnstake:
		result = k.sweep(validators, func(h int) error {
			return k.machine.ComputeInstantUnstake(h)
		})
	case cycle.PhaseRebalance:
		result = k.sweep(validators, func(h int) error {
			return k.machine.Rebalance(ctx, h)
		})
	}

	if k.cfg.RuntimeEpoch != nil && k.cfg.ValidatorListLen != nil && k.cfg.RemoveFromPool != nil {
		if err := k.machine.EpochMaintenance(k.cfg.RuntimeEpoch(), k.cfg.ValidatorListLen(), k.cfg.RemoveFromPool); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// sweep dispatches one call per validator through a bounded worker
// pool, collecting per-index errors so one validator's failure never
// aborts the rest of the sweep.
func (k *Keeper) sweep(validators []int, call func(historyIndex int) error) *multierror.Error {
	wp := workerpool.New(k.cfg.SweepConcurrency)
	var mu sync.Mutex
	var result *multierror.Error

	for _, h := range validators {
		h := h
		wp.Submit(func() {
			if err := call(h); err != nil && !stewerrors.IsBenign(err) {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
		})
	}
	wp.StopWait()
	return result
}
