// Package metrics defines the steward core's Collector interface and its
// two implementations: a Prometheus-backed collector for production and
// a NoopCollector for tests and embedding.
package metrics

import "github.com/jito-foundation/steward-core/internal/steward/pool"

// Collector is the metrics surface the cycle state machine emits
// through, including cap consumption for the rebalance planner's
// decisions. Metrics shipping itself is out of scope;
// this interface only defines what gets recorded in-process.
type Collector interface {
	// PhaseTransition records a phase change.
	PhaseTransition(from, to string)

	// ScoreComputed records one validator's packed score.
	ScoreComputed(historyIndex int, score, rawScore uint64, eligible bool)

	// CapConsumed records how much of a cap was consumed by one
	// Decrease instruction.
	CapConsumed(reason pool.DecreaseReason, amount uint64)

	// CycleAge records the number of epochs since the current cycle
	// started.
	CycleAge(epochs uint64)

	// InstructionError records a failed instruction by error kind, so
	// operators can distinguish benign retries from anomalies.
	InstructionError(instruction, kind string)
}
