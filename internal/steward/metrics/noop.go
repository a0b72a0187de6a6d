package metrics

import "github.com/jito-foundation/steward-core/internal/steward/pool"

// NoopCollector discards every metric: the zero-configuration default
// so tests and one-off CLI invocations never need a Prometheus registry.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector { return &NoopCollector{} }

func (NoopCollector) PhaseTransition(from, to string)                                    {}
func (NoopCollector) ScoreComputed(historyIndex int, score, rawScore uint64, ok bool)     {}
func (NoopCollector) CapConsumed(reason pool.DecreaseReason, amount uint64)               {}
func (NoopCollector) CycleAge(epochs uint64)                                              {}
func (NoopCollector) InstructionError(instruction, kind string)                           {}

var _ Collector = (*NoopCollector)(nil)
