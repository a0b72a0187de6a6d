package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jito-foundation/steward-core/internal/steward/pool"
)

const namespaceSteward = "steward"

// PrometheusCollector is the production Collector. Every gauge and
// counter is declared up front and registered once in
// NewPrometheusCollector.
type PrometheusCollector struct {
	phase           *prometheus.GaugeVec
	scoreGauge      *prometheus.GaugeVec
	rawScoreGauge   *prometheus.GaugeVec
	eligibleGauge   *prometheus.GaugeVec
	capConsumed     *prometheus.CounterVec
	cycleAgeEpochs  prometheus.Gauge
	instructionErrs *prometheus.CounterVec
}

// NewPrometheusCollector constructs and registers every steward metric
// against registerer.
func NewPrometheusCollector(registerer prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceSteward,
			Name:      "phase",
			Help:      "1 for the currently active cycle phase, 0 otherwise, labeled by phase name",
		}, []string{"phase"}),
		scoreGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceSteward,
			Name:      "validator_score",
			Help:      "the packed score of a validator by history index",
		}, []string{"history_index"}),
		rawScoreGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceSteward,
			Name:      "validator_raw_score",
			Help:      "the packed raw_score of a validator by history index",
		}, []string{"history_index"}),
		eligibleGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceSteward,
			Name:      "validator_eligible",
			Help:      "1 if all eligibility filters passed for this validator, 0 otherwise",
		}, []string{"history_index"}),
		capConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceSteward,
			Name:      "cap_consumed_lamports_total",
			Help:      "cumulative base units unstaked per cap reason",
		}, []string{"reason"}),
		cycleAgeEpochs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceSteward,
			Name:      "cycle_age_epochs",
			Help:      "epochs elapsed since the current cycle's cycle_start_epoch",
		}),
		instructionErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceSteward,
			Name:      "instruction_errors_total",
			Help:      "instruction failures by instruction name and error kind",
		}, []string{"instruction", "kind"}),
	}

	registerer.MustRegister(
		c.phase,
		c.scoreGauge,
		c.rawScoreGauge,
		c.eligibleGauge,
		c.capConsumed,
		c.cycleAgeEpochs,
		c.instructionErrs,
	)

	return c
}

func (c *PrometheusCollector) PhaseTransition(from, to string) {
	c.phase.WithLabelValues(from).Set(0)
	c.phase.WithLabelValues(to).Set(1)
}

func (c *PrometheusCollector) ScoreComputed(historyIndex int, score, rawScore uint64, eligible bool) {
	label := indexLabel(historyIndex)
	c.scoreGauge.WithLabelValues(label).Set(float64(score))
	c.rawScoreGauge.WithLabelValues(label).Set(float64(rawScore))
	elig := 0.0
	if eligible {
		elig = 1.0
	}
	c.eligibleGauge.WithLabelValues(label).Set(elig)
}

func (c *PrometheusCollector) CapConsumed(reason pool.DecreaseReason, amount uint64) {
	c.capConsumed.WithLabelValues(reason.String()).Add(float64(amount))
}

func (c *PrometheusCollector) CycleAge(epochs uint64) {
	c.cycleAgeEpochs.Set(float64(epochs))
}

func (c *PrometheusCollector) InstructionError(instruction, kind string) {
	c.instructionErrs.WithLabelValues(instruction, kind).Inc()
}

func indexLabel(historyIndex int) string {
	return strconv.Itoa(historyIndex)
}
