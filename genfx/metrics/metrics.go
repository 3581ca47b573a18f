// Package metrics exports genfx run progress as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mthalman/genfx/genfx"
)

// Plugin updates its collectors from engine lifecycle events.
type Plugin struct {
	generation  prometheus.Gauge
	generations prometheus.Counter
	completed   prometheus.Counter
	minFitness  *prometheus.GaugeVec
	maxFitness  *prometheus.GaugeVec
	meanFitness *prometheus.GaugeVec
	stdDev      *prometheus.GaugeVec
	entities    *prometheus.GaugeVec
}

// NewPlugin registers the genfx collectors with reg. Registering twice
// with the same registerer panics, as with promauto.
func NewPlugin(reg prometheus.Registerer) *Plugin {
	f := promauto.With(reg)
	byPopulation := []string{"population"}
	return &Plugin{
		generation: f.NewGauge(prometheus.GaugeOpts{
			Name: "genfx_generation",
			Help: "Index of the most recently evaluated generation",
		}),
		generations: f.NewCounter(prometheus.CounterOpts{
			Name: "genfx_generations_total",
			Help: "Number of generations evaluated",
		}),
		completed: f.NewCounter(prometheus.CounterOpts{
			Name: "genfx_runs_completed_total",
			Help: "Number of runs whose terminator reported completion",
		}),
		minFitness: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "genfx_fitness_min",
			Help: "Lowest raw fitness in the population",
		}, byPopulation),
		maxFitness: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "genfx_fitness_max",
			Help: "Highest raw fitness in the population",
		}, byPopulation),
		meanFitness: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "genfx_fitness_mean",
			Help: "Mean raw fitness of the population",
		}, byPopulation),
		stdDev: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "genfx_fitness_stddev",
			Help: "Population standard deviation of raw fitness",
		}, byPopulation),
		entities: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "genfx_population_entities",
			Help: "Number of entities in the population",
		}, byPopulation),
	}
}

func (p *Plugin) OnAlgorithmStarting(string) {}

func (p *Plugin) OnGenerationCreated(*genfx.GenerationEvent) {}

func (p *Plugin) OnFitnessEvaluated(e *genfx.FitnessEvaluatedEvent) {
	p.generation.Set(float64(e.Generation))
	p.generations.Inc()
	for _, pop := range e.Environment.Populations {
		label := strconv.Itoa(pop.Index)
		p.entities.WithLabelValues(label).Set(float64(pop.Size()))
		if !pop.Stats.Valid {
			continue
		}
		p.minFitness.WithLabelValues(label).Set(pop.Stats.RawMin)
		p.maxFitness.WithLabelValues(label).Set(pop.Stats.RawMax)
		p.meanFitness.WithLabelValues(label).Set(pop.Stats.RawMean)
		p.stdDev.WithLabelValues(label).Set(pop.Stats.RawStdDev)
	}
}

func (p *Plugin) OnAlgorithmCompleted(*genfx.CompletedEvent) {
	p.completed.Inc()
}
