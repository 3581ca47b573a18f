package genfx

import (
	"fmt"
	"slices"
)

// Statistic computes one value for a population after its fitness has been
// evaluated and scaled.
type Statistic interface {
	Name() string
	ComputeValue(p *Population) (any, error)
}

// MetricResult is one recorded statistic value. It is never modified after
// it has been appended to a history.
type MetricResult struct {
	Metric          string
	GenerationIndex int
	PopulationIndex int
	Value           any
}

// StatisticsRecorder holds append-only histories keyed by statistic name
// and population index.
type StatisticsRecorder struct {
	stats   []Statistic
	history map[string][][]MetricResult // name -> population index -> results
}

// NewStatisticsRecorder creates a recorder for the given statistics.
// Names must be unique.
func NewStatisticsRecorder(stats ...Statistic) (*StatisticsRecorder, error) {
	r := &StatisticsRecorder{history: make(map[string][][]MetricResult, len(stats))}
	for _, s := range stats {
		if _, dup := r.history[s.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate statistic %q", ErrInvalidConfig, s.Name())
		}
		r.history[s.Name()] = nil
		r.stats = append(r.stats, s)
	}
	return r, nil
}

// Statistics returns the registered statistics in registration order.
func (r *StatisticsRecorder) Statistics() []Statistic {
	return slices.Clone(r.stats)
}

// Compute evaluates every statistic for every population without recording
// anything. The result is indexed [statistic][population].
func (r *StatisticsRecorder) Compute(generation int, env *Environment) ([][]MetricResult, error) {
	out := make([][]MetricResult, len(r.stats))
	for i, s := range r.stats {
		out[i] = make([]MetricResult, env.Size())
		for _, p := range env.Populations {
			v, err := s.ComputeValue(p)
			if err != nil {
				return nil, fmt.Errorf("statistic %s on population %d: %w", s.Name(), p.Index, err)
			}
			out[i][p.Index] = MetricResult{
				Metric:          s.Name(),
				GenerationIndex: generation,
				PopulationIndex: p.Index,
				Value:           v,
			}
		}
	}
	return out, nil
}

// Append commits results produced by Compute.
func (r *StatisticsRecorder) Append(results [][]MetricResult) {
	for i, s := range r.stats {
		if i >= len(results) {
			return
		}
		h := r.history[s.Name()]
		for len(h) < len(results[i]) {
			h = append(h, nil)
		}
		for _, res := range results[i] {
			h[res.PopulationIndex] = append(h[res.PopulationIndex], res)
		}
		r.history[s.Name()] = h
	}
}

// Record computes and appends one result per statistic per population.
func (r *StatisticsRecorder) Record(generation int, env *Environment) error {
	results, err := r.Compute(generation, env)
	if err != nil {
		return err
	}
	r.Append(results)
	return nil
}

// History returns a copy of the results of one statistic for one population.
func (r *StatisticsRecorder) History(name string, population int) []MetricResult {
	h := r.history[name]
	if population < 0 || population >= len(h) {
		return nil
	}
	return slices.Clone(h[population])
}

// Latest returns the most recent result of a statistic for a population.
func (r *StatisticsRecorder) Latest(name string, population int) (MetricResult, bool) {
	h := r.history[name]
	if population < 0 || population >= len(h) || len(h[population]) == 0 {
		return MetricResult{}, false
	}
	return h[population][len(h[population])-1], true
}

// snapshot deep-copies every history for persistence.
func (r *StatisticsRecorder) snapshot() map[string][][]MetricResult {
	out := make(map[string][][]MetricResult, len(r.history))
	for name, h := range r.history {
		cp := make([][]MetricResult, len(h))
		for i := range h {
			cp[i] = slices.Clone(h[i])
		}
		out[name] = cp
	}
	return out
}

// restore replaces the histories. Every registered statistic must be present.
func (r *StatisticsRecorder) restore(histories map[string][][]MetricResult) error {
	for _, s := range r.stats {
		if _, ok := histories[s.Name()]; !ok {
			return fmt.Errorf("%w: missing history for statistic %q", ErrStateMismatch, s.Name())
		}
	}
	for name := range histories {
		if _, ok := r.history[name]; !ok {
			return fmt.Errorf("%w: unknown statistic %q", ErrStateMismatch, name)
		}
	}
	next := make(map[string][][]MetricResult, len(histories))
	for name, h := range histories {
		cp := make([][]MetricResult, len(h))
		for i := range h {
			cp[i] = slices.Clone(h[i])
		}
		next[name] = cp
	}
	r.history = next
	return nil
}

// funcStatistic adapts a function over a population.
type funcStatistic struct {
	name string
	fn   func(p *Population) (any, error)
}

func (s funcStatistic) Name() string                            { return s.name }
func (s funcStatistic) ComputeValue(p *Population) (any, error) { return s.fn(p) }

// NewStatistic builds a Statistic from a name and a function.
func NewStatistic(name string, fn func(p *Population) (any, error)) Statistic {
	return funcStatistic{name: name, fn: fn}
}

func rawAggregate(name string, agg func([]float64) float64) Statistic {
	return NewStatistic(name, func(p *Population) (any, error) {
		if p.Size() == 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrEmptyPopulation)
		}
		return agg(p.RawFitnesses()), nil
	})
}

// Built-in statistics over raw fitness.
var (
	MinFitnessStatistic    = rawAggregate("min_fitness", MinFloat)
	MaxFitnessStatistic    = rawAggregate("max_fitness", MaxFloat)
	MeanFitnessStatistic   = rawAggregate("mean_fitness", Mean)
	MedianFitnessStatistic = rawAggregate("median_fitness", Median)
	StdDevFitnessStatistic = rawAggregate("stddev_fitness", Stdev)
)

// MeanAgeStatistic reports the average entity age.
var MeanAgeStatistic = NewStatistic("mean_age", func(p *Population) (any, error) {
	if p.Size() == 0 {
		return nil, fmt.Errorf("mean_age: %w", ErrEmptyPopulation)
	}
	ages := make([]float64, p.Size())
	for i, e := range p.Entities {
		ages[i] = float64(e.Base().Age)
	}
	return Mean(ages), nil
})

// BestEntityStatistic records the representation of the fittest entity.
func BestEntityStatistic(t FitnessType, mode EvaluationMode) Statistic {
	return NewStatistic("best_entity", func(p *Population) (any, error) {
		best := p.Best(t, mode)
		if best == nil {
			return nil, fmt.Errorf("best_entity: %w", ErrEmptyPopulation)
		}
		return best.String(), nil
	})
}

// DefaultStatistics returns the statistics recorded when none are configured.
func DefaultStatistics(mode EvaluationMode) []Statistic {
	return []Statistic{
		MinFitnessStatistic,
		MaxFitnessStatistic,
		MeanFitnessStatistic,
		MedianFitnessStatistic,
		StdDevFitnessStatistic,
		MeanAgeStatistic,
		BestEntityStatistic(FitnessTypeRaw, mode),
	}
}
