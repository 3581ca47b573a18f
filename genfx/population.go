package genfx

import (
	"fmt"
	"slices"
)

// FitnessStats holds the raw fitness aggregates of a population.
// They are only meaningful while Valid is true; any change to the entity
// set clears it until the next evaluation recomputes them.
type FitnessStats struct {
	RawMin    float64
	RawMax    float64
	RawMean   float64
	RawStdDev float64
	Valid     bool
}

// Population is an ordered set of entities evolving together for one generation.
type Population struct {
	Index    int      // Slot within the environment.
	Entities []Entity // Order matters only for index-based access.
	Stats    FitnessStats
}

// NewPopulation creates an empty population for the given environment slot.
func NewPopulation(index int) *Population {
	return &Population{Index: index}
}

// Size returns the number of entities in the population.
func (p *Population) Size() int {
	return len(p.Entities)
}

// Add appends entities and invalidates the cached aggregates.
func (p *Population) Add(entities ...Entity) {
	p.Entities = append(p.Entities, entities...)
	p.Stats.Valid = false
}

// RawFitnesses returns the raw fitness values in entity order.
func (p *Population) RawFitnesses() []float64 {
	values := make([]float64, len(p.Entities))
	for i, e := range p.Entities {
		values[i] = e.Base().RawFitness
	}
	return values
}

// UpdateStats recomputes the raw fitness aggregates over the current entities.
func (p *Population) UpdateStats() error {
	if len(p.Entities) == 0 {
		p.Stats = FitnessStats{}
		return fmt.Errorf("population %d: %w", p.Index, ErrEmptyPopulation)
	}
	values := p.RawFitnesses()
	p.Stats = FitnessStats{
		RawMin:    MinFloat(values),
		RawMax:    MaxFloat(values),
		RawMean:   Mean(values),
		RawStdDev: Stdev(values),
		Valid:     true,
	}
	return nil
}

// SortedByFitness returns a copy of the entities ordered from least fit to
// most fit. The sort is stable, so equally fit entities keep their
// population order.
func (p *Population) SortedByFitness(t FitnessType, mode EvaluationMode) []Entity {
	sorted := slices.Clone(p.Entities)
	slices.SortStableFunc(sorted, func(a, b Entity) int {
		return CompareFitness(a, b, t, mode)
	})
	return sorted
}

// Best returns the fittest entity, or nil for an empty population.
// Earlier entities win ties.
func (p *Population) Best(t FitnessType, mode EvaluationMode) Entity {
	var best Entity
	for _, e := range p.Entities {
		if best == nil || CompareFitness(e, best, t, mode) > 0 {
			best = e
		}
	}
	return best
}

// Environment is the set of populations evolving together in one run.
type Environment struct {
	Populations []*Population
}

// NewEnvironment creates an environment with size empty populations.
func NewEnvironment(size int) *Environment {
	env := &Environment{Populations: make([]*Population, size)}
	for i := range env.Populations {
		env.Populations[i] = NewPopulation(i)
	}
	return env
}

// Size returns the number of populations.
func (e *Environment) Size() int {
	return len(e.Populations)
}

// EntityCount returns the total number of entities across all populations.
func (e *Environment) EntityCount() int {
	n := 0
	for _, p := range e.Populations {
		n += p.Size()
	}
	return n
}
