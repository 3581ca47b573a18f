package genfx

import (
	"fmt"
	"math"
)

// Operators bundles the strategies a reproduction step draws on.
// Crossover, Mutation and Elitism are optional.
type Operators struct {
	Selection SelectionOperator
	Crossover CrossoverOperator
	Mutation  MutationOperator
	Elitism   ElitismStrategy
}

// ReproductionStrategy builds the next generation of one population.
//
// The returned population has the same index as current and exactly size
// entities. Implementations must not modify entities of current, apart
// from carrying some of them over by identity.
type ReproductionStrategy interface {
	CreateNextGeneration(current *Population, ops Operators, size int, rng RandomSource) (*Population, error)
}

// SimpleReproduction is generational replacement: the elite are carried
// over, and the rest of the population is filled with offspring of
// selection, crossover and mutation.
type SimpleReproduction struct{}

func (SimpleReproduction) CreateNextGeneration(current *Population, ops Operators, size int, rng RandomSource) (*Population, error) {
	next := NewPopulation(current.Index)
	if ops.Elitism != nil {
		elite, err := ops.Elitism.Elite(current)
		if err != nil {
			return nil, fmt.Errorf("elitism: %w", err)
		}
		next.Add(elite[:min(len(elite), size)]...)
	}
	if err := fillOffspring(next, current, ops, size, rng); err != nil {
		return nil, err
	}
	return next, nil
}

// SteadyStateReproduction replaces only the least fit ReplacementRatio
// share of a population. Survivors are carried over by identity.
type SteadyStateReproduction struct {
	ReplacementRatio float64
	FitnessType      FitnessType
	Mode             EvaluationMode
}

// ReplacementCount returns how many entities of a population of size n are
// replaced each generation. At least one is always replaced.
func (s *SteadyStateReproduction) ReplacementCount(n int) int {
	return max(1, min(n, int(math.Round(s.ReplacementRatio*float64(n)))))
}

func (s *SteadyStateReproduction) CreateNextGeneration(current *Population, ops Operators, size int, rng RandomSource) (*Population, error) {
	if current.Size() == 0 {
		return nil, fmt.Errorf("steady state reproduction on population %d: %w", current.Index, ErrEmptyPopulation)
	}
	sorted := current.SortedByFitness(s.FitnessType, s.Mode)
	keep := min(current.Size()-s.ReplacementCount(current.Size()), size)

	next := NewPopulation(current.Index)
	for i := len(sorted) - 1; i >= len(sorted)-keep; i-- {
		next.Add(sorted[i])
	}
	if err := fillOffspring(next, current, ops, size, rng); err != nil {
		return nil, err
	}
	return next, nil
}

// fillOffspring adds offspring of current to next until it holds size
// entities. Offspring that are still instances of current, or that already
// appear in next, are cloned so no entity is shared between two slots.
func fillOffspring(next, current *Population, ops Operators, size int, rng RandomSource) error {
	if ops.Selection == nil {
		return fmt.Errorf("%w: selection operator", ErrMissingComponent)
	}

	parentCount := 1
	if ops.Crossover != nil {
		parentCount = max(1, ops.Crossover.RequiredParentCount())
	}

	placed := make(map[Entity]struct{}, size)
	for _, e := range current.Entities {
		placed[e] = struct{}{}
	}

	for next.Size() < size {
		need := size - next.Size()
		// Round up so every crossover invocation gets a full set of parents.
		count := (need + parentCount - 1) / parentCount * parentCount

		parents, err := SelectMany(ops.Selection, count, current, rng)
		if err != nil {
			return fmt.Errorf("selection: %w", err)
		}

		offspring := parents
		if ops.Crossover != nil {
			if offspring, err = applyCrossover(ops.Crossover, offspring, rng); err != nil {
				return fmt.Errorf("crossover: %w", err)
			}
		}
		if ops.Mutation != nil {
			if offspring, err = applyMutation(ops.Mutation, offspring, rng); err != nil {
				return fmt.Errorf("mutation: %w", err)
			}
		}
		if len(offspring) == 0 {
			return fmt.Errorf("population %d: %w", current.Index, ErrNoOffspring)
		}

		for _, o := range offspring[:min(len(offspring), need)] {
			if _, dup := placed[o]; dup {
				o = o.Clone()
			}
			placed[o] = struct{}{}
			next.Add(o)
		}
	}
	return nil
}
