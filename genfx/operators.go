package genfx

import (
	"context"
	"fmt"
	"strings"
)

// FitnessType selects which fitness value an operator compares.
type FitnessType int

const (
	FitnessTypeScaled FitnessType = iota
	FitnessTypeRaw
)

func (t FitnessType) String() string {
	if t == FitnessTypeRaw {
		return "raw"
	}
	return "scaled"
}

// ParseFitnessType parses "raw" or "scaled" (the default when empty).
func ParseFitnessType(s string) (FitnessType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scaled":
		return FitnessTypeScaled, nil
	case "raw":
		return FitnessTypeRaw, nil
	}
	return 0, fmt.Errorf("%w: unknown fitness type %q", ErrInvalidConfig, s)
}

// EvaluationMode tells operators whether higher or lower fitness is better.
type EvaluationMode int

const (
	Maximize EvaluationMode = iota
	Minimize
)

func (m EvaluationMode) String() string {
	if m == Minimize {
		return "minimize"
	}
	return "maximize"
}

// ParseEvaluationMode parses "maximize" (the default when empty) or "minimize".
func ParseEvaluationMode(s string) (EvaluationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max", "maximize":
		return Maximize, nil
	case "min", "minimize":
		return Minimize, nil
	}
	return 0, fmt.Errorf("%w: unknown fitness evaluation mode %q", ErrInvalidConfig, s)
}

// RandomSource is the subset of *rand.Rand (math/rand/v2) used by operators.
// Tests substitute scripted sources to force specific branches.
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

// EntityFactory creates new randomly initialized entities. It is the entity
// seed used to fill populations at initialization.
type EntityFactory interface {
	NewEntity(rng RandomSource) (Entity, error)
}

// EntityFactoryFunc adapts a function to EntityFactory.
type EntityFactoryFunc func(rng RandomSource) (Entity, error)

func (f EntityFactoryFunc) NewEntity(rng RandomSource) (Entity, error) {
	return f(rng)
}

// FitnessEvaluator computes the raw fitness of an entity. Implementations
// may be slow and are called concurrently for different entities.
type FitnessEvaluator interface {
	Evaluate(ctx context.Context, e Entity) (float64, error)
}

// FitnessEvaluatorFunc adapts a function to FitnessEvaluator.
type FitnessEvaluatorFunc func(ctx context.Context, e Entity) (float64, error)

func (f FitnessEvaluatorFunc) Evaluate(ctx context.Context, e Entity) (float64, error) {
	return f(ctx, e)
}

// FitnessScalingStrategy rewrites the scaled fitness of every entity from
// the raw fitness distribution of the whole population.
type FitnessScalingStrategy interface {
	Scale(p *Population) error
}

// SelectionOperator picks one entity from a population.
type SelectionOperator interface {
	Select(p *Population, rng RandomSource) (Entity, error)
}

// CrossoverOperator recombines exactly RequiredParentCount parents.
type CrossoverOperator interface {
	RequiredParentCount() int
	Crossover(parents []Entity, rng RandomSource) ([]Entity, error)
}

// MutationOperator returns a possibly mutated copy of its input. The input
// entity itself is never modified.
type MutationOperator interface {
	Mutate(e Entity, rng RandomSource) (Entity, error)
}

// ElitismStrategy returns the entities that survive unmodified into the
// next generation.
type ElitismStrategy interface {
	Elite(p *Population) ([]Entity, error)
}

// SelectMany performs count independent selections from p.
func SelectMany(op SelectionOperator, count int, p *Population, rng RandomSource) ([]Entity, error) {
	if p.Size() == 0 {
		return nil, fmt.Errorf("select from population %d: %w", p.Index, ErrEmptyPopulation)
	}
	selected := make([]Entity, 0, count)
	for range count {
		e, err := op.Select(p, rng)
		if err != nil {
			return nil, err
		}
		selected = append(selected, e)
	}
	return selected, nil
}
