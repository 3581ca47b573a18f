package genfx

import "fmt"

// Mutator is the representation-specific half of a mutation operator.
// It mutates e in place, each element independently with probability rate,
// and reports whether anything changed.
type Mutator interface {
	GenerateMutation(e Entity, rate float64, rng RandomSource) (bool, error)
}

// RateMutation clones its input and hands the clone to a Mutator.
// The age of a clone that actually changed is reset to 0.
type RateMutation struct {
	Rate    float64
	Mutator Mutator
}

// NewRateMutation wraps m with the given per-element mutation rate.
func NewRateMutation(rate float64, m Mutator) *RateMutation {
	return &RateMutation{Rate: rate, Mutator: m}
}

// Mutate returns a mutated clone of e; e itself is left untouched.
func (m *RateMutation) Mutate(e Entity, rng RandomSource) (Entity, error) {
	clone := e.Clone()
	changed, err := m.Mutator.GenerateMutation(clone, m.Rate, rng)
	if err != nil {
		return nil, fmt.Errorf("generate mutation: %w", err)
	}
	if changed {
		clone.Base().Age = 0
	}
	return clone, nil
}

func applyMutation(op MutationOperator, entities []Entity, rng RandomSource) ([]Entity, error) {
	out := make([]Entity, len(entities))
	for i, e := range entities {
		m, err := op.Mutate(e, rng)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}
