package genfx

import "fmt"

// Recombiner is the representation-specific half of a crossover operator.
// It receives clones of the parents, may modify them freely, and reports
// whether the offspring differ from the parents.
type Recombiner interface {
	RequiredParentCount() int
	Recombine(parents []Entity, rng RandomSource) (offspring []Entity, changed bool, err error)
}

// RateCrossover applies the crossover acceptance policy around a Recombiner.
//
// One value is drawn from [0,1) per invocation. Only a draw strictly below
// Rate recombines; otherwise the original parent instances are returned
// unchanged. Offspring of an accepted recombination have their age reset
// when the Recombiner reports a change.
type RateCrossover struct {
	Rate       float64
	Recombiner Recombiner
}

// NewRateCrossover wraps r with the given crossover rate.
func NewRateCrossover(rate float64, r Recombiner) *RateCrossover {
	return &RateCrossover{Rate: rate, Recombiner: r}
}

func (c *RateCrossover) RequiredParentCount() int {
	return c.Recombiner.RequiredParentCount()
}

// Crossover recombines the parents or passes them through.
func (c *RateCrossover) Crossover(parents []Entity, rng RandomSource) ([]Entity, error) {
	if want := c.RequiredParentCount(); len(parents) != want {
		return nil, fmt.Errorf("crossover requires %d parents, got %d", want, len(parents))
	}

	if rng.Float64() >= c.Rate {
		out := make([]Entity, len(parents))
		copy(out, parents)
		return out, nil
	}

	clones := make([]Entity, len(parents))
	for i, p := range parents {
		clones[i] = p.Clone()
	}
	offspring, changed, err := c.Recombiner.Recombine(clones, rng)
	if err != nil {
		return nil, fmt.Errorf("recombine: %w", err)
	}
	if changed {
		for _, o := range offspring {
			o.Base().Age = 0
		}
	}
	return offspring, nil
}

// applyCrossover consumes parents in order, RequiredParentCount at a time.
// Parents that cannot fill another invocation are passed through unmodified.
func applyCrossover(op CrossoverOperator, parents []Entity, rng RandomSource) ([]Entity, error) {
	k := op.RequiredParentCount()
	if k < 1 {
		return nil, fmt.Errorf("%w: crossover requires at least one parent, got %d", ErrInvalidConfig, k)
	}

	out := make([]Entity, 0, len(parents))
	queue := parents
	for len(queue) >= k {
		group := queue[:k:k]
		queue = queue[k:]
		offspring, err := op.Crossover(group, rng)
		if err != nil {
			return nil, err
		}
		out = append(out, offspring...)
	}
	return append(out, queue...), nil
}
