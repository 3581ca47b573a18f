package genfx

import "fmt"

// FitnessProportionateSelection implements roulette-wheel selection.
//
// Weights are shifted so the least fit entity gets weight zero (raw - min
// when maximizing, max - raw when minimizing). When every weight is zero
// the pick is uniform.
type FitnessProportionateSelection struct {
	FitnessType FitnessType
	Mode        EvaluationMode
}

// Select spins the wheel once.
func (s *FitnessProportionateSelection) Select(p *Population, rng RandomSource) (Entity, error) {
	if p.Size() == 0 {
		return nil, fmt.Errorf("proportionate selection on population %d: %w", p.Index, ErrEmptyPopulation)
	}

	values := make([]float64, p.Size())
	for i, e := range p.Entities {
		values[i] = e.Base().Fitness(s.FitnessType)
	}
	lo, hi := MinFloat(values), MaxFloat(values)

	total := 0.0
	for i, v := range values {
		if s.Mode == Minimize {
			values[i] = hi - v
		} else {
			values[i] = v - lo
		}
		total += values[i]
	}

	if total <= 0 {
		return p.Entities[rng.IntN(p.Size())], nil
	}

	spin := rng.Float64() * total
	cumulative := 0.0
	for i, w := range values {
		if w <= 0 {
			continue
		}
		cumulative += w
		if spin < cumulative {
			return p.Entities[i], nil
		}
	}

	// Float rounding can leave spin just past the last boundary.
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] > 0 {
			return p.Entities[i], nil
		}
	}
	return p.Entities[len(p.Entities)-1], nil
}

// TournamentSelection samples TournamentSize entities with replacement and
// returns the fittest. The first sampled entity wins ties.
type TournamentSelection struct {
	TournamentSize int
	FitnessType    FitnessType
	Mode           EvaluationMode
}

// Select runs one tournament.
func (s *TournamentSelection) Select(p *Population, rng RandomSource) (Entity, error) {
	if p.Size() == 0 {
		return nil, fmt.Errorf("tournament selection on population %d: %w", p.Index, ErrEmptyPopulation)
	}
	k := max(s.TournamentSize, 1)

	best := p.Entities[rng.IntN(p.Size())]
	for i := 1; i < k; i++ {
		candidate := p.Entities[rng.IntN(p.Size())]
		if CompareFitness(candidate, best, s.FitnessType, s.Mode) > 0 {
			best = candidate
		}
	}
	return best, nil
}

// UniformSelection ignores fitness and picks uniformly at random.
type UniformSelection struct{}

// Select picks one entity.
func (UniformSelection) Select(p *Population, rng RandomSource) (Entity, error) {
	if p.Size() == 0 {
		return nil, fmt.Errorf("uniform selection on population %d: %w", p.Index, ErrEmptyPopulation)
	}
	return p.Entities[rng.IntN(p.Size())], nil
}
