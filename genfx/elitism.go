package genfx

import (
	"fmt"
	"math"
)

// RatioElitism keeps the round(Ratio*N) most fit entities of a population.
type RatioElitism struct {
	Ratio       float64
	FitnessType FitnessType
	Mode        EvaluationMode
}

// EliteCount returns how many entities survive from a population of size n.
// Halves round away from zero.
func (s *RatioElitism) EliteCount(n int) int {
	return min(int(math.Round(s.Ratio*float64(n))), n)
}

// Elite returns the elite entities, most fit first. The returned values are
// the population's own instances, not copies.
func (s *RatioElitism) Elite(p *Population) ([]Entity, error) {
	if p.Size() == 0 {
		return nil, fmt.Errorf("elitism on population %d: %w", p.Index, ErrEmptyPopulation)
	}
	count := s.EliteCount(p.Size())
	if count <= 0 {
		return nil, nil
	}

	sorted := p.SortedByFitness(s.FitnessType, s.Mode)
	elite := make([]Entity, 0, count)
	for i := len(sorted) - 1; i >= len(sorted)-count; i-- {
		elite = append(elite, sorted[i])
	}
	return elite, nil
}
