package genfx

import (
	"fmt"
	"math"
	"slices"
)

// Scaling strategies keep the orientation of raw fitness: when a run
// minimizes, a lower scaled value is still the fitter one. Operators can
// therefore switch between raw and scaled fitness without changing mode.

// RankScaling replaces each scaled fitness with the rank of the raw value:
// 1 for the lowest through N for the highest. Ties keep population order.
type RankScaling struct{}

func (RankScaling) Scale(p *Population) error {
	if p.Size() == 0 {
		return fmt.Errorf("rank scaling on population %d: %w", p.Index, ErrEmptyPopulation)
	}
	sorted := slices.Clone(p.Entities)
	slices.SortStableFunc(sorted, func(a, b Entity) int {
		return CompareFitness(a, b, FitnessTypeRaw, Maximize)
	})
	for i, e := range sorted {
		e.Base().ScaledFitness = float64(i + 1)
	}
	return nil
}

// SigmaScaling maps raw fitness to 1 + (raw-mean)/(Multiplier*stddev) and
// truncates entities more than Multiplier deviations on the unfit side:
// below 0 when maximizing, above 2 when minimizing. A population with no
// spread scales every entity to 1.
type SigmaScaling struct {
	Multiplier float64
	Mode       EvaluationMode
}

func (s *SigmaScaling) Scale(p *Population) error {
	if p.Size() == 0 {
		return fmt.Errorf("sigma scaling on population %d: %w", p.Index, ErrEmptyPopulation)
	}
	if s.Multiplier <= 0 {
		return fmt.Errorf("%w: sigma multiplier must be positive, got %v", ErrInvalidConfig, s.Multiplier)
	}

	values := p.RawFitnesses()
	mean, sd := Mean(values), Stdev(values)
	for _, e := range p.Entities {
		b := e.Base()
		if sd == 0 {
			b.ScaledFitness = 1
			continue
		}
		v := 1 + (b.RawFitness-mean)/(s.Multiplier*sd)
		if s.Mode == Minimize {
			v = math.Min(2, v)
		} else {
			v = math.Max(0, v)
		}
		b.ScaledFitness = v
	}
	return nil
}

// LinearScaling shifts raw fitness so the lowest raw value scores Offset.
type LinearScaling struct {
	Offset float64
}

func (s *LinearScaling) Scale(p *Population) error {
	if p.Size() == 0 {
		return fmt.Errorf("linear scaling on population %d: %w", p.Index, ErrEmptyPopulation)
	}
	lo := MinFloat(p.RawFitnesses())
	for _, e := range p.Entities {
		b := e.Base()
		b.ScaledFitness = b.RawFitness - lo + s.Offset
	}
	return nil
}
