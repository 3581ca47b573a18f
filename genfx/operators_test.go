package genfx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentSelection_PicksFittestOfDraws(t *testing.T) {
	p := populationOf(0, 5, 1, 9, 3)
	sel := &TournamentSelection{TournamentSize: 3, FitnessType: FitnessTypeRaw, Mode: Maximize}

	got, err := sel.Select(p, &scriptedRandom{ints: []int{1, 3, 0}})
	require.NoError(t, err)
	assert.Same(t, p.Entities[0], got)

	sel.Mode = Minimize
	got, err = sel.Select(p, &scriptedRandom{ints: []int{0, 3, 2}})
	require.NoError(t, err)
	assert.Same(t, p.Entities[3], got)
}

func TestFitnessProportionateSelection_ShiftedWeights(t *testing.T) {
	// Weights when maximizing are f-min = [0 1 3]; a spin of 0.5*4 = 2 lands on the last.
	p := populationOf(0, 1, 2, 4)
	sel := &FitnessProportionateSelection{FitnessType: FitnessTypeRaw, Mode: Maximize}
	got, err := sel.Select(p, &scriptedRandom{floats: []float64{0.5}})
	require.NoError(t, err)
	assert.Same(t, p.Entities[2], got)

	// The least fit entity is never chosen.
	got, err = sel.Select(p, &scriptedRandom{floats: []float64{0}})
	require.NoError(t, err)
	assert.Same(t, p.Entities[1], got)

	// Weights when minimizing are max-f = [3 2 0]; 0.5*5 = 2.5 lands on the first.
	sel.Mode = Minimize
	got, err = sel.Select(p, &scriptedRandom{floats: []float64{0.5}})
	require.NoError(t, err)
	assert.Same(t, p.Entities[0], got)
}

func TestFitnessProportionateSelection_UniformWhenFlat(t *testing.T) {
	p := populationOf(0, 2, 2, 2)
	sel := &FitnessProportionateSelection{FitnessType: FitnessTypeRaw}
	got, err := sel.Select(p, &scriptedRandom{ints: []int{1}})
	require.NoError(t, err)
	assert.Same(t, p.Entities[1], got)
}

func TestSelection_EmptyPopulation(t *testing.T) {
	empty := NewPopulation(2)
	for _, sel := range []SelectionOperator{
		&FitnessProportionateSelection{},
		&TournamentSelection{TournamentSize: 2},
		UniformSelection{},
	} {
		_, err := sel.Select(empty, newRand(1))
		assert.ErrorIs(t, err, ErrEmptyPopulation, "%T", sel)
	}
	_, err := SelectMany(UniformSelection{}, 3, empty, newRand(1))
	assert.ErrorIs(t, err, ErrEmptyPopulation)
}

func TestSelectMany_Count(t *testing.T) {
	p := populationOf(0, 1, 2, 3)
	got, err := SelectMany(UniformSelection{}, 7, p, newRand(3))
	require.NoError(t, err)
	assert.Len(t, got, 7)
}

type countingRecombiner struct {
	calls     [][]Entity
	unchanged bool
}

func (r *countingRecombiner) RequiredParentCount() int { return 2 }

func (r *countingRecombiner) Recombine(parents []Entity, _ RandomSource) ([]Entity, bool, error) {
	r.calls = append(r.calls, parents)
	if r.unchanged {
		return parents, false, nil
	}
	for _, p := range parents {
		p.(*testEntity).Genes = append(p.(*testEntity).Genes, 1)
	}
	return parents, true, nil
}

func TestRateCrossover_AcceptanceBoundary(t *testing.T) {
	tests := []struct {
		name       string
		draw       float64
		recombines bool
	}{
		{"draw below rate", 0.29, true},
		{"draw equal to rate", 0.3, false},
		{"draw above rate", 0.31, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingRecombiner{}
			c := NewRateCrossover(0.3, rec)
			a, b := newEntity(0, 1), newEntity(1, 2)
			a.Age, b.Age = 3, 4

			out, err := c.Crossover([]Entity{a, b}, &scriptedRandom{floats: []float64{tt.draw}})
			require.NoError(t, err)
			require.Len(t, out, 2)

			if !tt.recombines {
				assert.Empty(t, rec.calls)
				assert.Same(t, a, out[0], "rejected crossover returns the original instances")
				assert.Same(t, b, out[1])
				assert.Equal(t, 3, a.Age)
				return
			}
			assert.Len(t, rec.calls, 1)
			assert.NotSame(t, a, out[0])
			assert.NotSame(t, b, out[1])
			assert.Zero(t, out[0].Base().Age)
			assert.Zero(t, out[1].Base().Age)
			assert.Empty(t, a.Genes, "parents are cloned before recombination")
			assert.Equal(t, 3, a.Age)
		})
	}
}

// TestRateCrossover_UnchangedOffspringKeepAge verifies ages survive an
// accepted crossover that leaves the clones as they were.
func TestRateCrossover_UnchangedOffspringKeepAge(t *testing.T) {
	rec := &countingRecombiner{unchanged: true}
	c := NewRateCrossover(1, rec)
	a, b := newEntity(0, 1), newEntity(1, 2)
	a.Age, b.Age = 3, 4

	out, err := c.Crossover([]Entity{a, b}, &scriptedRandom{floats: []float64{0}})
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.NotSame(t, a, out[0])
	assert.Equal(t, 3, out[0].Base().Age)
	assert.Equal(t, 4, out[1].Base().Age)
}

func TestRateCrossover_ZeroRateNeverRecombines(t *testing.T) {
	rec := &countingRecombiner{}
	c := NewRateCrossover(0, rec)
	_, err := c.Crossover([]Entity{newEntity(0, 0), newEntity(1, 0)}, &scriptedRandom{floats: []float64{0}})
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestRateCrossover_WrongParentCount(t *testing.T) {
	c := NewRateCrossover(1, &countingRecombiner{})
	_, err := c.Crossover([]Entity{newEntity(0, 0)}, newRand(1))
	assert.Error(t, err)
}

func TestApplyCrossover_DeterministicQueue(t *testing.T) {
	rec := &countingRecombiner{}
	c := NewRateCrossover(1, rec)
	parents := []Entity{newEntity(0, 0), newEntity(1, 0), newEntity(2, 0), newEntity(3, 0), newEntity(4, 0)}

	out, err := applyCrossover(c, parents, newRand(1))
	require.NoError(t, err)
	require.Len(t, out, 5)
	require.Len(t, rec.calls, 2)

	assert.Equal(t, 0, rec.calls[0][0].(*testEntity).ID)
	assert.Equal(t, 1, rec.calls[0][1].(*testEntity).ID)
	assert.Equal(t, 2, rec.calls[1][0].(*testEntity).ID)
	assert.Equal(t, 3, rec.calls[1][1].(*testEntity).ID)
	assert.Same(t, parents[4], out[4], "leftover parent passes through unmodified")
}

func TestRateMutation_NeverMutatesInput(t *testing.T) {
	m := NewRateMutation(1, bitFlip{})
	in := &testEntity{ID: 1, Genes: []int{0, 1, 0}, EntityBase: EntityBase{RawFitness: 1, ScaledFitness: 1, Age: 5}}

	out, err := m.Mutate(in, newRand(1))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 0}, in.Genes)
	assert.Equal(t, 5, in.Age)
	assert.Equal(t, []int{1, 0, 1}, out.(*testEntity).Genes)
	assert.Zero(t, out.Base().Age)
}

func TestRateMutation_UnchangedCloneKeepsAge(t *testing.T) {
	m := NewRateMutation(0, bitFlip{})
	in := &testEntity{ID: 1, Genes: []int{0, 1}, EntityBase: EntityBase{Age: 2}}

	out, err := m.Mutate(in, newRand(1))
	require.NoError(t, err)
	assert.NotSame(t, in, out)
	assert.Equal(t, 2, out.Base().Age)
}

type failingMutator struct{}

func (failingMutator) GenerateMutation(Entity, float64, RandomSource) (bool, error) {
	return false, errors.New("boom")
}

func TestRateMutation_PropagatesError(t *testing.T) {
	_, err := NewRateMutation(1, failingMutator{}).Mutate(newEntity(0, 0), newRand(1))
	assert.ErrorContains(t, err, "boom")
}

func TestRatioElitism_Count(t *testing.T) {
	tests := []struct {
		ratio float64
		n     int
		want  int
	}{
		{0.5, 4, 2},
		{0.25, 10, 3}, // 2.5 rounds away from zero
		{0.05, 10, 1}, // 0.5 rounds away from zero
		{0.3, 5, 2},
		{0, 10, 0},
		{1, 7, 7},
		{0.04, 10, 0},
	}
	for _, tt := range tests {
		s := &RatioElitism{Ratio: tt.ratio}
		assert.Equal(t, tt.want, s.EliteCount(tt.n), "ratio %v of %d", tt.ratio, tt.n)
	}
}

func TestRatioElitism_MostFitByIdentity(t *testing.T) {
	p := populationOf(0, 4, 9, 1, 7, 9)
	s := &RatioElitism{Ratio: 0.6, FitnessType: FitnessTypeRaw, Mode: Maximize}

	elite, err := s.Elite(p)
	require.NoError(t, err)
	require.Len(t, elite, 3)
	assert.Same(t, p.Entities[4], elite[0], "stable sort puts the later of two equals last")
	assert.Same(t, p.Entities[1], elite[1])
	assert.Same(t, p.Entities[3], elite[2])

	s.Mode = Minimize
	elite, err = s.Elite(p)
	require.NoError(t, err)
	assert.Same(t, p.Entities[2], elite[0])
}

func TestRatioElitism_EmptyPopulation(t *testing.T) {
	_, err := (&RatioElitism{Ratio: 0.5}).Elite(NewPopulation(0))
	assert.ErrorIs(t, err, ErrEmptyPopulation)
}

func TestRankScaling(t *testing.T) {
	p := populationOf(0, 10, -3, 10, 4)
	require.NoError(t, RankScaling{}.Scale(p))

	var scaled, raw []float64
	for _, e := range p.Entities {
		scaled = append(scaled, e.Base().ScaledFitness)
		raw = append(raw, e.Base().RawFitness)
	}
	assert.Equal(t, []float64{3, 1, 4, 2}, scaled)
	assert.Equal(t, []float64{10, -3, 10, 4}, raw, "raw fitness is untouched")
}

func TestSigmaScaling(t *testing.T) {
	// mean 5, population stddev 2
	p := populationOf(0, 2, 4, 4, 4, 5, 5, 7, 9)
	s := &SigmaScaling{Multiplier: 1, Mode: Maximize}
	require.NoError(t, s.Scale(p))
	assert.InDelta(t, 0, p.Entities[0].Base().ScaledFitness, 1e-12) // 1 + (2-5)/2 = -0.5, truncated
	assert.InDelta(t, 1, p.Entities[4].Base().ScaledFitness, 1e-12)
	assert.InDelta(t, 3, p.Entities[7].Base().ScaledFitness, 1e-12)

	s.Mode = Minimize
	require.NoError(t, s.Scale(p))
	assert.InDelta(t, 0.5, p.Entities[1].Base().ScaledFitness, 1e-12)
	assert.InDelta(t, 2, p.Entities[7].Base().ScaledFitness, 1e-12, "unfit side is truncated at 2")

	flat := populationOf(0, 3, 3)
	require.NoError(t, s.Scale(flat))
	assert.Equal(t, 1.0, flat.Entities[0].Base().ScaledFitness)

	assert.ErrorIs(t, (&SigmaScaling{}).Scale(p), ErrInvalidConfig)
}

func TestLinearScaling(t *testing.T) {
	p := populationOf(0, -2, 3, 1)
	require.NoError(t, (&LinearScaling{Offset: 1}).Scale(p))
	assert.Equal(t, 1.0, p.Entities[0].Base().ScaledFitness)
	assert.Equal(t, 6.0, p.Entities[1].Base().ScaledFitness)
	assert.Equal(t, 4.0, p.Entities[2].Base().ScaledFitness)
}

func TestScaling_EmptyPopulation(t *testing.T) {
	for _, s := range []FitnessScalingStrategy{RankScaling{}, &SigmaScaling{Multiplier: 1}, &LinearScaling{}} {
		assert.ErrorIs(t, s.Scale(NewPopulation(0)), ErrEmptyPopulation, "%T", s)
	}
}
