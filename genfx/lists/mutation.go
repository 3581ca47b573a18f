package lists

import (
	"fmt"

	"github.com/mthalman/genfx/genfx"
)

// UniformMutation replaces each gene, with probability rate, by a different
// value drawn uniformly from [MinValue, MaxValue]. Over [0,1] it flips bits.
type UniformMutation struct {
	MinValue int
	MaxValue int
}

func (m *UniformMutation) GenerateMutation(e genfx.Entity, rate float64, rng genfx.RandomSource) (bool, error) {
	l, err := asIntList(e)
	if err != nil {
		return false, err
	}
	span := m.MaxValue - m.MinValue + 1
	if span < 1 {
		return false, fmt.Errorf("%w: mutation value range [%d,%d]", genfx.ErrInvalidConfig, m.MinValue, m.MaxValue)
	}

	changed := false
	for i, g := range l.Genes {
		if rng.Float64() >= rate || span == 1 {
			continue
		}
		// Draw from the span minus the current value so the gene always changes.
		v := m.MinValue + rng.IntN(span-1)
		if v >= g {
			v++
		}
		l.Genes[i] = v
		changed = true
	}
	return changed, nil
}

// SwapMutation exchanges each gene, with probability rate, with a gene at a
// random position. It keeps lists of unique values unique.
type SwapMutation struct{}

func (SwapMutation) GenerateMutation(e genfx.Entity, rate float64, rng genfx.RandomSource) (bool, error) {
	l, err := asIntList(e)
	if err != nil {
		return false, err
	}
	n := l.Len()
	if n < 2 {
		return false, nil
	}

	changed := false
	for i := range n {
		if rng.Float64() >= rate {
			continue
		}
		j := rng.IntN(n)
		if j == i || l.Genes[i] == l.Genes[j] {
			continue
		}
		l.Genes[i], l.Genes[j] = l.Genes[j], l.Genes[i]
		changed = true
	}
	return changed, nil
}
