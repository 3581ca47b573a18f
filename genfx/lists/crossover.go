package lists

import (
	"fmt"
	"slices"

	"github.com/mthalman/genfx/genfx"
)

// MultiPointCrossover swaps alternating segments of two lists.
//
// Points distinct cut positions are drawn from [0, min(len1, len2)). Both
// lists are padded with zeros to the longer length, the segments starting
// at the 1st, 3rd, ... cut are exchanged, and then each offspring takes the
// length of the other parent. Parents of lengths 3 and 5 therefore produce
// offspring of lengths 5 and 3.
//
// With PartiallyMatched set, values duplicated by the exchange are repaired
// so each offspring stays a permutation. This needs equal lengths, unique
// values and at most two cut points.
type MultiPointCrossover struct {
	Points           int
	PartiallyMatched bool
}

// Validate checks the configuration.
func (c *MultiPointCrossover) Validate() error {
	if c.Points < 1 {
		return fmt.Errorf("%w: crossover needs at least one point, got %d", genfx.ErrInvalidConfig, c.Points)
	}
	if c.PartiallyMatched && c.Points > 2 {
		return fmt.Errorf("%w: partially matched crossover supports at most 2 points, got %d", genfx.ErrInvalidConfig, c.Points)
	}
	return nil
}

func (c *MultiPointCrossover) RequiredParentCount() int { return 2 }

// Recombine draws cut points and recombines two cloned parents in place.
// When either list is empty no cut point fits and the parents are returned
// unchanged.
func (c *MultiPointCrossover) Recombine(parents []genfx.Entity, rng genfx.RandomSource) ([]genfx.Entity, bool, error) {
	if len(parents) != 2 {
		return nil, false, fmt.Errorf("lists: multi-point crossover needs 2 parents, got %d", len(parents))
	}
	a, err := asIntList(parents[0])
	if err != nil {
		return nil, false, err
	}
	b, err := asIntList(parents[1])
	if err != nil {
		return nil, false, err
	}

	minLen := min(a.Len(), b.Len())
	k := min(c.Points, minLen)
	if k == 0 {
		return parents, false, nil
	}
	if err := c.recombineAt(a, b, cutPoints(minLen, k, rng)); err != nil {
		return nil, false, err
	}
	return []genfx.Entity{a, b}, true, nil
}

// cutPoints draws k distinct positions from [0, n) in ascending order.
func cutPoints(n, k int, rng genfx.RandomSource) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := range k {
		j := i + rng.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	points := pool[:k]
	slices.Sort(points)
	return points
}

// CrossoverAt recombines copies of a and b at the given cut points. The
// points must be distinct, ascending and below min(a.Len(), b.Len()).
func (c *MultiPointCrossover) CrossoverAt(a, b *IntListEntity, points []int) (*IntListEntity, *IntListEntity, error) {
	x := a.Clone().(*IntListEntity)
	y := b.Clone().(*IntListEntity)
	if err := c.recombineAt(x, y, points); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (c *MultiPointCrossover) recombineAt(a, b *IntListEntity, points []int) error {
	len1, len2 := a.Len(), b.Len()
	minLen, maxLen := min(len1, len2), max(len1, len2)

	for i, p := range points {
		if p < 0 || p >= minLen || (i > 0 && p <= points[i-1]) {
			return fmt.Errorf("lists: invalid cut points %v for lengths %d and %d", points, len1, len2)
		}
	}
	if c.PartiallyMatched {
		if len1 != len2 {
			return fmt.Errorf("lists: partially matched crossover needs equal lengths, got %d and %d", len1, len2)
		}
		if len(points) > 2 {
			return fmt.Errorf("lists: partially matched crossover supports at most 2 points, got %d", len(points))
		}
	}

	origA, origB := slices.Clone(a.Genes), slices.Clone(b.Genes)
	ga, gb := pad(a.Genes, maxLen), pad(b.Genes, maxLen)

	swapped := make([]bool, maxLen)
	for i := 0; i < len(points); i += 2 {
		end := maxLen
		if i+1 < len(points) {
			end = points[i+1]
		}
		for j := points[i]; j < end; j++ {
			ga[j], gb[j] = gb[j], ga[j]
			swapped[j] = true
		}
	}

	if c.PartiallyMatched {
		repairMatched(ga, origA, swapped)
		repairMatched(gb, origB, swapped)
	}

	// Lengths are exchanged along with the segments.
	a.Genes = ga[:len2]
	b.Genes = gb[:len1]
	return nil
}

func pad(genes []int, n int) []int {
	out := make([]int, n)
	copy(out, genes)
	return out
}

// repairMatched replaces values outside the swapped region that also occur
// inside it. The replacement is the original parent's value at the position
// where the duplicate sits in the region, repeated until no conflict remains.
func repairMatched(child, original []int, swapped []bool) {
	inRegion := make(map[int]int)
	for j, s := range swapped {
		if s {
			inRegion[child[j]] = j
		}
	}
	for j, s := range swapped {
		if s {
			continue
		}
		v := child[j]
		for steps := 0; steps <= len(child); steps++ {
			m, dup := inRegion[v]
			if !dup {
				break
			}
			v = original[m]
		}
		child[j] = v
	}
}
