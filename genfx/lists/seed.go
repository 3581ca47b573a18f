package lists

import (
	"fmt"

	"github.com/mthalman/genfx/genfx"
)

// Seed creates random integer lists. Lengths are drawn from
// [MinLength, MaxLength] and values from [MinValue, MaxValue]. With Unique
// set, no value appears twice in one list.
type Seed struct {
	MinLength int
	MaxLength int
	MinValue  int
	MaxValue  int
	Unique    bool
}

// BitSeed creates bit strings of exactly length bits.
func BitSeed(length int) *Seed {
	return &Seed{MinLength: length, MaxLength: length, MinValue: 0, MaxValue: 1}
}

// Validate reports whether the ranges can produce a list.
func (s *Seed) Validate() error {
	if s.MinLength < 0 || s.MaxLength < s.MinLength {
		return fmt.Errorf("%w: list length range [%d,%d]", genfx.ErrInvalidConfig, s.MinLength, s.MaxLength)
	}
	if s.MaxValue < s.MinValue {
		return fmt.Errorf("%w: list value range [%d,%d]", genfx.ErrInvalidConfig, s.MinValue, s.MaxValue)
	}
	if s.Unique && s.MaxValue-s.MinValue+1 < s.MaxLength {
		return fmt.Errorf("%w: %d unique values cannot fill %d genes",
			genfx.ErrInvalidConfig, s.MaxValue-s.MinValue+1, s.MaxLength)
	}
	return nil
}

func (s *Seed) NewEntity(rng genfx.RandomSource) (genfx.Entity, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	length := s.MinLength + rng.IntN(s.MaxLength-s.MinLength+1)
	span := s.MaxValue - s.MinValue + 1

	genes := make([]int, length)
	if !s.Unique {
		for i := range genes {
			genes[i] = s.MinValue + rng.IntN(span)
		}
		return &IntListEntity{Genes: genes}, nil
	}

	// Partial Fisher-Yates over the value range.
	pool := make([]int, span)
	for i := range pool {
		pool[i] = s.MinValue + i
	}
	for i := range genes {
		j := i + rng.IntN(span-i)
		pool[i], pool[j] = pool[j], pool[i]
		genes[i] = pool[i]
	}
	return &IntListEntity{Genes: genes}, nil
}
