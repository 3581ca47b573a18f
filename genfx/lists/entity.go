// Package lists provides an integer list representation for genfx, with
// random seeding, multi-point crossover and element-wise mutation.
// Bit strings are integer lists over the range [0,1].
package lists

import (
	"context"
	"encoding/gob"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mthalman/genfx/genfx"
)

func init() {
	gob.Register(&IntListEntity{})
}

// IntListEntity is a variable-length list of integers.
type IntListEntity struct {
	genfx.EntityBase
	Genes []int
}

// New creates an entity holding a copy of genes.
func New(genes ...int) *IntListEntity {
	return &IntListEntity{Genes: slices.Clone(genes)}
}

func (e *IntListEntity) Clone() genfx.Entity {
	c := *e
	c.Genes = slices.Clone(e.Genes)
	return &c
}

func (e *IntListEntity) String() string {
	var sb strings.Builder
	for i, g := range e.Genes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(g))
	}
	return sb.String()
}

// Len returns the number of genes.
func (e *IntListEntity) Len() int { return len(e.Genes) }

func asIntList(e genfx.Entity) (*IntListEntity, error) {
	l, ok := e.(*IntListEntity)
	if !ok {
		return nil, fmt.Errorf("lists: unsupported entity type %T", e)
	}
	return l, nil
}

// Sum adds up the genes. Over bit lists it is the OneMax problem; wrap it
// with genfx.FitnessEvaluatorFunc to use it as an evaluator.
func Sum(_ context.Context, e genfx.Entity) (float64, error) {
	l, err := asIntList(e)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, g := range l.Genes {
		total += g
	}
	return float64(total), nil
}
