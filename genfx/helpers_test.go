package genfx

import (
	"context"
	"encoding/gob"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

func init() {
	gob.Register(&testEntity{})
}

// testEntity is a bit list with an identifier used to tell instances apart.
type testEntity struct {
	EntityBase
	ID    int
	Genes []int
}

func (e *testEntity) Clone() Entity {
	c := *e
	c.Genes = slices.Clone(e.Genes)
	return &c
}

func (e *testEntity) String() string {
	return fmt.Sprintf("%d:%v", e.ID, e.Genes)
}

func newEntity(id int, raw float64) *testEntity {
	return &testEntity{ID: id, EntityBase: EntityBase{RawFitness: raw, ScaledFitness: raw}}
}

func populationOf(index int, fitness ...float64) *Population {
	p := NewPopulation(index)
	for i, f := range fitness {
		p.Add(newEntity(i, f))
	}
	return p
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// scriptedRandom replays fixed values; once exhausted it returns zeros.
type scriptedRandom struct {
	floats []float64
	ints   []int
}

func (r *scriptedRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRandom) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

// bitSeed creates testEntities with n random bits and sequential IDs.
func bitSeed(n int) EntityFactory {
	var mu sync.Mutex
	next := 0
	return EntityFactoryFunc(func(rng RandomSource) (Entity, error) {
		mu.Lock()
		id := next
		next++
		mu.Unlock()
		genes := make([]int, n)
		for i := range genes {
			genes[i] = rng.IntN(2)
		}
		return &testEntity{ID: id, Genes: genes}, nil
	})
}

func sumGenes(_ context.Context, e Entity) (float64, error) {
	total := 0
	for _, g := range e.(*testEntity).Genes {
		total += g
	}
	return float64(total), nil
}

// halfSwap exchanges the second halves of two bit lists.
type halfSwap struct{}

func (halfSwap) RequiredParentCount() int { return 2 }

func (halfSwap) Recombine(parents []Entity, _ RandomSource) ([]Entity, bool, error) {
	a, b := parents[0].(*testEntity), parents[1].(*testEntity)
	mid := len(a.Genes) / 2
	for i := mid; i < len(a.Genes) && i < len(b.Genes); i++ {
		a.Genes[i], b.Genes[i] = b.Genes[i], a.Genes[i]
	}
	return []Entity{a, b}, true, nil
}

// bitFlip flips each bit with probability rate.
type bitFlip struct{}

func (bitFlip) GenerateMutation(e Entity, rate float64, rng RandomSource) (bool, error) {
	changed := false
	genes := e.(*testEntity).Genes
	for i := range genes {
		if rng.Float64() < rate {
			genes[i] = 1 - genes[i]
			changed = true
		}
	}
	return changed, nil
}

// testConfig returns a small deterministic configuration.
func testConfig(populations, size int) *Config {
	cfg := DefaultConfig()
	cfg.Algorithm.EnvironmentSize = populations
	cfg.Algorithm.MinimumPopulationSize = size
	cfg.Algorithm.RandomSeed = 7
	cfg.Algorithm.Parallelism = 4
	cfg.Elitism.ElitistRatio = 0.1
	cfg.Mutation.MutationRate = 0.05
	return cfg
}

// testComponents wires the test representation into cfg's strategies.
func testComponents(cfg *Config) Components {
	comps, err := cfg.Components(bitSeed(16), FitnessEvaluatorFunc(sumGenes), halfSwap{}, bitFlip{})
	if err != nil {
		panic(err)
	}
	return comps
}
