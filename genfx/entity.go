package genfx

import "strings"

// EntityBase holds the fitness and age bookkeeping shared by every entity.
// Concrete representations embed it so the engine can reach these fields
// through the Entity interface.
type EntityBase struct {
	RawFitness    float64 // Unmodified output of the fitness evaluator.
	ScaledFitness float64 // Output of the scaling strategy, or RawFitness when none is configured.
	Age           int     // Generations survived without being altered by crossover or mutation.
}

// Base returns the embedded bookkeeping record.
func (b *EntityBase) Base() *EntityBase {
	return b
}

// Fitness returns the raw or scaled fitness value.
func (b *EntityBase) Fitness(t FitnessType) float64 {
	if t == FitnessTypeRaw {
		return b.RawFitness
	}
	return b.ScaledFitness
}

// Entity is a single candidate solution.
//
// Clone must return an independent copy (including the EntityBase values)
// that shares no mutable state with the receiver. String must return a
// representation that identifies the solution; it is used for reproducible
// ordering and reporting.
type Entity interface {
	Base() *EntityBase
	Clone() Entity
	String() string
}

// CompareEntities orders two entities by their string representation.
// It returns a negative number, zero, or a positive number.
func CompareEntities(a, b Entity) int {
	return strings.Compare(a.String(), b.String())
}

// CompareFitness reports whether a is less fit (<0), equally fit (0), or
// more fit (>0) than b under the given fitness type and evaluation mode.
func CompareFitness(a, b Entity, t FitnessType, mode EvaluationMode) int {
	fa := a.Base().Fitness(t)
	fb := b.Base().Fitness(t)
	var c int
	switch {
	case fa < fb:
		c = -1
	case fa > fb:
		c = 1
	}
	if mode == Minimize {
		return -c
	}
	return c
}
