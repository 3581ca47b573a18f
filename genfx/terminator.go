package genfx

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
)

// RunStatus is the view of a run handed to a Terminator.
type RunStatus struct {
	Generation  int
	Environment *Environment
	Mode        EvaluationMode
}

// Terminator decides when a run is complete. The engine consults it at the
// start and at the end of every step.
type Terminator interface {
	IsComplete(status RunStatus) bool
}

// StatefulTerminator is a Terminator whose decision depends on earlier
// generations. Its state travels with the engine's State, so a restored run
// completes at the same generation as one that was never interrupted.
type StatefulTerminator interface {
	Terminator
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// NeverTerminator never completes; the run continues until cancelled.
type NeverTerminator struct{}

func (NeverTerminator) IsComplete(RunStatus) bool { return false }

// GenerationTerminator completes once MaxGenerations generations have been
// produced after initialization.
type GenerationTerminator struct {
	MaxGenerations int
}

func (t *GenerationTerminator) IsComplete(s RunStatus) bool {
	return s.Generation >= t.MaxGenerations
}

// AnyTerminator completes as soon as one of its terminators does. Every
// terminator is consulted on each call so stateful ones stay current.
type AnyTerminator []Terminator

func (a AnyTerminator) IsComplete(s RunStatus) bool {
	done := false
	for _, t := range a {
		if t.IsComplete(s) {
			done = true
		}
	}
	return done
}

// MarshalState encodes the state of every stateful member, in order.
func (a AnyTerminator) MarshalState() ([]byte, error) {
	states := make([][]byte, len(a))
	for i, t := range a {
		st, ok := t.(StatefulTerminator)
		if !ok {
			continue
		}
		data, err := st.MarshalState()
		if err != nil {
			return nil, fmt.Errorf("terminator %d: %w", i, err)
		}
		states[i] = data
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(states); err != nil {
		return nil, fmt.Errorf("failed to encode terminator state: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalState restores the members from data written by MarshalState.
// The members must match those that produced it.
func (a AnyTerminator) UnmarshalState(data []byte) error {
	var states [][]byte
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&states); err != nil {
		return fmt.Errorf("failed to decode terminator state: %w", err)
	}
	if len(states) != len(a) {
		return fmt.Errorf("terminator state has %d members, expected %d", len(states), len(a))
	}
	for i, t := range a {
		st, ok := t.(StatefulTerminator)
		if !ok || len(states[i]) == 0 {
			continue
		}
		if err := st.UnmarshalState(states[i]); err != nil {
			return fmt.Errorf("terminator %d: %w", i, err)
		}
	}
	return nil
}

// FitnessTargetTerminator completes when any population contains an entity
// whose raw fitness reaches Target (at or above it when maximizing, at or
// below it when minimizing).
type FitnessTargetTerminator struct {
	Target float64
}

func (t *FitnessTargetTerminator) IsComplete(s RunStatus) bool {
	if s.Environment == nil {
		return false
	}
	for _, p := range s.Environment.Populations {
		if p.Size() == 0 {
			continue
		}
		values := p.RawFitnesses()
		if s.Mode == Minimize {
			if MinFloat(values) <= t.Target {
				return true
			}
		} else if MaxFloat(values) >= t.Target {
			return true
		}
	}
	return false
}

// FitnessStagnationTerminator completes when the aggregate fitness of the
// best population has not improved for MaxStagnation generations.
type FitnessStagnationTerminator struct {
	MaxStagnation int
	FitnessFunc   func([]float64) float64

	best         float64
	lastImproved int
	lastSeen     int
	started      bool
}

// NewFitnessStagnationTerminator looks funcName up in StatFunctions.
func NewFitnessStagnationTerminator(maxStagnation int, funcName string) (*FitnessStagnationTerminator, error) {
	fn, ok := StatFunctions[funcName]
	if !ok {
		return nil, fmt.Errorf("%w: invalid stagnation_func %q", ErrInvalidConfig, funcName)
	}
	if maxStagnation <= 0 {
		return nil, fmt.Errorf("%w: max_stagnation must be positive", ErrInvalidConfig)
	}
	return &FitnessStagnationTerminator{MaxStagnation: maxStagnation, FitnessFunc: fn}, nil
}

// IsComplete updates the improvement history once per generation.
func (t *FitnessStagnationTerminator) IsComplete(s RunStatus) bool {
	if s.Environment == nil {
		return false
	}
	if !t.started || s.Generation != t.lastSeen {
		t.observe(s)
	}
	return s.Generation-t.lastImproved >= t.MaxStagnation
}

func (t *FitnessStagnationTerminator) observe(s RunStatus) {
	current := math.Inf(-1)
	if s.Mode == Minimize {
		current = math.Inf(1)
	}
	for _, p := range s.Environment.Populations {
		if p.Size() == 0 {
			continue
		}
		v := t.FitnessFunc(p.RawFitnesses())
		if (s.Mode == Minimize && v < current) || (s.Mode != Minimize && v > current) {
			current = v
		}
	}

	improved := !t.started ||
		(s.Mode == Minimize && current < t.best) ||
		(s.Mode != Minimize && current > t.best)
	if improved {
		t.best = current
		t.lastImproved = s.Generation
	}
	t.lastSeen = s.Generation
	t.started = true
}

type stagnationState struct {
	Best         float64
	LastImproved int
	LastSeen     int
	Started      bool
}

// MarshalState encodes the improvement history.
func (t *FitnessStagnationTerminator) MarshalState() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(stagnationState{
		Best:         t.best,
		LastImproved: t.lastImproved,
		LastSeen:     t.lastSeen,
		Started:      t.started,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode stagnation state: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalState replaces the improvement history with one written by
// MarshalState.
func (t *FitnessStagnationTerminator) UnmarshalState(data []byte) error {
	var st stagnationState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("failed to decode stagnation state: %w", err)
	}
	t.best, t.lastImproved, t.lastSeen, t.started = st.Best, st.LastImproved, st.LastSeen, st.Started
	return nil
}
