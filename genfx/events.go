package genfx

import "sync/atomic"

// GenerationEvent is raised after a new generation has been reproduced and
// before its fitness is evaluated.
type GenerationEvent struct {
	RunID       string
	Generation  int
	Environment *Environment
}

// FitnessEvaluatedEvent is raised once a generation has been evaluated,
// scaled and recorded. Listeners may ask the run to stop.
type FitnessEvaluatedEvent struct {
	RunID       string
	Generation  int
	Environment *Environment
	Statistics  *StatisticsRecorder

	cancel *atomic.Bool
}

// Cancel requests that Run stop before the next step.
func (e *FitnessEvaluatedEvent) Cancel() {
	if e.cancel != nil {
		e.cancel.Store(true)
	}
}

// CompletedEvent is raised once when the terminator reports completion.
type CompletedEvent struct {
	RunID       string
	Generation  int
	Environment *Environment
	Best        Entity
}

// Plugin receives engine lifecycle notifications. Callbacks run on the
// goroutine driving the engine. They may use the engine's accessors and
// SaveState, but must not call Initialize, Step, Run or RestoreState.
type Plugin interface {
	OnAlgorithmStarting(runID string)
	OnGenerationCreated(e *GenerationEvent)
	OnFitnessEvaluated(e *FitnessEvaluatedEvent)
	OnAlgorithmCompleted(e *CompletedEvent)
}

// PluginFuncs implements Plugin with optional callbacks.
type PluginFuncs struct {
	Starting          func(runID string)
	GenerationCreated func(e *GenerationEvent)
	FitnessEvaluated  func(e *FitnessEvaluatedEvent)
	Completed         func(e *CompletedEvent)
}

func (p PluginFuncs) OnAlgorithmStarting(runID string) {
	if p.Starting != nil {
		p.Starting(runID)
	}
}

func (p PluginFuncs) OnGenerationCreated(e *GenerationEvent) {
	if p.GenerationCreated != nil {
		p.GenerationCreated(e)
	}
}

func (p PluginFuncs) OnFitnessEvaluated(e *FitnessEvaluatedEvent) {
	if p.FitnessEvaluated != nil {
		p.FitnessEvaluated(e)
	}
}

func (p PluginFuncs) OnAlgorithmCompleted(e *CompletedEvent) {
	if p.Completed != nil {
		p.Completed(e)
	}
}
