package genfx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/mthalman/genfx/genfx"

// Status is the lifecycle state of an Engine.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitialized
	StatusRunning
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	}
	return "uninitialized"
}

// Components are the strategies an Engine orchestrates. EntitySeed,
// Evaluator and Selection are required; everything else is optional.
type Components struct {
	EntitySeed   EntityFactory
	Evaluator    FitnessEvaluator
	Selection    SelectionOperator
	Crossover    CrossoverOperator
	Mutation     MutationOperator
	Elitism      ElitismStrategy
	Scaling      FitnessScalingStrategy
	Terminator   Terminator           // Defaults to NeverTerminator.
	Reproduction ReproductionStrategy // Defaults to SimpleReproduction.
	Statistics   []Statistic          // Defaults to DefaultStatistics when nil.
	Plugins      []Plugin
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracerProvider sets where step and evaluation spans are sent. The
// global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// Engine runs a generational evolutionary algorithm over an Environment.
//
// Step, Run, Initialize and RestoreState must be driven from one goroutine
// at a time; they serialize on an internal lock. The accessor methods and
// SaveState are safe to call concurrently. A committed generation is never
// modified: a step works on copies and replaces the environment, the random
// source and the terminator state together.
type Engine struct {
	cfg    *Config
	comps  Components
	logger *slog.Logger
	tracer trace.Tracer
	runID  string

	drive sync.Mutex // serializes Initialize, Step, Run and RestoreState

	mu         sync.RWMutex
	status     Status
	generation int
	env        *Environment
	stats      *StatisticsRecorder
	pcg        *rand.PCG
	termState  []byte // Terminator state as of the committed generation.

	started bool
	stop    atomic.Bool
}

// NewEngine creates an engine. Configuration and components are validated
// by Initialize.
func NewEngine(cfg *Config, comps Components, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		comps:  comps,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunID identifies this run in logs, events and saved state.
func (e *Engine) RunID() string { return e.runID }

// Config returns the configuration the engine was created with.
func (e *Engine) Config() *Config { return e.cfg }

func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Generation returns the index of the current generation; 0 after Initialize.
func (e *Engine) Generation() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Environment returns the current, fully evaluated environment, or nil
// before Initialize.
func (e *Engine) Environment() *Environment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.env
}

// Statistics returns the recorder holding every statistic history.
func (e *Engine) Statistics() *StatisticsRecorder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// Best returns the entity with the best raw fitness across all populations.
func (e *Engine) Best() Entity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bestLocked()
}

func (e *Engine) bestLocked() Entity {
	if e.env == nil {
		return nil
	}
	mode := e.cfg.Algorithm.EvaluationMode()
	var best Entity
	for _, p := range e.env.Populations {
		b := p.Best(FitnessTypeRaw, mode)
		if b != nil && (best == nil || CompareFitness(b, best, FitnessTypeRaw, mode) > 0) {
			best = b
		}
	}
	return best
}

// RequestStop asks Run to return before its next step.
func (e *Engine) RequestStop() { e.stop.Store(true) }

func (e *Engine) checkComponents() error {
	var missing []error
	if e.comps.EntitySeed == nil {
		missing = append(missing, fmt.Errorf("%w: entity seed", ErrMissingComponent))
	}
	if e.comps.Evaluator == nil {
		missing = append(missing, fmt.Errorf("%w: fitness evaluator", ErrMissingComponent))
	}
	if e.comps.Selection == nil {
		missing = append(missing, fmt.Errorf("%w: selection operator", ErrMissingComponent))
	}
	return errors.Join(missing...)
}

// prepare validates configuration and components, fills in defaults and
// returns an empty statistics recorder.
func (e *Engine) prepare() (*StatisticsRecorder, error) {
	if e.cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := e.checkComponents(); err != nil {
		return nil, err
	}

	if e.comps.Terminator == nil {
		e.comps.Terminator = NeverTerminator{}
	}
	if e.comps.Reproduction == nil {
		e.comps.Reproduction = SimpleReproduction{}
	}
	if e.comps.Statistics == nil {
		e.comps.Statistics = DefaultStatistics(e.cfg.Algorithm.EvaluationMode())
	}
	return NewStatisticsRecorder(e.comps.Statistics...)
}

// Initialize validates the configuration, seeds every population to its
// minimum size and evaluates generation 0. On failure the engine stays
// uninitialized.
func (e *Engine) Initialize(ctx context.Context) error {
	e.drive.Lock()
	defer e.drive.Unlock()

	if e.Status() != StatusUninitialized {
		return ErrAlreadyInitialized
	}
	stats, err := e.prepare()
	if err != nil {
		return err
	}

	seed := e.cfg.Algorithm.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	rng := rand.New(pcg)
	termState, err := e.terminatorState()
	if err != nil {
		return err
	}

	alg := e.cfg.Algorithm
	env := NewEnvironment(alg.EnvironmentSize)
	for _, p := range env.Populations {
		for p.Size() < alg.MinimumPopulationSize {
			ent, err := e.comps.EntitySeed.NewEntity(rng)
			if err != nil {
				return fmt.Errorf("seed population %d: %w", p.Index, err)
			}
			p.Add(ent)
		}
	}

	results, err := e.evaluate(ctx, 0, env, stats)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	e.mu.Lock()
	e.env = env
	e.stats = stats
	e.generation = 0
	e.status = StatusInitialized
	e.pcg = pcg
	e.termState = termState
	stats.Append(results)
	e.mu.Unlock()

	e.logger.Info("algorithm initialized",
		slog.String("run_id", e.runID),
		slog.Int("populations", env.Size()),
		slog.Int("population_size", alg.MinimumPopulationSize),
		slog.Uint64("seed", seed),
	)
	return nil
}

// evaluate computes raw fitness for every entity of env concurrently, then
// scales and aggregates each population and computes its statistics. Nothing
// is recorded; the caller appends the returned results on commit.
func (e *Engine) evaluate(ctx context.Context, generation int, env *Environment, stats *StatisticsRecorder) ([][]MetricResult, error) {
	ctx, span := e.tracer.Start(ctx, "genfx.Evaluate", trace.WithAttributes(
		attribute.Int("genfx.generation", generation),
		attribute.Int("genfx.entities", env.EntityCount()),
	))
	defer span.End()

	limit := e.cfg.Algorithm.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	// Evaluation is never preempted; cancellation is observed between steps.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(limit)
	for _, p := range env.Populations {
		for _, ent := range p.Entities {
			g.Go(func() error {
				v, err := e.comps.Evaluator.Evaluate(gctx, ent)
				if err != nil {
					return fmt.Errorf("evaluate population %d: %w", p.Index, err)
				}
				b := ent.Base()
				b.RawFitness = v
				b.ScaledFitness = v
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, p := range env.Populations {
		if e.comps.Scaling != nil {
			if err := e.comps.Scaling.Scale(p); err != nil {
				return nil, fmt.Errorf("scale population %d: %w", p.Index, err)
			}
		}
		if err := p.UpdateStats(); err != nil {
			return nil, err
		}
	}
	return stats.Compute(generation, env)
}

// agedCopy clones every entity of env with its age advanced by one
// generation.
func agedCopy(env *Environment) *Environment {
	work := &Environment{Populations: make([]*Population, env.Size())}
	for i, p := range env.Populations {
		wp := &Population{Index: p.Index, Entities: make([]Entity, len(p.Entities)), Stats: p.Stats}
		for j, ent := range p.Entities {
			c := ent.Clone()
			c.Base().Age++
			wp.Entities[j] = c
		}
		work.Populations[i] = wp
	}
	return work
}

// terminatorState encodes the terminator's state, or returns nil for a
// terminator that keeps none.
func (e *Engine) terminatorState() ([]byte, error) {
	st, ok := e.comps.Terminator.(StatefulTerminator)
	if !ok {
		return nil, nil
	}
	data, err := st.MarshalState()
	if err != nil {
		return nil, fmt.Errorf("snapshot terminator: %w", err)
	}
	return data, nil
}

// Step advances every population by one generation.
//
// If any operator or the evaluator fails, the previous generation stays in
// place with its ages and fitness values unchanged, and Step can be retried.
func (e *Engine) Step(ctx context.Context) error {
	e.drive.Lock()
	defer e.drive.Unlock()
	return e.step(ctx)
}

func (e *Engine) step(ctx context.Context) (err error) {
	switch e.Status() {
	case StatusUninitialized:
		return ErrNotInitialized
	case StatusCompleted:
		return ErrAlgorithmCompleted
	}

	e.mu.RLock()
	env, generation, stats, termState := e.env, e.generation, e.stats, e.termState
	rngState, err := e.pcg.MarshalBinary()
	e.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("snapshot random source: %w", err)
	}

	if !e.started {
		e.started = true
		for _, pl := range e.comps.Plugins {
			pl.OnAlgorithmStarting(e.runID)
		}
	}

	if e.comps.Terminator.IsComplete(e.runStatus(generation, env)) {
		e.complete(generation, env)
		return nil
	}

	ctx, span := e.tracer.Start(ctx, "genfx.Step", trace.WithAttributes(
		attribute.String("genfx.run_id", e.runID),
		attribute.Int("genfx.generation", generation+1),
	))
	defer span.End()
	start := time.Now()

	defer func() {
		if err == nil {
			return
		}
		if st, ok := e.comps.Terminator.(StatefulTerminator); ok && termState != nil {
			if rerr := st.UnmarshalState(termState); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore terminator: %w", rerr))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("generation aborted",
			slog.String("run_id", e.runID),
			slog.Int("generation", generation+1),
			slog.String("error", err.Error()),
		)
	}()

	pcg := &rand.PCG{}
	if err := pcg.UnmarshalBinary(rngState); err != nil {
		return fmt.Errorf("copy random source: %w", err)
	}
	rng := rand.New(pcg)

	work := agedCopy(env)
	ops := Operators{
		Selection: e.comps.Selection,
		Crossover: e.comps.Crossover,
		Mutation:  e.comps.Mutation,
		Elitism:   e.comps.Elitism,
	}
	next := &Environment{Populations: make([]*Population, work.Size())}
	for i, p := range work.Populations {
		np, err := e.comps.Reproduction.CreateNextGeneration(p, ops, e.cfg.Algorithm.MinimumPopulationSize, rng)
		if err != nil {
			return fmt.Errorf("reproduce population %d: %w", p.Index, err)
		}
		next.Populations[i] = np
	}

	for _, pl := range e.comps.Plugins {
		pl.OnGenerationCreated(&GenerationEvent{RunID: e.runID, Generation: generation + 1, Environment: next})
	}

	results, err := e.evaluate(ctx, generation+1, next, stats)
	if err != nil {
		return err
	}

	done := e.comps.Terminator.IsComplete(e.runStatus(generation+1, next))
	nextTermState, err := e.terminatorState()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.env = next
	e.generation = generation + 1
	e.pcg = pcg
	e.termState = nextTermState
	stats.Append(results)
	e.mu.Unlock()

	for _, p := range next.Populations {
		e.logger.Info("generation evaluated",
			slog.String("run_id", e.runID),
			slog.Int("generation", generation+1),
			slog.Int("population", p.Index),
			slog.Float64("min", p.Stats.RawMin),
			slog.Float64("max", p.Stats.RawMax),
			slog.Float64("mean", p.Stats.RawMean),
			slog.Duration("elapsed", time.Since(start)),
		)
	}

	ev := &FitnessEvaluatedEvent{
		RunID:       e.runID,
		Generation:  generation + 1,
		Environment: next,
		Statistics:  stats,
		cancel:      &e.stop,
	}
	for _, pl := range e.comps.Plugins {
		pl.OnFitnessEvaluated(ev)
	}

	if done {
		e.complete(generation+1, next)
	}
	return nil
}

func (e *Engine) runStatus(generation int, env *Environment) RunStatus {
	return RunStatus{Generation: generation, Environment: env, Mode: e.cfg.Algorithm.EvaluationMode()}
}

func (e *Engine) complete(generation int, env *Environment) {
	e.mu.Lock()
	e.status = StatusCompleted
	best := e.bestLocked()
	e.mu.Unlock()

	e.logger.Info("algorithm completed",
		slog.String("run_id", e.runID),
		slog.Int("generation", generation),
	)
	ev := &CompletedEvent{RunID: e.runID, Generation: generation, Environment: env, Best: best}
	for _, pl := range e.comps.Plugins {
		pl.OnAlgorithmCompleted(ev)
	}
}

// Run initializes the engine if needed and steps until the terminator
// reports completion, ctx is cancelled, or a stop is requested. A stop
// request returns nil; cancellation returns ctx.Err(). Both are observed
// only between steps.
func (e *Engine) Run(ctx context.Context) error {
	if e.Status() == StatusUninitialized {
		if err := e.Initialize(ctx); err != nil {
			return err
		}
	}

	e.drive.Lock()
	defer e.drive.Unlock()

	e.setStatus(StatusInitialized, StatusRunning)
	defer e.setStatus(StatusRunning, StatusInitialized)

	for {
		if e.Status() == StatusCompleted {
			return nil
		}
		if err := ctx.Err(); err != nil {
			e.logger.Info("run cancelled", slog.String("run_id", e.runID), slog.Int("generation", e.Generation()))
			return err
		}
		if e.stop.Swap(false) {
			e.logger.Info("run stopped", slog.String("run_id", e.runID), slog.Int("generation", e.Generation()))
			return nil
		}
		if err := e.step(ctx); err != nil {
			return err
		}
	}
}

// setStatus moves from one status to another if the engine is in from.
func (e *Engine) setStatus(from, to Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == from {
		e.status = to
	}
}
