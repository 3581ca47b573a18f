package genfx

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
)

// State is a complete snapshot of an engine, sufficient to resume a run in
// another process. Entities are stored through the Entity interface, so
// their concrete types must be registered with gob.Register before a State
// is encoded or decoded.
type State struct {
	RunID       string
	Generation  int
	Status      Status
	Populations [][]Entity
	Histories   map[string][][]MetricResult
	RNG         []byte // Marshaled PCG state.
	Terminator  []byte // Set when the terminator is a StatefulTerminator.
}

// SaveState captures the last committed generation. The returned State
// shares no mutable data with the engine. It may be called from a plugin's
// OnFitnessEvaluated callback or from another goroutine while a step is in
// progress.
func (e *Engine) SaveState() (*State, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.status == StatusUninitialized {
		return nil, ErrNotInitialized
	}

	rngState, err := e.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal random state: %w", err)
	}

	st := &State{
		RunID:       e.runID,
		Generation:  e.generation,
		Status:      e.status,
		Populations: make([][]Entity, e.env.Size()),
		Histories:   e.stats.snapshot(),
		RNG:         rngState,
		Terminator:  slices.Clone(e.termState),
	}
	if st.Status == StatusRunning {
		st.Status = StatusInitialized
	}
	for i, p := range e.env.Populations {
		st.Populations[i] = make([]Entity, len(p.Entities))
		for j, ent := range p.Entities {
			st.Populations[i][j] = ent.Clone()
		}
	}
	return st, nil
}

// RestoreState replaces the engine's run with st. The configuration and
// components are validated as in Initialize. Any mismatch between st and
// the configuration fails with ErrStateMismatch and leaves the engine as it
// was.
func (e *Engine) RestoreState(st *State) error {
	e.drive.Lock()
	defer e.drive.Unlock()

	if st == nil {
		return fmt.Errorf("%w: nil state", ErrStateMismatch)
	}
	stats, err := e.prepare()
	if err != nil {
		return err
	}

	alg := e.cfg.Algorithm
	if len(st.Populations) != alg.EnvironmentSize {
		return fmt.Errorf("%w: state has %d populations, config expects %d",
			ErrStateMismatch, len(st.Populations), alg.EnvironmentSize)
	}
	if st.Generation < 0 {
		return fmt.Errorf("%w: negative generation %d", ErrStateMismatch, st.Generation)
	}
	if st.Status != StatusInitialized && st.Status != StatusCompleted {
		return fmt.Errorf("%w: cannot resume from status %s", ErrStateMismatch, st.Status)
	}

	env := NewEnvironment(alg.EnvironmentSize)
	for i, entities := range st.Populations {
		if len(entities) == 0 {
			return fmt.Errorf("%w: population %d is empty", ErrStateMismatch, i)
		}
		for j, ent := range entities {
			if ent == nil {
				return fmt.Errorf("%w: population %d entity %d is missing", ErrStateMismatch, i, j)
			}
			env.Populations[i].Add(ent.Clone())
		}
		if err := env.Populations[i].UpdateStats(); err != nil {
			return err
		}
	}

	if err := stats.restore(st.Histories); err != nil {
		return err
	}

	pcg := &rand.PCG{}
	if err := pcg.UnmarshalBinary(st.RNG); err != nil {
		return fmt.Errorf("%w: random state: %v", ErrStateMismatch, err)
	}

	// Last, since it modifies the terminator in place.
	if term, ok := e.comps.Terminator.(StatefulTerminator); ok && len(st.Terminator) > 0 {
		if err := term.UnmarshalState(st.Terminator); err != nil {
			return fmt.Errorf("%w: terminator state: %v", ErrStateMismatch, err)
		}
	}

	e.mu.Lock()
	if st.RunID != "" {
		e.runID = st.RunID
	}
	e.env = env
	e.stats = stats
	e.generation = st.Generation
	e.status = st.Status
	e.pcg = pcg
	e.termState = slices.Clone(st.Terminator)
	e.mu.Unlock()

	e.logger.Info("state restored",
		slog.String("run_id", e.runID),
		slog.Int("generation", st.Generation),
		slog.String("status", st.Status.String()),
	)
	return nil
}

// WriteState encodes st as gzip-compressed gob.
func WriteState(w io.Writer, st *State) error {
	gzWriter := gzip.NewWriter(w)
	if err := gob.NewEncoder(gzWriter).Encode(st); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush compressed state: %w", err)
	}
	return nil
}

// ReadState decodes a State written by WriteState.
func ReadState(r io.Reader) (*State, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gzip reader for checkpoint: %v", ErrStateMismatch, err)
	}
	defer gzReader.Close()

	st := &State{}
	if err := gob.NewDecoder(gzReader).Decode(st); err != nil {
		return nil, fmt.Errorf("%w: failed to decode state: %v", ErrStateMismatch, err)
	}
	return st, nil
}

// SaveCheckpoint writes the current state to filePath. The file is replaced
// atomically, so a crash never leaves a truncated checkpoint behind.
func (e *Engine) SaveCheckpoint(filePath string) error {
	st, err := e.SaveState()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteState(tmp, st); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move checkpoint into place: %w", err)
	}

	e.logger.Info("checkpoint saved",
		slog.String("path", filePath),
		slog.Int("generation", st.Generation),
	)
	return nil
}

// LoadCheckpoint restores the engine from a file written by SaveCheckpoint.
func (e *Engine) LoadCheckpoint(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	st, err := ReadState(file)
	if err != nil {
		return err
	}
	if err := e.RestoreState(st); err != nil {
		return fmt.Errorf("checkpoint '%s': %w", filePath, err)
	}
	return nil
}
