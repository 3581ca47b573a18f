package genfx

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestParseConfig_OverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[Algorithm]
environment_size = 3
fitness_evaluation_mode = Minimize ; lower is better

[Selection]
type = Proportionate
fitness_type = raw

[Terminator]
type = stagnation
max_stagnation = 4
stagnation_func = max
`))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Algorithm.EnvironmentSize)
	assert.Equal(t, 100, cfg.Algorithm.MinimumPopulationSize, "absent keys keep their defaults")
	assert.Equal(t, Minimize, cfg.Algorithm.EvaluationMode())
	assert.Equal(t, "proportionate", cfg.Selection.Type)
	assert.Equal(t, 0.8, cfg.Crossover.CrossoverRate)

	sel, err := cfg.BuildSelection()
	require.NoError(t, err)
	assert.Equal(t, &FitnessProportionateSelection{FitnessType: FitnessTypeRaw, Mode: Minimize}, sel)

	term, err := cfg.BuildTerminator()
	require.NoError(t, err)
	require.IsType(t, AnyTerminator{}, term, "max_generations caps a stagnation run")
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ini  string
		tag  string
	}{
		{"rate above one", "[Crossover]\ncrossover_rate = 1.5", "lte"},
		{"pmx with three points", "[Crossover]\npartially_matched = true\ncrossover_points = 3", "pmx_max_points"},
		{"unknown selection", "[Selection]\ntype = roulette", "oneof"},
		{"empty environment", "[Algorithm]\nenvironment_size = 0", "gte"},
		{"generations without limit", "[Terminator]\ntype = generations\nmax_generations = 0", "required_for_generations"},
		{"unknown mode", "[Algorithm]\nfitness_evaluation_mode = sideways", "oneof"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.ini))
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.tag)
		})
	}
}

func TestParseConfig_PartiallyMatchedTwoPoints(t *testing.T) {
	cfg, err := ParseConfig([]byte("[Crossover]\npartially_matched = true\ncrossover_points = 2"))
	require.NoError(t, err)
	assert.True(t, cfg.Crossover.PartiallyMatched)
}

func TestConfig_WriteToRoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.Algorithm.RandomSeed = 1234
	want.Scaling.Type = "sigma"
	want.Terminator.FitnessTarget = 12.5

	var buf bytes.Buffer
	_, err := want.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[Algorithm]")

	got, err := ParseConfig(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ini")
	require.NoError(t, os.WriteFile(path, []byte("[Mutation]\nmutation_rate = 0.2\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Mutation.MutationRate)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestLoadConfig_OneMaxExample(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "examples", "onemax", "configs", "onemax.ini"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Algorithm.EnvironmentSize)
	assert.Equal(t, uint64(42), cfg.Algorithm.RandomSeed)
}

func TestConfig_Builders(t *testing.T) {
	cfg := DefaultConfig()

	scaling, err := cfg.BuildScaling()
	require.NoError(t, err)
	assert.Nil(t, scaling)
	cfg.Scaling.Type = "sigma"
	scaling, err = cfg.BuildScaling()
	require.NoError(t, err)
	assert.Equal(t, &SigmaScaling{Multiplier: 2, Mode: Maximize}, scaling)

	cfg.Elitism.ElitistRatio = 0
	elite, err := cfg.BuildElitism()
	require.NoError(t, err)
	assert.Nil(t, elite)

	cfg.Terminator.Type = "fitness_target"
	cfg.Terminator.MaxGenerations = 0
	term, err := cfg.BuildTerminator()
	require.NoError(t, err)
	assert.IsType(t, &FitnessTargetTerminator{}, term)

	cfg.Algorithm.Reproduction = "steady_state"
	repro, err := cfg.BuildReproduction()
	require.NoError(t, err)
	assert.IsType(t, &SteadyStateReproduction{}, repro)

	assert.Nil(t, cfg.BuildCrossover(nil))
	assert.Nil(t, cfg.BuildMutation(nil))
}

func TestConfig_Components(t *testing.T) {
	cfg := DefaultConfig()
	comps, err := cfg.Components(bitSeed(4), FitnessEvaluatorFunc(sumGenes), halfSwap{}, nil)
	require.NoError(t, err)

	assert.NotNil(t, comps.Selection)
	assert.Equal(t, 2, comps.Crossover.RequiredParentCount())
	assert.Nil(t, comps.Mutation)
	assert.IsType(t, NeverTerminator{}, comps.Terminator)

	cfg.Mutation.MutationRate = -1
	_, err = cfg.Components(bitSeed(4), FitnessEvaluatorFunc(sumGenes), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseModes(t *testing.T) {
	m, err := ParseEvaluationMode("MIN")
	require.NoError(t, err)
	assert.Equal(t, Minimize, m)
	_, err = ParseEvaluationMode("up")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	ft, err := ParseFitnessType("")
	require.NoError(t, err)
	assert.Equal(t, FitnessTypeScaled, ft)
	_, err = ParseFitnessType("adjusted")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
