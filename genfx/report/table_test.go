package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mthalman/genfx/genfx"
	"github.com/mthalman/genfx/genfx/lists"
)

func environment(t *testing.T) *genfx.Environment {
	t.Helper()
	env := genfx.NewEnvironment(1)
	for _, v := range []float64{1, 3} {
		e := lists.New(int(v))
		e.RawFitness, e.ScaledFitness = v, v
		env.Populations[0].Add(e)
	}
	require.NoError(t, env.Populations[0].UpdateStats())
	return env
}

func TestWriteGeneration(t *testing.T) {
	var buf bytes.Buffer
	WriteGeneration(&buf, 7, environment(t))

	out := buf.String()
	assert.Contains(t, out, "Generation 7")
	assert.Contains(t, out, "POPULATION")
	assert.Contains(t, out, "2.0000")
	assert.Contains(t, out, "3.0000")
}

func TestTablePlugin_Every(t *testing.T) {
	var buf bytes.Buffer
	p := NewTablePlugin(&buf, 5)

	p.OnFitnessEvaluated(&genfx.FitnessEvaluatedEvent{Generation: 3, Environment: environment(t)})
	assert.Empty(t, buf.String())

	p.OnFitnessEvaluated(&genfx.FitnessEvaluatedEvent{Generation: 10, Environment: environment(t)})
	assert.Contains(t, buf.String(), "Generation 10")
}

func TestTablePlugin_Completed(t *testing.T) {
	var buf bytes.Buffer
	p := NewTablePlugin(&buf, 0)
	env := environment(t)

	p.OnAlgorithmStarting("abc")
	p.OnAlgorithmCompleted(&genfx.CompletedEvent{Generation: 2, Environment: env, Best: env.Populations[0].Entities[1]})

	out := buf.String()
	assert.Contains(t, out, "Run abc starting")
	assert.Contains(t, out, "Generation 2")
	assert.Contains(t, out, "Best Entity")
}

func TestWriteHistory(t *testing.T) {
	stats, err := genfx.NewStatisticsRecorder(genfx.MaxFitnessStatistic)
	require.NoError(t, err)
	require.NoError(t, stats.Record(0, environment(t)))

	var buf bytes.Buffer
	WriteHistory(&buf, stats, "max_fitness", 0)
	assert.Contains(t, buf.String(), "max_fitness (population 0)")
	assert.Contains(t, buf.String(), "3.0000")
}
