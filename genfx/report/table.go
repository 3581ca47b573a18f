// Package report renders genfx run progress as text tables.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mthalman/genfx/genfx"
)

// TablePlugin writes a per-population fitness table every Every
// generations, and a final table with the best entity on completion.
type TablePlugin struct {
	W     io.Writer
	Every int // Values below 1 report every generation.
}

// NewTablePlugin creates a plugin writing to w.
func NewTablePlugin(w io.Writer, every int) *TablePlugin {
	return &TablePlugin{W: w, Every: every}
}

func (p *TablePlugin) OnAlgorithmStarting(runID string) {
	fmt.Fprintf(p.W, "Run %s starting\n", runID)
}

func (p *TablePlugin) OnGenerationCreated(*genfx.GenerationEvent) {}

func (p *TablePlugin) OnFitnessEvaluated(e *genfx.FitnessEvaluatedEvent) {
	if p.Every > 1 && e.Generation%p.Every != 0 {
		return
	}
	WriteGeneration(p.W, e.Generation, e.Environment)
}

func (p *TablePlugin) OnAlgorithmCompleted(e *genfx.CompletedEvent) {
	WriteGeneration(p.W, e.Generation, e.Environment)
	if e.Best != nil {
		t := table.NewWriter()
		t.SetOutputMirror(p.W)
		t.SetTitle("Best Entity")
		t.AppendHeader(table.Row{"RAW", "SCALED", "AGE", "ENTITY"})
		b := e.Best.Base()
		t.AppendRow(table.Row{fmt.Sprintf("%.4f", b.RawFitness), fmt.Sprintf("%.4f", b.ScaledFitness), b.Age, e.Best.String()})
		t.Render()
	}
}

// WriteGeneration renders one row of fitness aggregates per population.
func WriteGeneration(w io.Writer, generation int, env *genfx.Environment) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Generation %d", generation))
	t.AppendHeader(table.Row{"POPULATION", "SIZE", "MIN", "MAX", "MEAN", "STDDEV"})
	for _, pop := range env.Populations {
		if !pop.Stats.Valid {
			t.AppendRow(table.Row{pop.Index, pop.Size(), "", "", "", ""})
			continue
		}
		s := pop.Stats
		t.AppendRow(table.Row{
			pop.Index,
			pop.Size(),
			fmt.Sprintf("%.4f", s.RawMin),
			fmt.Sprintf("%.4f", s.RawMax),
			fmt.Sprintf("%.4f", s.RawMean),
			fmt.Sprintf("%.4f", s.RawStdDev),
		})
	}
	t.Render()
}

// WriteHistory renders every recorded value of one statistic for one
// population.
func WriteHistory(w io.Writer, stats *genfx.StatisticsRecorder, name string, population int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s (population %d)", name, population))
	t.AppendHeader(table.Row{"GENERATION", "VALUE"})
	for _, r := range stats.History(name, population) {
		v := r.Value
		if f, ok := v.(float64); ok {
			v = fmt.Sprintf("%.4f", f)
		}
		t.AppendRow(table.Row{r.GenerationIndex, v})
	}
	t.Render()
}
