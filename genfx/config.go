package genfx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/ini.v1"
)

// Config stores every parameter of a run, one section per operator slot.
type Config struct {
	Algorithm  AlgorithmConfig
	Selection  SelectionConfig
	Crossover  CrossoverConfig
	Mutation   MutationConfig
	Elitism    ElitismConfig
	Scaling    ScalingConfig
	Terminator TerminatorConfig
}

// AlgorithmConfig holds parameters of the engine itself.
type AlgorithmConfig struct {
	EnvironmentSize       int     `ini:"environment_size" validate:"gte=1"`
	MinimumPopulationSize int     `ini:"minimum_population_size" validate:"gte=1"`
	FitnessEvaluationMode string  `ini:"fitness_evaluation_mode" validate:"oneof=maximize minimize"`
	Parallelism           int     `ini:"parallelism" validate:"gte=0"` // 0 means GOMAXPROCS
	RandomSeed            uint64  `ini:"random_seed"`                  // 0 picks a seed from the clock
	Reproduction          string  `ini:"reproduction" validate:"oneof=simple steady_state"`
	ReplacementRatio      float64 `ini:"replacement_ratio" validate:"gte=0,lte=1"` // steady_state only
}

// EvaluationMode parses FitnessEvaluationMode, defaulting to Maximize.
func (c *AlgorithmConfig) EvaluationMode() EvaluationMode {
	m, _ := ParseEvaluationMode(c.FitnessEvaluationMode)
	return m
}

// SelectionConfig holds parameters of the selection operator.
type SelectionConfig struct {
	Type           string `ini:"type" validate:"oneof=proportionate tournament uniform"`
	FitnessType    string `ini:"fitness_type" validate:"oneof=scaled raw"`
	TournamentSize int    `ini:"tournament_size" validate:"gte=1"`
}

// CrossoverConfig holds parameters of the crossover operator.
type CrossoverConfig struct {
	CrossoverRate    float64 `ini:"crossover_rate" validate:"gte=0,lte=1"`
	CrossoverPoints  int     `ini:"crossover_points" validate:"gte=1"`
	PartiallyMatched bool    `ini:"partially_matched"` // Requires unique elements and at most 2 points.
}

// MutationConfig holds parameters of the mutation operator.
type MutationConfig struct {
	MutationRate float64 `ini:"mutation_rate" validate:"gte=0,lte=1"`
}

// ElitismConfig holds parameters of the elitism strategy.
type ElitismConfig struct {
	ElitistRatio float64 `ini:"elitist_ratio" validate:"gte=0,lte=1"`
	FitnessType  string  `ini:"fitness_type" validate:"oneof=scaled raw"`
}

// ScalingConfig holds parameters of the fitness scaling strategy.
type ScalingConfig struct {
	Type            string  `ini:"type" validate:"oneof=none rank sigma linear"`
	SigmaMultiplier float64 `ini:"sigma_multiplier" validate:"gt=0"`
	Offset          float64 `ini:"offset"`
}

// TerminatorConfig holds parameters of the terminator.
type TerminatorConfig struct {
	Type           string  `ini:"type" validate:"oneof=never generations fitness_target stagnation"`
	MaxGenerations int     `ini:"max_generations" validate:"gte=0"`
	FitnessTarget  float64 `ini:"fitness_target"`
	MaxStagnation  int     `ini:"max_stagnation" validate:"gte=0"`
	StagnationFunc string  `ini:"stagnation_func" validate:"oneof=mean stdev sum max min median"`
}

// DefaultConfig returns a valid configuration for a single population of 100.
func DefaultConfig() *Config {
	return &Config{
		Algorithm: AlgorithmConfig{
			EnvironmentSize:       1,
			MinimumPopulationSize: 100,
			FitnessEvaluationMode: "maximize",
			Reproduction:          "simple",
			ReplacementRatio:      0.5,
		},
		Selection: SelectionConfig{
			Type:           "tournament",
			FitnessType:    "scaled",
			TournamentSize: 2,
		},
		Crossover: CrossoverConfig{
			CrossoverRate:   0.8,
			CrossoverPoints: 1,
		},
		Mutation: MutationConfig{MutationRate: 0.01},
		Elitism: ElitismConfig{
			ElitistRatio: 0.05,
			FitnessType:  "scaled",
		},
		Scaling: ScalingConfig{
			Type:            "none",
			SigmaMultiplier: 2,
		},
		Terminator: TerminatorConfig{
			Type:           "never",
			MaxGenerations: 100,
			MaxStagnation:  15,
			StagnationFunc: "mean",
		},
	}
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New(validator.WithRequiredStructEnabled())
	configValidate.RegisterStructValidation(validateCrossoverConfig, CrossoverConfig{})
	configValidate.RegisterStructValidation(validateTerminatorConfig, TerminatorConfig{})
}

// Partially matched repair only understands one swapped region.
func validateCrossoverConfig(sl validator.StructLevel) {
	c := sl.Current().Interface().(CrossoverConfig)
	if c.PartiallyMatched && c.CrossoverPoints > 2 {
		sl.ReportError(c.CrossoverPoints, "CrossoverPoints", "crossover_points", "pmx_max_points", "2")
	}
}

func validateTerminatorConfig(sl validator.StructLevel) {
	c := sl.Current().Interface().(TerminatorConfig)
	switch c.Type {
	case "generations":
		if c.MaxGenerations < 1 {
			sl.ReportError(c.MaxGenerations, "MaxGenerations", "max_generations", "required_for_generations", "")
		}
	case "stagnation":
		if c.MaxStagnation < 1 {
			sl.ReportError(c.MaxStagnation, "MaxStagnation", "max_stagnation", "required_for_stagnation", "")
		}
	}
}

// Validate checks every section. Failures wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// configSections ties each INI section name to the struct it maps onto.
func (c *Config) configSections() []struct {
	name string
	dst  any
} {
	return []struct {
		name string
		dst  any
	}{
		{"Algorithm", &c.Algorithm},
		{"Selection", &c.Selection},
		{"Crossover", &c.Crossover},
		{"Mutation", &c.Mutation},
		{"Elitism", &c.Elitism},
		{"Scaling", &c.Scaling},
		{"Terminator", &c.Terminator},
	}
}

// LoadConfig loads configuration parameters from an INI file. Keys that are
// absent keep their DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	return loadConfig(filePath, filePath)
}

// ParseConfig reads an INI document from memory.
func ParseConfig(data []byte) (*Config, error) {
	return loadConfig("<memory>", data)
}

func loadConfig(name string, source any) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", name, err)
	}

	config := DefaultConfig()
	for _, s := range config.configSections() {
		if err := f.Section(s.name).MapTo(s.dst); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	config.Algorithm.FitnessEvaluationMode = cleanIniString(config.Algorithm.FitnessEvaluationMode)
	config.Algorithm.Reproduction = cleanIniString(config.Algorithm.Reproduction)
	config.Selection.Type = cleanIniString(config.Selection.Type)
	config.Selection.FitnessType = cleanIniString(config.Selection.FitnessType)
	config.Elitism.FitnessType = cleanIniString(config.Elitism.FitnessType)
	config.Scaling.Type = cleanIniString(config.Scaling.Type)
	config.Terminator.Type = cleanIniString(config.Terminator.Type)
	config.Terminator.StagnationFunc = cleanIniString(config.Terminator.StagnationFunc)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", name, err)
	}
	return config, nil
}

// WriteTo writes the configuration as an INI document.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	f := ini.Empty()
	for _, s := range c.configSections() {
		if err := f.Section(s.name).ReflectFrom(s.dst); err != nil {
			return 0, fmt.Errorf("failed to reflect [%s] section: %w", s.name, err)
		}
	}
	return f.WriteTo(w)
}

// cleanIniString removes inline comments, trims whitespace and lower-cases
// an enumerated value read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// BuildSelection returns the configured selection operator.
func (c *Config) BuildSelection() (SelectionOperator, error) {
	ft, err := ParseFitnessType(c.Selection.FitnessType)
	if err != nil {
		return nil, err
	}
	mode := c.Algorithm.EvaluationMode()
	switch c.Selection.Type {
	case "proportionate":
		return &FitnessProportionateSelection{FitnessType: ft, Mode: mode}, nil
	case "tournament":
		return &TournamentSelection{TournamentSize: c.Selection.TournamentSize, FitnessType: ft, Mode: mode}, nil
	case "uniform":
		return UniformSelection{}, nil
	}
	return nil, fmt.Errorf("%w: unknown selection type %q", ErrInvalidConfig, c.Selection.Type)
}

// BuildCrossover wraps a representation's recombiner with the configured
// rate. A nil recombiner disables crossover.
func (c *Config) BuildCrossover(r Recombiner) CrossoverOperator {
	if r == nil {
		return nil
	}
	return NewRateCrossover(c.Crossover.CrossoverRate, r)
}

// BuildMutation wraps a representation's mutator with the configured rate.
// A nil mutator disables mutation.
func (c *Config) BuildMutation(m Mutator) MutationOperator {
	if m == nil {
		return nil
	}
	return NewRateMutation(c.Mutation.MutationRate, m)
}

// BuildElitism returns the configured elitism strategy, or nil when the
// ratio is zero.
func (c *Config) BuildElitism() (ElitismStrategy, error) {
	if c.Elitism.ElitistRatio == 0 {
		return nil, nil
	}
	ft, err := ParseFitnessType(c.Elitism.FitnessType)
	if err != nil {
		return nil, err
	}
	return &RatioElitism{Ratio: c.Elitism.ElitistRatio, FitnessType: ft, Mode: c.Algorithm.EvaluationMode()}, nil
}

// BuildScaling returns the configured scaling strategy, or nil for "none".
func (c *Config) BuildScaling() (FitnessScalingStrategy, error) {
	switch c.Scaling.Type {
	case "", "none":
		return nil, nil
	case "rank":
		return RankScaling{}, nil
	case "sigma":
		return &SigmaScaling{Multiplier: c.Scaling.SigmaMultiplier, Mode: c.Algorithm.EvaluationMode()}, nil
	case "linear":
		return &LinearScaling{Offset: c.Scaling.Offset}, nil
	}
	return nil, fmt.Errorf("%w: unknown scaling type %q", ErrInvalidConfig, c.Scaling.Type)
}

// BuildTerminator returns the configured terminator.
func (c *Config) BuildTerminator() (Terminator, error) {
	t := c.Terminator
	switch t.Type {
	case "", "never":
		return NeverTerminator{}, nil
	case "generations":
		return &GenerationTerminator{MaxGenerations: t.MaxGenerations}, nil
	case "fitness_target":
		return capGenerations(&FitnessTargetTerminator{Target: t.FitnessTarget}, t.MaxGenerations), nil
	case "stagnation":
		st, err := NewFitnessStagnationTerminator(t.MaxStagnation, t.StagnationFunc)
		if err != nil {
			return nil, err
		}
		return capGenerations(st, t.MaxGenerations), nil
	}
	return nil, fmt.Errorf("%w: unknown terminator type %q", ErrInvalidConfig, t.Type)
}

// capGenerations bounds a condition-based terminator by max_generations
// when it is set.
func capGenerations(t Terminator, maxGenerations int) Terminator {
	if maxGenerations <= 0 {
		return t
	}
	return AnyTerminator{t, &GenerationTerminator{MaxGenerations: maxGenerations}}
}

// BuildReproduction returns the configured reproduction strategy.
func (c *Config) BuildReproduction() (ReproductionStrategy, error) {
	switch c.Algorithm.Reproduction {
	case "", "simple":
		return SimpleReproduction{}, nil
	case "steady_state":
		ft, err := ParseFitnessType(c.Elitism.FitnessType)
		if err != nil {
			return nil, err
		}
		return &SteadyStateReproduction{
			ReplacementRatio: c.Algorithm.ReplacementRatio,
			FitnessType:      ft,
			Mode:             c.Algorithm.EvaluationMode(),
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown reproduction %q", ErrInvalidConfig, c.Algorithm.Reproduction)
}

// Components builds every configured strategy around the caller's
// representation-specific pieces. recombiner and mutator may be nil.
func (c *Config) Components(seed EntityFactory, evaluator FitnessEvaluator, recombiner Recombiner, mutator Mutator) (Components, error) {
	if err := c.Validate(); err != nil {
		return Components{}, err
	}
	sel, err := c.BuildSelection()
	if err != nil {
		return Components{}, err
	}
	elite, err := c.BuildElitism()
	if err != nil {
		return Components{}, err
	}
	scaling, err := c.BuildScaling()
	if err != nil {
		return Components{}, err
	}
	term, err := c.BuildTerminator()
	if err != nil {
		return Components{}, err
	}
	repro, err := c.BuildReproduction()
	if err != nil {
		return Components{}, err
	}
	return Components{
		EntitySeed:   seed,
		Evaluator:    evaluator,
		Selection:    sel,
		Crossover:    c.BuildCrossover(recombiner),
		Mutation:     c.BuildMutation(mutator),
		Elitism:      elite,
		Scaling:      scaling,
		Terminator:   term,
		Reproduction: repro,
	}, nil
}
