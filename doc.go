// Package genfx provides a generic generational evolutionary algorithm engine.
//
// The engine evolves one or more populations of candidate solutions
// ("entities") by applying pluggable selection, crossover, mutation,
// elitism and fitness scaling strategies, recording statistics for every
// generation. Representations and fitness functions are supplied by the
// caller; the genfx/lists package provides integer and bit lists.
//
// Basic usage:
//
//	// Load configuration
//	config, err := genfx.LoadConfig("path/to/config.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Build the configured strategies around a representation
//	comps, err := config.Components(
//		lists.BitSeed(64),
//		genfx.FitnessEvaluatorFunc(lists.Sum),
//		&lists.MultiPointCrossover{Points: 2},
//		&lists.UniformMutation{MinValue: 0, MaxValue: 1},
//	)
//	if err != nil {
//		log.Fatalf("Error building components: %v", err)
//	}
//
//	// Run until the configured terminator completes
//	engine := genfx.NewEngine(config, comps)
//	if err := engine.Run(ctx); err != nil {
//		log.Fatalf("Run failed: %v", err)
//	}
//	fmt.Println("Best:", engine.Best())
package genfx
