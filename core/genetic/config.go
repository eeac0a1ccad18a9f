package genetic

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/bookscan/core/selection"
)

// Config holds the generational loop parameters. Callers apply SetDefaults
// before overriding individual fields; the loop itself only validates.
type Config struct {
	PopulationSize int `json:"population_size"`
	// Generations caps the number of generations; 0 leaves only the time limit.
	Generations int `json:"generations"`
	// TimeLimitSeconds is the default wall-clock budget; negative disables it.
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	TournamentSize   int     `json:"tournament_size"`
	MutationProb     float64 `json:"mutation_prob"`
	CrossoverRate    float64 `json:"crossover_rate"`
	// SeedTweakFraction of the initial population is derived from the seed by
	// one to SeedTweakMax random tweaks.
	SeedTweakFraction float64 `json:"seed_tweak_fraction"`
	SeedTweakMax      int     `json:"seed_tweak_max"`
	ImmigrantFraction float64 `json:"immigrant_fraction"`
	ImmigrantGrowth   float64 `json:"immigrant_growth"`
	StagnationLimit   int     `json:"stagnation_limit"`
	// SteadyStateAfter is the share of the generation or time budget after
	// which succession switches to steady state.
	SteadyStateAfter float64           `json:"steady_state_after"`
	MutationSteps    int               `json:"mutation_steps"`
	Selection        selection.Weights `json:"selection"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PopulationSize == 0 {
		c.PopulationSize = 50
	}
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 60
	}
	if c.TournamentSize == 0 {
		c.TournamentSize = 10
	}
	if c.MutationProb == 0 {
		c.MutationProb = 1
	}
	if c.CrossoverRate == 0 {
		c.CrossoverRate = 1
	}
	if c.SeedTweakFraction == 0 {
		c.SeedTweakFraction = 0.5
	}
	if c.SeedTweakMax == 0 {
		c.SeedTweakMax = 5
	}
	if c.ImmigrantFraction == 0 {
		c.ImmigrantFraction = 0.05
	}
	if c.ImmigrantGrowth == 0 {
		c.ImmigrantGrowth = 1.5
	}
	if c.StagnationLimit == 0 {
		c.StagnationLimit = 5
	}
	if c.SteadyStateAfter == 0 {
		c.SteadyStateAfter = 0.8
	}
	if c.MutationSteps == 0 {
		c.MutationSteps = 1
	}
	if c.Selection.IsZero() {
		c.Selection = selection.DefaultWeights()
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.PopulationSize < 2 {
		errs = append(errs, fmt.Errorf("population_size must be at least 2, got %d", c.PopulationSize))
	}
	if c.Generations < 0 {
		errs = append(errs, errors.New("generations must not be negative"))
	}
	if c.Generations == 0 && c.TimeLimitSeconds < 0 {
		errs = append(errs, errors.New("either generations or time_limit_seconds must bound the run"))
	}
	if c.TournamentSize < 1 {
		errs = append(errs, errors.New("tournament_size must be positive"))
	}
	for name, v := range map[string]float64{
		"mutation_prob":       c.MutationProb,
		"crossover_rate":      c.CrossoverRate,
		"seed_tweak_fraction": c.SeedTweakFraction,
		"immigrant_fraction":  c.ImmigrantFraction,
		"steady_state_after":  c.SteadyStateAfter,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0,1], got %g", name, v))
		}
	}
	if c.SeedTweakMax < 1 {
		errs = append(errs, errors.New("seed_tweak_max must be positive"))
	}
	if c.ImmigrantGrowth < 1 {
		errs = append(errs, fmt.Errorf("immigrant_growth must be at least 1, got %g", c.ImmigrantGrowth))
	}
	if c.StagnationLimit < 1 {
		errs = append(errs, errors.New("stagnation_limit must be positive"))
	}
	if c.MutationSteps < 1 {
		errs = append(errs, errors.New("mutation_steps must be positive"))
	}
	if err := c.Selection.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TimeLimit returns the configured budget; negative means unbounded.
func (c Config) TimeLimit() time.Duration {
	if c.TimeLimitSeconds < 0 {
		return -1
	}
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}
