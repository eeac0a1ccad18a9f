// Package tuning searches genetic parameters by running the generational loop
// over parameter vectors. Each candidate is scored by a short inner search.
package tuning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kilianp07/bookscan/core/genetic"
	"github.com/kilianp07/bookscan/core/logger"
	"github.com/kilianp07/bookscan/core/model"
	"github.com/kilianp07/bookscan/core/selection"
	"github.com/kilianp07/bookscan/core/tweak"
)

// Config controls the outer and inner searches.
type Config struct {
	PopulationSize        int     `json:"population_size"`
	Generations           int     `json:"generations"`
	InnerPopulationSize   int     `json:"inner_population_size"`
	InnerGenerations      int     `json:"inner_generations"`
	InnerTimeLimitSeconds float64 `json:"inner_time_limit_seconds"`
	// MutationRate is the chance that each parameter receives gaussian noise.
	MutationRate float64 `json:"mutation_rate"`
	Bounds       Bounds  `json:"bounds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PopulationSize == 0 {
		c.PopulationSize = 5
	}
	if c.Generations == 0 {
		c.Generations = 5
	}
	if c.InnerPopulationSize == 0 {
		c.InnerPopulationSize = 20
	}
	if c.InnerGenerations == 0 {
		c.InnerGenerations = 20
	}
	if c.InnerTimeLimitSeconds == 0 {
		c.InnerTimeLimitSeconds = 5
	}
	if c.MutationRate == 0 {
		c.MutationRate = 0.3
	}
	if c.Bounds == (Bounds{}) {
		c.Bounds = DefaultBounds()
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.PopulationSize < 2 {
		errs = append(errs, errors.New("tuning population_size must be at least 2"))
	}
	if c.Generations < 1 {
		errs = append(errs, errors.New("tuning generations must be positive"))
	}
	if c.InnerPopulationSize < 2 || c.InnerGenerations < 1 {
		errs = append(errs, errors.New("inner search needs at least 2 members and 1 generation"))
	}
	if c.InnerTimeLimitSeconds < 0 {
		errs = append(errs, errors.New("inner_time_limit_seconds must not be negative"))
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		errs = append(errs, fmt.Errorf("mutation_rate must be in [0,1], got %g", c.MutationRate))
	}
	if err := c.Bounds.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Candidate is a parameter vector and the score of its inner search.
// Children of Recombine are not scored until they pass through Mutate.
type Candidate struct {
	Params Params
	Score  float64
	scored bool
}

// Fitness implements selection.Individual.
func (c *Candidate) Fitness() float64 { return c.Score }

// Tuner scores parameter vectors against one problem and seed schedule.
type Tuner struct {
	p        *model.Problem
	seed     *model.Schedule
	base     genetic.Config
	tweakCfg tweak.Config
	cfg      Config
	rng      *rand.Rand
	log      logger.Logger
	evals    int
	ctx      context.Context
}

// New validates cfg and prepares a tuner. base provides every inner search
// parameter that is not tuned.
func New(p *model.Problem, seed *model.Schedule, base genetic.Config, tweakCfg tweak.Config, cfg Config, rng *rand.Rand, log logger.Logger) (*Tuner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tuning config: %w", err)
	}
	base.PopulationSize = cfg.InnerPopulationSize
	base.Generations = cfg.InnerGenerations
	return &Tuner{p: p, seed: seed, base: base, tweakCfg: tweakCfg, cfg: cfg, rng: rng, log: logger.OrNop(log), ctx: context.Background()}, nil
}

// Evaluations returns how many inner searches have run.
func (t *Tuner) Evaluations() int { return t.evals }

// Run evolves parameter vectors and returns the best candidate found.
func (t *Tuner) Run(ctx context.Context, opts ...genetic.Option) (*Candidate, error) {
	t.ctx = ctx
	outer := genetic.Config{
		PopulationSize:    t.cfg.PopulationSize,
		Generations:       t.cfg.Generations,
		TimeLimitSeconds:  -1,
		TournamentSize:    2,
		// every child goes through Mutate, which scores it
		MutationProb:      1,
		CrossoverRate:     1,
		SeedTweakFraction: 0,
		SeedTweakMax:      1,
		ImmigrantFraction: 0,
		ImmigrantGrowth:   1,
		// never inflate immigrants within the run
		StagnationLimit:  t.cfg.Generations + 1,
		SteadyStateAfter: 1,
		MutationSteps:    1,
		Selection:        selection.Weights{Tournament: 1},
	}
	loop, err := genetic.NewLoop[*Candidate](outer, t, t.rng, append([]genetic.Option{genetic.WithLogger(t.log)}, opts...)...)
	if err != nil {
		return nil, err
	}
	out := loop.Run(ctx, -1)
	t.log.Infof("tuning: %d inner searches, best %+v scoring %.0f", t.evals, out.Best.Params, out.Best.Score)
	return out.Best, ctx.Err()
}

// Evaluate runs one inner search with params and returns its best score.
func (t *Tuner) Evaluate(ctx context.Context, params Params) (float64, error) {
	t.evals++
	rng := rand.New(rand.NewPCG(t.rng.Uint64(), t.rng.Uint64()))
	tw, err := tweak.New(t.p, rng, t.tweakCfg)
	if err != nil {
		return 0, err
	}
	e, err := genetic.NewEngine(t.p, t.seed, rng, tw, params.Apply(t.base))
	if err != nil {
		return 0, err
	}
	budget := time.Duration(t.cfg.InnerTimeLimitSeconds * float64(time.Second))
	return e.Run(ctx, budget).Best.Fitness(), nil
}

func (t *Tuner) candidate(p Params) *Candidate {
	score, err := t.Evaluate(t.ctx, p)
	if err != nil {
		t.log.Warnf("tuning: %+v rejected: %v", p, err)
	}
	return &Candidate{Params: p, Score: score, scored: true}
}

func (t *Tuner) random() Params {
	b := t.cfg.Bounds
	return Params{
		MutationProb:      b.MutationProb.Min + t.rng.Float64()*b.MutationProb.width(),
		CrossoverRate:     b.CrossoverRate.Min + t.rng.Float64()*b.CrossoverRate.width(),
		ImmigrantFraction: b.ImmigrantFraction.Min + t.rng.Float64()*b.ImmigrantFraction.width(),
	}
}

// Seed implements genetic.Operators.
func (t *Tuner) Seed(int) *Candidate { return t.candidate(t.random()) }

// Immigrant implements genetic.Operators.
func (t *Tuner) Immigrant() *Candidate { return t.candidate(t.random()) }

// Recombine implements genetic.Operators with a uniform per-key crossover.
func (t *Tuner) Recombine(a, b *Candidate) (*Candidate, *Candidate) {
	x, y := a.Params, b.Params
	if t.rng.Float64() < 0.5 {
		x.MutationProb, y.MutationProb = y.MutationProb, x.MutationProb
	}
	if t.rng.Float64() < 0.5 {
		x.CrossoverRate, y.CrossoverRate = y.CrossoverRate, x.CrossoverRate
	}
	if t.rng.Float64() < 0.5 {
		x.ImmigrantFraction, y.ImmigrantFraction = y.ImmigrantFraction, x.ImmigrantFraction
	}
	return t.child(x, a, b), t.child(y, a, b)
}

// child reuses a parent carrying the same parameters; any other vector is
// left unscored for Mutate.
func (t *Tuner) child(p Params, parents ...*Candidate) *Candidate {
	for _, c := range parents {
		if c.scored && c.Params == p {
			return c
		}
	}
	return &Candidate{Params: p}
}

// Mutate implements genetic.Operators with clamped gaussian noise whose sigma
// is a tenth of each range. It scores the result unless it is an unchanged,
// already scored candidate.
func (t *Tuner) Mutate(c *Candidate) *Candidate {
	p := c.Params
	b := t.cfg.Bounds
	p.MutationProb = t.perturb(p.MutationProb, b.MutationProb)
	p.CrossoverRate = t.perturb(p.CrossoverRate, b.CrossoverRate)
	p.ImmigrantFraction = t.perturb(p.ImmigrantFraction, b.ImmigrantFraction)
	if p == c.Params && c.scored {
		return c
	}
	return t.candidate(p)
}

func (t *Tuner) perturb(v float64, r Range) float64 {
	if t.rng.Float64() >= t.cfg.MutationRate {
		return v
	}
	v += t.rng.NormFloat64() * r.width() * 0.1
	if math.IsNaN(v) {
		return r.Min
	}
	return r.clamp(v)
}
