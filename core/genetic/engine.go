package genetic

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kilianp07/bookscan/core/logger"
	"github.com/kilianp07/bookscan/core/model"
	"github.com/kilianp07/bookscan/core/tweak"
)

// Seeder builds fresh schedules for immigrant injection.
type Seeder interface {
	Build() *model.Schedule
}

// WithSeeder makes immigrants fresh constructions instead of tweaked seeds.
func WithSeeder(s Seeder) Option { return func(o *options) { o.seeder = s } }

// Engine searches schedules of one problem, starting from a seed schedule.
type Engine struct {
	p    *model.Problem
	seed *model.Schedule
	rng  *rand.Rand
	tw   *tweak.Tweaker
	cfg  Config
	opts options
	loop *Loop[*model.Schedule]
	log  logger.Logger
}

// NewEngine prepares a search over p seeded with seed. The tweaker supplies
// mutations and seed variants; rng must be owned by this engine.
func NewEngine(p *model.Problem, seed *model.Schedule, rng *rand.Rand, tw *tweak.Tweaker, cfg Config, opts ...Option) (*Engine, error) {
	if seed == nil {
		return nil, errors.New("genetic: nil seed schedule")
	}
	if tw == nil {
		return nil, errors.New("genetic: nil tweaker")
	}
	e := &Engine{p: p, seed: seed, rng: rng, tw: tw, cfg: cfg, opts: buildOptions(opts)}
	e.log = e.opts.log
	loop, err := NewLoop[*model.Schedule](cfg, e, rng, opts...)
	if err != nil {
		return nil, err
	}
	e.loop = loop
	return e, nil
}

// Run evolves the population within budget and returns the best schedule.
func (e *Engine) Run(ctx context.Context, budget time.Duration) Outcome[*model.Schedule] {
	e.log.Infof("search: %d libraries, %d books, seed score %d, budget %s", e.p.NumLibraries(), e.p.NumBooks(), e.seed.Score, budget)
	return e.loop.Run(ctx, budget)
}

// State returns the lifecycle state of the underlying loop.
func (e *Engine) State() State { return e.loop.State() }

// Seed implements Operators. Member 0 is the seed itself, the next
// SeedTweakFraction share are tweaked variants and the rest are copies.
func (e *Engine) Seed(i int) *model.Schedule {
	if i == 0 {
		return e.seed
	}
	if i <= int(e.cfg.SeedTweakFraction*float64(e.cfg.PopulationSize-1)) {
		return e.variant()
	}
	return e.seed.Clone()
}

func (e *Engine) variant() *model.Schedule {
	s := e.seed
	for k := 1 + e.rng.IntN(e.cfg.SeedTweakMax); k > 0; k-- {
		s = e.tw.Apply(s)
	}
	return s
}

// Immigrant implements Operators.
func (e *Engine) Immigrant() *model.Schedule {
	if e.opts.seeder != nil {
		return e.opts.seeder.Build()
	}
	return e.variant()
}

// Recombine implements Operators. A failed crossover returns the parents.
func (e *Engine) Recombine(a, b *model.Schedule) (*model.Schedule, *model.Schedule) {
	c1, c2, err := Crossover(e.rng, e.p, a, b)
	if err != nil {
		e.log.Warnf("%v, keeping parents", err)
		return a, b
	}
	return c1, c2
}

// Mutate implements Operators.
func (e *Engine) Mutate(s *model.Schedule) *model.Schedule {
	if e.cfg.MutationSteps <= 1 {
		return e.tw.Apply(s)
	}
	return e.tw.Climb(s, e.cfg.MutationSteps)
}

// Describe returns a short description used in run records.
func (e *Engine) Describe() string {
	return fmt.Sprintf("pop=%d mut=%.2f cx=%.2f imm=%.2f", e.cfg.PopulationSize, e.cfg.MutationProb, e.cfg.CrossoverRate, e.cfg.ImmigrantFraction)
}
