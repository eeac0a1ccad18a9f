// Package genetic drives a population of candidates through generations of
// selection, recombination, mutation and replacement.
//
// Loop is generic over the individual type. The schedule search (Engine) and
// the parameter tuner both instantiate it.
package genetic

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/bookscan/core/logger"
	"github.com/kilianp07/bookscan/core/selection"
)

// State is the lifecycle position of a Loop.
type State int

const (
	Seeding State = iota
	Evolving
	Terminated
)

func (s State) String() string {
	switch s {
	case Seeding:
		return "seeding"
	case Evolving:
		return "evolving"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Mode is the succession scheme of a generation.
type Mode int

const (
	// Generational builds a whole new population each generation.
	Generational Mode = iota
	// SteadyState merges each offspring pair into the population and keeps
	// the best members.
	SteadyState
)

func (m Mode) String() string {
	if m == SteadyState {
		return "steady_state"
	}
	return "generational"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Operators supplies the problem specific parts of the loop.
type Operators[T selection.Individual] interface {
	// Seed returns the i-th member of the initial population.
	Seed(i int) T
	// Immigrant returns a fresh individual injected to restore diversity.
	Immigrant() T
	// Recombine produces two children from two parents.
	Recombine(a, b T) (T, T)
	// Mutate returns a perturbed copy of x.
	Mutate(x T) T
}

// GenerationStats summarizes one completed generation.
type GenerationStats struct {
	Generation        int           `json:"generation"`
	Best              float64       `json:"best"`
	BestEver          float64       `json:"best_ever"`
	Mean              float64       `json:"mean"`
	StdDev            float64       `json:"std_dev"`
	Worst             float64       `json:"worst"`
	Mode              Mode          `json:"mode"`
	ImmigrantFraction float64       `json:"immigrant_fraction"`
	Stagnant          int           `json:"stagnant"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Outcome is the result of a run.
type Outcome[T selection.Individual] struct {
	Best        T
	Generations int
	Elapsed     time.Duration
	State       State
	History     []GenerationStats
}

// Option configures a Loop or an Engine.
type Option func(*options)

type options struct {
	log      logger.Logger
	observer func(GenerationStats)
	seeder   Seeder
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(o *options) { o.log = logger.OrNop(l) } }

// WithObserver registers a callback invoked after every generation.
func WithObserver(fn func(GenerationStats)) Option { return func(o *options) { o.observer = fn } }

func buildOptions(opts []Option) options {
	o := options{log: logger.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Loop is the generational state machine. A Loop runs once and is not safe
// for concurrent use.
type Loop[T selection.Individual] struct {
	cfg   Config
	ops   Operators[T]
	rng   *rand.Rand
	sel   *selection.Selector[T]
	opts  options
	state State
}

// NewLoop validates cfg and prepares a loop over ops.
func NewLoop[T selection.Individual](cfg Config, ops Operators[T], rng *rand.Rand, opts ...Option) (*Loop[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("genetic config: %w", err)
	}
	sel, err := selection.New[T](rng, cfg.TournamentSize, cfg.Selection)
	if err != nil {
		return nil, err
	}
	return &Loop[T]{cfg: cfg, ops: ops, rng: rng, sel: sel, opts: buildOptions(opts), state: Seeding}, nil
}

// State returns the current lifecycle state.
func (l *Loop[T]) State() State { return l.state }

// Run seeds the population and evolves it until the generation cap, the
// budget or ctx ends the run. A zero budget stops right after seeding; a
// negative budget leaves only the generation cap. Termination is checked at
// generation boundaries, so a generation in progress always completes.
func (l *Loop[T]) Run(ctx context.Context, budget time.Duration) Outcome[T] {
	start := time.Now()
	n := l.cfg.PopulationSize

	l.state = Seeding
	pop := make([]T, n)
	for i := range pop {
		pop[i] = l.ops.Seed(i)
	}
	sortDesc(pop)
	best := pop[0]

	l.state = Evolving
	var (
		history  []GenerationStats
		gen      int
		stagnant int
		frac     = l.cfg.ImmigrantFraction
		mode     = Generational
	)
	for !l.finished(ctx, gen, start, budget) {
		if mode == Generational && l.lateStage(gen, time.Since(start), budget) {
			mode = SteadyState
			l.opts.log.Debugf("generation %d: switching to steady state succession", gen)
		}
		if mode == Generational {
			pop = l.generational(pop, best)
		} else {
			pop = l.steadyState(pop)
		}
		sortDesc(pop)
		l.injectImmigrants(pop, frac)
		pop = l.keepElite(pop, best)
		gen++

		if pop[0].Fitness() > best.Fitness() {
			best = pop[0]
			stagnant = 0
			frac = l.cfg.ImmigrantFraction
		} else {
			stagnant++
			if stagnant%l.cfg.StagnationLimit == 0 {
				frac = math.Min(1, math.Max(frac, 1/float64(n))*l.cfg.ImmigrantGrowth)
			}
		}

		st := summarize(pop, gen, best, mode, frac, stagnant, time.Since(start))
		history = append(history, st)
		l.opts.log.Debugw("generation", map[string]any{
			"generation": st.Generation,
			"best":       st.BestEver,
			"mean":       st.Mean,
			"mode":       st.Mode.String(),
			"immigrants": st.ImmigrantFraction,
		})
		if l.opts.observer != nil {
			l.opts.observer(st)
		}
	}
	l.state = Terminated
	out := Outcome[T]{Best: best, Generations: gen, Elapsed: time.Since(start), State: l.state, History: history}
	l.opts.log.Infof("search finished after %d generations in %s, best %.0f", gen, out.Elapsed.Round(time.Millisecond), best.Fitness())
	return out
}

func (l *Loop[T]) finished(ctx context.Context, gen int, start time.Time, budget time.Duration) bool {
	if ctx.Err() != nil {
		return true
	}
	if l.cfg.Generations > 0 && gen >= l.cfg.Generations {
		return true
	}
	return budget >= 0 && time.Since(start) >= budget
}

func (l *Loop[T]) lateStage(gen int, elapsed, budget time.Duration) bool {
	if l.cfg.Generations > 0 && float64(gen) >= l.cfg.SteadyStateAfter*float64(l.cfg.Generations) {
		return true
	}
	return budget > 0 && elapsed.Seconds() >= l.cfg.SteadyStateAfter*budget.Seconds()
}

func (l *Loop[T]) offspring(pop []T) (T, T) {
	a, b := l.sel.Select(pop), l.sel.Select(pop)
	if l.rng.Float64() < l.cfg.CrossoverRate {
		a, b = l.ops.Recombine(a, b)
	}
	if l.rng.Float64() < l.cfg.MutationProb {
		a = l.ops.Mutate(a)
	}
	if l.rng.Float64() < l.cfg.MutationProb {
		b = l.ops.Mutate(b)
	}
	return a, b
}

// generational returns a new population headed by best.
func (l *Loop[T]) generational(pop []T, best T) []T {
	n := len(pop)
	next := make([]T, 0, n+1)
	next = append(next, best)
	for len(next) < n {
		a, b := l.offspring(pop)
		next = append(next, a, b)
	}
	return next[:n]
}

// steadyState merges offspring pairs into pop, keeping the best members.
func (l *Loop[T]) steadyState(pop []T) []T {
	n := len(pop)
	pairs := n / 2
	if pairs < 1 {
		pairs = 1
	}
	for i := 0; i < pairs; i++ {
		a, b := l.offspring(pop)
		pop = append(pop, a, b)
		sortDesc(pop)
		pop = pop[:n]
	}
	return pop
}

// injectImmigrants replaces the weakest members of the sorted pop.
func (l *Loop[T]) injectImmigrants(pop []T, frac float64) {
	n := len(pop)
	k := int(frac * float64(n))
	if k > n-1 {
		k = n - 1
	}
	for i := n - k; i < n; i++ {
		pop[i] = l.ops.Immigrant()
	}
	if k > 0 {
		sortDesc(pop)
	}
}

// keepElite puts best back in place of the weakest member when no member
// reaches its fitness, then pads or truncates to the population size.
func (l *Loop[T]) keepElite(pop []T, best T) []T {
	n := l.cfg.PopulationSize
	for len(pop) < n {
		pop = append(pop, l.ops.Immigrant())
	}
	pop = pop[:n]
	sortDesc(pop)
	if pop[0].Fitness() < best.Fitness() {
		pop[n-1] = best
		sortDesc(pop)
	}
	return pop
}

func summarize[T selection.Individual](pop []T, gen int, best T, mode Mode, frac float64, stagnant int, elapsed time.Duration) GenerationStats {
	fit := make([]float64, len(pop))
	for i, ind := range pop {
		fit[i] = ind.Fitness()
	}
	mean, std := stat.MeanStdDev(fit, nil)
	if len(fit) < 2 {
		std = 0
	}
	return GenerationStats{
		Generation:        gen,
		Best:              fit[0],
		BestEver:          best.Fitness(),
		Mean:              mean,
		StdDev:            std,
		Worst:             fit[len(fit)-1],
		Mode:              mode,
		ImmigrantFraction: frac,
		Stagnant:          stagnant,
		Elapsed:           elapsed,
	}
}

func sortDesc[T selection.Individual](pop []T) {
	sort.SliceStable(pop, func(i, j int) bool {
		return pop[i].Fitness() > pop[j].Fitness()
	})
}
