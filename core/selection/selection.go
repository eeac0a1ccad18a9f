// Package selection picks parents from a population. Strategies are generic
// over any individual exposing a fitness.
package selection

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Individual is anything with a non-negative fitness; higher is better.
type Individual interface {
	Fitness() float64
}

// Strategy chooses one member of a non-empty population.
type Strategy[T Individual] interface {
	Name() string
	Pick(rng *rand.Rand, pop []T) T
}

// Tournament samples Size members without replacement and returns the fittest.
// Size is clamped to the population size.
type Tournament[T Individual] struct {
	Size int
}

func (Tournament[T]) Name() string { return "tournament" }

func (s Tournament[T]) Pick(rng *rand.Rand, pop []T) T {
	k := s.Size
	if k < 1 {
		k = 1
	}
	if k > len(pop) {
		k = len(pop)
	}
	idx := make([]int, k)
	sampleuv.WithoutReplacement(idx, len(pop), rng)
	best := pop[idx[0]]
	for _, i := range idx[1:] {
		if pop[i].Fitness() > best.Fitness() {
			best = pop[i]
		}
	}
	return best
}

// Roulette picks proportionally to fitness, uniformly when every fitness is
// zero.
type Roulette[T Individual] struct{}

func (Roulette[T]) Name() string { return "roulette" }

func (Roulette[T]) Pick(rng *rand.Rand, pop []T) T {
	fit := make([]float64, len(pop))
	for i, ind := range pop {
		fit[i] = ind.Fitness()
	}
	total := floats.Sum(fit)
	if total <= 0 {
		return pop[rng.IntN(len(pop))]
	}
	return pop[cumulativePick(fit, rng.Float64()*total)]
}

// Rank picks proportionally to rank, the weakest member having rank 1.
type Rank[T Individual] struct{}

func (Rank[T]) Name() string { return "rank" }

func (Rank[T]) Pick(rng *rand.Rand, pop []T) T {
	order := make([]int, len(pop))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pop[order[a]].Fitness() < pop[order[b]].Fitness()
	})
	ranks := make([]float64, len(pop))
	for r := range ranks {
		ranks[r] = float64(r + 1)
	}
	n := float64(len(pop))
	return pop[order[cumulativePick(ranks, rng.Float64()*n*(n+1)/2)]]
}

// cumulativePick returns the first index whose running sum exceeds cut.
func cumulativePick(w []float64, cut float64) int {
	acc := 0.0
	for i, v := range w {
		acc += v
		if acc > cut {
			return i
		}
	}
	return len(w) - 1
}

// Weights is the relative frequency of each strategy.
type Weights struct {
	Tournament float64 `json:"tournament"`
	Roulette   float64 `json:"roulette"`
	Rank       float64 `json:"rank"`
}

// DefaultWeights favours tournament selection.
func DefaultWeights() Weights {
	return Weights{Tournament: 3, Roulette: 2, Rank: 1}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool { return w == Weights{} }

// Validate requires non-negative weights with a positive sum.
func (w Weights) Validate() error {
	if w.Tournament < 0 || w.Roulette < 0 || w.Rank < 0 {
		return errors.New("selection weights must not be negative")
	}
	if w.Tournament+w.Roulette+w.Rank <= 0 {
		return errors.New("selection weights must not all be zero")
	}
	return nil
}

// Selector dispatches each selection event to one strategy drawn from the
// weight table.
type Selector[T Individual] struct {
	rng        *rand.Rand
	strategies []Strategy[T]
	dispatch   distuv.Categorical
}

// New builds a Selector over tournament, roulette and rank selection.
func New[T Individual](rng *rand.Rand, tournamentSize int, w Weights) (*Selector[T], error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}
	return &Selector[T]{
		rng:        rng,
		strategies: []Strategy[T]{Tournament[T]{Size: tournamentSize}, Roulette[T]{}, Rank[T]{}},
		dispatch:   distuv.NewCategorical([]float64{w.Tournament, w.Roulette, w.Rank}, rng),
	}, nil
}

// Next draws the strategy for the next selection event.
func (s *Selector[T]) Next() Strategy[T] {
	return s.strategies[int(s.dispatch.Rand())]
}

// Select returns one member of pop, which must not be empty.
func (s *Selector[T]) Select(pop []T) T {
	return s.Next().Pick(s.rng, pop)
}
