package genetic

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/kilianp07/bookscan/core/model"
)

// ErrCrossoverExhausted reports that a child ordering could not be completed
// because every candidate library was already used.
var ErrCrossoverExhausted = errors.New("crossover: no unused library left")

// Crossover recombines the signup orders of two parents. Each child keeps
// the libraries of its first parent at ⌊n/2⌋ random positions, fills the
// remaining positions from the other parent in order and is then rebuilt
// with the greedy book rule.
func Crossover(rng *rand.Rand, p *model.Problem, a, b *model.Schedule) (*model.Schedule, *model.Schedule, error) {
	o1, err := childOrder(rng, p.NumLibraries(), a.Signed, b.Signed)
	if err != nil {
		return nil, nil, err
	}
	o2, err := childOrder(rng, p.NumLibraries(), b.Signed, a.Signed)
	if err != nil {
		return nil, nil, err
	}
	return model.Replay(p, o1), model.Replay(p, o2), nil
}

func childOrder(rng *rand.Rand, libs int, first, second []int) ([]int, error) {
	n := len(first)
	child := make([]int, n)
	filled := make([]bool, n)
	used := make([]bool, libs)
	if half := n / 2; half > 0 {
		idx := make([]int, half)
		sampleuv.WithoutReplacement(idx, n, rng)
		for _, i := range idx {
			child[i] = first[i]
			filled[i] = true
			used[first[i]] = true
		}
	}
	j := 0
	for i := range child {
		if filled[i] {
			continue
		}
		for j < len(second) && used[second[j]] {
			j++
		}
		if j < len(second) {
			child[i] = second[j]
			used[second[j]] = true
			j++
			continue
		}
		var spare []int
		for _, lib := range first {
			if !used[lib] {
				spare = append(spare, lib)
			}
		}
		if len(spare) == 0 {
			return nil, ErrCrossoverExhausted
		}
		lib := spare[rng.IntN(len(spare))]
		child[i] = lib
		used[lib] = true
	}
	return child, nil
}
