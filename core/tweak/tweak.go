// Package tweak implements the neighbourhood operators applied to schedules.
//
// Every operator returns a schedule satisfying the model invariants. When no
// move is possible the input pointer is returned unchanged; otherwise the
// result is a fresh schedule and the input is left untouched.
package tweak

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/bookscan/core/model"
)

// Tweaker draws operators from a weight table and applies them to schedules
// of one problem. It is not safe for concurrent use.
type Tweaker struct {
	p         *model.Problem
	rng       *rand.Rand
	dispatch  distuv.Categorical
	bias      Bias
	biasRatio float64
}

// New builds a Tweaker. cfg is defaulted and validated.
func New(p *model.Problem, rng *rand.Rand, cfg Config) (*Tweaker, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tweak config: %w", err)
	}
	return &Tweaker{
		p:         p,
		rng:       rng,
		dispatch:  distuv.NewCategorical(cfg.table(), rng),
		bias:      cfg.Bias,
		biasRatio: cfg.BiasRatio,
	}, nil
}

// Pick draws an operator according to the weight table.
func (t *Tweaker) Pick() Kind {
	return Kinds[int(t.dispatch.Rand())]
}

// Apply runs one randomly drawn operator on s.
func (t *Tweaker) Apply(s *model.Schedule) *model.Schedule {
	return t.ApplyKind(t.Pick(), s)
}

// ApplyKind runs operator k on s.
func (t *Tweaker) ApplyKind(k Kind, s *model.Schedule) *model.Schedule {
	switch k {
	case SwapSignedUnsigned:
		return t.SwapSignedUnsigned(s)
	case SwapDuplicateProvider:
		return t.SwapDuplicateProvider(s)
	case SwapOrder:
		return t.SwapOrder(s)
	case SwapLastBook:
		return t.SwapLastBook(s)
	case Shuffle:
		return t.Shuffle(s)
	}
	return s
}

// Climb applies steps random operators, keeping each neighbour that is not
// worse than the current schedule.
func (t *Tweaker) Climb(s *model.Schedule, steps int) *model.Schedule {
	for i := 0; i < steps; i++ {
		if n := t.Apply(s); n.Score >= s.Score {
			s = n
		}
	}
	return s
}

// Improve keeps strictly better neighbours until deadline or ctx is done.
func (t *Tweaker) Improve(ctx context.Context, s *model.Schedule, deadline time.Time) *model.Schedule {
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if n := t.Apply(s); n.Score > s.Score {
			s = n
		}
	}
	return s
}

// signedIndex draws a position among n signed libraries honouring the bias.
func (t *Tweaker) signedIndex(n int) int {
	half := n / 2
	switch t.bias {
	case BiasFirstHalf:
		if half > 0 && t.rng.Float64() < t.biasRatio {
			return t.rng.IntN(half)
		}
	case BiasSecondHalf:
		if half > 0 && t.rng.Float64() < t.biasRatio {
			return half + t.rng.IntN(n-half)
		}
	}
	return t.rng.IntN(n)
}

// SwapSignedUnsigned exchanges a signed library with an unsigned one. The
// schedule before the swapped position is kept; the incoming library and every
// later one are re-assigned greedily and demoted when they no longer fit.
func (t *Tweaker) SwapSignedUnsigned(s *model.Schedule) *model.Schedule {
	if len(s.Signed) == 0 || len(s.Unsigned) == 0 {
		return s
	}
	idx := t.signedIndex(len(s.Signed))
	u := t.rng.IntN(len(s.Unsigned))

	b := model.ResumeBuilder(t.p, s, idx)
	for i, lib := range s.Unsigned {
		if i != u {
			b.Skip(lib)
		}
	}
	b.Skip(s.Signed[idx])
	b.Add(s.Unsigned[u])
	for _, lib := range s.Signed[idx+1:] {
		b.Add(lib)
	}
	return b.Schedule()
}

// SwapOrder exchanges two signed libraries and rebuilds the whole schedule in
// the new order, unsigned libraries being retried after it.
func (t *Tweaker) SwapOrder(s *model.Schedule) *model.Schedule {
	n := len(s.Signed)
	if n < 2 {
		return s
	}
	i := t.rng.IntN(n)
	j := t.rng.IntN(n - 1)
	if j >= i {
		j++
	}
	order := make([]int, 0, t.p.NumLibraries())
	order = append(order, s.Signed...)
	order[i], order[j] = order[j], order[i]
	rest := append([]int(nil), s.Unsigned...)
	sort.Ints(rest)
	return model.Replay(t.p, append(order, rest...))
}

// SwapLastBook replaces the last book scanned by a random signed library with
// the best uncovered book that library holds and some unsigned library offers.
func (t *Tweaker) SwapLastBook(s *model.Schedule) *model.Schedule {
	if len(s.Unsigned) == 0 {
		return s
	}
	var busy []int
	for _, lib := range s.Signed {
		if len(s.Scanned[lib]) > 0 {
			busy = append(busy, lib)
		}
	}
	if len(busy) == 0 {
		return s
	}
	lib := busy[t.rng.IntN(len(busy))]
	unsigned := make([]bool, t.p.NumLibraries())
	for _, u := range s.Unsigned {
		unsigned[u] = true
	}

	in := -1
	for _, book := range t.p.RankedBooks(lib) {
		if s.Covered[book] {
			continue
		}
		for _, prov := range t.p.Providers(book) {
			if unsigned[prov] {
				in = book
				break
			}
		}
		if in >= 0 {
			break
		}
	}
	if in < 0 {
		return s
	}

	c := s.Clone()
	books := c.Scanned[lib]
	out := books[len(books)-1]
	books[len(books)-1] = in
	c.Covered[out] = false
	c.Covered[in] = true
	c.Score += t.p.Scores[in] - t.p.Scores[out]
	return c
}

// SwapDuplicateProvider moves a scanned book to another signed library that
// also holds it and backfills the source with its best uncovered book. A full
// destination evicts one random book first.
func (t *Tweaker) SwapDuplicateProvider(s *model.Schedule) *model.Schedule {
	if len(s.Signed) < 2 {
		return s
	}
	pos := make(map[int]int, len(s.Signed))
	for i, lib := range s.Signed {
		pos[lib] = i
	}

	src, book, dst := -1, -1, -1
	for try := 0; try < 2*len(s.Signed)+16 && dst < 0; try++ {
		cand := s.Signed[t.rng.IntN(len(s.Signed))]
		scanned := s.Scanned[cand]
		if len(scanned) == 0 || t.backfill(s, cand) < 0 {
			continue
		}
		b := scanned[t.rng.IntN(len(scanned))]
		var others []int
		for _, prov := range t.p.Providers(b) {
			if _, signed := pos[prov]; signed && prov != cand {
				others = append(others, prov)
			}
		}
		if len(others) == 0 {
			continue
		}
		src, book, dst = cand, b, others[t.rng.IntN(len(others))]
	}
	if dst < 0 {
		return s
	}

	c := s.Clone()
	c.Scanned[src] = remove(c.Scanned[src], book)
	c.Covered[book] = false
	c.Score -= t.p.Scores[book]

	ends := c.SignupEnds(t.p)
	limit := t.p.Capacity(dst, ends[pos[dst]])
	if len(c.Scanned[dst]) >= limit {
		dstBooks := c.Scanned[dst]
		evicted := dstBooks[t.rng.IntN(len(dstBooks))]
		c.Scanned[dst] = remove(dstBooks, evicted)
		c.Covered[evicted] = false
		c.Score -= t.p.Scores[evicted]
	}
	c.Scanned[dst] = append(c.Scanned[dst], book)
	c.Covered[book] = true
	c.Score += t.p.Scores[book]

	if fill := t.backfill(c, src); fill >= 0 {
		c.Scanned[src] = append(c.Scanned[src], fill)
		c.Covered[fill] = true
		c.Score += t.p.Scores[fill]
	}
	return c
}

// backfill returns the best uncovered book held by lib, or -1.
func (t *Tweaker) backfill(s *model.Schedule, lib int) int {
	for _, book := range t.p.RankedBooks(lib) {
		if !s.Covered[book] {
			return book
		}
	}
	return -1
}

// Shuffle permutes library ids: the books scanned at signed position k are
// handed to the library now placed there, keeping only the books it holds and
// fit its capacity. Libraries left without books or past the horizon are
// unsigned.
func (t *Tweaker) Shuffle(s *model.Schedule) *model.Schedule {
	if len(s.Signed) == 0 {
		return s
	}
	perm := t.rng.Perm(t.p.NumLibraries())
	out := model.NewSchedule(t.p)
	placed := make([]bool, t.p.NumLibraries())
	day := 0
	for k, old := range s.Signed {
		lib := perm[k]
		placed[lib] = true
		end := day + t.p.Libraries[lib].SignupDays
		if end >= t.p.Days {
			out.Unsigned = append(out.Unsigned, lib)
			continue
		}
		limit := t.p.Capacity(lib, end)
		var books []int
		for _, b := range s.Scanned[old] {
			if len(books) == limit {
				break
			}
			if t.p.Holds(lib, b) {
				books = append(books, b)
			}
		}
		if len(books) == 0 {
			out.Unsigned = append(out.Unsigned, lib)
			continue
		}
		out.Signed = append(out.Signed, lib)
		out.Scanned[lib] = books
		for _, b := range books {
			out.Covered[b] = true
		}
		day = end
	}
	for lib, ok := range placed {
		if !ok {
			out.Unsigned = append(out.Unsigned, lib)
		}
	}
	out.Score = out.Recompute(t.p)
	return out
}

func remove(books []int, book int) []int {
	for i, b := range books {
		if b == book {
			return append(books[:i], books[i+1:]...)
		}
	}
	return books
}
