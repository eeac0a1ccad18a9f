// Package grasp builds schedules with a randomized greedy construction over a
// restricted candidate list.
package grasp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/kilianp07/bookscan/core/logger"
	"github.com/kilianp07/bookscan/core/model"
	"github.com/kilianp07/bookscan/core/tweak"
)

// Config controls construction and the standalone multi-start search.
type Config struct {
	RCLFraction        float64 `json:"rcl_fraction"`
	TimeLimitSeconds   float64 `json:"time_limit_seconds"`
	LocalSearchSeconds float64 `json:"local_search_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.RCLFraction == 0 {
		c.RCLFraction = 0.05
	}
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 10
	}
	if c.LocalSearchSeconds == 0 {
		c.LocalSearchSeconds = 1
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.RCLFraction <= 0 || c.RCLFraction > 1 {
		errs = append(errs, fmt.Errorf("rcl_fraction must be in (0,1], got %g", c.RCLFraction))
	}
	if c.TimeLimitSeconds < 0 {
		errs = append(errs, errors.New("time_limit_seconds must not be negative"))
	}
	if c.LocalSearchSeconds < 0 {
		errs = append(errs, errors.New("local_search_seconds must not be negative"))
	}
	return errors.Join(errs...)
}

// Budget returns the multi-start time limit.
func (c Config) Budget() time.Duration {
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}

// LocalSearchBudget returns the local search time granted to each build.
func (c Config) LocalSearchBudget() time.Duration {
	return time.Duration(c.LocalSearchSeconds * float64(time.Second))
}

// Option configures a GRASP.
type Option func(*GRASP)

// WithTweaker enables local search after each build in Generate.
func WithTweaker(t *tweak.Tweaker) Option { return func(g *GRASP) { g.tweaker = t } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(g *GRASP) { g.log = logger.OrNop(l) } }

// GRASP constructs schedules for one problem. It is not safe for concurrent
// use since it owns a random stream.
type GRASP struct {
	p       *model.Problem
	rng     *rand.Rand
	rcl     float64
	order   []int
	tweaker *tweak.Tweaker
	log     logger.Logger
}

// New prepares the static priority order of p: signup days ascending, then
// total book score descending.
func New(p *model.Problem, rng *rand.Rand, rcl float64, opts ...Option) *GRASP {
	order := make([]int, p.NumLibraries())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		la, lb := p.Libraries[order[a]], p.Libraries[order[b]]
		if la.SignupDays != lb.SignupDays {
			return la.SignupDays < lb.SignupDays
		}
		return p.TotalScore(la.ID) > p.TotalScore(lb.ID)
	})
	g := &GRASP{p: p, rng: rng, rcl: rcl, order: order, log: logger.Nop{}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Order returns the static priority order. The slice must not be modified.
func (g *GRASP) Order() []int { return g.order }

// rclSize returns max(1, ceil(p*n)).
func rclSize(p float64, n int) int {
	k := int(math.Ceil(p*float64(n) - 1e-9))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// Build constructs one schedule, drawing each library uniformly from the
// restricted candidate list.
func (g *GRASP) Build() *model.Schedule {
	cands := append([]int(nil), g.order...)
	b := model.NewBuilder(g.p)
	for len(cands) > 0 {
		i := g.rng.IntN(rclSize(g.rcl, len(cands)))
		lib := cands[i]
		cands = append(cands[:i], cands[i+1:]...)
		b.Add(lib)
	}
	return b.Schedule()
}

// Generate repeats Build followed by local search until budget elapses and
// returns the best schedule. At least one schedule is always built.
func (g *GRASP) Generate(ctx context.Context, budget, localSearch time.Duration) *model.Schedule {
	start := time.Now()
	deadline := start.Add(budget)
	var best *model.Schedule
	builds := 0
	for {
		s := g.Build()
		builds++
		if g.tweaker != nil && localSearch > 0 {
			ls := time.Now().Add(localSearch)
			if ls.After(deadline) {
				ls = deadline
			}
			s = g.tweaker.Improve(ctx, s, ls)
		}
		if best == nil || s.Score > best.Score {
			best = s
		}
		if !time.Now().Before(deadline) || ctx.Err() != nil {
			break
		}
	}
	g.log.Infof("grasp: %d builds in %s, best score %d", builds, time.Since(start).Round(time.Millisecond), best.Score)
	return best
}
