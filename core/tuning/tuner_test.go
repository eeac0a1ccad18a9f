package tuning

import (
	"bytes"
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bookscan/core/genetic"
	"github.com/kilianp07/bookscan/core/grasp"
	"github.com/kilianp07/bookscan/core/model/modeltest"
	"github.com/kilianp07/bookscan/core/tweak"
)

func newTuner(t *testing.T) *Tuner {
	t.Helper()
	p := modeltest.Random(8, 15, 60)
	seed := grasp.New(p, rand.New(rand.NewPCG(1, 2)), 0.1).Build()
	var base genetic.Config
	base.SetDefaults()
	cfg := Config{PopulationSize: 3, Generations: 2, InnerPopulationSize: 4, InnerGenerations: 2, InnerTimeLimitSeconds: 1}
	cfg.SetDefaults()
	tu, err := New(p, seed, base, tweak.Config{}, cfg, rand.New(rand.NewPCG(3, 4)), nil)
	require.NoError(t, err)
	return tu
}

func inBounds(t *testing.T, b Bounds, p Params) {
	t.Helper()
	assert.True(t, p.MutationProb >= b.MutationProb.Min && p.MutationProb <= b.MutationProb.Max, "mutation_prob %g", p.MutationProb)
	assert.True(t, p.CrossoverRate >= b.CrossoverRate.Min && p.CrossoverRate <= b.CrossoverRate.Max, "crossover_rate %g", p.CrossoverRate)
	assert.True(t, p.ImmigrantFraction >= b.ImmigrantFraction.Min && p.ImmigrantFraction <= b.ImmigrantFraction.Max, "immigrant_fraction %g", p.ImmigrantFraction)
}

func TestTunerRun(t *testing.T) {
	tu := newTuner(t)
	var gens int
	best, err := tu.Run(context.Background(), genetic.WithObserver(func(genetic.GenerationStats) { gens++ }))
	require.NoError(t, err)
	require.NotNil(t, best)
	inBounds(t, tu.cfg.Bounds, best.Params)
	assert.GreaterOrEqual(t, best.Score, float64(tu.seed.Score))
	// three seeds, then at most one inner search per child of each generation
	assert.GreaterOrEqual(t, tu.Evaluations(), 3)
	assert.LessOrEqual(t, tu.Evaluations(), 3+2*2)
	assert.Equal(t, 2, gens)
}

func TestMutateStaysInBounds(t *testing.T) {
	tu := newTuner(t)
	tu.cfg.MutationRate = 1
	tu.cfg.InnerGenerations = 1
	c := &Candidate{Params: Params{MutationProb: 1, CrossoverRate: 0, ImmigrantFraction: 0.3}}
	for i := 0; i < 200; i++ {
		p := c.Params
		p.MutationProb = tu.perturb(p.MutationProb, tu.cfg.Bounds.MutationProb)
		p.CrossoverRate = tu.perturb(p.CrossoverRate, tu.cfg.Bounds.CrossoverRate)
		p.ImmigrantFraction = tu.perturb(p.ImmigrantFraction, tu.cfg.Bounds.ImmigrantFraction)
		inBounds(t, tu.cfg.Bounds, p)
		c.Params = p
	}
}

func TestMutateWithoutNoiseKeepsCandidate(t *testing.T) {
	tu := newTuner(t)
	tu.cfg.MutationRate = 0
	c := &Candidate{Params: Params{MutationProb: 0.5}, Score: 3, scored: true}
	assert.Same(t, c, tu.Mutate(c))
	assert.Equal(t, 0, tu.Evaluations())
}

func TestChildrenScoredOnce(t *testing.T) {
	tu := newTuner(t)
	tu.cfg.MutationRate = 0
	a := tu.candidate(Params{MutationProb: 0.2, CrossoverRate: 0.2, ImmigrantFraction: 0.1})
	b := tu.candidate(Params{MutationProb: 0.8, CrossoverRate: 0.8, ImmigrantFraction: 0.2})
	require.Equal(t, 2, tu.Evaluations())

	x, y := tu.Recombine(a, b)
	assert.Equal(t, 2, tu.Evaluations(), "recombination must not run inner searches")

	mx, my := tu.Mutate(x), tu.Mutate(y)
	want := 2
	for _, c := range []*Candidate{x, y} {
		if c != a && c != b {
			want++
		}
	}
	assert.Equal(t, want, tu.Evaluations())
	assert.True(t, mx.scored)
	assert.True(t, my.scored)
	assert.Same(t, mx, tu.Mutate(mx))
	assert.Equal(t, want, tu.Evaluations())
}

func TestRecombineIdenticalParentsReusesScore(t *testing.T) {
	tu := newTuner(t)
	a := tu.candidate(Params{MutationProb: 0.5, CrossoverRate: 0.5, ImmigrantFraction: 0.1})
	x, y := tu.Recombine(a, a)
	assert.Same(t, a, x)
	assert.Same(t, a, y)
	assert.Equal(t, 1, tu.Evaluations())
}

func TestRecombineMixesKeys(t *testing.T) {
	tu := newTuner(t)
	a := &Candidate{Params: Params{MutationProb: 0.1, CrossoverRate: 0.1, ImmigrantFraction: 0.1}}
	b := &Candidate{Params: Params{MutationProb: 0.9, CrossoverRate: 0.9, ImmigrantFraction: 0.2}}
	x, y := tu.Recombine(a, b)
	assert.InDelta(t, 1.0, x.Params.MutationProb+y.Params.MutationProb, 1e-9)
	assert.InDelta(t, 1.0, x.Params.CrossoverRate+y.Params.CrossoverRate, 1e-9)
	assert.InDelta(t, 0.3, x.Params.ImmigrantFraction+y.Params.ImmigrantFraction, 1e-9)
}

func TestParamsApplyAndYAML(t *testing.T) {
	var base genetic.Config
	base.SetDefaults()
	p := Params{MutationProb: 0.4, CrossoverRate: 0.7, ImmigrantFraction: 0.1}
	cfg := p.Apply(base)
	assert.Equal(t, 0.4, cfg.MutationProb)
	assert.Equal(t, 0.7, cfg.CrossoverRate)
	assert.Equal(t, 0.1, cfg.ImmigrantFraction)
	assert.Equal(t, base.PopulationSize, cfg.PopulationSize)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, p))
	assert.Contains(t, buf.String(), "mutation_prob: 0.4")

	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	got, err := LoadParams(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, 0.7, p.Map()["crossover_rate"])
}

func TestConfigValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	require.NoError(t, c.Validate())
	c.Bounds.ImmigrantFraction = Range{Min: 0.5, Max: 0.2}
	assert.Error(t, c.Validate())
}
