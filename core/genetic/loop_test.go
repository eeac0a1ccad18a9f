package genetic

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type num float64

func (n num) Fitness() float64 { return float64(n) }

type numOps struct {
	seeds     []num
	immigrant num
	mutate    func(num) num
}

func (o numOps) Seed(i int) num                { return o.seeds[i%len(o.seeds)] }
func (o numOps) Immigrant() num                { return o.immigrant }
func (o numOps) Recombine(a, b num) (num, num) { return a, b }
func (o numOps) Mutate(x num) num {
	if o.mutate == nil {
		return x
	}
	return o.mutate(x)
}

func testConfig() Config {
	var c Config
	c.SetDefaults()
	c.PopulationSize = 8
	c.TournamentSize = 3
	return c
}

func rng(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, 11)) }

func TestLoopZeroBudgetStopsAfterSeeding(t *testing.T) {
	l, err := NewLoop[num](testConfig(), numOps{seeds: []num{3, 7, 1}}, rng(1))
	require.NoError(t, err)
	assert.Equal(t, Seeding, l.State())
	out := l.Run(context.Background(), 0)
	assert.Equal(t, 0, out.Generations)
	assert.Equal(t, num(7), out.Best)
	assert.Equal(t, Terminated, out.State)
	assert.Empty(t, out.History)
}

func TestLoopGenerationCap(t *testing.T) {
	cfg := testConfig()
	cfg.Generations = 6
	l, err := NewLoop[num](cfg, numOps{seeds: []num{1, 2}, mutate: func(x num) num { return x + 1 }}, rng(2))
	require.NoError(t, err)
	out := l.Run(context.Background(), -1)
	assert.Equal(t, 6, out.Generations)
	require.Len(t, out.History, 6)
	assert.Greater(t, float64(out.Best), 2.0)
	for i := 1; i < len(out.History); i++ {
		assert.GreaterOrEqual(t, out.History[i].BestEver, out.History[i-1].BestEver)
	}
}

func TestLoopKeepsBestAgainstDestructiveMutation(t *testing.T) {
	cfg := testConfig()
	cfg.Generations = 10
	cfg.ImmigrantFraction = 0.5
	ops := numOps{seeds: []num{5, 1, 1}, immigrant: 0, mutate: func(num) num { return 0 }}
	l, err := NewLoop[num](cfg, ops, rng(3))
	require.NoError(t, err)
	out := l.Run(context.Background(), -1)
	assert.Equal(t, num(5), out.Best)
	for _, st := range out.History {
		if st.Best != 5 {
			t.Fatalf("generation %d lost the best individual: %v", st.Generation, st.Best)
		}
	}
}

func TestLoopImmigrantInflation(t *testing.T) {
	cfg := testConfig()
	cfg.Generations = 12
	cfg.ImmigrantFraction = 0.05
	cfg.StagnationLimit = 2
	cfg.ImmigrantGrowth = 2
	l, err := NewLoop[num](cfg, numOps{seeds: []num{4}, immigrant: 4}, rng(4))
	require.NoError(t, err)
	out := l.Run(context.Background(), -1)

	// no generation ever improves on the seed
	h := out.History
	assert.InDelta(t, 0.05, h[0].ImmigrantFraction, 1e-9)
	assert.InDelta(t, 0.25, h[1].ImmigrantFraction, 1e-9)
	assert.InDelta(t, 0.5, h[3].ImmigrantFraction, 1e-9)
	assert.InDelta(t, 1.0, h[5].ImmigrantFraction, 1e-9)
	assert.InDelta(t, 1.0, h[11].ImmigrantFraction, 1e-9)
}

func TestLoopInflationResetsOnImprovement(t *testing.T) {
	cfg := testConfig()
	cfg.Generations = 4
	cfg.StagnationLimit = 1
	cfg.MutationProb = 1
	l, err := NewLoop[num](cfg, numOps{seeds: []num{1}, mutate: func(x num) num { return x + 1 }}, rng(5))
	require.NoError(t, err)
	out := l.Run(context.Background(), -1)
	for _, st := range out.History {
		assert.Equal(t, 0, st.Stagnant)
		assert.InDelta(t, cfg.ImmigrantFraction, st.ImmigrantFraction, 1e-9)
	}
}

func TestLoopSwitchesToSteadyState(t *testing.T) {
	cfg := testConfig()
	cfg.Generations = 10
	cfg.SteadyStateAfter = 0.5
	l, err := NewLoop[num](cfg, numOps{seeds: []num{1, 2, 3}}, rng(6))
	require.NoError(t, err)
	out := l.Run(context.Background(), -1)
	require.Len(t, out.History, 10)
	assert.Equal(t, Generational, out.History[4].Mode)
	assert.Equal(t, SteadyState, out.History[5].Mode)
	assert.Equal(t, SteadyState, out.History[9].Mode)
}

func TestLoopCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l, err := NewLoop[num](testConfig(), numOps{seeds: []num{2}}, rng(7))
	require.NoError(t, err)
	out := l.Run(ctx, -1)
	assert.Equal(t, 0, out.Generations)
	assert.Equal(t, num(2), out.Best)
}

func TestLoopObserver(t *testing.T) {
	cfg := testConfig()
	cfg.Generations = 3
	var seen []int
	l, err := NewLoop[num](cfg, numOps{seeds: []num{2}}, rng(8), WithObserver(func(st GenerationStats) {
		seen = append(seen, st.Generation)
	}))
	require.NoError(t, err)
	l.Run(context.Background(), -1)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestConfigValidate(t *testing.T) {
	c := testConfig()
	require.NoError(t, c.Validate())

	bad := c
	bad.PopulationSize = 1
	assert.Error(t, bad.Validate())

	bad = c
	bad.MutationProb = 1.2
	assert.Error(t, bad.Validate())

	bad = c
	bad.TimeLimitSeconds = -1
	assert.Error(t, bad.Validate())
	bad.Generations = 10
	assert.NoError(t, bad.Validate())
	assert.Less(t, bad.TimeLimit(), time.Duration(0))
}
