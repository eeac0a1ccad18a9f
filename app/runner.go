// Package app wires instances, searches and observability into runnable
// pipelines.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/bookscan/config"
	"github.com/kilianp07/bookscan/core/genetic"
	"github.com/kilianp07/bookscan/core/grasp"
	coremetrics "github.com/kilianp07/bookscan/core/metrics"
	"github.com/kilianp07/bookscan/core/model"
	"github.com/kilianp07/bookscan/core/runlog"
	"github.com/kilianp07/bookscan/core/tuning"
	"github.com/kilianp07/bookscan/core/tweak"
	"github.com/kilianp07/bookscan/infra/logger"
	"github.com/kilianp07/bookscan/internal/eventbus"
)

// Run kinds recorded in the history and run events.
const (
	KindSolve = "solve"
	KindTune  = "tune"
)

// Result is the outcome of one solve run.
type Result struct {
	RunID       string
	Instance    string
	Seed        uint64
	Schedule    *model.Schedule
	SeedScore   int
	Generations int
	Elapsed     time.Duration
	History     []genetic.GenerationStats
}

// TuneResult is the outcome of one tuning run.
type TuneResult struct {
	RunID       string
	Instance    string
	Best        tuning.Params
	Score       float64
	Evaluations int
	Elapsed     time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink sends generation and run events to s.
func WithSink(s coremetrics.MetricsSink) Option { return func(r *Runner) { r.sink = s } }

// WithStore appends every finished run to st.
func WithStore(st runlog.Store) Option { return func(r *Runner) { r.store = st } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(r *Runner) { r.log = l } }

// WithCheck validates every final schedule and fails the run on violations.
func WithCheck() Option { return func(r *Runner) { r.check = true } }

// Runner executes searches with one configuration. It is safe for concurrent
// use as long as the sink and store are.
type Runner struct {
	cfg   config.Config
	sink  coremetrics.MetricsSink
	store runlog.Store
	log   logger.Logger
	check bool
}

// NewRunner validates cfg and applies opts.
func NewRunner(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{cfg: *cfg, sink: coremetrics.NopSink{}, log: logger.New("runner")}
	for _, opt := range opts {
		opt(r)
	}
	if r.sink == nil {
		r.sink = coremetrics.NopSink{}
	}
	return r, nil
}

// Config returns a copy of the runner configuration.
func (r *Runner) Config() config.Config { return r.cfg }

// NewRand returns the random stream used for a run with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// construct builds the seed schedule with the timed multi-start construction.
func (r *Runner) construct(ctx context.Context, p *model.Problem, rng *rand.Rand, log logger.Logger) (*grasp.GRASP, *tweak.Tweaker, *model.Schedule, error) {
	tw, err := tweak.New(p, rng, r.cfg.Tweak)
	if err != nil {
		return nil, nil, nil, err
	}
	g := grasp.New(p, rng, r.cfg.GRASP.RCLFraction, grasp.WithTweaker(tw), grasp.WithLogger(log))
	seed := g.Generate(ctx, r.cfg.GRASP.Budget(), r.cfg.GRASP.LocalSearchBudget())
	return g, tw, seed, nil
}

// progress returns a bus forwarding generation events of one run to the sink.
func (r *Runner) progress(runID, instance string, log logger.Logger) (*eventbus.Bus[coremetrics.GenerationEvent], func(genetic.GenerationStats)) {
	bus := eventbus.NewBuffered[coremetrics.GenerationEvent](256)
	bus.Forward(func(ev coremetrics.GenerationEvent) {
		if err := r.sink.RecordGeneration(ev); err != nil {
			log.Warnf("record generation %d: %v", ev.Generation, err)
		}
	})
	return bus, func(st genetic.GenerationStats) {
		bus.Publish(GenerationEvent(runID, instance, st))
	}
}

// GenerationEvent converts loop statistics into a metrics event.
func GenerationEvent(runID, instance string, st genetic.GenerationStats) coremetrics.GenerationEvent {
	return coremetrics.GenerationEvent{
		RunID:             runID,
		Instance:          instance,
		Generation:        st.Generation,
		Best:              st.Best,
		BestEver:          st.BestEver,
		Mean:              st.Mean,
		StdDev:            st.StdDev,
		Worst:             st.Worst,
		Mode:              st.Mode.String(),
		ImmigrantFraction: st.ImmigrantFraction,
		Stagnant:          st.Stagnant,
		Elapsed:           st.Elapsed,
		Time:              time.Now(),
	}
}

// Solve builds a seed schedule for p and improves it with the genetic engine.
// A non nil params overrides the tuned genetic fields.
func (r *Runner) Solve(ctx context.Context, instance string, p *model.Problem, seed uint64, params *tuning.Params) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.NewWith("solve", map[string]string{"run_id": runID, "instance": instance})
	rng := NewRand(seed)

	g, tw, seedSchedule, err := r.construct(ctx, p, rng, log)
	if err != nil {
		return nil, err
	}
	gcfg := r.cfg.Genetic
	if params != nil {
		gcfg = params.Apply(gcfg)
	}
	bus, observe := r.progress(runID, instance, log)
	engine, err := genetic.NewEngine(p, seedSchedule, rng, tw, gcfg,
		genetic.WithLogger(log),
		genetic.WithSeeder(g),
		genetic.WithObserver(observe),
	)
	if err != nil {
		bus.Close()
		return nil, err
	}
	out := engine.Run(ctx, gcfg.TimeLimit())
	bus.Close()
	if d := bus.Dropped(); d > 0 {
		log.Warnf("%d progress events dropped", d)
	}

	best := out.Best
	if r.check {
		if err := best.Validate(p); err != nil {
			return nil, fmt.Errorf("invalid schedule for %s: %w", instance, err)
		}
	}
	res := &Result{
		RunID:       runID,
		Instance:    instance,
		Seed:        seed,
		Schedule:    best,
		SeedScore:   seedSchedule.Score,
		Generations: out.Generations,
		Elapsed:     time.Since(start),
		History:     out.History,
	}
	tuned := tuning.Params{MutationProb: gcfg.MutationProb, CrossoverRate: gcfg.CrossoverRate, ImmigrantFraction: gcfg.ImmigrantFraction}
	r.finish(ctx, log, runlog.RunRecord{
		ID:          runID,
		Kind:        KindSolve,
		Instance:    instance,
		Timestamp:   start,
		Score:       best.Score,
		SeedScore:   seedSchedule.Score,
		Generations: out.Generations,
		Duration:    res.Elapsed,
		Signed:      len(best.Signed),
		Seed:        seed,
		Params:      tuned.Map(),
	}, p.NumLibraries())
	log.Infof("score %d (seed %d) after %d generations, %d/%d libraries signed",
		best.Score, seedSchedule.Score, out.Generations, len(best.Signed), p.NumLibraries())
	return res, nil
}

// Tune searches genetic parameters for p.
func (r *Runner) Tune(ctx context.Context, instance string, p *model.Problem, seed uint64) (*TuneResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.NewWith("tune", map[string]string{"run_id": runID, "instance": instance})
	rng := NewRand(seed)

	_, _, seedSchedule, err := r.construct(ctx, p, rng, log)
	if err != nil {
		return nil, err
	}
	t, err := tuning.New(p, seedSchedule, r.cfg.Genetic, r.cfg.Tweak, r.cfg.Tuning, rng, log)
	if err != nil {
		return nil, err
	}
	bus, observe := r.progress(runID, instance, log)
	best, err := t.Run(ctx, genetic.WithObserver(observe))
	bus.Close()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	res := &TuneResult{
		RunID:       runID,
		Instance:    instance,
		Best:        best.Params,
		Score:       best.Score,
		Evaluations: t.Evaluations(),
		Elapsed:     time.Since(start),
	}
	r.finish(ctx, log, runlog.RunRecord{
		ID:          runID,
		Kind:        KindTune,
		Instance:    instance,
		Timestamp:   start,
		Score:       int(best.Score),
		SeedScore:   seedSchedule.Score,
		Generations: r.cfg.Tuning.Generations,
		Duration:    res.Elapsed,
		Seed:        seed,
		Params:      best.Params.Map(),
	}, p.NumLibraries())
	return res, err
}

// finish reports a completed run to the sink and the history store. Failures
// are logged and never fail the run.
func (r *Runner) finish(ctx context.Context, log logger.Logger, rec runlog.RunRecord, libraries int) {
	if rr, ok := r.sink.(coremetrics.RunRecorder); ok {
		err := rr.RecordRun(coremetrics.RunEvent{
			RunID:       rec.ID,
			Instance:    rec.Instance,
			Kind:        rec.Kind,
			Score:       rec.Score,
			SeedScore:   rec.SeedScore,
			Generations: rec.Generations,
			Signed:      rec.Signed,
			Libraries:   libraries,
			Duration:    rec.Duration,
			Time:        time.Now(),
		})
		if err != nil {
			log.Warnf("record run: %v", err)
		}
	}
	if r.store != nil {
		// the run context may already be done when the budget came from it
		if err := r.store.Append(context.WithoutCancel(ctx), rec); err != nil {
			log.Warnf("append run history: %v", err)
		}
	}
}
