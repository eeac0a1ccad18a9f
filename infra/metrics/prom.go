package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/bookscan/core/metrics"
)

// PromSink exposes search progress as Prometheus metrics.
type PromSink struct {
	best        *prometheus.GaugeVec
	mean        *prometheus.GaugeVec
	immigrants  *prometheus.GaugeVec
	generations *prometheus.CounterVec
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewPromSink registers search metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		best: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bookscan_best_score",
			Help: "Best score found so far by the running search",
		}, []string{"instance"}),
		mean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bookscan_population_mean_score",
			Help: "Mean score of the current population",
		}, []string{"instance"}),
		immigrants: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bookscan_immigrant_fraction",
			Help: "Fraction of the population replaced by immigrants each generation",
		}, []string{"instance"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookscan_generations_total",
			Help: "Total number of completed generations",
		}, []string{"instance", "mode"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookscan_runs_total",
			Help: "Total number of finished runs",
		}, []string{"instance", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookscan_run_duration_seconds",
			Help:    "Wall time of finished runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"instance", "kind"}),
	}

	var err error
	if s.best, err = register(reg, s.best); err != nil {
		return nil, err
	}
	if s.mean, err = register(reg, s.mean); err != nil {
		return nil, err
	}
	if s.immigrants, err = register(reg, s.immigrants); err != nil {
		return nil, err
	}
	if s.generations, err = register(reg, s.generations); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordGeneration updates the progress gauges and the generation counter.
func (s *PromSink) RecordGeneration(ev coremetrics.GenerationEvent) error {
	s.best.WithLabelValues(ev.Instance).Set(ev.BestEver)
	s.mean.WithLabelValues(ev.Instance).Set(ev.Mean)
	s.immigrants.WithLabelValues(ev.Instance).Set(ev.ImmigrantFraction)
	s.generations.WithLabelValues(ev.Instance, ev.Mode).Inc()
	return nil
}

// RecordRun counts the run and observes its duration.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Instance, ev.Kind).Inc()
	s.duration.WithLabelValues(ev.Instance, ev.Kind).Observe(ev.Duration.Seconds())
	s.best.WithLabelValues(ev.Instance).Set(float64(ev.Score))
	return nil
}
