package metrics

import (
	"time"
)

// GenerationEvent summarizes one generation of a search run.
type GenerationEvent struct {
	RunID             string        `json:"run_id"`
	Instance          string        `json:"instance"`
	Generation        int           `json:"generation"`
	Best              float64       `json:"best"`
	BestEver          float64       `json:"best_ever"`
	Mean              float64       `json:"mean"`
	StdDev            float64       `json:"std_dev"`
	Worst             float64       `json:"worst"`
	Mode              string        `json:"mode"`
	ImmigrantFraction float64       `json:"immigrant_fraction"`
	Stagnant          int           `json:"stagnant"`
	Elapsed           time.Duration `json:"elapsed"`
	Time              time.Time     `json:"time"`
}

// MetricsSink records generation progress for observability purposes.
type MetricsSink interface {
	RecordGeneration(ev GenerationEvent) error
}

// RunEvent describes a finished run.
type RunEvent struct {
	RunID       string
	Instance    string
	Kind        string // solve or tune
	Score       int
	SeedScore   int
	Generations int
	Signed      int
	Libraries   int
	Duration    time.Duration
	Time        time.Time
}

// RunRecorder records finished runs.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// Closer is implemented by sinks holding network resources.
type Closer interface {
	Close() error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordGeneration(GenerationEvent) error { return nil }
func (NopSink) RecordRun(RunEvent) error               { return nil }
