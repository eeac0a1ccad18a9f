package metrics

import "errors"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordGeneration forwards the event to all sinks. Every sink is tried and
// the errors are joined.
func (m *MultiSink) RecordGeneration(ev GenerationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordGeneration(ev))
	}
	return errors.Join(errs...)
}

// RecordRun forwards run events to sinks implementing RunRecorder.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(RunRecorder); ok {
			errs = append(errs, rec.RecordRun(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes sinks implementing Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
