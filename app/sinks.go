package app

import (
	"fmt"

	"github.com/kilianp07/bookscan/config"
	coremetrics "github.com/kilianp07/bookscan/core/metrics"
	_ "github.com/kilianp07/bookscan/infra/metrics"
	"github.com/kilianp07/bookscan/infra/mqtt"
)

// NewSink builds the configured metrics sinks and, when enabled, the MQTT
// progress publisher behind a single sink.
func NewSink(cfg config.Config) (coremetrics.MetricsSink, error) {
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	if !cfg.MQTT.Enabled {
		return sink, nil
	}
	pub, err := mqtt.NewProgressPublisher(cfg.MQTT)
	if err != nil {
		_ = CloseSink(sink)
		return nil, fmt.Errorf("mqtt publisher: %w", err)
	}
	return coremetrics.NewMultiSink(sink, pub), nil
}

// CloseSink releases the resources held by s, if any.
func CloseSink(s coremetrics.MetricsSink) error {
	if c, ok := s.(coremetrics.Closer); ok {
		return c.Close()
	}
	return nil
}
