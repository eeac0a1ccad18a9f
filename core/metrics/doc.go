// Package metrics defines the events emitted while searching and the sink
// interfaces that record them. Sinks like PromSink and InfluxSink live in
// infra/metrics and register themselves with the factory; NewMetricsSink
// returns a MultiSink automatically when several sinks are configured.
package metrics
