// Package infra contains technical adapters such as the MQTT progress
// publisher and the metrics exporters. These packages depend only on the
// interfaces defined in the core packages.
package infra
