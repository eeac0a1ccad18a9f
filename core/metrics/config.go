package metrics

import "github.com/kilianp07/bookscan/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// ListenAddr exposes /metrics when a prometheus sink is configured.
	ListenAddr string `json:"listen_addr"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":2112"
	}
}

// Wants reports whether a sink of the given type is configured.
func (c Config) Wants(typ string) bool {
	for _, s := range c.Sinks {
		if s.Type == typ {
			return true
		}
	}
	return false
}
