// Package config loads the application configuration from a YAML or JSON file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/bookscan/core/genetic"
	"github.com/kilianp07/bookscan/core/grasp"
	"github.com/kilianp07/bookscan/core/metrics"
	"github.com/kilianp07/bookscan/core/runlog"
	"github.com/kilianp07/bookscan/core/tuning"
	"github.com/kilianp07/bookscan/core/tweak"
	"github.com/kilianp07/bookscan/infra/logger"
	"github.com/kilianp07/bookscan/infra/mqtt"
)

// EnvPrefix marks environment variables that override file values.
// BOOKSCAN_GENETIC__POPULATION_SIZE sets genetic.population_size.
const EnvPrefix = "BOOKSCAN_"

type Config struct {
	Log     logger.Config  `json:"log"`
	GRASP   grasp.Config   `json:"grasp"`
	Genetic genetic.Config `json:"genetic"`
	Tweak   tweak.Config   `json:"tweak"`
	Tuning  tuning.Config  `json:"tuning"`
	Metrics metrics.Config `json:"metrics"`
	Runs    runlog.Config  `json:"runs"`
	MQTT    mqtt.Config    `json:"mqtt"`
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.presetSearch()
	c.fillUnset()
}

// presetSearch defaults the search sections, where zero is a meaningful
// value (a zero budget, no crossover, no immigrants). Load applies it before
// decoding so that explicit zeros survive.
func (c *Config) presetSearch() {
	c.GRASP.SetDefaults()
	c.Genetic.SetDefaults()
	c.Tuning.SetDefaults()
}

// fillUnset defaults the sections whose empty values mean unset.
func (c *Config) fillUnset() {
	c.Log.SetDefaults()
	c.Tweak.SetDefaults()
	c.Metrics.SetDefaults()
	c.Runs.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	check("log", c.Log.Validate())
	check("grasp", c.GRASP.Validate())
	check("genetic", c.Genetic.Validate())
	check("tweak", c.Tweak.Validate())
	check("tuning", c.Tuning.Validate())
	check("runs", c.Runs.Validate())
	check("mqtt", c.MQTT.Validate())
	return errors.Join(errs...)
}

// Load reads path, applies environment overrides, defaults and validation.
// An empty path yields the defaults with environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	cfg.presetSearch()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.fillUnset()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
