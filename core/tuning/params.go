package tuning

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/bookscan/core/genetic"
)

// Params is the parameter vector explored by the tuner.
type Params struct {
	MutationProb      float64 `json:"mutation_prob" yaml:"mutation_prob"`
	CrossoverRate     float64 `json:"crossover_rate" yaml:"crossover_rate"`
	ImmigrantFraction float64 `json:"immigrant_fraction" yaml:"immigrant_fraction"`
}

// Apply returns cfg with the tuned fields replaced.
func (p Params) Apply(cfg genetic.Config) genetic.Config {
	cfg.MutationProb = p.MutationProb
	cfg.CrossoverRate = p.CrossoverRate
	cfg.ImmigrantFraction = p.ImmigrantFraction
	return cfg
}

// Map returns the parameters keyed by their configuration names.
func (p Params) Map() map[string]float64 {
	return map[string]float64{
		"mutation_prob":      p.MutationProb,
		"crossover_rate":     p.CrossoverRate,
		"immigrant_fraction": p.ImmigrantFraction,
	}
}

// Range is a closed interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func (r Range) width() float64 { return r.Max - r.Min }

func (r Range) validate(name string) error {
	if r.Min > r.Max || r.Min < 0 || r.Max > 1 {
		return fmt.Errorf("%s bounds [%g,%g] must be ordered within [0,1]", name, r.Min, r.Max)
	}
	return nil
}

// Bounds limits every tuned parameter.
type Bounds struct {
	MutationProb      Range `json:"mutation_prob"`
	CrossoverRate     Range `json:"crossover_rate"`
	ImmigrantFraction Range `json:"immigrant_fraction"`
}

// DefaultBounds returns the stock search box.
func DefaultBounds() Bounds {
	return Bounds{
		MutationProb:      Range{Min: 0.1, Max: 1},
		CrossoverRate:     Range{Min: 0, Max: 1},
		ImmigrantFraction: Range{Min: 0, Max: 0.3},
	}
}

// Validate checks every range.
func (b Bounds) Validate() error {
	return errors.Join(
		b.MutationProb.validate("mutation_prob"),
		b.CrossoverRate.validate("crossover_rate"),
		b.ImmigrantFraction.validate("immigrant_fraction"),
	)
}

// WriteYAML encodes p as a YAML document.
func WriteYAML(w io.Writer, p Params) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	return enc.Close()
}

// LoadParams reads a parameter file written by WriteYAML.
func LoadParams(path string) (Params, error) {
	var p Params
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode params %s: %w", path, err)
	}
	return p, nil
}
