package tweak

import (
	"errors"
	"fmt"
	"math"
)

// Kind identifies one neighbourhood operator.
type Kind int

const (
	SwapSignedUnsigned Kind = iota
	SwapDuplicateProvider
	SwapOrder
	SwapLastBook
	Shuffle
)

// Kinds lists every operator in weight table order.
var Kinds = []Kind{SwapSignedUnsigned, SwapDuplicateProvider, SwapOrder, SwapLastBook, Shuffle}

var kindNames = map[Kind]string{
	SwapSignedUnsigned:    "swap_signed_unsigned",
	SwapDuplicateProvider: "swap_duplicate_provider",
	SwapOrder:             "swap_order",
	SwapLastBook:          "swap_last_book",
	Shuffle:               "shuffle",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the operator registered under name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown tweak %q", name)
}

// Bias steers which signed position SwapSignedUnsigned replaces.
type Bias string

const (
	BiasNone       Bias = "none"
	BiasFirstHalf  Bias = "favor_first_half"
	BiasSecondHalf Bias = "favor_second_half"
)

const defaultBiasRate = 2.0 / 3.0

// Config holds the operator weight table and the swap bias.
type Config struct {
	Weights   map[string]float64 `json:"weights"`
	Bias      Bias               `json:"bias"`
	BiasRatio float64            `json:"bias_ratio"`
}

// DefaultWeights returns the stock weight table.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		SwapSignedUnsigned.String():    0.5,
		SwapDuplicateProvider.String(): 0.2,
		SwapOrder.String():             0.1,
		SwapLastBook.String():          0.1,
		Shuffle.String():               0.1,
	}
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if len(c.Weights) == 0 {
		c.Weights = DefaultWeights()
	}
	if c.Bias == "" {
		c.Bias = BiasNone
	}
	if c.BiasRatio == 0 {
		c.BiasRatio = defaultBiasRate
	}
}

// Validate checks that the weights form a distribution dominated by
// SwapSignedUnsigned.
func (c Config) Validate() error {
	var errs []error
	total := 0.0
	for name, w := range c.Weights {
		if _, err := ParseKind(name); err != nil {
			errs = append(errs, err)
		}
		if w < 0 {
			errs = append(errs, fmt.Errorf("tweak %s has negative weight %g", name, w))
		}
		total += w
	}
	if math.Abs(total-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("tweak weights sum to %g, want 1", total))
	}
	lead := c.Weights[SwapSignedUnsigned.String()]
	for name, w := range c.Weights {
		if name != SwapSignedUnsigned.String() && w >= lead {
			errs = append(errs, fmt.Errorf("tweak %s weight %g not below %s weight %g", name, w, SwapSignedUnsigned, lead))
		}
	}
	switch c.Bias {
	case BiasNone, BiasFirstHalf, BiasSecondHalf:
	default:
		errs = append(errs, fmt.Errorf("unknown bias %q", c.Bias))
	}
	if c.BiasRatio < 0 || c.BiasRatio > 1 {
		errs = append(errs, fmt.Errorf("bias_ratio must be in [0,1], got %g", c.BiasRatio))
	}
	return errors.Join(errs...)
}

func (c Config) table() []float64 {
	w := make([]float64, len(Kinds))
	for i, k := range Kinds {
		w[i] = c.Weights[k.String()]
	}
	return w
}
