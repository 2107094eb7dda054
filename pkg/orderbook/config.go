package orderbook

import "github.com/shopspring/decimal"

// Config tunes the book's outlier guard and display behavior. Zero-value
// Config is not valid; use DefaultConfig or fill both fields.
type Config struct {
	// OutlierFactor bounds how far an order may rest behind the best price
	// before Insert silently drops it. A price that beats the current best
	// always passes. With a factor of 2.0, a bid below half of the price that
	// last set a new best bid is rejected, as is an ask above double the
	// price that last set a new best ask.
	OutlierFactor decimal.Decimal

	// DisplayCutoff is the node count above which Display switches from a
	// side's full level listing to a summary line.
	DisplayCutoff int
}

// DefaultConfig matches the original implementation's defaults: an outlier
// factor of 2.0 and a display cutoff of 1000 nodes per side.
func DefaultConfig() Config {
	return Config{
		OutlierFactor: decimal.NewFromInt(2),
		DisplayCutoff: 1000,
	}
}
