package instrument

import "strings"

// Class is the coarse instrument bucket that drives base price and
// per-tick volatility.
type Class int

const (
	FX Class = iota
	Gold
	Crypto
)

// Base prices anchor change/change-percent calculations. They never move.
const (
	fxBase     = 1.08
	goldBase   = 2641.68
	cryptoBase = 93000.0
)

// Per-tick volatility by class. Deltas are drawn as (uniform-0.5)*volatility.
const (
	fxVolatility     = 0.00015
	goldVolatility   = 0.35
	cryptoVolatility = 35.0
)

// Classify buckets a symbol by substring: BTC/ETH pairs are crypto, XAU
// pairs are gold, everything else is treated as FX.
func Classify(symbol string) Class {
	switch {
	case strings.Contains(symbol, "BTC") || strings.Contains(symbol, "ETH"):
		return Crypto
	case strings.Contains(symbol, "XAU"):
		return Gold
	default:
		return FX
	}
}

// BasePrice returns the fixed reference price for a symbol.
func BasePrice(symbol string) float64 {
	switch Classify(symbol) {
	case Crypto:
		return cryptoBase
	case Gold:
		return goldBase
	default:
		return fxBase
	}
}

// Volatility returns the per-tick volatility constant for a symbol.
func Volatility(symbol string) float64 {
	switch Classify(symbol) {
	case Crypto:
		return cryptoVolatility
	case Gold:
		return goldVolatility
	default:
		return fxVolatility
	}
}

// Precision returns the number of decimal places a price should be
// displayed with. USD-quoted crypto pairs use 2, everything else 5.
func Precision(symbol string) int {
	if Classify(symbol) == Crypto && strings.Contains(symbol, "USD") {
		return 2
	}
	return 5
}

// IsUp classifies the direction of a change value for display purposes.
func IsUp(change float64) bool {
	return change >= 0
}
