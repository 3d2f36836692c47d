// Package indicator wraps the go-talib functions used by the studies and
// provides streaming counterparts that can be updated one value at a time.
package indicator

import "github.com/markcheno/go-talib"

// EMA calculates Exponential Moving Average.
// The first period-1 values are zero; input shorter than period yields zeros.
func EMA(input []float64, period int) []float64 {
	if period <= 0 || len(input) < period {
		return make([]float64, len(input))
	}
	return talib.Ema(input, period)
}

// SMA calculates Simple Moving Average.
// The first period-1 values are zero; input shorter than period yields zeros.
func SMA(input []float64, period int) []float64 {
	if period <= 0 || len(input) < period {
		return make([]float64, len(input))
	}
	return talib.Sma(input, period)
}

// TypPrice calculates Typical Price
func TypPrice(high []float64, low []float64, close []float64) []float64 {
	return talib.TypPrice(high, low, close)
}
