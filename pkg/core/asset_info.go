package core

import "math"

// AssetInfo contains market information about a trading pair
type AssetInfo struct {
	BaseAsset  string
	QuoteAsset string

	MinPrice    float64
	MaxPrice    float64
	MinQuantity float64
	MaxQuantity float64
	StepSize    float64
	TickSize    float64

	QuotePrecision     int
	BaseAssetPrecision int
}

// RoundToTick rounds a price to the nearest multiple of the tick size.
// Prices are returned unchanged when no tick size is known.
func (a AssetInfo) RoundToTick(price float64) float64 {
	if a.TickSize <= 0 {
		return price
	}
	ticks := math.Round(price / a.TickSize)
	rounded := ticks * a.TickSize
	if a.QuotePrecision > 0 {
		pow := math.Pow10(a.QuotePrecision)
		rounded = math.Round(rounded*pow) / pow
	}
	return rounded
}

// Ticks expresses a price distance in ticks
func (a AssetInfo) Ticks(distance float64) float64 {
	if a.TickSize <= 0 {
		return distance
	}
	return distance / a.TickSize
}

// PricePrecision returns the number of decimals used to format prices
func (a AssetInfo) PricePrecision() int {
	if a.QuotePrecision > 0 {
		return a.QuotePrecision
	}
	if a.TickSize > 0 {
		return int(NumDecPlaces(a.TickSize))
	}
	return 2
}
