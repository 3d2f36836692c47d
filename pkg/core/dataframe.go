package core

import (
	"time"
)

// Dataframe is a time series container for OHLCV and custom metadata columns
// of a single pair. The last row may belong to a candle that is still forming.
type Dataframe struct {
	Pair string

	Close  Series[float64]
	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Volume Series[float64]

	Time       []time.Time
	LastUpdate time.Time

	// LastComplete reports whether the last row is a closed candle
	LastComplete bool

	// Custom user metadata columns
	Metadata map[string]Series[float64]
}

// NewDataframe creates an empty dataframe for the given pair
func NewDataframe(pair string) *Dataframe {
	return &Dataframe{
		Pair:     pair,
		Metadata: make(map[string]Series[float64]),
	}
}

// NewDataframeFromCandles builds a dataframe from a slice of candles in time order
func NewDataframeFromCandles(pair string, candles []Candle) *Dataframe {
	df := NewDataframe(pair)
	for _, candle := range candles {
		df.Append(candle)
	}
	return df
}

// Len returns the number of rows in the dataframe
func (df *Dataframe) Len() int {
	return len(df.Time)
}

// Candle rebuilds the candle stored at row i
func (df *Dataframe) Candle(i int) Candle {
	return Candle{
		Pair:     df.Pair,
		Time:     df.Time[i],
		Open:     df.Open[i],
		High:     df.High[i],
		Low:      df.Low[i],
		Close:    df.Close[i],
		Volume:   df.Volume[i],
		Complete: i < len(df.Time)-1 || df.LastComplete,
	}
}

// IsComplete reports whether row i holds a closed candle
func (df *Dataframe) IsComplete(i int) bool {
	return i < len(df.Time)-1 || df.LastComplete
}

// Append adds a new row for the candle
func (df *Dataframe) Append(candle Candle) {
	df.Close = append(df.Close, candle.Close)
	df.Open = append(df.Open, candle.Open)
	df.High = append(df.High, candle.High)
	df.Low = append(df.Low, candle.Low)
	df.Volume = append(df.Volume, candle.Volume)
	df.Time = append(df.Time, candle.Time)
	df.LastUpdate = candle.Time
	df.LastComplete = candle.Complete
	for k, v := range candle.Metadata {
		df.Metadata[k] = append(df.Metadata[k], v)
	}
}

// ReplaceLast overwrites the last row with the candle values
func (df *Dataframe) ReplaceLast(candle Candle) {
	last := len(df.Time) - 1
	df.Close[last] = candle.Close
	df.Open[last] = candle.Open
	df.High[last] = candle.High
	df.Low[last] = candle.Low
	df.Volume[last] = candle.Volume
	df.Time[last] = candle.Time
	df.LastComplete = candle.Complete
	for k, v := range candle.Metadata {
		if column, ok := df.Metadata[k]; ok && len(column) > last {
			column[last] = v
		}
	}
}
