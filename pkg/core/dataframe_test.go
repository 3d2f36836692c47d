package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataframe_AppendAndReplace(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	df := NewDataframeFromCandles("BTCUSDT", []Candle{
		{Time: start, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, Complete: true},
		{Time: start.Add(time.Minute), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 5, Metadata: map[string]float64{"oi": 3}},
	})

	require.Equal(t, 2, df.Len())
	assert.True(t, df.IsComplete(0))
	assert.False(t, df.IsComplete(1))
	assert.Equal(t, start.Add(time.Minute), df.LastUpdate)

	df.ReplaceLast(Candle{Time: start.Add(time.Minute), Open: 1.5, High: 3, Low: 1, Close: 2.8, Volume: 8, Complete: true, Metadata: map[string]float64{"oi": 4}})
	assert.Equal(t, 2, df.Len())
	assert.True(t, df.IsComplete(1))
	assert.Equal(t, 3.0, df.High.Last(0))
	assert.Equal(t, Series[float64]{4}, df.Metadata["oi"])

	c := df.Candle(1)
	assert.Equal(t, "BTCUSDT", c.Pair)
	assert.Equal(t, 2.8, c.Close)
	assert.True(t, c.Complete)
}
