package wavetrend

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambcl/chartstudies/pkg/core"
)

var start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func waves(n int) []core.Candle {
	candles := make([]core.Candle, n)
	for i := range candles {
		price := 100 + 8*math.Sin(float64(i)/4) + 3*math.Cos(float64(i)/9)
		candles[i] = core.Candle{
			Pair:     "BTCUSDT",
			Time:     start.Add(time.Duration(i) * time.Hour),
			Open:     price - 0.5,
			High:     price + 1 + float64(i%3)/2,
			Low:      price - 1 - float64(i%4)/3,
			Close:    price,
			Complete: true,
		}
	}
	return candles
}

func newStudy(t *testing.T, opts Options) (*Study, *[]core.Signal) {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)

	signals := new([]core.Signal)
	s.OnSignal(func(signal core.Signal) { *signals = append(*signals, signal) })
	return s, signals
}

func stream(s *Study, candles []core.Candle) *core.Dataframe {
	df := core.NewDataframe("BTCUSDT")
	for _, c := range candles {
		df.Append(c)
		s.OnBarUpdate(df)
	}
	return df
}

func TestNew(t *testing.T) {
	for name, modify := range map[string]func(*Options){
		"channel": func(o *Options) { o.ChannelLength = 0 },
		"average": func(o *Options) { o.AverageLength = -1 },
		"ma":      func(o *Options) { o.MALength = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			modify(&opts)
			_, err := New(opts)
			require.ErrorIs(t, err, ErrInvalidLength)
		})
	}

	opts := DefaultOptions()
	opts.Overbought, opts.Oversold = -60, 60
	_, err := New(opts)
	require.ErrorIs(t, err, ErrInvalidGuides)

	s, err := New(DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 33, s.Warmup())
	assert.False(t, s.Overlay())
}

func TestCalculate_LinearPrices(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	opts := Options{ChannelLength: 2, AverageLength: 2, MALength: 2}

	// esa trails the price by 0.5, so the deviation is constant and
	// ci = 0.5 / (0.015 * 0.5)
	fast, slow, delta := Calculate(opts, prices, prices, prices)
	for i := range prices {
		if i < 4 {
			assert.True(t, math.IsNaN(fast[i]), "index %d", i)
			continue
		}
		assert.InDelta(t, 200.0/3.0, fast[i], 1e-9, "index %d", i)
		assert.InDelta(t, 200.0/3.0, slow[i], 1e-9, "index %d", i)
		assert.InDelta(t, 0, delta[i], 1e-9, "index %d", i)
	}
}

func TestCalculate_FlatPrices(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 42
	}

	fast, slow, _ := Calculate(DefaultOptions(), prices, prices, prices)
	assert.True(t, math.IsNaN(fast[28]))
	for i := 29; i < len(prices); i++ {
		assert.Equal(t, 0.0, fast[i])
		assert.Equal(t, 0.0, slow[i])
	}
}

func TestCalculate_ShortInput(t *testing.T) {
	prices := make([]float64, 29)
	fast, slow, delta := Calculate(DefaultOptions(), prices, prices, prices)
	require.Len(t, fast, 29)
	for i := range prices {
		assert.True(t, math.IsNaN(fast[i]))
		assert.True(t, math.IsNaN(slow[i]))
		assert.True(t, math.IsNaN(delta[i]))
	}
}

func TestStudy_StreamingMatchesBatch(t *testing.T) {
	candles := waves(200)

	streamed, signals := newStudy(t, DefaultOptions())
	df := stream(streamed, candles)

	loaded, loadSignals := newStudy(t, DefaultOptions())
	loaded.Load(df)
	assert.Empty(t, *loadSignals)

	fast, slow, _ := Calculate(DefaultOptions(), df.High, df.Low, df.Close)
	for i := range candles {
		if i < 33 {
			assert.True(t, math.IsNaN(streamed.fast[i]))
			assert.True(t, math.IsNaN(loaded.fast[i]))
			continue
		}
		assert.InDelta(t, fast[i], streamed.fast[i], 1e-6, "index %d", i)
		assert.InDelta(t, slow[i], streamed.slow[i], 1e-6, "index %d", i)
		assert.InDelta(t, fast[i], loaded.fast[i], 1e-9, "index %d", i)
	}

	require.NotEmpty(t, streamed.Crosses())
	require.Equal(t, len(loaded.Crosses()), len(streamed.Crosses()))
	for i, cross := range streamed.Crosses() {
		assert.Equal(t, loaded.Crosses()[i].Index, cross.Index)
		assert.Equal(t, loaded.Crosses()[i].Bullish, cross.Bullish)
		assert.Greater(t, cross.Index, 33)
	}
	require.Len(t, *signals, len(streamed.Crosses()))

	values := streamed.Values()
	require.Len(t, values, 200-33)
	last, ok := streamed.Last()
	require.True(t, ok)
	assert.Equal(t, values[len(values)-1], last)
}

func TestStudy_LongMALength(t *testing.T) {
	opts := DefaultOptions()
	opts.MALength = 65
	candles := waves(300)

	s, _ := newStudy(t, opts)
	df := core.NewDataframe("BTCUSDT")
	for _, c := range candles {
		forming := c
		forming.Complete = false
		forming.Close += 5
		df.Append(forming)
		s.OnBarUpdate(df)

		df.ReplaceLast(c)
		s.OnBarUpdate(df)
	}

	warmup := s.Warmup()
	require.Equal(t, 95, warmup)

	fast, slow, _ := Calculate(opts, df.High, df.Low, df.Close)
	require.True(t, math.IsNaN(slow[warmup-10]))
	for i := warmup; i < len(candles); i++ {
		assert.InDelta(t, fast[i], s.fast[i], 1e-6, "index %d", i)
		assert.InDelta(t, slow[i], s.slow[i], 1e-6, "index %d", i)
	}
}

func TestStudy_CrossSignals(t *testing.T) {
	s, signals := newStudy(t, DefaultOptions())
	stream(s, waves(200))

	for i, cross := range s.Crosses() {
		signal := (*signals)[i]
		assert.Equal(t, cross.Time, signal.Time)
		assert.Equal(t, Name, signal.Study)
		assert.Equal(t, cross.Value, signal.Low)

		fast, slow := s.fast[cross.Index], s.slow[cross.Index]
		prevFast, prevSlow := s.fast[cross.Index-1], s.slow[cross.Index-1]
		if cross.Bullish {
			assert.Equal(t, core.SignalWaveTrendBullishCross, signal.Kind)
			assert.Greater(t, fast, slow)
			assert.LessOrEqual(t, prevFast, prevSlow)
		} else {
			assert.Equal(t, core.SignalWaveTrendBearishCross, signal.Kind)
			assert.LessOrEqual(t, fast, slow)
			assert.Greater(t, prevFast, prevSlow)
		}
	}
}

func TestStudy_FormingBarPreview(t *testing.T) {
	candles := waves(80)
	s, _ := newStudy(t, DefaultOptions())
	df := stream(s, candles[:60])

	forming := candles[60]
	forming.Complete = false
	forming.Close += 5
	df.Append(forming)
	s.OnBarUpdate(df)

	fast, _, _ := Calculate(DefaultOptions(), df.High, df.Low, df.Close)
	require.Len(t, s.fast, 61)
	assert.InDelta(t, fast[60], s.fast[60], 1e-6)

	// a later update of the same bar replaces the preview
	forming.Close = candles[60].Close
	forming.Complete = true
	df.ReplaceLast(forming)
	s.OnBarUpdate(df)

	fast, _, _ = Calculate(DefaultOptions(), df.High, df.Low, df.Close)
	require.Len(t, s.fast, 61)
	assert.InDelta(t, fast[60], s.fast[60], 1e-6)

	// the committed state keeps matching the batch result
	for _, c := range candles[61:] {
		df.Append(c)
		s.OnBarUpdate(df)
	}
	fast, _, _ = Calculate(DefaultOptions(), df.High, df.Low, df.Close)
	assert.InDelta(t, fast[79], s.fast[79], 1e-6)
}

func TestStudy_LoadWithFormingBar(t *testing.T) {
	candles := waves(70)
	candles[69].Complete = false

	s, _ := newStudy(t, DefaultOptions())
	df := core.NewDataframeFromCandles("BTCUSDT", candles)
	s.Load(df)
	require.Len(t, s.fast, 70)

	candles[69].Complete = true
	candles[69].Close -= 2
	df.ReplaceLast(candles[69])
	s.OnBarUpdate(df)

	fast, _, _ := Calculate(DefaultOptions(), df.High, df.Low, df.Close)
	require.Len(t, s.fast, 70)
	assert.InDelta(t, fast[69], s.fast[69], 1e-6)
}

func TestStudy_Zone(t *testing.T) {
	s, _ := newStudy(t, DefaultOptions())
	assert.Equal(t, Overbought, s.Zone(60))
	assert.Equal(t, Oversold, s.Zone(-75))
	assert.Equal(t, Neutral, s.Zone(12))
}

func TestStudy_MetricsAndAnnotations(t *testing.T) {
	s, _ := newStudy(t, DefaultOptions())
	assert.Nil(t, s.Metrics())

	stream(s, waves(100))
	metrics := s.Metrics()
	require.Len(t, metrics, 3)
	assert.Equal(t, "Fast Wave", metrics[0].Name)
	assert.Equal(t, "Slow Wave", metrics[1].Name)
	assert.Equal(t, "Wave Delta", metrics[2].Name)
	for _, metric := range metrics {
		assert.Len(t, metric.Values, 100)
		assert.Len(t, metric.Time, 100)
	}

	annotations := s.Annotations()
	require.Len(t, annotations, len(s.Crosses())+3)
	guides := annotations[len(annotations)-3:]
	assert.Equal(t, 60.0, guides[0].Price)
	assert.Equal(t, 0.0, guides[1].Price)
	assert.Equal(t, -60.0, guides[2].Price)
}

func TestStudy_Describe(t *testing.T) {
	s, _ := newStudy(t, DefaultOptions())
	assert.Equal(t, "warming up", s.Describe())

	stream(s, waves(100))
	last, ok := s.Last()
	require.True(t, ok)
	assert.Contains(t, s.Describe(), fmt.Sprintf("fast %.2f, slow %.2f", last.Fast, last.Slow))
	assert.Contains(t, s.Describe(), s.Zone(last.Fast).String())
}
