package study

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambcl/chartstudies/pkg/core"
	logzero "github.com/gambcl/chartstudies/pkg/logger/zerolog"
)

type countingStudy struct {
	Emitter
	updates []int
	loads   int
}

func (c *countingStudy) Name() string                    { return "counting" }
func (c *countingStudy) Overlay() bool                   { return true }
func (c *countingStudy) Warmup() int                     { return 2 }
func (c *countingStudy) Metrics() []core.IndicatorMetric { return nil }
func (c *countingStudy) Annotations() []core.Annotation  { return nil }
func (c *countingStudy) Load(*core.Dataframe)            { c.loads++ }

func (c *countingStudy) OnBarUpdate(df *core.Dataframe) {
	c.updates = append(c.updates, df.Len())
	if df.LastComplete {
		c.Emit(core.Signal{Study: c.Name(), Kind: core.SignalImbalanceBullish, Time: df.Time[df.Len()-1]})
	}
}

func newController(t *testing.T) (*Controller, *countingStudy, *[]core.Signal) {
	t.Helper()
	nop := zerolog.Nop()
	s := &countingStudy{}
	c := NewController("BTCUSDT", []Study{s}, logzero.NewAdapter(&nop))

	signals := new([]core.Signal)
	c.Subscribe(func(signal core.Signal) { *signals = append(*signals, signal) })
	return c, s, signals
}

func candleAt(minute int, close float64) core.Candle {
	return core.Candle{
		Pair:  "BTCUSDT",
		Time:  time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC),
		Open:  close,
		High:  close,
		Low:   close,
		Close: close,
	}
}

func TestController_Warmup(t *testing.T) {
	c, s, _ := newController(t)

	c.OnCandle(candleAt(0, 1))
	assert.Empty(t, s.updates)

	c.OnCandle(candleAt(1, 2))
	assert.Equal(t, []int{2}, s.updates)
	assert.Equal(t, "BTCUSDT", c.Pair())
	assert.Len(t, c.Studies(), 1)
}

func TestController_SignalsAfterStart(t *testing.T) {
	c, _, signals := newController(t)

	c.OnCandle(candleAt(0, 1))
	c.OnCandle(candleAt(1, 2))
	assert.Empty(t, *signals)

	c.Start()
	c.OnCandle(candleAt(2, 3))
	require.Len(t, *signals, 1)
	assert.Equal(t, "BTCUSDT", (*signals)[0].Pair)
	assert.Equal(t, candleAt(2, 3).Time, (*signals)[0].Time)
}

func TestController_PartialCandles(t *testing.T) {
	c, s, signals := newController(t)
	c.Start()

	c.OnCandle(candleAt(0, 1))
	c.OnPartialCandle(candleAt(1, 2))
	c.OnPartialCandle(candleAt(1, 3))

	df := c.Dataframe()
	require.Equal(t, 2, df.Len())
	assert.Equal(t, 3.0, df.Close.Last(0))
	assert.False(t, df.LastComplete)
	assert.Equal(t, []int{2, 2}, s.updates)
	assert.Empty(t, *signals)

	c.OnCandle(candleAt(1, 4))
	assert.Equal(t, 2, df.Len())
	assert.Equal(t, 4.0, df.Close.Last(0))
	assert.True(t, df.LastComplete)
	assert.Len(t, *signals, 1)

	// updates of a closed candle and complete candles are not partial
	c.OnPartialCandle(candleAt(1, 5))
	closed := candleAt(2, 6)
	closed.Complete = true
	c.OnPartialCandle(closed)
	assert.Equal(t, 4.0, df.Close.Last(0))
	assert.Equal(t, 2, df.Len())
}

func TestController_LateCandle(t *testing.T) {
	c, s, _ := newController(t)

	c.OnCandle(candleAt(5, 1))
	c.OnCandle(candleAt(6, 2))
	c.OnCandle(candleAt(3, 9))
	c.OnPartialCandle(candleAt(4, 9))

	assert.Equal(t, 2, c.Dataframe().Len())
	assert.Equal(t, []int{2}, s.updates)
}

func TestController_Reload(t *testing.T) {
	c, s, _ := newController(t)
	c.OnCandle(candleAt(0, 1))
	c.Reload()
	assert.Equal(t, 1, s.loads)
}

func TestEmitter(t *testing.T) {
	var e Emitter
	var got []core.SignalKind
	e.OnSignal(func(s core.Signal) { got = append(got, s.Kind) })
	e.OnSignal(func(s core.Signal) { got = append(got, s.Kind) })

	e.Emit(core.Signal{Kind: core.SignalImbalanceFilled})
	assert.Equal(t, []core.SignalKind{core.SignalImbalanceFilled, core.SignalImbalanceFilled}, got)
}

func TestController_Preload(t *testing.T) {
	c, s, signals := newController(t)

	c.Preload([]core.Candle{candleAt(0, 1), candleAt(1, 2), candleAt(2, 3)})
	assert.Equal(t, 3, c.Dataframe().Len())
	assert.True(t, c.Dataframe().LastComplete)
	assert.Equal(t, 1, s.loads)
	assert.Empty(t, s.updates)

	c.Start()
	c.OnCandle(candleAt(3, 4))
	assert.Equal(t, []int{4}, s.updates)
	require.Len(t, *signals, 1)
	assert.Equal(t, candleAt(3, 4).Time, (*signals)[0].Time)
}
