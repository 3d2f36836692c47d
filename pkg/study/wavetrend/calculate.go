package wavetrend

import (
	"math"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/indicator"
)

func channelIndex(tp, esa, de float64) float64 {
	if de == 0 {
		return 0
	}
	return (tp - esa) / (ciFactor * de)
}

// Calculate returns the fast wave, slow wave and delta of the given bars.
// Each average starts once its input is defined; bars before the slow wave
// is available are NaN.
func Calculate(opts Options, high, low, close []float64) (fast, slow, delta core.Series[float64]) {
	n := len(close)
	fast, slow, delta = core.NaNSeries(n), core.NaNSeries(n), core.NaNSeries(n)

	ch, avg, ma := opts.ChannelLength, opts.AverageLength, opts.MALength
	if n < 2*ch+avg+ma-3 {
		return fast, slow, delta
	}

	tp := indicator.TypPrice(high, low, close)
	esa := indicator.EMA(tp, ch)

	esaStart := ch - 1
	deviation := make([]float64, n-esaStart)
	for k := range deviation {
		deviation[k] = math.Abs(tp[esaStart+k] - esa[esaStart+k])
	}
	de := indicator.EMA(deviation, ch)

	ciStart := esaStart + ch - 1
	ci := make([]float64, n-ciStart)
	for k := range ci {
		i := ciStart + k
		ci[k] = channelIndex(tp[i], esa[i], de[i-esaStart])
	}
	wt1 := indicator.EMA(ci, avg)

	wt1Start := ciStart + avg - 1
	wt2 := indicator.SMA(wt1[avg-1:], ma)

	for i := wt1Start + ma - 1; i < n; i++ {
		fast[i] = wt1[i-ciStart]
		slow[i] = wt2[i-wt1Start]
		delta[i] = fast[i] - slow[i]
	}
	return fast, slow, delta
}

// state is the streaming form of Calculate. Use clone to snapshot it.
type state struct {
	esa indicator.EMAStream
	de  indicator.EMAStream
	wt1 indicator.EMAStream
	wt2 indicator.SMAStream
}

func newState(opts Options) state {
	return state{
		esa: indicator.NewEMAStream(opts.ChannelLength),
		de:  indicator.NewEMAStream(opts.ChannelLength),
		wt1: indicator.NewEMAStream(opts.AverageLength),
		wt2: indicator.NewSMAStream(opts.MALength),
	}
}

func (st state) clone() state {
	st.wt2 = st.wt2.Clone()
	return st
}

func (st *state) update(tp float64) (fast, slow float64, ok bool) {
	esa := st.esa.Update(tp)
	if !st.esa.Ready() {
		return 0, 0, false
	}

	de := st.de.Update(math.Abs(tp - esa))
	if !st.de.Ready() {
		return 0, 0, false
	}

	fast = st.wt1.Update(channelIndex(tp, esa, de))
	if !st.wt1.Ready() {
		return 0, 0, false
	}

	slow = st.wt2.Update(fast)
	return fast, slow, st.wt2.Ready()
}
