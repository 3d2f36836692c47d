package core

import "math"

// HeikinAshi keeps the previous smoothed candle needed to build the next one
type HeikinAshi struct {
	previous Candle
}

func NewHeikinAshi() *HeikinAshi {
	return &HeikinAshi{}
}

// Fork copies the state, so a forming candle can be smoothed without
// affecting the candles that follow it.
func (ha *HeikinAshi) Fork() *HeikinAshi {
	fork := *ha
	return &fork
}

// CalculateHeikinAshi returns the smoothed version of c:
//   - close = (open + high + low + close) / 4
//   - open = (previous open + previous close) / 2
//   - high/low include the smoothed open and close
func (ha *HeikinAshi) CalculateHeikinAshi(c Candle) Candle {
	var out Candle

	prevOpen, prevClose := ha.previous.Open, ha.previous.Close
	if ha.previous.IsEmpty() {
		prevOpen, prevClose = c.Open, c.Close
	}

	out.Open = (prevOpen + prevClose) / 2
	out.Close = (c.Open + c.High + c.Low + c.Close) / 4
	out.High = math.Max(c.High, math.Max(out.Open, out.Close))
	out.Low = math.Min(c.Low, math.Min(out.Open, out.Close))

	ha.previous = out
	return out
}
