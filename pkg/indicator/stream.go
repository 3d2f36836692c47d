package indicator

import "slices"

// EMAStream calculates an Exponential Moving Average one value at a time.
// It is seeded with the simple average of the first period values, the same
// convention talib uses, so both produce identical series.
// The zero value is not usable; create it with NewEMAStream.
type EMAStream struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

func NewEMAStream(period int) EMAStream {
	return EMAStream{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

// Update feeds a value and returns the current average
func (e *EMAStream) Update(value float64) float64 {
	e.count++
	if e.count <= e.period {
		e.sum += value
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return e.current
	}

	e.current = (value-e.current)*e.multiplier + e.current
	return e.current
}

func (e EMAStream) Value() float64 { return e.current }
func (e EMAStream) Ready() bool    { return e.count >= e.period }
func (e EMAStream) Period() int    { return e.period }

// SMAStream calculates a Simple Moving Average over a rolling window.
// The window is a slice, use Clone to get an independent copy.
type SMAStream struct {
	period  int
	buf     []float64
	idx     int
	count   int
	sum     float64
	current float64
}

func NewSMAStream(period int) SMAStream {
	return SMAStream{period: period, buf: make([]float64, period)}
}

// Clone returns a copy that does not share the window
func (s SMAStream) Clone() SMAStream {
	s.buf = slices.Clone(s.buf)
	return s
}

// Update feeds a value and returns the current average
func (s *SMAStream) Update(value float64) float64 {
	if s.count >= s.period {
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = value
	s.sum += value
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
	return s.current
}

func (s SMAStream) Value() float64 { return s.current }
func (s SMAStream) Ready() bool    { return s.count >= s.period }
func (s SMAStream) Period() int    { return s.period }
