// Package imbalance detects volume imbalances: gaps between the close of a
// bar and the open of the next one when both bars move the same way.
package imbalance

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/study"
)

const Name = "Volume Imbalances"

var (
	ErrInvalidTickSize = errors.New("tick size must be positive")
	ErrInvalidMinTicks = errors.New("minimum gap must not be negative")
)

// tolerance absorbs float error when a gap is an exact multiple of the tick
const tolerance = 1e-9

type Direction int

const (
	Bullish Direction = iota
	Bearish
)

func (d Direction) String() string {
	if d == Bullish {
		return "bullish"
	}
	return "bearish"
}

type Imbalance struct {
	Start      time.Time
	StartIndex int
	Direction  Direction
	High       float64
	Low        float64

	Filled      bool
	FilledTime  time.Time
	FilledIndex int

	// Active is false while the forming bar no longer shows the gap
	Active bool

	// MarkerPrice is the low (bullish) or high (bearish) of the start bar
	MarkerPrice float64
}

// Price is the edge of the gap that is drawn: the high of a bullish
// imbalance and the low of a bearish one.
func (i *Imbalance) Price() float64 {
	if i.Direction == Bullish {
		return i.High
	}
	return i.Low
}

func (i *Imbalance) fill(t time.Time, index int) {
	i.Filled = true
	i.FilledTime = t
	i.FilledIndex = index
}

type Options struct {
	MinTicks float64
	Bullish  bool
	Bearish  bool
	Asset    core.AssetInfo
}

func DefaultOptions() Options {
	return Options{MinTicks: 1, Bullish: true, Bearish: true}
}

type Study struct {
	study.Emitter

	opts     Options
	unfilled []*Imbalance
	filled   []*Imbalance

	next      int
	prevStart time.Time
	prevHigh  float64
	prevLow   float64
	df        *core.Dataframe
}

var _ study.Study = (*Study)(nil)

func New(opts Options) (*Study, error) {
	if opts.Asset.TickSize <= 0 {
		return nil, fmt.Errorf("imbalance: tick size %v: %w", opts.Asset.TickSize, ErrInvalidTickSize)
	}
	if opts.MinTicks < 0 {
		return nil, fmt.Errorf("imbalance: min ticks %v: %w", opts.MinTicks, ErrInvalidMinTicks)
	}
	return &Study{opts: opts}, nil
}

func (s *Study) Name() string           { return Name }
func (s *Study) Overlay() bool          { return true }
func (s *Study) Warmup() int            { return 2 }
func (s *Study) Unfilled() []*Imbalance { return s.unfilled }
func (s *Study) Filled() []*Imbalance   { return s.filled }

// Imbalances returns the visible imbalances, filled or not, ordered by start
func (s *Study) Imbalances() []*Imbalance {
	result := lo.Filter(append(slices.Clone(s.filled), s.unfilled...), func(imb *Imbalance, _ int) bool {
		return imb.Active
	})
	slices.SortStableFunc(result, func(a, b *Imbalance) int {
		return a.StartIndex - b.StartIndex
	})
	return result
}

func (s *Study) reset() {
	s.unfilled = nil
	s.filled = nil
	s.next = 0
	s.prevStart = time.Time{}
}

// Load recalculates every imbalance from the whole dataframe. Signals are not raised.
func (s *Study) Load(df *core.Dataframe) {
	s.reset()
	s.df = df
	if df.Len() == 0 {
		return
	}

	for i := 1; i < df.Len(); i++ {
		s.detectFilled(df, i, true, true)
		s.detectUnfilled(df, i)
	}

	last := df.Len() - 1
	s.remember(df, last)
	s.next = last + 1
	if !df.IsComplete(last) {
		s.next = last
	}
}

// OnBarUpdate processes new bars and the updates of the forming bar
func (s *Study) OnBarUpdate(df *core.Dataframe) {
	s.df = df
	for i := s.next; i < df.Len(); i++ {
		if i == 0 {
			s.remember(df, i)
			if df.IsComplete(i) {
				s.next = i + 1
			}
			continue
		}

		newBar := !df.Time[i].Equal(s.prevStart)
		if newBar {
			s.prevHigh = -math.MaxFloat64
			s.prevLow = math.MaxFloat64
			s.expire(i)
		}

		checkHigh := df.High[i] > s.prevHigh
		checkLow := df.Low[i] < s.prevLow
		if newBar || checkHigh || checkLow {
			for _, imb := range s.detectFilled(df, i, checkHigh, checkLow) {
				s.emitFilled(df.Pair, imb)
			}
		}

		current := s.detectUnfilled(df, i)
		s.remember(df, i)

		if df.IsComplete(i) {
			if current != nil && current.Active {
				s.emitDetected(df.Pair, current)
			}
			s.next = i + 1
		}
	}
}

func (s *Study) remember(df *core.Dataframe, i int) {
	s.prevStart = df.Time[i]
	s.prevHigh = df.High[i]
	s.prevLow = df.Low[i]
}

// expire drops the imbalances of older bars that disappeared before their bar closed
func (s *Study) expire(current int) {
	s.unfilled = lo.Reject(s.unfilled, func(imb *Imbalance, _ int) bool {
		return !imb.Active && imb.StartIndex < current
	})
}

// detectFilled moves the imbalances traded through by bar i to the filled list
func (s *Study) detectFilled(df *core.Dataframe, i int, checkHigh, checkLow bool) []*Imbalance {
	high, low := df.High[i], df.Low[i]

	var filled []*Imbalance
	for _, imb := range s.unfilled {
		if i <= imb.StartIndex || imb.Filled || !imb.Active {
			continue
		}

		if (checkHigh && high >= imb.Low && low < imb.Low) ||
			(checkLow && low <= imb.High && high > imb.High) {
			imb.fill(df.Time[i], i)
			filled = append(filled, imb)
		}
	}

	if len(filled) > 0 {
		s.filled = append(s.filled, filled...)
		s.unfilled = lo.Reject(s.unfilled, func(imb *Imbalance, _ int) bool {
			return imb.Filled
		})
	}
	return filled
}

// detectUnfilled evaluates the gap between bar i-1 and bar i. An imbalance
// already created for bar i is toggled active or inactive instead of duplicated.
func (s *Study) detectUnfilled(df *core.Dataframe, i int) *Imbalance {
	prev := i - 1
	prevClose, open := df.Close[prev], df.Open[i]
	ticks := s.opts.Asset.Ticks(math.Abs(open - prevClose))
	bigEnough := ticks+tolerance >= s.opts.MinTicks

	prevBar, bar := df.Candle(prev), df.Candle(i)

	var current *Imbalance
	if n := len(s.unfilled); n > 0 && s.unfilled[n-1].StartIndex == i {
		current = s.unfilled[n-1]
	}

	active := false
	switch {
	case s.opts.Bullish && prevBar.IsBullish() && bar.IsBullish() && open > prevClose && bigEnough:
		active = true
		if current == nil {
			current = s.add(df, i, Bullish, open, prevClose)
		}
		current.MarkerPrice = df.Low[i]
	case s.opts.Bearish && prevBar.IsBearish() && bar.IsBearish() && open < prevClose && bigEnough:
		active = true
		if current == nil {
			current = s.add(df, i, Bearish, prevClose, open)
		}
		current.MarkerPrice = df.High[i]
	}

	if current != nil {
		current.Active = active
	}
	return current
}

func (s *Study) add(df *core.Dataframe, i int, direction Direction, high, low float64) *Imbalance {
	imb := &Imbalance{
		Start:      df.Time[i],
		StartIndex: i,
		Direction:  direction,
		High:       high,
		Low:        low,
	}
	s.unfilled = append(s.unfilled, imb)
	return imb
}

func (s *Study) emitDetected(pair string, imb *Imbalance) {
	kind := core.SignalImbalanceBullish
	if imb.Direction == Bearish {
		kind = core.SignalImbalanceBearish
	}

	s.Emit(core.Signal{
		Pair:  pair,
		Study: Name,
		Kind:  kind,
		Time:  imb.Start,
		Price: imb.Price(),
		High:  imb.High,
		Low:   imb.Low,
		Message: fmt.Sprintf("%s volume imbalance %.*f-%.*f (%.0f ticks)", imb.Direction,
			s.opts.Asset.PricePrecision(), imb.Low, s.opts.Asset.PricePrecision(), imb.High,
			s.opts.Asset.Ticks(imb.High-imb.Low)),
	})
}

func (s *Study) emitFilled(pair string, imb *Imbalance) {
	s.Emit(core.Signal{
		Pair:  pair,
		Study: Name,
		Kind:  core.SignalImbalanceFilled,
		Time:  imb.FilledTime,
		Price: imb.Price(),
		High:  imb.High,
		Low:   imb.Low,
		Message: fmt.Sprintf("%s volume imbalance from %s filled", imb.Direction,
			imb.Start.Format(time.DateTime)),
	})
}

// Metrics is empty: imbalances are drawn as annotations only
func (s *Study) Metrics() []core.IndicatorMetric {
	return nil
}

// Annotations draws a line at the gap edge, ending where the gap was filled,
// and a marker under (bullish) or over (bearish) the start bar.
func (s *Study) Annotations() []core.Annotation {
	var annotations []core.Annotation
	for _, imb := range s.Imbalances() {
		color, position, label := "green", core.PositionBottom, "Bullish Volume Imbalance"
		if imb.Direction == Bearish {
			color, position, label = "red", core.PositionTop, "Bearish Volume Imbalance"
		}

		annotations = append(annotations,
			core.Annotation{
				Kind:  core.AnnotationLevel,
				Label: label,
				Start: imb.Start,
				End:   imb.FilledTime,
				Price: imb.Price(),
				High:  imb.High,
				Low:   imb.Low,
				Color: color,
			},
			core.Annotation{
				Kind:     core.AnnotationMarker,
				Label:    label,
				Start:    imb.Start,
				End:      imb.Start,
				Price:    imb.MarkerPrice,
				Position: position,
				Color:    color,
			},
		)
	}
	return annotations
}

// Describe counts the open gaps and shows the most recent one
func (s *Study) Describe() string {
	open := lo.Filter(s.unfilled, func(imb *Imbalance, _ int) bool { return imb.Active })
	text := fmt.Sprintf("%d open, %d filled", len(open), len(s.filled))
	if len(open) > 0 {
		last := open[len(open)-1]
		precision := s.opts.Asset.PricePrecision()
		text += fmt.Sprintf("\nlast: %s %.*f-%.*f since %s", last.Direction,
			precision, last.Low, precision, last.High, last.Start.Format(time.DateTime))
	}
	return text
}
