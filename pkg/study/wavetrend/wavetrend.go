// Package wavetrend implements the Wave Trend oscillator: a channel index of
// the typical price smoothed into a fast wave and a slow wave.
package wavetrend

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/study"
)

const (
	Name = "Wave Trend"

	// channel index scale, chosen so that most values fall inside ±100
	ciFactor = 0.015
)

var (
	ErrInvalidLength = errors.New("invalid wave trend length")
	ErrInvalidGuides = errors.New("overbought guide must be above oversold guide")
)

type Options struct {
	ChannelLength int
	AverageLength int
	MALength      int
	Overbought    float64
	Oversold      float64
}

func DefaultOptions() Options {
	return Options{
		ChannelLength: 9,
		AverageLength: 12,
		MALength:      3,
		Overbought:    60,
		Oversold:      -60,
	}
}

// Value holds the oscillator output of one bar
type Value struct {
	Time  time.Time
	Fast  float64
	Slow  float64
	Delta float64
}

type Zone int

const (
	Neutral Zone = iota
	Overbought
	Oversold
)

func (z Zone) String() string {
	switch z {
	case Overbought:
		return "overbought"
	case Oversold:
		return "oversold"
	}
	return "neutral"
}

// Cross is a crossing of the fast wave over or under the slow wave
type Cross struct {
	Time    time.Time
	Index   int
	Value   float64
	Bullish bool
}

type Study struct {
	study.Emitter

	opts Options

	state   state
	fast    core.Series[float64]
	slow    core.Series[float64]
	delta   core.Series[float64]
	crosses []Cross
	next    int
	df      *core.Dataframe
}

var _ study.Study = (*Study)(nil)

func New(opts Options) (*Study, error) {
	for name, length := range map[string]int{
		"channel": opts.ChannelLength,
		"average": opts.AverageLength,
		"ma":      opts.MALength,
	} {
		if length <= 0 {
			return nil, fmt.Errorf("wavetrend: %s length %d: %w", name, length, ErrInvalidLength)
		}
	}
	if opts.Overbought <= opts.Oversold {
		return nil, fmt.Errorf("wavetrend: %v/%v: %w", opts.Overbought, opts.Oversold, ErrInvalidGuides)
	}

	return &Study{opts: opts, state: newState(opts)}, nil
}

func (s *Study) Name() string     { return Name }
func (s *Study) Overlay() bool    { return false }
func (s *Study) Crosses() []Cross { return s.crosses }

// Warmup is the number of bars skipped before values are exported
func (s *Study) Warmup() int {
	return 2*s.opts.ChannelLength + s.opts.AverageLength + s.opts.MALength
}

// Zone classifies a fast wave value against the guides
func (s *Study) Zone(fast float64) Zone {
	switch {
	case fast >= s.opts.Overbought:
		return Overbought
	case fast <= s.opts.Oversold:
		return Oversold
	}
	return Neutral
}

// Values returns the oscillator values of every bar past the warmup
func (s *Study) Values() []Value {
	var values []Value
	for i := range s.fast {
		if math.IsNaN(s.fast[i]) {
			continue
		}
		values = append(values, Value{Time: s.df.Time[i], Fast: s.fast[i], Slow: s.slow[i], Delta: s.delta[i]})
	}
	return values
}

// Last returns the value of the most recent bar
func (s *Study) Last() (Value, bool) {
	i := len(s.fast) - 1
	if i < 0 || math.IsNaN(s.fast[i]) {
		return Value{}, false
	}
	return Value{Time: s.df.Time[i], Fast: s.fast[i], Slow: s.slow[i], Delta: s.delta[i]}, true
}

func (s *Study) reset() {
	s.state = newState(s.opts)
	s.fast, s.slow, s.delta = nil, nil, nil
	s.crosses = nil
	s.next = 0
}

// Load recalculates the oscillator over the whole dataframe in one pass.
// Signals are not raised.
func (s *Study) Load(df *core.Dataframe) {
	s.reset()
	s.df = df
	if df.Len() == 0 {
		return
	}

	fast, slow, delta := Calculate(s.opts, df.High, df.Low, df.Close)
	warmup := s.Warmup()
	for i := range fast {
		if i < warmup {
			fast[i], slow[i], delta[i] = math.NaN(), math.NaN(), math.NaN()
		}
	}
	s.fast, s.slow, s.delta = fast, slow, delta

	for i := warmup + 1; i < len(fast); i++ {
		if cross, ok := s.cross(i); ok {
			s.crosses = append(s.crosses, cross)
		}
	}

	last := df.Len() - 1
	s.next = last + 1
	if !df.IsComplete(last) {
		s.next = last
	}

	// prime the streaming state with the committed bars
	for i := 0; i < s.next; i++ {
		s.state.update(df.Candle(i).TypicalPrice())
	}
}

// OnBarUpdate advances the oscillator bar by bar. A forming bar is evaluated
// on a copy of the state so it can be recalculated on its next update.
func (s *Study) OnBarUpdate(df *core.Dataframe) {
	s.df = df
	s.truncate()

	warmup := s.Warmup()
	for i := s.next; i < df.Len(); i++ {
		complete := df.IsComplete(i)

		st := &s.state
		if !complete {
			preview := s.state.clone()
			st = &preview
		}

		fast, slow, ok := st.update(df.Candle(i).TypicalPrice())
		if !ok || i < warmup {
			fast, slow = math.NaN(), math.NaN()
		}
		s.fast = append(s.fast, fast)
		s.slow = append(s.slow, slow)
		s.delta = append(s.delta, fast-slow)

		if cross, ok := s.cross(i); ok {
			s.crosses = append(s.crosses, cross)
			if complete {
				s.emit(df.Pair, cross)
			}
		}

		if complete {
			s.next = i + 1
		}
	}
}

// truncate drops the values of a previously previewed forming bar
func (s *Study) truncate() {
	if len(s.fast) > s.next {
		s.fast = s.fast[:s.next]
		s.slow = s.slow[:s.next]
		s.delta = s.delta[:s.next]
	}
	for len(s.crosses) > 0 && s.crosses[len(s.crosses)-1].Index >= s.next {
		s.crosses = s.crosses[:len(s.crosses)-1]
	}
}

func (s *Study) cross(i int) (Cross, bool) {
	if i < 1 || math.IsNaN(s.fast[i-1]) || math.IsNaN(s.fast[i]) {
		return Cross{}, false
	}

	fast, slow := s.fast[:i+1], s.slow[:i+1]
	cross := Cross{Time: s.df.Time[i], Index: i, Value: slow.Last(0)}
	switch {
	case fast.Crossover(slow):
		cross.Bullish = true
	case fast.Crossunder(slow):
	default:
		return Cross{}, false
	}
	return cross, true
}

func (s *Study) emit(pair string, cross Cross) {
	kind, direction := core.SignalWaveTrendBullishCross, "bullish"
	if !cross.Bullish {
		kind, direction = core.SignalWaveTrendBearishCross, "bearish"
	}

	fast := s.fast[cross.Index]
	s.Emit(core.Signal{
		Pair:    pair,
		Study:   Name,
		Kind:    kind,
		Time:    cross.Time,
		Price:   s.df.Close[cross.Index],
		High:    fast,
		Low:     cross.Value,
		Message: fmt.Sprintf("%s wave trend cross at %.2f (%s)", direction, cross.Value, s.Zone(fast)),
	})
}

// Metrics exports the fast wave, slow wave and their difference
func (s *Study) Metrics() []core.IndicatorMetric {
	if s.df == nil {
		return nil
	}

	times := s.df.Time[:len(s.fast)]
	return []core.IndicatorMetric{
		{Name: "Fast Wave", Color: "green", Style: core.StyleLine, Values: s.fast, Time: times},
		{Name: "Slow Wave", Color: "red", Style: core.StyleLine, Values: s.slow, Time: times},
		{Name: "Wave Delta", Color: "yellow", Style: core.StyleHistogram, Values: s.delta, Time: times},
	}
}

// Annotations returns the crossing markers and the guide levels
func (s *Study) Annotations() []core.Annotation {
	var annotations []core.Annotation
	for _, cross := range s.crosses {
		label, color := "Bullish Crossover", "green"
		if !cross.Bullish {
			label, color = "Bearish Crossover", "red"
		}
		annotations = append(annotations, core.Annotation{
			Kind:     core.AnnotationMarker,
			Label:    label,
			Start:    cross.Time,
			End:      cross.Time,
			Price:    cross.Value,
			Position: core.PositionCenter,
			Color:    color,
		})
	}

	if s.df == nil || s.df.Len() == 0 {
		return annotations
	}

	first := s.df.Time[0]
	for _, guide := range []struct {
		label string
		price float64
	}{
		{"Overbought", s.opts.Overbought},
		{"Zero", 0},
		{"Oversold", s.opts.Oversold},
	} {
		annotations = append(annotations, core.Annotation{
			Kind:  core.AnnotationLevel,
			Label: guide.label,
			Start: first,
			Price: guide.price,
			Color: "gray",
		})
	}
	return annotations
}

// Describe shows the waves of the last bar and the zone of the fast wave
func (s *Study) Describe() string {
	last, ok := s.Last()
	if !ok {
		return "warming up"
	}
	return fmt.Sprintf("fast %.2f, slow %.2f, delta %.2f (%s)", last.Fast, last.Slow, last.Delta, s.Zone(last.Fast))
}
