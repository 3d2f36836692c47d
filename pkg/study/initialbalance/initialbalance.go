// Package initialbalance tracks the range traded during the opening window of
// every session and the levels projected from it.
package initialbalance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/study"
)

const (
	Name = "Initial Balance"

	MaxExtensionLevels = 3
)

var (
	ErrNotIntraday            = errors.New("initial balance requires an intraday timeframe")
	ErrInvalidExtensionLevels = errors.New("invalid number of extension levels")
	ErrInvalidSession         = errors.New("invalid initial balance session")
)

type Options struct {
	Timeframe       string
	Session         Session
	Location        *time.Location
	ShowDeveloping  bool
	ExtensionLevels int
	FutureDays      int
	Asset           core.AssetInfo
}

// DefaultOptions is a 09:30-10:30 window over one minute bars
func DefaultOptions() Options {
	return Options{
		Timeframe:       "1m",
		Session:         Session{Start: 9*time.Hour + 30*time.Minute, End: 10*time.Hour + 30*time.Minute},
		Location:        time.UTC,
		ShowDeveloping:  true,
		ExtensionLevels: 2,
		FutureDays:      15,
	}
}

type Study struct {
	study.Emitter

	opts      Options
	timeframe time.Duration

	regions []*Region
	nextDay time.Time // midnight of the first day without a region
	next    int       // index of the first bar not yet committed
	now     time.Time
	df      *core.Dataframe
}

var _ study.Study = (*Study)(nil)

func New(opts Options) (*Study, error) {
	timeframe, err := str2duration.ParseDuration(opts.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("initialbalance: timeframe %q: %w", opts.Timeframe, err)
	}
	if timeframe <= 0 || timeframe >= 24*time.Hour {
		return nil, fmt.Errorf("initialbalance: timeframe %s: %w", opts.Timeframe, ErrNotIntraday)
	}

	if opts.ExtensionLevels < 0 || opts.ExtensionLevels > MaxExtensionLevels {
		return nil, fmt.Errorf("initialbalance: %d: %w", opts.ExtensionLevels, ErrInvalidExtensionLevels)
	}

	s := opts.Session
	if s.Start < 0 || s.Start >= 24*time.Hour || s.End < 0 || s.End >= 24*time.Hour || s.Start == s.End {
		return nil, fmt.Errorf("initialbalance: session %s: %w", s, ErrInvalidSession)
	}

	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.FutureDays < 1 {
		opts.FutureDays = 1
	}

	return &Study{opts: opts, timeframe: timeframe}, nil
}

func (s *Study) Name() string     { return Name }
func (s *Study) Overlay() bool    { return true }
func (s *Study) Warmup() int      { return 1 }
func (s *Study) Options() Options { return s.opts }

// Regions returns every region in time order, including future days
func (s *Study) Regions() []*Region {
	return s.regions
}

// Region returns the latest region whose window contains t
func (s *Study) Region(t time.Time) *Region {
	for i := len(s.regions) - 1; i >= 0; i-- {
		if s.regions[i].Contains(t) {
			return s.regions[i]
		}
	}
	return nil
}

// Levels returns the price levels of a confirmed region
func (s *Study) Levels(region *Region) []Level {
	return levels(region, s.opts.Asset, s.opts.ExtensionLevels)
}

// BarValues returns the high, mid and low in effect for a bar starting at t
func (s *Study) BarValues(t time.Time) (high, mid, low float64, ok bool) {
	for i := len(s.regions) - 1; i >= 0; i-- {
		region := s.regions[i]
		if !region.Confirmed || !region.Covers(t) {
			continue
		}
		mid, _ = region.Mid(s.opts.Asset)
		return region.High, mid, region.Low, true
	}
	return 0, 0, 0, false
}

func (s *Study) reset() {
	s.regions = nil
	s.nextDay = time.Time{}
	s.next = 0
	s.now = time.Time{}
}

// barNow is the current time once bar i has been seen: the end of a complete
// bar or the start of a forming one.
func (s *Study) barNow(df *core.Dataframe, i int) time.Time {
	if df.IsComplete(i) {
		return df.Time[i].Add(s.timeframe)
	}
	return df.Time[i]
}

func (s *Study) midnight(t time.Time) time.Time {
	t = t.In(s.opts.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.opts.Location)
}

// at resolves a session offset on a given day using wall clock time, so the
// window keeps its local hours across daylight saving changes.
func (s *Study) at(day time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	sec := int(offset % time.Minute / time.Second)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, sec, 0, s.opts.Location)
}

// ensureRegions creates one region per day from the day of first up to the
// midnight FutureDays after now.
func (s *Study) ensureRegions(first, now time.Time) {
	if s.nextDay.IsZero() {
		s.nextDay = s.midnight(first)
	}

	limit := s.midnight(now.AddDate(0, 0, s.opts.FutureDays))
	for day := s.nextDay; day.Before(limit); day = day.AddDate(0, 0, 1) {
		endDay := day
		if s.opts.Session.Overnight() {
			endDay = day.AddDate(0, 0, 1)
		}

		region := newRegion(s.at(day, s.opts.Session.Start), s.at(endDay, s.opts.Session.End))
		if n := len(s.regions); n > 0 {
			s.regions[n-1].RangeEnd = region.Start
		}
		s.regions = append(s.regions, region)
		s.nextDay = day.AddDate(0, 0, 1)
	}
}

// Load rebuilds every region from the whole dataframe. Signals are not raised.
func (s *Study) Load(df *core.Dataframe) {
	s.reset()
	s.df = df
	if df.Len() == 0 {
		return
	}

	last := df.Len() - 1
	s.now = s.barNow(df, last)
	s.ensureRegions(df.Time[0], s.now)

	for _, region := range s.regions {
		if !region.Start.Before(s.now) {
			break
		}

		from := sort.Search(df.Len(), func(i int) bool { return !df.Time[i].Before(region.Start) })
		for i := from; i < df.Len() && df.Time[i].Before(region.End); i++ {
			region.Extend(df.Low[i], df.High[i])
		}

		if !s.now.Before(region.End) {
			region.Confirm()
		}
	}

	s.next = last + 1
	if !df.IsComplete(last) {
		s.next = last
	}
}

// OnBarUpdate extends the developing region with every new bar and confirms
// the regions whose window has ended.
func (s *Study) OnBarUpdate(df *core.Dataframe) {
	s.df = df
	for i := s.next; i < df.Len(); i++ {
		s.now = s.barNow(df, i)
		s.ensureRegions(df.Time[i], s.now)

		if region := s.Region(df.Time[i]); region != nil && !region.Confirmed {
			region.Extend(df.Low[i], df.High[i])
		}
		s.confirm(df.Pair)

		if df.IsComplete(i) {
			s.next = i + 1
		}
	}
}

func (s *Study) confirm(pair string) {
	for _, region := range s.regions {
		if region.Start.After(s.now) {
			break
		}
		if region.End.After(s.now) || !region.Confirm() {
			continue
		}

		mid, _ := region.Mid(s.opts.Asset)
		s.Emit(core.Signal{
			Pair:    pair,
			Study:   Name,
			Kind:    core.SignalInitialBalanceConfirmed,
			Time:    region.End,
			Price:   mid,
			High:    region.High,
			Low:     region.Low,
			Message: fmt.Sprintf("initial balance %s confirmed: %s", s.opts.Session, oneLine(region.Summary(s.opts.Asset))),
		})
	}
}

func oneLine(summary string) string {
	return strings.ReplaceAll(summary, "\n", ", ")
}

// Metrics exports the IB High, Mid and Low in effect for every bar
func (s *Study) Metrics() []core.IndicatorMetric {
	if s.df == nil {
		return nil
	}

	size := s.df.Len()
	high, mid, low := core.NaNSeries(size), core.NaNSeries(size), core.NaNSeries(size)
	for i, t := range s.df.Time {
		if h, m, l, ok := s.BarValues(t); ok {
			high[i], mid[i], low[i] = h, m, l
		}
	}

	return []core.IndicatorMetric{
		{Name: "IB High", Color: "green", Style: core.StyleLine, Values: high, Time: s.df.Time},
		{Name: "IB Mid", Color: "orange", Style: core.StyleLine, Values: mid, Time: s.df.Time},
		{Name: "IB Low", Color: "red", Style: core.StyleLine, Values: low, Time: s.df.Time},
	}
}

var levelColors = map[LevelKind]string{
	LevelHigh:          "green",
	LevelMid:           "orange",
	LevelLow:           "red",
	LevelHighExtension: "green",
	LevelMidExtension:  "orange",
	LevelLowExtension:  "red",
}

// Annotations returns the developing and confirmed boxes and the levels of
// every confirmed region.
func (s *Study) Annotations() []core.Annotation {
	var annotations []core.Annotation
	for _, region := range s.regions {
		if !region.Updated() || !(region.Confirmed || s.opts.ShowDeveloping) {
			continue
		}

		end := region.End
		if !region.Confirmed && s.now.Before(end) {
			end = s.now
		}
		annotations = append(annotations, core.Annotation{
			Kind:  core.AnnotationRegion,
			Label: region.Summary(s.opts.Asset),
			Start: region.Start,
			End:   end,
			High:  region.High,
			Low:   region.Low,
			Color: "yellow",
		})

		for _, level := range s.Levels(region) {
			annotations = append(annotations, core.Annotation{
				Kind:  core.AnnotationLevel,
				Label: level.Name,
				Start: region.Start,
				End:   region.RangeEnd,
				Price: level.Price,
				Color: levelColors[level.Kind],
			})
		}
	}
	return annotations
}

// Describe reports the last confirmed region and the developing one, if any
func (s *Study) Describe() string {
	var lines []string
	if region := s.Region(s.now); region != nil && !region.Confirmed && region.Updated() {
		lines = append(lines, fmt.Sprintf("developing %s: %s",
			region.Start.Format(time.DateOnly), oneLine(region.Summary(s.opts.Asset))))
	}
	for i := len(s.regions) - 1; i >= 0; i-- {
		if region := s.regions[i]; region.Confirmed {
			lines = append(lines, fmt.Sprintf("confirmed %s: %s",
				region.Start.Format(time.DateOnly), oneLine(region.Summary(s.opts.Asset))))
			break
		}
	}
	if len(lines) == 0 {
		return "no initial balance yet"
	}
	return strings.Join(lines, "\n")
}
