package initialbalance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gambcl/chartstudies/pkg/core"
)

// Session is the initial balance window expressed as offsets from local
// midnight. A Start after End describes a window ending on the next day.
type Session struct {
	Start time.Duration
	End   time.Duration
}

func (s Session) Overnight() bool {
	return s.Start > s.End
}

func (s Session) String() string {
	return fmt.Sprintf("%s-%s", clock(s.Start), clock(s.End))
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// Region is the initial balance of a single day
type Region struct {
	Start    time.Time
	End      time.Time
	RangeEnd time.Time

	High      float64
	Low       float64
	Confirmed bool

	updated bool
}

func newRegion(start, end time.Time) *Region {
	return &Region{Start: start, End: end, RangeEnd: end}
}

// Updated reports whether a high and a low have been observed
func (r *Region) Updated() bool {
	return r.updated
}

// Mid returns the tick rounded middle of the range
func (r *Region) Mid(asset core.AssetInfo) (float64, bool) {
	if !r.updated {
		return 0, false
	}
	return asset.RoundToTick((r.High + r.Low) / 2.0), true
}

// Delta returns the height of the range
func (r *Region) Delta() float64 {
	return r.High - r.Low
}

// Contains reports whether t falls inside [Start, End)
func (r *Region) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Covers reports whether t falls inside [Start, RangeEnd)
func (r *Region) Covers(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.RangeEnd)
}

// Extend widens the range with the given prices and reports whether it changed
func (r *Region) Extend(low, high float64) bool {
	if !r.updated {
		r.Low, r.High = low, high
		r.updated = true
		return true
	}

	changed := false
	if low < r.Low {
		r.Low = low
		changed = true
	}
	if high > r.High {
		r.High = high
		changed = true
	}
	return changed
}

// Confirm marks the region as final. Regions without data stay unconfirmed.
func (r *Region) Confirm() bool {
	if !r.updated || r.Confirmed {
		return false
	}
	r.Confirmed = true
	return true
}

// Summary is the text shown when hovering a confirmed region
func (r *Region) Summary(asset core.AssetInfo) string {
	if !r.updated {
		return ""
	}
	precision := asset.PricePrecision()
	format := func(v float64) string {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	mid, _ := r.Mid(asset)
	return "IB High: " + format(r.High) +
		"\nIB Mid: " + format(mid) +
		"\nIB Low: " + format(r.Low) +
		"\nIB Δ: " + format(r.Delta())
}

type LevelKind string

const (
	LevelHigh          LevelKind = "high"
	LevelMid           LevelKind = "mid"
	LevelLow           LevelKind = "low"
	LevelHighExtension LevelKind = "high_extension"
	LevelMidExtension  LevelKind = "mid_extension"
	LevelLowExtension  LevelKind = "low_extension"
)

// Level is a horizontal price line derived from a confirmed region
type Level struct {
	Name  string
	Price float64
	Kind  LevelKind
}

// halves formats i+½ the way range multiples are usually labelled: ½, 1½, 2½
func halves(i int) string {
	if i == 0 {
		return "½"
	}
	return strconv.Itoa(i) + "½"
}

func levels(r *Region, asset core.AssetInfo, extensions int) []Level {
	if !r.Confirmed {
		return nil
	}

	mid, _ := r.Mid(asset)
	result := []Level{
		{Name: "IB High", Price: r.High, Kind: LevelHigh},
		{Name: "IB Mid", Price: mid, Kind: LevelMid},
		{Name: "IB Low", Price: r.Low, Kind: LevelLow},
	}

	delta := r.Delta()
	half := delta / 2.0
	for i := 0; i < extensions; i++ {
		step := float64(i)
		result = append(result,
			Level{
				Name:  fmt.Sprintf("IB High + %dxIBΔ", i+1),
				Price: r.High + (step+1)*delta,
				Kind:  LevelHighExtension,
			},
			Level{
				Name:  fmt.Sprintf("IB High + %sxIBΔ", halves(i)),
				Price: r.High + step*delta + half,
				Kind:  LevelMidExtension,
			},
			Level{
				Name:  fmt.Sprintf("IB Low - %dxIBΔ", i+1),
				Price: r.Low - (step+1)*delta,
				Kind:  LevelLowExtension,
			},
			Level{
				Name:  fmt.Sprintf("IB Low - %sxIBΔ", halves(i)),
				Price: r.Low - step*delta - half,
				Kind:  LevelMidExtension,
			},
		)
	}
	return result
}
