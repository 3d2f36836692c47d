// Package report summarizes the signals raised during a run.
package report

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/metric"
)

const (
	histogramBins   = 15
	bootstrapRounds = 2000
	confidence      = 0.95
)

// Count is the number of signals of one kind raised by a study on a pair
type Count struct {
	Pair  string
	Study string
	Kind  core.SignalKind
	Count int
	First time.Time
	Last  time.Time
}

// Fill pairs an imbalance with the signal that filled it
type Fill struct {
	Pair     string
	Kind     core.SignalKind
	Start    time.Time
	FilledAt time.Time
}

// Duration is the time the imbalance stayed open
func (f Fill) Duration() time.Duration { return f.FilledAt.Sub(f.Start) }

// Report holds the signals of a run in time order
type Report struct {
	signals []core.Signal
}

// New copies and sorts the signals by time
func New(signals []*core.Signal) *Report {
	sorted := lo.FilterMap(signals, func(signal *core.Signal, _ int) (core.Signal, bool) {
		if signal == nil {
			return core.Signal{}, false
		}
		return *signal, true
	})
	slices.SortStableFunc(sorted, func(a, b core.Signal) int {
		return a.Time.Compare(b.Time)
	})
	return &Report{signals: sorted}
}

// Len is the number of signals in the report
func (r *Report) Len() int { return len(r.signals) }

// Counts groups signals by pair, study and kind
func (r *Report) Counts() []Count {
	type key struct {
		pair, study string
		kind        core.SignalKind
	}

	groups := lo.GroupBy(r.signals, func(signal core.Signal) key {
		return key{signal.Pair, signal.Study, signal.Kind}
	})

	counts := make([]Count, 0, len(groups))
	for k, signals := range groups {
		counts = append(counts, Count{
			Pair:  k.pair,
			Study: k.study,
			Kind:  k.kind,
			Count: len(signals),
			First: signals[0].Time,
			Last:  signals[len(signals)-1].Time,
		})
	}

	slices.SortFunc(counts, func(a, b Count) int {
		return cmp.Or(
			cmp.Compare(a.Pair, b.Pair),
			cmp.Compare(a.Study, b.Study),
			cmp.Compare(a.Kind, b.Kind),
		)
	})
	return counts
}

// InitialBalanceRanges returns the height (high - low) of every confirmed initial balance
func (r *Report) InitialBalanceRanges() []float64 {
	return lo.FilterMap(r.signals, func(signal core.Signal, _ int) (float64, bool) {
		return signal.High - signal.Low, signal.Kind == core.SignalInitialBalanceConfirmed
	})
}

// Fills matches every fill with the latest detection of the same gap before it
func (r *Report) Fills() []Fill {
	fills := make([]Fill, 0)
	for i, filled := range r.signals {
		if filled.Kind != core.SignalImbalanceFilled {
			continue
		}

		for j := i - 1; j >= 0; j-- {
			detected := r.signals[j]
			if detected.Pair != filled.Pair || detected.High != filled.High || detected.Low != filled.Low {
				continue
			}
			if detected.Kind != core.SignalImbalanceBullish && detected.Kind != core.SignalImbalanceBearish {
				continue
			}

			fills = append(fills, Fill{
				Pair:     filled.Pair,
				Kind:     detected.Kind,
				Start:    detected.Time,
				FilledAt: filled.Time,
			})
			break
		}
	}
	return fills
}

// FillRate is the share of detected imbalances that were filled
func (r *Report) FillRate() float64 {
	detected := lo.CountBy(r.signals, func(signal core.Signal) bool {
		return signal.Kind == core.SignalImbalanceBullish || signal.Kind == core.SignalImbalanceBearish
	})
	if detected == 0 {
		return 0
	}
	return float64(len(r.Fills())) / float64(detected)
}

// Fprint writes the signal table and the distributions of the study outputs
func (r *Report) Fprint(w io.Writer) error {
	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Pair", "Study", "Signal", "Count", "First", "Last"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	for _, count := range r.Counts() {
		table.Append([]string{
			count.Pair,
			count.Study,
			string(count.Kind),
			strconv.Itoa(count.Count),
			count.First.Format(time.DateTime),
			count.Last.Format(time.DateTime),
		})
	}
	table.SetFooter([]string{"TOTAL", "", "", strconv.Itoa(r.Len()), "", ""})
	table.Render()

	if _, err := io.Copy(w, buffer); err != nil {
		return err
	}

	ranges := r.InitialBalanceRanges()
	if len(ranges) > 0 {
		fmt.Fprintln(w, "------ INITIAL BALANCE RANGE -------")
		if err := fprintDistribution(w, ranges, "%.2f"); err != nil {
			return err
		}
	}

	fills := r.Fills()
	if len(fills) > 0 {
		fmt.Fprintf(w, "------ IMBALANCE FILL TIME (minutes, %.1f%% filled) -------\n", r.FillRate()*100)
		minutes := lo.Map(fills, func(fill Fill, _ int) float64 {
			return fill.Duration().Minutes()
		})
		if err := fprintDistribution(w, minutes, "%.1f"); err != nil {
			return err
		}
	}

	return nil
}

func fprintDistribution(w io.Writer, values []float64, format string) error {
	stats := metric.Describe(values)
	interval := metric.Bootstrap(values, metric.Mean, bootstrapRounds, confidence)

	f := func(v float64) string { return fmt.Sprintf(format, v) }
	_, err := fmt.Fprintf(w, "COUNT: %d  MEAN: %s (%s ~ %s)  STDDEV: %s\nMIN: %s  MEDIAN: %s  P90: %s  MAX: %s\n",
		stats.Count, f(stats.Mean), f(interval.Lower), f(interval.Upper), f(stats.StdDev),
		f(stats.Min), f(stats.Median), f(stats.P90), f(stats.Max))
	if err != nil {
		return err
	}

	if stats.Min == stats.Max {
		return nil
	}

	hist := histogram.Hist(histogramBins, values)
	if err := histogram.Fprint(w, hist, histogram.Linear(10)); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
