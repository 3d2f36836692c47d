package metric

import (
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Measure reduces a sample to one statistic, e.g. Mean or Median
type Measure func([]float64) float64

// Interval is the confidence interval of a statistic such as the mean time
// an imbalance stays open or the mean initial balance range.
type Interval struct {
	Estimate float64 // measure of the original sample
	Lower    float64
	Upper    float64
	StdErr   float64 // standard deviation of the resampled statistic
}

// Bootstrap estimates the central confidence interval of measure by
// resampling values with replacement rounds times. An empty sample or a
// non-positive rounds count yields the zero Interval.
func Bootstrap(values []float64, measure Measure, rounds int, confidence float64) Interval {
	if len(values) == 0 || rounds <= 0 {
		return Interval{}
	}

	resample := make([]float64, len(values))
	statistics := make([]float64, rounds)
	for i := range statistics {
		for j := range resample {
			resample[j] = lo.Sample(values)
		}
		statistics[i] = measure(resample)
	}
	slices.Sort(statistics)

	tail := (1 - confidence) / 2
	_, stdErr := stat.MeanStdDev(statistics, nil)
	return Interval{
		Estimate: measure(values),
		Lower:    stat.Quantile(tail, stat.LinInterp, statistics, nil),
		Upper:    stat.Quantile(1-tail, stat.LinInterp, statistics, nil),
		StdErr:   stdErr,
	}
}
