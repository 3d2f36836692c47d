package metric

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Stats describes the distribution of a sample
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	P90    float64
	Max    float64
}

// Mean calculates the arithmetic mean of the values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Median returns the 50% empirical quantile of the values.
func Median(values []float64) float64 {
	return quantile(0.5, values)
}

func quantile(p float64, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Describe summarizes a sample. NaN values are ignored.
func Describe(values []float64) Stats {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Stats{}
	}

	slices.Sort(clean)
	mean, stdDev := stat.MeanStdDev(clean, nil)
	if len(clean) == 1 {
		stdDev = 0
	}

	return Stats{
		Count:  len(clean),
		Mean:   mean,
		StdDev: stdDev,
		Min:    clean[0],
		Median: stat.Quantile(0.5, stat.Empirical, clean, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, clean, nil),
		Max:    clean[len(clean)-1],
	}
}
