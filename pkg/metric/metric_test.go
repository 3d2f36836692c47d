package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	stats := Describe([]float64{4, 1, math.NaN(), 3, 2, 5})

	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 3.0, stats.Mean)
	assert.InDelta(t, math.Sqrt(2.5), stats.StdDev, 1e-9)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 3.0, stats.Median)
	assert.Equal(t, 5.0, stats.P90)
	assert.Equal(t, 5.0, stats.Max)

	assert.Equal(t, Stats{}, Describe(nil))
	assert.Equal(t, Stats{Count: 1, Mean: 7, Min: 7, Median: 7, P90: 7, Max: 7}, Describe([]float64{7}))
}

func TestMeanMedian(t *testing.T) {
	values := []float64{10, 2, 6}
	assert.Equal(t, 6.0, Mean(values))
	assert.Equal(t, 6.0, Median(values))
	assert.Equal(t, []float64{10, 2, 6}, values)
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Median(nil))
}

func TestBootstrap(t *testing.T) {
	interval := Bootstrap([]float64{2, 2, 2, 2}, Mean, 200, 0.95)
	assert.Equal(t, Interval{Estimate: 2, Lower: 2, Upper: 2}, interval)

	interval = Bootstrap([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, Mean, 500, 0.9)
	assert.Equal(t, 5.5, interval.Estimate)
	assert.LessOrEqual(t, interval.Lower, interval.Upper)
	assert.InDelta(t, 5.5, (interval.Lower+interval.Upper)/2, 1)
	assert.Greater(t, interval.StdErr, 0.0)

	assert.Equal(t, Interval{}, Bootstrap(nil, Mean, 10, 0.95))
	assert.Equal(t, Interval{}, Bootstrap([]float64{1}, Mean, 0, 0.95))
}
