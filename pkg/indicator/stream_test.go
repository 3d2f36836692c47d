package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValues() []float64 {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + 10*math.Sin(float64(i)/5) + float64(i%7)
	}
	return values
}

func TestEMAStream_MatchesTalib(t *testing.T) {
	values := sampleValues()
	for _, period := range []int{2, 3, 9, 12} {
		expected := EMA(values, period)
		stream := NewEMAStream(period)
		for i, v := range values {
			got := stream.Update(v)
			if i < period-1 {
				assert.False(t, stream.Ready())
				continue
			}
			require.True(t, stream.Ready())
			assert.InDelta(t, expected[i], got, 1e-9, "period %d index %d", period, i)
		}
	}
}

func TestEMAStream_SeededWithAverage(t *testing.T) {
	stream := NewEMAStream(3)
	stream.Update(1)
	stream.Update(2)
	assert.Equal(t, 2.0, stream.Update(3))

	// multiplier = 2 / (3 + 1) = 0.5
	assert.Equal(t, 3.0, stream.Update(4))
}

func TestSMAStream_MatchesTalib(t *testing.T) {
	values := sampleValues()
	for _, period := range []int{2, 3, 5, 60} {
		expected := SMA(values, period)
		stream := NewSMAStream(period)
		for i, v := range values {
			got := stream.Update(v)
			if i >= period-1 {
				assert.InDelta(t, expected[i], got, 1e-9, "period %d index %d", period, i)
			}
		}
	}
}

func TestSMAStream_LongPeriod(t *testing.T) {
	values := make([]float64, 300)
	for i := range values {
		values[i] = 50 + 20*math.Cos(float64(i)/11)
	}

	expected := SMA(values, 120)
	stream := NewSMAStream(120)
	for i, v := range values {
		got := stream.Update(v)
		assert.Equal(t, i >= 119, stream.Ready())
		if i >= 119 {
			assert.InDelta(t, expected[i], got, 1e-9, "index %d", i)
		}
	}
	assert.Equal(t, 120, stream.Period())
}

func TestSMAStream_CloneIsIndependent(t *testing.T) {
	stream := NewSMAStream(3)
	for _, v := range []float64{1, 2, 3} {
		stream.Update(v)
	}

	preview := stream.Clone()
	assert.Equal(t, 5.0, preview.Update(10))
	assert.Equal(t, 2.0, stream.Value())

	// the value replaced in the window is still 1, not the previewed 10
	assert.Equal(t, 3.0, stream.Update(4))
	assert.Equal(t, 7.0, preview.Update(8))
}

func TestTalib_ShortInput(t *testing.T) {
	assert.Equal(t, []float64{0, 0}, EMA([]float64{1, 2}, 3))
	assert.Equal(t, []float64{0, 0}, SMA([]float64{1, 2}, 3))
	assert.Empty(t, EMA(nil, 3))
}
