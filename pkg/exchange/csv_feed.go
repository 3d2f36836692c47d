package exchange

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"

	"github.com/gambcl/chartstudies/pkg/core"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidTimeframe = errors.New("invalid timeframe")

	defaultHeaderMap = map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}
)

// PairFeed describes the CSV file of a pair
type PairFeed struct {
	Pair       string
	File       string
	Timeframe  string
	HeikinAshi bool

	// Asset overrides the default market information, mainly the tick size
	Asset core.AssetInfo
}

// CSVFeed serves candles read from CSV files, resampled to a target timeframe
type CSVFeed struct {
	Feeds               map[string]PairFeed
	CandlePairTimeFrame map[string][]core.Candle
}

var _ core.Feeder = (*CSVFeed)(nil)

func NewCSVFeed(targetTimeframe string, feeds ...PairFeed) (*CSVFeed, error) {
	csvFeed := &CSVFeed{
		Feeds:               make(map[string]PairFeed),
		CandlePairTimeFrame: make(map[string][]core.Candle),
	}

	for _, feed := range feeds {
		csvFeed.Feeds[feed.Pair] = feed

		file, err := os.Open(feed.File)
		if err != nil {
			return nil, err
		}
		candles, err := ReadCandles(file, feed.Pair, feed.HeikinAshi)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", feed.File, err)
		}
		csvFeed.CandlePairTimeFrame[feedKey(feed.Pair, feed.Timeframe)] = candles

		resampled, err := Resample(candles, feed.Timeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}
		csvFeed.CandlePairTimeFrame[feedKey(feed.Pair, targetTimeframe)] = resampled
	}

	return csvFeed, nil
}

func (c CSVFeed) AssetsInfo(pair string) core.AssetInfo {
	if feed, ok := c.Feeds[pair]; ok && feed.Asset.TickSize > 0 {
		return feed.Asset
	}

	asset, quote := SplitAssetQuote(pair)
	return core.AssetInfo{
		BaseAsset:          asset,
		QuoteAsset:         quote,
		MaxPrice:           math.MaxFloat64,
		MaxQuantity:        math.MaxFloat64,
		StepSize:           0.00000001,
		TickSize:           0.00000001,
		QuotePrecision:     8,
		BaseAssetPrecision: 8,
	}
}

// parseHeaders maps column names to indexes. Files without a header use
// time,open,close,low,high,volume.
func parseHeaders(headers []string) (headerMap map[string]int, additional []string, hasCustomHeaders bool) {
	if _, err := strconv.Atoi(headers[0]); err == nil {
		return defaultHeaderMap, nil, false
	}

	headerMap = make(map[string]int)
	for index, header := range headers {
		headerMap[header] = index
		if _, exists := defaultHeaderMap[header]; !exists {
			additional = append(additional, header)
		}
	}
	return headerMap, additional, true
}

// ReadCandles parses CSV candles with unix second timestamps. Extra columns
// are kept as candle metadata.
func ReadCandles(r io.Reader, pair string, heikinAshi bool) ([]core.Candle, error) {
	lines, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInsufficientData)
	}

	headerMap, additional, hasCustomHeaders := parseHeaders(lines[0])
	if hasCustomHeaders {
		lines = lines[1:]
	}

	ha := core.NewHeikinAshi()
	candles := make([]core.Candle, 0, len(lines))
	for n, line := range lines {
		candle, err := parseCandle(line, headerMap, additional, pair)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		if heikinAshi {
			candle = candle.ToHeikinAshi(ha)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseCandle(line []string, headerMap map[string]int, additional []string, pair string) (core.Candle, error) {
	timestamp, err := strconv.ParseInt(line[headerMap["time"]], 10, 64)
	if err != nil {
		return core.Candle{}, err
	}

	candle := core.Candle{
		Time:      time.Unix(timestamp, 0).UTC(),
		UpdatedAt: time.Unix(timestamp, 0).UTC(),
		Pair:      pair,
		Complete:  true,
	}

	for _, column := range []struct {
		name  string
		value *float64
	}{
		{"open", &candle.Open},
		{"close", &candle.Close},
		{"low", &candle.Low},
		{"high", &candle.High},
		{"volume", &candle.Volume},
	} {
		if *column.value, err = strconv.ParseFloat(line[headerMap[column.name]], 64); err != nil {
			return core.Candle{}, fmt.Errorf("%s: %w", column.name, err)
		}
	}

	if len(additional) > 0 {
		candle.Metadata = make(map[string]float64, len(additional))
		for _, header := range additional {
			value, err := strconv.ParseFloat(line[headerMap[header]], 64)
			if err != nil {
				return core.Candle{}, fmt.Errorf("%s: %w", header, err)
			}
			candle.Metadata[header] = value
		}
	}
	return candle, nil
}

// periodStart returns the start of the target period containing t. Weeks
// start on Sunday, every other period is aligned on the unix epoch.
func periodStart(t time.Time, timeframe string, period time.Duration) time.Time {
	t = t.UTC()
	if timeframe == "1w" {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -int(day.Weekday()))
	}
	return time.Unix(0, 0).UTC().Add(t.Sub(time.Unix(0, 0)) / period * period)
}

// Resample aggregates candles into a larger timeframe. The leading partial
// period is skipped and a trailing period is kept only if it is complete.
func Resample(candles []core.Candle, sourceTimeframe, targetTimeframe string) ([]core.Candle, error) {
	if sourceTimeframe == targetTimeframe || len(candles) == 0 {
		return candles, nil
	}

	source, err := str2duration.ParseDuration(sourceTimeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeframe, sourceTimeframe)
	}
	target, err := str2duration.ParseDuration(targetTimeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeframe, targetTimeframe)
	}
	if target < source || target%source != 0 {
		return nil, fmt.Errorf("%w: cannot resample %s into %s", ErrInvalidTimeframe, sourceTimeframe, targetTimeframe)
	}

	result := make([]core.Candle, 0, len(candles)/int(target/source)+1)
	var current core.Candle
	open := false

	for _, candle := range candles {
		start := periodStart(candle.Time, targetTimeframe, target)

		if open && !start.Equal(current.Time) {
			current.Complete = true
			result = append(result, current)
			open = false
		}

		if !open {
			if !candle.Time.Equal(start) && len(result) == 0 {
				continue // leading partial period
			}
			current = candle
			current.Time = start
			current.Metadata = lo.Assign(candle.Metadata)
			open = true
		} else {
			current.High = math.Max(current.High, candle.High)
			current.Low = math.Min(current.Low, candle.Low)
			current.Close = candle.Close
			current.Volume += candle.Volume
			current.UpdatedAt = candle.UpdatedAt
			for k, v := range candle.Metadata {
				current.Metadata[k] = v
			}
		}

		if !candle.Time.Add(source).Before(start.Add(target)) {
			current.Complete = true
			result = append(result, current)
			open = false
		}
	}

	return result, nil
}

// Limit keeps only the candles of the last duration
func (c *CSVFeed) Limit(duration time.Duration) *CSVFeed {
	for key, candles := range c.CandlePairTimeFrame {
		if len(candles) == 0 {
			continue
		}
		start := candles[len(candles)-1].Time.Add(-duration)
		c.CandlePairTimeFrame[key] = lo.Filter(candles, func(candle core.Candle, _ int) bool {
			return candle.Time.After(start)
		})
	}
	return c
}

func (c CSVFeed) CandlesByPeriod(_ context.Context, pair, timeframe string, start, end time.Time) ([]core.Candle, error) {
	return lo.Filter(c.CandlePairTimeFrame[feedKey(pair, timeframe)], func(candle core.Candle, _ int) bool {
		return !candle.Time.Before(start) && !candle.Time.After(end)
	}), nil
}

// CandlesByLimit returns the first limit candles and removes them from the feed
func (c *CSVFeed) CandlesByLimit(_ context.Context, pair, timeframe string, limit int) ([]core.Candle, error) {
	key := feedKey(pair, timeframe)
	if len(c.CandlePairTimeFrame[key]) < limit {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientData, pair)
	}

	result := c.CandlePairTimeFrame[key][:limit]
	c.CandlePairTimeFrame[key] = c.CandlePairTimeFrame[key][limit:]
	return result, nil
}

// CandlesSubscription streams every candle of the feed and closes the channels
func (c CSVFeed) CandlesSubscription(ctx context.Context, pair, timeframe string) (chan core.Candle, chan error) {
	ccandle := make(chan core.Candle)
	cerr := make(chan error)
	candles := c.CandlePairTimeFrame[feedKey(pair, timeframe)]

	go func() {
		defer close(cerr)
		defer close(ccandle)

		for _, candle := range candles {
			select {
			case <-ctx.Done():
				return
			case ccandle <- candle:
			}
		}
	}()

	return ccandle, cerr
}
