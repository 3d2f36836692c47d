package exchange

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambcl/chartstudies/pkg/core"
	logzero "github.com/gambcl/chartstudies/pkg/logger/zerolog"
)

var base = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func minuteCandles(minutes ...int) []core.Candle {
	candles := make([]core.Candle, 0, len(minutes))
	for _, m := range minutes {
		price := float64(100 + m)
		candles = append(candles, core.Candle{
			Pair:      "BTCUSDT",
			Time:      base.Add(time.Duration(m) * time.Minute),
			UpdatedAt: base.Add(time.Duration(m) * time.Minute),
			Open:      price,
			High:      price + 2,
			Low:       price - 1,
			Close:     price + 1,
			Volume:    1,
			Complete:  true,
		})
	}
	return candles
}

func TestReadCandles(t *testing.T) {
	input := "time,open,close,low,high,volume,oi\n" +
		"1704189600,100,101,99,102,10,5\n" +
		"1704189660,101,100.5,100,101.5,12,6\n"

	candles, err := ReadCandles(strings.NewReader(input), "BTCUSDT", false)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.Unix(1704189600, 0).UTC(), candles[0].Time)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 101.0, candles[0].Close)
	assert.Equal(t, 99.0, candles[0].Low)
	assert.Equal(t, 102.0, candles[0].High)
	assert.Equal(t, 10.0, candles[0].Volume)
	assert.Equal(t, map[string]float64{"oi": 6}, candles[1].Metadata)
	assert.True(t, candles[1].Complete)
}

func TestReadCandles_NoHeader(t *testing.T) {
	candles, err := ReadCandles(strings.NewReader("1704189600,100,101,99,102,10\n"), "BTCUSDT", true)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Nil(t, candles[0].Metadata)

	// heikin ashi close is the average of the bar
	assert.Equal(t, 100.5, candles[0].Close)
}

func TestReadCandles_Invalid(t *testing.T) {
	_, err := ReadCandles(strings.NewReader("time,open,close,low,high,volume\n1704189600,x,101,99,102,10\n"), "BTCUSDT", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")

	_, err = ReadCandles(strings.NewReader(""), "BTCUSDT", false)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestResample(t *testing.T) {
	candles := minuteCandles(3, 4, 5, 6, 7, 8, 9, 10, 11, 12)

	resampled, err := Resample(candles, "1m", "5m")
	require.NoError(t, err)
	require.Len(t, resampled, 1)

	c := resampled[0]
	assert.Equal(t, base.Add(5*time.Minute), c.Time)
	assert.Equal(t, base.Add(9*time.Minute), c.UpdatedAt)
	assert.Equal(t, 105.0, c.Open)
	assert.Equal(t, 111.0, c.High)
	assert.Equal(t, 104.0, c.Low)
	assert.Equal(t, 110.0, c.Close)
	assert.Equal(t, 5.0, c.Volume)
	assert.True(t, c.Complete)
}

func TestResample_Gap(t *testing.T) {
	resampled, err := Resample(minuteCandles(5, 6, 10, 11, 12, 13, 14), "1m", "5m")
	require.NoError(t, err)
	require.Len(t, resampled, 2)
	assert.Equal(t, 2.0, resampled[0].Volume)
	assert.Equal(t, 107.0, resampled[0].Close)
	assert.Equal(t, base.Add(10*time.Minute), resampled[1].Time)
}

func TestResample_Invalid(t *testing.T) {
	candles := minuteCandles(0, 1)

	_, err := Resample(candles, "5m", "1m")
	require.ErrorIs(t, err, ErrInvalidTimeframe)

	_, err = Resample(candles, "2m", "5m")
	require.ErrorIs(t, err, ErrInvalidTimeframe)

	_, err = Resample(candles, "1m", "often")
	require.ErrorIs(t, err, ErrInvalidTimeframe)

	same, err := Resample(candles, "1m", "1m")
	require.NoError(t, err)
	assert.Equal(t, candles, same)
}

func writeCSV(t *testing.T, candles []core.Candle) string {
	t.Helper()
	lines := []string{"time,open,close,low,high,volume"}
	for _, c := range candles {
		lines = append(lines, strings.Join(c.ToSlice(2), ","))
	}
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	return path
}

func TestCSVFeed(t *testing.T) {
	var minutes []int
	for m := 0; m < 30; m++ {
		minutes = append(minutes, m)
	}
	path := writeCSV(t, minuteCandles(minutes...))

	feed, err := NewCSVFeed("5m", PairFeed{
		Pair:      "BTCUSDT",
		File:      path,
		Timeframe: "1m",
		Asset:     core.AssetInfo{TickSize: 0.5},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.5, feed.AssetsInfo("BTCUSDT").TickSize)
	assert.Equal(t, "ETH", feed.AssetsInfo("ETHUSDT").BaseAsset)

	ctx := context.Background()
	period, err := feed.CandlesByPeriod(ctx, "BTCUSDT", "5m", base.Add(5*time.Minute), base.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Len(t, period, 3)

	first, err := feed.CandlesByLimit(ctx, "BTCUSDT", "5m", 2)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	_, err = feed.CandlesByLimit(ctx, "BTCUSDT", "5m", 10)
	require.ErrorIs(t, err, ErrInsufficientData)

	data, _ := feed.CandlesSubscription(ctx, "BTCUSDT", "5m")
	var received []core.Candle
	for candle := range data {
		received = append(received, candle)
	}
	require.Len(t, received, 4)
	assert.Equal(t, base.Add(10*time.Minute), received[0].Time)
}

func TestCSVFeed_Limit(t *testing.T) {
	path := writeCSV(t, minuteCandles(0, 1, 2, 3, 4, 5))
	feed, err := NewCSVFeed("1m", PairFeed{Pair: "BTCUSDT", File: path, Timeframe: "1m"})
	require.NoError(t, err)

	feed.Limit(2 * time.Minute)
	candles, err := feed.CandlesByPeriod(context.Background(), "BTCUSDT", "1m", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, candles, 2)
}

func TestDataFeedSubscription(t *testing.T) {
	path := writeCSV(t, minuteCandles(0, 1, 2, 3, 4))
	feed, err := NewCSVFeed("1m", PairFeed{Pair: "BTCUSDT", File: path, Timeframe: "1m"})
	require.NoError(t, err)

	nop := zerolog.Nop()
	subscription := NewDataFeed(feed, logzero.NewAdapter(&nop))

	var all, closed []time.Time
	subscription.Subscribe("BTCUSDT", "1m", func(c core.Candle) { all = append(all, c.Time) }, false)
	subscription.Subscribe("BTCUSDT", "1m", func(c core.Candle) { closed = append(closed, c.Time) }, true)

	subscription.Start(context.Background(), true)

	assert.Len(t, all, 5)
	assert.Len(t, closed, 5)
	assert.Equal(t, base, all[0])
}

func TestSplitAssetQuote(t *testing.T) {
	tests := map[string][2]string{
		"BTCUSDT":  {"BTC", "USDT"},
		"ethbtc":   {"ETH", "BTC"},
		"SOL/USDC": {"SOL", "USDC"},
		"ES":       {"", ""},
	}
	for pair, want := range tests {
		asset, quote := SplitAssetQuote(pair)
		assert.Equal(t, want, [2]string{asset, quote}, fmt.Sprintf("pair %s", pair))
	}

	RegisterPair("ESH4", "ES", "USD")
	asset, quote := SplitAssetQuote("ESH4")
	assert.Equal(t, "ES", asset)
	assert.Equal(t, "USD", quote)
}

func TestPairService_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.json")

	service := NewPairService()
	service.Register("NQM4", "NQ", "USD")
	require.NoError(t, service.Save(path))

	loaded := NewPairService()
	require.NoError(t, loaded.Load(path))
	asset, quote := loaded.Split("NQM4")
	assert.Equal(t, "NQ", asset)
	assert.Equal(t, "USD", quote)
}

func TestLoadPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"esm4": {"asset": "ES", "quote": "USD"}}`), 0o644))

	require.NoError(t, LoadPairs(path))
	asset, quote := SplitAssetQuote("ESM4")
	assert.Equal(t, "ES", asset)
	assert.Equal(t, "USD", quote)

	saved := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, SavePairs(saved))
	loaded := NewPairService()
	require.NoError(t, loaded.Load(saved))
	asset, _ = loaded.Split("ESM4")
	assert.Equal(t, "ES", asset)

	assert.Error(t, LoadPairs(filepath.Join(t.TempDir(), "missing.json")))
}

type failingFeeder struct {
	CSVFeed
}

func (failingFeeder) CandlesSubscription(context.Context, string, string) (chan core.Candle, chan error) {
	ccandle := make(chan core.Candle)
	cerr := make(chan error)
	go func() {
		cerr <- fmt.Errorf("connection reset")
		close(cerr)
		close(ccandle)
	}()
	return ccandle, cerr
}

func TestDataFeedSubscription_OnError(t *testing.T) {
	nop := zerolog.Nop()
	subscription := NewDataFeed(&failingFeeder{}, logzero.NewAdapter(&nop))
	subscription.Subscribe("BTCUSDT", "1m", func(core.Candle) {}, false)

	var pairs []string
	subscription.OnError(func(pair, timeframe string, err error) {
		assert.Equal(t, "1m", timeframe)
		assert.EqualError(t, err, "connection reset")
		pairs = append(pairs, pair)
	})
	subscription.Start(context.Background(), true)

	assert.Equal(t, []string{"BTCUSDT"}, pairs)
}
