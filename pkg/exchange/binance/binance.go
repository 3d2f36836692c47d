package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/exchange"
	"github.com/gambcl/chartstudies/pkg/logger"
)

// ErrUnknownPair is returned when a pair is not listed by the exchange
var ErrUnknownPair = errors.New("unknown pair")

// Feed is a read-only Binance spot client serving klines to the studies
type Feed struct {
	client     *binance.Client
	log        logger.Logger
	assetsInfo map[string]core.AssetInfo
	heikinAshi bool
	testnet    bool
	wsServe    wsKlineServer
}

var _ core.Feeder = (*Feed)(nil)

// wsKlineServer matches binance.WsKlineServe so subscriptions can be replaced in tests
type wsKlineServer func(symbol, interval string, handler binance.WsKlineHandler,
	errHandler binance.ErrHandler) (doneC, stopC chan struct{}, err error)

// Option configures a Feed
type Option func(*Feed)

// WithCredentials sets the API credentials. Klines are public, keys only raise rate limits.
func WithCredentials(key, secret string) Option {
	return func(f *Feed) {
		f.client = binance.NewClient(key, secret)
	}
}

// WithHeikinAshiCandles converts every kline to a Heikin-Ashi candle
func WithHeikinAshiCandles() Option {
	return func(f *Feed) {
		f.heikinAshi = true
	}
}

// WithTestNet switches the REST and websocket endpoints to the Binance testnet
func WithTestNet() Option {
	return func(f *Feed) {
		f.testnet = true
	}
}

// WithBaseURL overrides the REST endpoint
func WithBaseURL(url string) Option {
	return func(f *Feed) {
		f.client.BaseURL = url
	}
}

// NewFeed connects to Binance and loads the symbol filters used for tick rounding
func NewFeed(ctx context.Context, log logger.Logger, options ...Option) (*Feed, error) {
	binance.WebsocketKeepalive = true

	feed := &Feed{
		client:     binance.NewClient("", ""),
		log:        log,
		assetsInfo: make(map[string]core.AssetInfo),
		wsServe:    binance.WsKlineServe,
	}

	for _, option := range options {
		option(feed)
	}

	if feed.testnet {
		binance.UseTestnet = true
		feed.client.BaseURL = binance.BaseAPITestnetURL
	}

	if err := feed.client.NewPingService().Do(ctx); err != nil {
		return nil, fmt.Errorf("binance ping fail: %w", err)
	}

	exchangeInfo, err := feed.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}

	for _, symbol := range exchangeInfo.Symbols {
		feed.assetsInfo[symbol.Symbol] = assetInfoFromSymbol(symbol)
		exchange.RegisterPair(symbol.Symbol, symbol.BaseAsset, symbol.QuoteAsset)
	}

	log.WithField("symbols", len(feed.assetsInfo)).Info("[SETUP] Using Binance spot feed")
	return feed, nil
}

func assetInfoFromSymbol(symbol binance.Symbol) core.AssetInfo {
	info := core.AssetInfo{
		BaseAsset:          symbol.BaseAsset,
		QuoteAsset:         symbol.QuoteAsset,
		BaseAssetPrecision: symbol.BaseAssetPrecision,
		QuotePrecision:     symbol.QuotePrecision,
	}

	for _, filter := range symbol.Filters {
		typ, ok := filter["filterType"]
		if !ok {
			continue
		}

		switch typ {
		case string(binance.SymbolFilterTypeLotSize):
			info.MinQuantity = parseFilterValue(filter, "minQty")
			info.MaxQuantity = parseFilterValue(filter, "maxQty")
			info.StepSize = parseFilterValue(filter, "stepSize")
		case string(binance.SymbolFilterTypePriceFilter):
			info.MinPrice = parseFilterValue(filter, "minPrice")
			info.MaxPrice = parseFilterValue(filter, "maxPrice")
			info.TickSize = parseFilterValue(filter, "tickSize")
		}
	}

	// Binance reports 8 decimals for nearly every quote; the tick size is the real precision
	if info.TickSize > 0 {
		info.QuotePrecision = int(core.NumDecPlaces(info.TickSize))
	}

	return info
}

func parseFilterValue(filter map[string]interface{}, key string) float64 {
	raw, ok := filter[key].(string)
	if !ok {
		return 0
	}
	value, _ := strconv.ParseFloat(raw, 64)
	return value
}

// AssetsInfo returns the market information of a pair
func (f *Feed) AssetsInfo(pair string) core.AssetInfo {
	return f.assetsInfo[pair]
}

// CandlesByLimit returns the last complete candles of a pair
func (f *Feed) CandlesByLimit(ctx context.Context, pair, period string, limit int) ([]core.Candle, error) {
	if _, ok := f.assetsInfo[pair]; !ok {
		return nil, fmt.Errorf("%s: %w", pair, ErrUnknownPair)
	}

	data, err := f.client.NewKlinesService().
		Symbol(pair).
		Interval(period).
		Limit(limit + 1). // the last kline is still forming
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", pair, period, err)
	}

	if len(data) > 0 {
		data = data[:len(data)-1]
	}

	return f.convertKlines(pair, data), nil
}

// CandlesByPeriod returns the candles of a pair opened within [start, end]
func (f *Feed) CandlesByPeriod(ctx context.Context, pair, period string, start, end time.Time) ([]core.Candle, error) {
	if _, ok := f.assetsInfo[pair]; !ok {
		return nil, fmt.Errorf("%s: %w", pair, ErrUnknownPair)
	}

	data, err := f.client.NewKlinesService().
		Symbol(pair).
		Interval(period).
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Limit(1000).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", pair, period, err)
	}

	return f.convertKlines(pair, data), nil
}

func (f *Feed) convertKlines(pair string, data []*binance.Kline) []core.Candle {
	heikinAshi := core.NewHeikinAshi()
	candles := make([]core.Candle, 0, len(data))
	for _, d := range data {
		candle := convertKlineToCandle(pair, *d)
		if f.heikinAshi {
			candle = candle.ToHeikinAshi(heikinAshi)
		}
		candles = append(candles, candle)
	}
	return candles
}

// CandlesSubscription streams kline updates of a pair. Forming klines are sent with
// Complete=false; the stream reconnects with an exponential backoff until ctx is done.
func (f *Feed) CandlesSubscription(ctx context.Context, pair, period string) (chan core.Candle, chan error) {
	candleChan := make(chan core.Candle)
	errChan := make(chan error)
	heikinAshi := core.NewHeikinAshi()
	retry := setupBackoffRetry()

	go func() {
		defer close(candleChan)
		defer close(errChan)

		for {
			done, stop, err := f.wsServe(pair, period, func(event *binance.WsKlineEvent) {
				retry.Reset()
				candle := convertWsKlineToCandle(pair, event.Kline)
				switch {
				case f.heikinAshi && candle.Complete:
					candle = candle.ToHeikinAshi(heikinAshi)
				case f.heikinAshi:
					candle = candle.ToHeikinAshi(heikinAshi.Fork())
				}

				select {
				case candleChan <- candle:
				case <-ctx.Done():
				}
			}, func(err error) {
				select {
				case errChan <- err:
				case <-ctx.Done():
				}
			})
			if err != nil {
				select {
				case errChan <- err:
				case <-ctx.Done():
					return
				}
				if !sleep(ctx, retry.Duration()) {
					return
				}
				continue
			}

			select {
			case <-ctx.Done():
				close(stop)
				<-done
				return
			case <-done:
				wait := retry.Duration()
				logger.ForFeed(f.log, pair, period).Warnf("kline stream closed, reconnecting in %s", wait)
				if !sleep(ctx, wait) {
					return
				}
			}
		}
	}()

	return candleChan, errChan
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func setupBackoffRetry() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}
}

func convertKlineToCandle(pair string, k binance.Kline) core.Candle {
	t := time.UnixMilli(k.OpenTime)
	candle := core.Candle{
		Pair:      pair,
		Time:      t,
		UpdatedAt: time.UnixMilli(k.CloseTime),
		Metadata:  make(map[string]float64),
		Complete:  true,
	}

	candle.Open, _ = strconv.ParseFloat(k.Open, 64)
	candle.Close, _ = strconv.ParseFloat(k.Close, 64)
	candle.High, _ = strconv.ParseFloat(k.High, 64)
	candle.Low, _ = strconv.ParseFloat(k.Low, 64)
	candle.Volume, _ = strconv.ParseFloat(k.Volume, 64)

	return candle
}

func convertWsKlineToCandle(pair string, k binance.WsKline) core.Candle {
	candle := core.Candle{
		Pair:      pair,
		Time:      time.UnixMilli(k.StartTime),
		UpdatedAt: time.Now(),
		Metadata:  make(map[string]float64),
		Complete:  k.IsFinal,
	}

	candle.Open, _ = strconv.ParseFloat(k.Open, 64)
	candle.Close, _ = strconv.ParseFloat(k.Close, 64)
	candle.High, _ = strconv.ParseFloat(k.High, 64)
	candle.Low, _ = strconv.ParseFloat(k.Low, 64)
	candle.Volume, _ = strconv.ParseFloat(k.Volume, 64)

	return candle
}
