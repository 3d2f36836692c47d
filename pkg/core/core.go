package core

import (
	"context"
	"time"
)

// Feeder provides candles for a pair and timeframe
type Feeder interface {
	AssetsInfo(pair string) AssetInfo
	CandlesByPeriod(ctx context.Context, pair, period string, start, end time.Time) ([]Candle, error)
	CandlesByLimit(ctx context.Context, pair, period string, limit int) ([]Candle, error)
	CandlesSubscription(ctx context.Context, pair, timeframe string) (chan Candle, chan error)
}

type Notifier interface {
	Notify(string)
	OnSignal(signal Signal)
	OnError(err error)
}

type NotifierWithStart interface {
	Notifier
	Start()
}
