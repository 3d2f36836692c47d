package chartstudies

import (
	"context"

	"github.com/schollz/progressbar/v3"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/logger"
	"github.com/gambcl/chartstudies/pkg/metrics"
	"github.com/gambcl/chartstudies/pkg/study"
)

func (e *Engine) onCandle(candle core.Candle) {
	e.priorityQueueCandle.Push(candle)
}

func (e *Engine) processCandle(candle core.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	controller, ok := e.controllers[candle.Pair]
	if !ok {
		return
	}

	controller.OnPartialCandle(candle)
	if candle.Complete {
		controller.OnCandle(candle)
	}

	e.lastCandles[candle.Pair] = candle
	metrics.ObserveCandle(candle)
}

// processCandles handles live candles until ctx is canceled
func (e *Engine) processCandles(ctx context.Context) {
	for item := range e.priorityQueueCandle.PopLock(ctx) {
		e.processCandle(item.(core.Candle))
	}
}

// backtestCandles drains the queue in chronological order
func (e *Engine) backtestCandles(ctx context.Context) error {
	e.log.Info("starting backtest")

	bar := progressbar.NewOptions64(int64(e.priorityQueueCandle.Len()),
		progressbar.OptionSetWriter(e.progress),
		progressbar.OptionSetDescription("candles"),
		progressbar.OptionShowCount(),
	)
	for e.priorityQueueCandle.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.processCandle(e.priorityQueueCandle.Pop().(core.Candle))
		if err := bar.Add(1); err != nil {
			e.log.Warnf("update progressbar fail: %v", err)
		}
	}
	return bar.Finish()
}

// preload loads recent history so the studies start with context. The
// studies stay silent until their controller is started.
func (e *Engine) preload(ctx context.Context, pair string, controller *study.Controller) error {
	if e.backtest || e.preloadBars <= 0 {
		return nil
	}

	candles, err := e.feeder.CandlesByLimit(ctx, pair, e.settings.Timeframe, e.preloadBars)
	if err != nil {
		return err
	}

	controller.Preload(candles)
	if len(candles) > 0 {
		e.lastCandles[pair] = candles[len(candles)-1]
	}
	logger.ForPair(e.log, pair).Infof("preloaded %d candles", len(candles))
	return nil
}
