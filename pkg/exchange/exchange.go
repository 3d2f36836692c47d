package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/StudioSol/set"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/logger"
)

// DataFeed is the pair of channels delivered by a feeder subscription
type DataFeed struct {
	Data chan core.Candle
	Err  chan error
}

// DataFeedConsumer receives the candles of a subscribed feed
type DataFeedConsumer func(core.Candle)

// ErrorHandler receives the errors reported by a feed
type ErrorHandler func(pair, timeframe string, err error)

type Subscription struct {
	onCandleClose bool
	consumer      DataFeedConsumer
}

// DataFeedSubscription fans the candles of every pair/timeframe feed out to
// its consumers. Feeds are opened in subscription order.
type DataFeedSubscription struct {
	feeder                  core.Feeder
	Feeds                   *set.LinkedHashSetString
	DataFeeds               map[string]*DataFeed
	SubscriptionsByDataFeed map[string][]Subscription
	errorHandlers           []ErrorHandler
	log                     logger.Logger
	mu                      sync.RWMutex
}

func NewDataFeed(feeder core.Feeder, log logger.Logger) *DataFeedSubscription {
	return &DataFeedSubscription{
		feeder:                  feeder,
		Feeds:                   set.NewLinkedHashSetString(),
		DataFeeds:               make(map[string]*DataFeed),
		SubscriptionsByDataFeed: make(map[string][]Subscription),
		log:                     log,
	}
}

func feedKey(pair, timeframe string) string {
	return fmt.Sprintf("%s--%s", pair, timeframe)
}

func pairTimeframeFromKey(key string) (pair, timeframe string) {
	parts := strings.Split(key, "--")
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// Subscribe registers a consumer. With onCandleClose only complete candles are delivered.
func (d *DataFeedSubscription) Subscribe(pair, timeframe string, consumer DataFeedConsumer, onCandleClose bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := feedKey(pair, timeframe)
	d.Feeds.Add(key)
	d.SubscriptionsByDataFeed[key] = append(d.SubscriptionsByDataFeed[key], Subscription{
		onCandleClose: onCandleClose,
		consumer:      consumer,
	})
}

// OnError registers a handler for feed errors, which are always logged
func (d *DataFeedSubscription) OnError(handler ErrorHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errorHandlers = append(d.errorHandlers, handler)
}

// Connect opens a feeder subscription for every registered feed
func (d *DataFeedSubscription) Connect(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for feed := range d.Feeds.Iter() {
		if _, ok := d.DataFeeds[feed]; ok {
			continue
		}
		pair, timeframe := pairTimeframeFromKey(feed)
		ccandle, cerr := d.feeder.CandlesSubscription(ctx, pair, timeframe)
		d.DataFeeds[feed] = &DataFeed{Data: ccandle, Err: cerr}
	}
}

// Start connects the feeds and dispatches their candles. With loadSync it
// blocks until every feed is exhausted, which is how CSV backtests run.
func (d *DataFeedSubscription) Start(ctx context.Context, loadSync bool) {
	d.Connect(ctx)

	var wg sync.WaitGroup
	d.mu.RLock()
	for key, feed := range d.DataFeeds {
		wg.Add(1)
		go func(key string, feed *DataFeed) {
			defer wg.Done()
			d.processFeed(ctx, key, feed)
		}(key, feed)
	}
	d.mu.RUnlock()

	d.log.Infof("data feed connected")
	if loadSync {
		wg.Wait()
	}
}

func (d *DataFeedSubscription) processFeed(ctx context.Context, key string, feed *DataFeed) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-feed.Data:
			if !ok {
				return
			}

			d.mu.RLock()
			subscriptions := d.SubscriptionsByDataFeed[key]
			d.mu.RUnlock()

			for _, subscription := range subscriptions {
				if subscription.onCandleClose && !candle.Complete {
					continue
				}
				subscription.consumer(candle)
			}
		case err, ok := <-feed.Err:
			if !ok {
				// the error channel closes with the data channel
				feed.Err = nil
				continue
			}
			if err == nil {
				continue
			}
			pair, timeframe := pairTimeframeFromKey(key)
			logger.ForFeed(d.log, pair, timeframe).WithError(err).Error("data feed error")

			d.mu.RLock()
			handlers := d.errorHandlers
			d.mu.RUnlock()
			for _, handler := range handlers {
				handler(pair, timeframe, err)
			}
		}
	}
}
