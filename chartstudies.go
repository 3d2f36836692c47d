// Package chartstudies runs the chart studies over live or historical candles
// and dispatches their signals to storage and notifiers.
package chartstudies

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/exchange"
	"github.com/gambcl/chartstudies/pkg/logger"
	"github.com/gambcl/chartstudies/pkg/report"
	"github.com/gambcl/chartstudies/pkg/storage"
	"github.com/gambcl/chartstudies/pkg/study"
)

// DefaultLog is the logger used when none is provided
var DefaultLog logger.Logger

const (
	defaultDatabase    = "chartstudies.db"
	defaultPreloadBars = 500
)

var ErrUnknownPair = errors.New("pair is not monitored")

// StudyFactory creates the studies attached to a pair
type StudyFactory func(pair string, asset core.AssetInfo) ([]study.Study, error)

// Engine feeds the candles of every pair to its studies
type Engine struct {
	settings core.Settings
	feeder   core.Feeder
	factory  StudyFactory
	storage  core.SignalStorage
	telegram core.NotifierWithStart
	log      logger.Logger

	subscribersMu     sync.RWMutex
	notifiers         []core.Notifier
	signalSubscribers []core.SignalSubscriber

	dataFeed            *exchange.DataFeedSubscription
	priorityQueueCandle *core.PriorityQueue
	progress            io.Writer

	mu          sync.RWMutex
	controllers map[string]*study.Controller
	lastCandles map[string]core.Candle

	preloadBars int
	backtest    bool
}

// NewEngine creates an engine watching settings.Pairs on settings.Timeframe
func NewEngine(settings core.Settings, feeder core.Feeder, factory StudyFactory, options ...Option) (*Engine, error) {
	engine := &Engine{
		settings:            settings,
		feeder:              feeder,
		factory:             factory,
		log:                 DefaultLog,
		priorityQueueCandle: core.NewPriorityQueue(nil),
		controllers:         make(map[string]*study.Controller),
		lastCandles:         make(map[string]core.Candle),
		preloadBars:         defaultPreloadBars,
		progress:            os.Stdout,
	}

	if err := validatePairs(settings.Pairs); err != nil {
		return nil, err
	}
	if settings.Timeframe == "" {
		return nil, fmt.Errorf("missing timeframe")
	}

	for _, option := range options {
		option(engine)
	}

	engine.dataFeed = exchange.NewDataFeed(feeder, engine.log)
	engine.dataFeed.OnError(engine.onFeedError)

	if err := initializeStorage(engine); err != nil {
		return nil, err
	}

	if err := initializeNotifications(engine); err != nil {
		return nil, err
	}

	return engine, nil
}

func validatePairs(pairs []string) error {
	if len(pairs) == 0 {
		return fmt.Errorf("no pairs to watch")
	}
	for _, pair := range pairs {
		asset, quote := exchange.SplitAssetQuote(pair)
		if asset == "" || quote == "" {
			return fmt.Errorf("invalid pair: %s", pair)
		}
	}
	return nil
}

func initializeStorage(engine *Engine) error {
	if engine.storage != nil {
		return nil
	}

	var err error
	if engine.backtest {
		engine.storage, err = storage.FromMemory()
	} else {
		engine.storage, err = storage.Open(defaultDatabase)
	}
	return err
}

// Storage returns the signal storage
func (e *Engine) Storage() core.SignalStorage {
	return e.storage
}

// Pairs lists the watched pairs
func (e *Engine) Pairs() []string {
	return e.settings.Pairs
}

// Controller returns the study controller of a pair, available once Run started
func (e *Engine) Controller(pair string) (*study.Controller, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	controller, ok := e.controllers[pair]
	return controller, ok
}

// Snapshot describes the last candle of a pair and the state of its studies
func (e *Engine) Snapshot(pair string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	controller, ok := e.controllers[pair]
	if !ok {
		return "", fmt.Errorf("%s: %w", pair, ErrUnknownPair)
	}

	var sb strings.Builder
	if candle, ok := e.lastCandles[pair]; ok {
		state := "forming"
		if candle.Complete {
			state = "closed"
		}
		fmt.Fprintf(&sb, "%s %s %s: O %g H %g L %g C %g\n", pair, e.settings.Timeframe,
			candle.Time.Format("2006-01-02 15:04"), candle.Open, candle.High, candle.Low, candle.Close)
		fmt.Fprintf(&sb, "bar %s\n", state)
	} else {
		fmt.Fprintf(&sb, "%s %s: no candles yet\n", pair, e.settings.Timeframe)
	}

	for _, s := range controller.Studies() {
		describer, ok := s.(study.Describer)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\n%s\n%s\n", s.Name(), describer.Describe())
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

// Summary prints the signal statistics of the storage
func (e *Engine) Summary(w io.Writer, filters ...core.SignalFilter) error {
	signals, err := e.storage.Signals(filters...)
	if err != nil {
		return err
	}
	return report.New(signals).Fprint(w)
}

func (e *Engine) setup(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pair := range e.settings.Pairs {
		asset := e.feeder.AssetsInfo(pair)
		studies, err := e.factory(pair, asset)
		if err != nil {
			return fmt.Errorf("%s: %w", pair, err)
		}

		controller := study.NewController(pair, studies, logger.ForPair(e.log, pair))
		controller.Subscribe(e.onSignal)
		e.controllers[pair] = controller

		if err := e.preload(ctx, pair, controller); err != nil {
			return err
		}

		e.dataFeed.Subscribe(pair, e.settings.Timeframe, e.onCandle, false)
		controller.Start()
	}
	return nil
}

// Run preloads history, subscribes to the feeds and processes candles until
// ctx is canceled. In backtest mode it returns once the feeds are exhausted.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.setup(ctx); err != nil {
		return err
	}

	if e.telegram != nil {
		e.telegram.Start()
	}

	e.dataFeed.Start(ctx, e.backtest)

	if e.backtest {
		return e.backtestCandles(ctx)
	}

	e.processCandles(ctx)
	return nil
}
