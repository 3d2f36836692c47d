package chartstudies

import (
	"io"

	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/logger"
)

// Option configures an Engine
type Option func(*Engine)

// WithBacktest runs the engine over a finite feed such as CSV files. Candles
// are processed in order and Run returns when the feed is exhausted.
func WithBacktest() Option {
	return func(engine *Engine) {
		engine.backtest = true
	}
}

// WithStorage sets the signal storage, by default a local file called chartstudies.db
func WithStorage(storage core.SignalStorage) Option {
	return func(engine *Engine) {
		engine.storage = storage
	}
}

// WithNotifier registers a notifier receiving signals and feed errors
func WithNotifier(notifier core.Notifier) Option {
	return func(engine *Engine) {
		engine.subscribersMu.Lock()
		defer engine.subscribersMu.Unlock()
		engine.notifiers = append(engine.notifiers, notifier)
	}
}

// WithSignalSubscription subscribes a given struct to the signals of every pair
func WithSignalSubscription(subscriber core.SignalSubscriber) Option {
	return func(engine *Engine) {
		engine.SubscribeSignal(subscriber)
	}
}

// WithLogger replaces DefaultLog
func WithLogger(log logger.Logger) Option {
	return func(engine *Engine) {
		engine.log = log
	}
}

// WithPreload sets how many bars of history are loaded before a live run
func WithPreload(bars int) Option {
	return func(engine *Engine) {
		engine.preloadBars = bars
	}
}

// WithProgressWriter shows the backtest progress bar on w
func WithProgressWriter(w io.Writer) Option {
	return func(engine *Engine) {
		engine.progress = w
	}
}
