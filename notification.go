package chartstudies

import (
	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/metrics"
	"github.com/gambcl/chartstudies/pkg/notification"
)

// initializeNotifications starts the Telegram bot when enabled
func initializeNotifications(engine *Engine) error {
	if !engine.settings.Telegram.Enabled {
		return nil
	}

	telegram, err := notification.NewTelegram(engine, engine.settings,
		notification.WithLogger(engine.log),
		notification.WithStorage(engine.storage),
	)
	if err != nil {
		return err
	}

	engine.telegram = telegram
	WithNotifier(telegram)(engine)
	return nil
}

// onSignal persists a signal and forwards it to the notifiers and subscribers
func (e *Engine) onSignal(signal core.Signal) {
	metrics.ObserveSignal(signal)

	if err := e.storage.CreateSignal(&signal); err != nil {
		e.log.WithError(err).Error("failed to store signal")
	}

	e.subscribersMu.RLock()
	notifiers, subscribers := e.notifiers, e.signalSubscribers
	e.subscribersMu.RUnlock()

	for _, notifier := range notifiers {
		notifier.OnSignal(signal)
	}
	for _, subscriber := range subscribers {
		subscriber.OnSignal(signal)
	}
}

func (e *Engine) onFeedError(pair, _ string, err error) {
	metrics.ObserveFeedError(pair)
	for _, notifier := range e.notifierList() {
		notifier.OnError(err)
	}
}

// SubscribeSignal subscribes the given subscribers to the signals of every pair
func (e *Engine) SubscribeSignal(subscriptions ...core.SignalSubscriber) {
	e.subscribersMu.Lock()
	defer e.subscribersMu.Unlock()
	e.signalSubscribers = append(e.signalSubscribers, subscriptions...)
}

// Notify sends a text message through every notifier
func (e *Engine) Notify(text string) {
	for _, notifier := range e.notifierList() {
		notifier.Notify(text)
	}
}

func (e *Engine) notifierList() []core.Notifier {
	e.subscribersMu.RLock()
	defer e.subscribersMu.RUnlock()
	return e.notifiers
}
