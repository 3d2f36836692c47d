// Package metrics exposes prometheus counters of the study engine.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gambcl/chartstudies/pkg/core"
)

var (
	CandlesProcessedMetrics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartstudies_candles_processed_total",
			Help: "Number of candle updates fed to the studies",
		}, []string{"pair", "complete"},
	)

	SignalsMetrics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartstudies_signals_total",
			Help: "Number of signals raised by the studies",
		}, []string{"pair", "study", "kind"},
	)

	FeedErrorsMetrics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartstudies_feed_errors_total",
			Help: "Number of errors reported by the candle feeds",
		}, []string{"pair"},
	)

	LastCloseMetrics = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chartstudies_last_close",
			Help: "Close price of the last candle update",
		}, []string{"pair"},
	)
)

func init() {
	prometheus.MustRegister(
		CandlesProcessedMetrics,
		SignalsMetrics,
		FeedErrorsMetrics,
		LastCloseMetrics,
	)
}

// ObserveCandle counts a candle update and records its close
func ObserveCandle(candle core.Candle) {
	CandlesProcessedMetrics.WithLabelValues(candle.Pair, strconv.FormatBool(candle.Complete)).Inc()
	LastCloseMetrics.WithLabelValues(candle.Pair).Set(candle.Close)
}

// ObserveSignal counts a study signal
func ObserveSignal(signal core.Signal) {
	SignalsMetrics.WithLabelValues(signal.Pair, signal.Study, string(signal.Kind)).Inc()
}

// ObserveFeedError counts a feed error of a pair
func ObserveFeedError(pair string) {
	FeedErrorsMetrics.WithLabelValues(pair).Inc()
}

// Handler serves the registered metrics in the prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
