package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/gambcl/chartstudies/pkg/core"
)

func TestObserve(t *testing.T) {
	ObserveCandle(core.Candle{Pair: "METRICSUSDT", Close: 101.5, Complete: true})
	ObserveCandle(core.Candle{Pair: "METRICSUSDT", Close: 102, Complete: false})
	ObserveSignal(core.Signal{Pair: "METRICSUSDT", Study: "Wave Trend", Kind: core.SignalWaveTrendBearishCross})
	ObserveFeedError("METRICSUSDT")

	assert.Equal(t, 1.0, testutil.ToFloat64(CandlesProcessedMetrics.WithLabelValues("METRICSUSDT", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(CandlesProcessedMetrics.WithLabelValues("METRICSUSDT", "false")))
	assert.Equal(t, 102.0, testutil.ToFloat64(LastCloseMetrics.WithLabelValues("METRICSUSDT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(SignalsMetrics.WithLabelValues("METRICSUSDT", "Wave Trend", "wavetrend_bearish_cross")))
	assert.Equal(t, 1.0, testutil.ToFloat64(FeedErrorsMetrics.WithLabelValues("METRICSUSDT")))
}

func TestHandler(t *testing.T) {
	ObserveSignal(core.Signal{Pair: "HANDLERUSDT", Study: "Initial Balance", Kind: core.SignalInitialBalanceConfirmed})

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `chartstudies_signals_total{kind="ib_confirmed",pair="HANDLERUSDT",study="Initial Balance"} 1`)
}
