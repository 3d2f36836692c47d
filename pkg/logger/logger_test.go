package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambcl/chartstudies/pkg/logger"
	logzero "github.com/gambcl/chartstudies/pkg/logger/zerolog"
)

func record(t *testing.T, write func(logger.Logger)) map[string]any {
	t.Helper()
	var out bytes.Buffer
	zl := zerolog.New(&out)
	write(logzero.NewAdapter(&zl))

	fields := map[string]any{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &fields))
	return fields
}

func TestForPair(t *testing.T) {
	fields := record(t, func(log logger.Logger) {
		logger.ForPair(log, "BTCUSDT").Info("preloaded")
	})
	assert.Equal(t, "BTCUSDT", fields[logger.FieldPair])
	assert.Equal(t, "preloaded", fields["message"])
}

func TestForFeed(t *testing.T) {
	fields := record(t, func(log logger.Logger) {
		logger.ForFeed(log, "ETHUSDT", "5m").Warn("reconnecting")
	})
	assert.Equal(t, "ETHUSDT", fields[logger.FieldPair])
	assert.Equal(t, "5m", fields[logger.FieldTimeframe])
	assert.Equal(t, "warn", fields["level"])
}

func TestForSignal(t *testing.T) {
	fields := record(t, func(log logger.Logger) {
		logger.ForSignal(log, "BTCUSDT", "Wave Trend", "wavetrend_bullish_cross").Info("cross")
	})
	assert.Equal(t, "BTCUSDT", fields[logger.FieldPair])
	assert.Equal(t, "Wave Trend", fields[logger.FieldStudy])
	assert.Equal(t, "wavetrend_bullish_cross", fields[logger.FieldKind])
}
