package storage

import (
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambcl/chartstudies/pkg/core"
)

var start = time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)

func sampleSignals() []core.Signal {
	ny, _ := time.LoadLocation("America/New_York")
	return []core.Signal{
		{Pair: "BTCUSDT", Study: "Wave Trend", Kind: core.SignalWaveTrendBullishCross, Time: start.Add(2 * time.Hour), Price: -40},
		{Pair: "BTCUSDT", Study: "Initial Balance", Kind: core.SignalInitialBalanceConfirmed, Time: start, Price: 104, High: 110, Low: 98},
		{Pair: "ETHUSDT", Study: "Volume Imbalances", Kind: core.SignalImbalanceBullish, Time: start.Add(time.Hour).In(ny), High: 2, Low: 1},
		{Pair: "BTCUSDT", Study: "Volume Imbalances", Kind: core.SignalImbalanceFilled, Time: start.Add(3 * time.Hour), High: 2, Low: 1},
	}
}

func testStorage(t *testing.T, storage Storage) {
	t.Helper()

	for _, signal := range sampleSignals() {
		require.NoError(t, storage.CreateSignal(&signal))
		assert.NotZero(t, signal.ID)
	}

	t.Run("all in time order", func(t *testing.T) {
		signals, err := storage.Signals()
		require.NoError(t, err)
		require.Len(t, signals, 4)
		assert.Equal(t, core.SignalInitialBalanceConfirmed, signals[0].Kind)
		assert.Equal(t, core.SignalImbalanceBullish, signals[1].Kind)
		assert.Equal(t, core.SignalWaveTrendBullishCross, signals[2].Kind)
		assert.Equal(t, core.SignalImbalanceFilled, signals[3].Kind)
		assert.Equal(t, 110.0, signals[0].High)
		assert.True(t, signals[0].Time.Equal(start))
	})

	t.Run("filters", func(t *testing.T) {
		signals, err := storage.Signals(core.WithPair("BTCUSDT"), core.WithStudy("Volume Imbalances"))
		require.NoError(t, err)
		require.Len(t, signals, 1)
		assert.Equal(t, core.SignalImbalanceFilled, signals[0].Kind)

		signals, err = storage.Signals(core.WithKind(core.SignalImbalanceBullish, core.SignalImbalanceFilled))
		require.NoError(t, err)
		assert.Len(t, signals, 2)

		signals, err = storage.Signals(core.WithTimeRange(start, start.Add(2*time.Hour)))
		require.NoError(t, err)
		assert.Len(t, signals, 2)
	})

	t.Run("ids are unique", func(t *testing.T) {
		signals, err := storage.Signals()
		require.NoError(t, err)
		ids := map[int64]bool{}
		for _, s := range signals {
			ids[s.ID] = true
		}
		assert.Len(t, ids, 4)
	})
}

func TestBuntStorage(t *testing.T) {
	storage, err := FromMemory()
	require.NoError(t, err)
	defer storage.Close()

	testStorage(t, storage)
}

func TestBuntStorage_ResumesIDs(t *testing.T) {
	file := filepath.Join(t.TempDir(), "signals.buntdb")

	storage, err := FromFile(file)
	require.NoError(t, err)
	first := core.Signal{Pair: "BTCUSDT", Kind: core.SignalImbalanceBullish, Time: start}
	require.NoError(t, storage.CreateSignal(&first))
	require.NoError(t, storage.Close())

	storage, err = FromFile(file)
	require.NoError(t, err)
	defer storage.Close()

	second := core.Signal{Pair: "BTCUSDT", Kind: core.SignalImbalanceFilled, Time: start.Add(time.Minute)}
	require.NoError(t, storage.CreateSignal(&second))
	assert.Greater(t, second.ID, first.ID)

	signals, err := storage.Signals()
	require.NoError(t, err)
	assert.Len(t, signals, 2)
}

func TestSQLStorage(t *testing.T) {
	storage, err := FromSQLite(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	defer storage.Close()

	testStorage(t, storage)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	storage, err := Open(filepath.Join(dir, "signals.sqlite"))
	require.NoError(t, err)
	assert.IsType(t, &SQLStorage{}, storage)
	require.NoError(t, storage.Close())

	storage, err = Open(":memory:")
	require.NoError(t, err)
	assert.IsType(t, &BuntStorage{}, storage)
	require.NoError(t, storage.Close())
}
