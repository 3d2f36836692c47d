package study

import "github.com/gambcl/chartstudies/pkg/core"

// DataframeManager handles operations related to updating and maintaining the dataframe
type DataframeManager struct {
	dataframe *core.Dataframe
}

// NewDataframeManager creates a new dataframe manager for a given pair
func NewDataframeManager(pair string) *DataframeManager {
	return &DataframeManager{
		dataframe: core.NewDataframe(pair),
	}
}

// GetDataframe returns the current dataframe
func (dm *DataframeManager) GetDataframe() *core.Dataframe {
	return dm.dataframe
}

// UpdateDataFrame updates the dataframe with a new candle. A candle with the
// timestamp of the last row replaces it.
func (dm *DataframeManager) UpdateDataFrame(candle core.Candle) {
	last := len(dm.dataframe.Time) - 1
	if last >= 0 && candle.Time.Equal(dm.dataframe.Time[last]) {
		dm.dataframe.ReplaceLast(candle)
		return
	}
	dm.dataframe.Append(candle)
}

// HasSufficientData checks if the dataframe has enough data based on the warmup period
func (dm *DataframeManager) HasSufficientData(warmupPeriod int) bool {
	return len(dm.dataframe.Close) >= warmupPeriod
}

// IsLateCandle checks if a candle is older than the latest one in the dataframe
func (dm *DataframeManager) IsLateCandle(candle core.Candle) bool {
	return len(dm.dataframe.Time) > 0 && candle.Time.Before(dm.dataframe.Time[len(dm.dataframe.Time)-1])
}

// IsClosed reports whether the candle was already received as complete
func (dm *DataframeManager) IsClosed(candle core.Candle) bool {
	last := len(dm.dataframe.Time) - 1
	return last >= 0 && candle.Time.Equal(dm.dataframe.Time[last]) && dm.dataframe.LastComplete
}
