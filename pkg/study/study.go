// Package study defines the contract shared by the chart studies and the
// controller that feeds them candles.
package study

import (
	"github.com/gambcl/chartstudies/pkg/core"
)

type Study interface {
	// Name identifies the study in signals, logs and reports.
	Name() string
	// Overlay is true when the study is drawn over the price chart.
	Overlay() bool
	// Warmup is the number of bars required before the study produces values.
	Warmup() int
	// Load discards any state and recalculates the study over the whole dataframe.
	Load(df *core.Dataframe)
	// OnBarUpdate processes every bar of df not seen yet. The last bar may
	// still be forming, in which case it is evaluated again on the next call.
	OnBarUpdate(df *core.Dataframe)
	// Metrics returns the per-bar values exported by the study.
	Metrics() []core.IndicatorMetric
	// Annotations returns the regions, levels and markers of the study.
	Annotations() []core.Annotation
	// OnSignal registers a handler for the signals raised by the study.
	OnSignal(handler SignalHandler)
}

type SignalHandler func(core.Signal)

// Emitter dispatches signals to the registered handlers. Studies embed it.
type Emitter struct {
	handlers []SignalHandler
}

func (e *Emitter) OnSignal(handler SignalHandler) {
	e.handlers = append(e.handlers, handler)
}

func (e *Emitter) Emit(signal core.Signal) {
	for _, handler := range e.handlers {
		handler(signal)
	}
}

// Describer is implemented by studies that can summarize their current state
// in a few lines of text, e.g. for chat commands.
type Describer interface {
	Describe() string
}
