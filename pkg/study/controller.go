package study

import (
	"github.com/gambcl/chartstudies/pkg/core"
	"github.com/gambcl/chartstudies/pkg/logger"
)

// Controller feeds the candles of one pair to a set of studies
type Controller struct {
	pair             string
	studies          []Study
	dataframeManager *DataframeManager
	subscribers      []SignalHandler
	log              logger.Logger
	started          bool
}

// NewController creates a controller and subscribes to the signals of every study.
// Signals are forwarded only after Start, so preloaded history stays silent.
func NewController(pair string, studies []Study, log logger.Logger) *Controller {
	c := &Controller{
		pair:             pair,
		studies:          studies,
		dataframeManager: NewDataframeManager(pair),
		log:              log,
	}

	for _, s := range studies {
		s.OnSignal(c.publish)
	}
	return c
}

func (c *Controller) Pair() string { return c.pair }

func (c *Controller) Studies() []Study { return c.studies }

func (c *Controller) Dataframe() *core.Dataframe { return c.dataframeManager.GetDataframe() }

// Subscribe registers a consumer for the signals of all studies
func (c *Controller) Subscribe(handler SignalHandler) {
	c.subscribers = append(c.subscribers, handler)
}

// Start begins forwarding signals
func (c *Controller) Start() {
	c.started = true
}

// OnPartialCandle processes updates of a candle that is still forming
func (c *Controller) OnPartialCandle(candle core.Candle) {
	if candle.Complete {
		return
	}
	if c.dataframeManager.IsLateCandle(candle) || c.dataframeManager.IsClosed(candle) {
		return
	}

	c.dataframeManager.UpdateDataFrame(candle)
	c.update()
}

// OnCandle processes a completed candle
func (c *Controller) OnCandle(candle core.Candle) {
	if c.dataframeManager.IsLateCandle(candle) {
		c.log.Errorf("late candle received: %#v", candle)
		return
	}

	candle.Complete = true
	c.dataframeManager.UpdateDataFrame(candle)
	c.update()
}

// Preload appends historical candles and recalculates every study over
// them. Nothing is published while the controller is not started.
func (c *Controller) Preload(candles []core.Candle) {
	for _, candle := range candles {
		if c.dataframeManager.IsLateCandle(candle) {
			continue
		}
		candle.Complete = true
		c.dataframeManager.UpdateDataFrame(candle)
	}
	c.Reload()
}

// Reload recalculates every study over the current dataframe
func (c *Controller) Reload() {
	df := c.dataframeManager.GetDataframe()
	for _, s := range c.studies {
		s.Load(df)
	}
}

func (c *Controller) update() {
	df := c.dataframeManager.GetDataframe()
	for _, s := range c.studies {
		if !c.dataframeManager.HasSufficientData(s.Warmup()) {
			continue
		}
		s.OnBarUpdate(df)
	}
}

func (c *Controller) publish(signal core.Signal) {
	if !c.started {
		return
	}

	if signal.Pair == "" {
		signal.Pair = c.pair
	}

	logger.ForSignal(c.log, signal.Pair, signal.Study, string(signal.Kind)).Info(signal.Message)

	for _, subscriber := range c.subscribers {
		subscriber(signal)
	}
}
