package core

import (
	"fmt"
	"slices"
	"time"
)

type SignalKind string

const (
	SignalInitialBalanceConfirmed SignalKind = "ib_confirmed"
	SignalImbalanceBullish        SignalKind = "imbalance_bullish"
	SignalImbalanceBearish        SignalKind = "imbalance_bearish"
	SignalImbalanceFilled         SignalKind = "imbalance_filled"
	SignalWaveTrendBullishCross   SignalKind = "wavetrend_bullish_cross"
	SignalWaveTrendBearishCross   SignalKind = "wavetrend_bearish_cross"
)

// Signal is an event raised by a study, e.g. a confirmed range or a filled gap
type Signal struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Pair      string     `json:"pair" gorm:"index"`
	Study     string     `json:"study" gorm:"index"`
	Kind      SignalKind `json:"kind" gorm:"index"`
	Time      time.Time  `json:"time" gorm:"index"`
	Price     float64    `json:"price"`
	High      float64    `json:"high"`
	Low       float64    `json:"low"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s Signal) String() string {
	return fmt.Sprintf("[%s] %s %s at %s: %s", s.Study, s.Pair, s.Kind, s.Time.Format(time.RFC3339), s.Message)
}

type SignalSubscriber interface {
	OnSignal(Signal)
}

// SignalFilter selects signals when querying a storage
type SignalFilter func(Signal) bool

// WithPair selects signals of the given pair
func WithPair(pair string) SignalFilter {
	return func(s Signal) bool {
		return s.Pair == pair
	}
}

// WithKind selects signals of any of the given kinds
func WithKind(kinds ...SignalKind) SignalFilter {
	return func(s Signal) bool {
		return slices.Contains(kinds, s.Kind)
	}
}

// WithStudy selects signals raised by the named study
func WithStudy(study string) SignalFilter {
	return func(s Signal) bool {
		return s.Study == study
	}
}

// WithTimeRange selects signals with start <= time < end
func WithTimeRange(start, end time.Time) SignalFilter {
	return func(s Signal) bool {
		return !s.Time.Before(start) && s.Time.Before(end)
	}
}

// SignalStorage persists study signals
type SignalStorage interface {
	// CreateSignal stores a new signal, assigning its ID
	CreateSignal(signal *Signal) error

	// Signals retrieves signals in time order based on provided filters
	Signals(filters ...SignalFilter) ([]*Signal, error)
}
