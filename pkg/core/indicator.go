package core

import (
	"time"
)

type MetricStyle string

const (
	StyleBar       = "bar"
	StyleScatter   = "scatter"
	StyleLine      = "line"
	StyleHistogram = "histogram"
	StyleWaterfall = "waterfall"
)

type IndicatorMetric struct {
	Name   string
	Color  string
	Style  MetricStyle // default: line
	Values Series[float64]
	Time   []time.Time
}

type ChartIndicator struct {
	Time      []time.Time
	Metrics   []IndicatorMetric
	Overlay   bool
	GroupName string
	Warmup    int
}

// AnnotationKind identifies what an annotation describes on a chart
type AnnotationKind string

const (
	AnnotationRegion AnnotationKind = "region"
	AnnotationLevel  AnnotationKind = "level"
	AnnotationMarker AnnotationKind = "marker"
)

// MarkerPosition places a marker relative to its price
type MarkerPosition string

const (
	PositionTop    MarkerPosition = "top"
	PositionBottom MarkerPosition = "bottom"
	PositionCenter MarkerPosition = "center"
)

// Annotation is a study output that is not a per-bar value: a price region,
// a horizontal level between two times or a marker on a single bar.
// A zero End means the annotation extends to the right edge of the chart.
type Annotation struct {
	Kind     AnnotationKind
	Label    string
	Start    time.Time
	End      time.Time
	Price    float64
	High     float64
	Low      float64
	Position MarkerPosition
	Color    string
}
