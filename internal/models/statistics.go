package models

import (
	"encoding/json"
)

// NoDataMessage is carried by a report computed over an empty sample
const NoDataMessage = "no data available for the window"

// StatisticsReport holds descriptive statistics over a numeric sample.
// When the sample is empty only Message is set.
type StatisticsReport struct {
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	// Mode is nil unless it was requested
	Mode    *int64
	Count   int
	Message string
}

// EmptyReport returns the degenerate report for an empty sample
func EmptyReport() StatisticsReport {
	return StatisticsReport{Message: NoDataMessage}
}

// SampleEmpty reports whether the report was computed over no values
func (r StatisticsReport) SampleEmpty() bool {
	return r.Count == 0
}

type statisticsJSON struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mode   *int64  `json:"mode,omitempty"`
	Count  int     `json:"count"`
}

type messageJSON struct {
	Message string `json:"message"`
}

// MarshalJSON emits either the numeric fields or, for an empty sample, the message alone.
func (r StatisticsReport) MarshalJSON() ([]byte, error) {
	if r.SampleEmpty() {
		msg := r.Message
		if msg == "" {
			msg = NoDataMessage
		}
		return json.Marshal(messageJSON{Message: msg})
	}
	return json.Marshal(statisticsJSON{
		Mean:   r.Mean,
		Median: r.Median,
		StdDev: r.StdDev,
		Min:    r.Min,
		Max:    r.Max,
		Mode:   r.Mode,
		Count:  r.Count,
	})
}
