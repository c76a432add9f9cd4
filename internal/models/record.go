package models

import (
	"time"
)

// Logical field names of a record row, in their fixed order
const (
	FieldID          = "id"
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldGasLevel    = "gas_level"
	FieldLight       = "light"
	FieldCreatedAt   = "created_at"
)

// RecordFields lists the record columns in the order they are selected
var RecordFields = []string{
	FieldID,
	FieldTemperature,
	FieldHumidity,
	FieldGasLevel,
	FieldLight,
	FieldCreatedAt,
}

// GasLevelFields lists the columns of a gas level row
var GasLevelFields = []string{
	FieldGasLevel,
	FieldCreatedAt,
}

// DateLayout renders timestamps as DD/MM/YY.
const DateLayout = "02/01/06"

// Record is one sensor sample with its rendered creation date.
// Measurements are passed through as stored; nil means the column was NULL.
type Record struct {
	ID          int64  `json:"id"`
	Temperature any    `json:"temperature"`
	Humidity    any    `json:"humidity"`
	GasLevel    any    `json:"gas_level"`
	Light       any    `json:"light"`
	CreatedAt   string `json:"created_at"`
}

// GasLevelPoint pairs a gas level with its rendered creation date
type GasLevelPoint struct {
	GasLevel  any    `json:"gas_level"`
	CreatedAt string `json:"created_at"`
}

// Reading is an inbound measurement, before the store assigns id and created_at
type Reading struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	GasLevel    *float64 `json:"gas_level,omitempty"`
	Light       *float64 `json:"light,omitempty"`
}

// FormatDate renders t using DateLayout. The year is truncated to two digits.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
