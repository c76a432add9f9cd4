package records

import "fmt"

// FormatError is returned when a row cannot be turned into a Record
type FormatError struct {
	Field string
	Value any
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %v", e.Field, e.Value)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Operations reported by RetrievalError
const (
	OpListRecords           = "getting records"
	OpTemperatureStatistics = "calculating statistics"
	OpGasLevelSeries        = "getting gas levels"
)

// RetrievalError wraps every failure of a Service operation.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("error %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
