package database

import "fmt"

// ConnectionError is returned when the store cannot be reached or rejects the credentials
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to database: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError is returned for any fault while executing a query or reading its rows
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to execute %s query: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
