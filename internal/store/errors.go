package store

import "fmt"

// StoreError tags a persistence failure with the operation that produced it.
// Absence of a row is never a StoreError; finders return nil for that.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// RowError reports a persisted row that failed the schema check at the store
// boundary. Malformed rows are rejected here instead of being passed through.
type RowError struct {
	Table  string
	RowID  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %s: %s", e.Table, e.RowID, e.Reason)
}
