package service

import "fmt"

// SourceFetchError means the aerodrome status source could not be reached or
// rejected the request (including a missing API key).
type SourceFetchError struct {
	ICAO string
	Err  error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("failed to fetch warnings for %s: %v", e.ICAO, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// StoreError wraps any failure of the persistent alert store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("alert store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
