package main

import (
	"errors"
	"fmt"
	"time"
)

// TransientNetworkError is a retryable upstream failure that survived every
// attempt. It wraps the last underlying cause.
type TransientNetworkError struct {
	URL      string
	Attempts int
	Status   int
	Err      error
}

func (e *TransientNetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream unavailable: %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("upstream unavailable: %s after %d attempts (last status %d)", e.URL, e.Attempts, e.Status)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// FatalHTTPError is a non-retryable response, typically a 4xx.
type FatalHTTPError struct {
	URL    string
	Status int
}

func (e *FatalHTTPError) Error() string {
	return fmt.Sprintf("request failed: %s returned status %d", e.URL, e.Status)
}

// IsAuthError reports whether err is a 401/403 style failure, so the caller
// can tell a credentials problem apart from upstream trouble.
func IsAuthError(err error) bool {
	var fe *FatalHTTPError
	if errors.As(err, &fe) {
		return fe.Status == 401 || fe.Status == 403
	}
	return false
}

// DataShapeError means the payload parsed but did not look like the provider
// contract. It aborts the affected fetch only.
type DataShapeError struct {
	Source string
	Detail string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("malformed %s data: %s", e.Source, e.Detail)
}

// DuplicateTimestampError reports two readings for the same hour with
// differing values. Identical duplicates are tolerated (first wins).
type DuplicateTimestampError struct {
	Timestamp time.Time
	Existing  float64
	New       float64
}

func (e *DuplicateTimestampError) Error() string {
	return fmt.Sprintf("duplicate reading for %s: %v != %v",
		e.Timestamp.Format(time.RFC3339), e.Existing, e.New)
}

// DuplicatePriceError is the price-series counterpart of
// DuplicateTimestampError.
type DuplicatePriceError struct {
	Timestamp time.Time
	Existing  float64
	New       float64
}

func (e *DuplicatePriceError) Error() string {
	return fmt.Sprintf("duplicate price for %s: %v != %v",
		e.Timestamp.Format(time.RFC3339), e.Existing, e.New)
}
