// Package apperr holds the error sentinels shared across the ledger engine.
// Callers compare with errors.Is; the HTTP layer maps each to a status code.
package apperr

import "errors"

var (
	// ErrMalformedInput is returned before any upstream call when an argument is invalid
	ErrMalformedInput = errors.New("malformed input")

	// ErrNoDataAvailable means the request was valid but upstream had nothing usable
	ErrNoDataAvailable = errors.New("no data available")

	// ErrPriceUnavailable means every price provider failed for a symbol
	ErrPriceUnavailable = errors.New("price unavailable")
)
