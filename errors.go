package coinfolio

import "errors"

// Errors returned by the tracker. They are always wrapped with some context,
// use errors.Is to test for them.
var (
	// ErrValidation reports missing or invalid user input. No state is changed.
	ErrValidation = errors.New("invalid input")
	// ErrNetwork reports a failure to read the catalog or the live prices.
	ErrNetwork = errors.New("market data unavailable")
	// ErrFormat reports a restore file that cannot be parsed. No state is changed.
	ErrFormat = errors.New("invalid backup file")
)
