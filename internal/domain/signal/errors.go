package signal

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMalformedObservation = errors.New("malformed observation")
	ErrInvalidMode          = errors.New("invalid signal mode")
)
