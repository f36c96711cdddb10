package frame

import "errors"

var (
	// ErrInvalidProcessor is returned by NewProcessor for unusable options.
	ErrInvalidProcessor = errors.New("invalid frame processor config")
	// ErrStreamConsumed is yielded when a stream is ranged over a second time.
	ErrStreamConsumed = errors.New("frame stream already consumed")
)
