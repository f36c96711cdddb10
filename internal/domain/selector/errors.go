package selector

import "errors"

// ErrInvalidPolicy is returned for unknown selection policies.
var ErrInvalidPolicy = errors.New("invalid selection policy")
