package speaking

import "errors"

// ErrInvalidClassifier is returned for debounce settings that cannot work.
var ErrInvalidClassifier = errors.New("invalid classifier config")
