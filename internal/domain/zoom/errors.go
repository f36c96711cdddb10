package zoom

import "errors"

// ErrInvalidController is returned for transition settings that would freeze
// or explode the camera.
var ErrInvalidController = errors.New("invalid zoom config")
