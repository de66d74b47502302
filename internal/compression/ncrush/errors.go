package ncrush

import "errors"

// ErrBadDistance is returned when a decoded match references a position
// before the start of the available history.
var ErrBadDistance = errors.New("ncrush: match distance exceeds available history")
