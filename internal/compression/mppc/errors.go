package mppc

import "errors"

// ErrBadDistance is returned when a decoded match references a position
// before the start of the available history, indicating a corrupt or
// out-of-sync compressed stream.
var ErrBadDistance = errors.New("mppc: match distance exceeds available history")
