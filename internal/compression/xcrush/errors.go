package xcrush

import "errors"

// ErrTruncatedDescriptor is returned when a staged-stream descriptor is cut
// off before its distance or length varint completes.
var ErrTruncatedDescriptor = errors.New("xcrush: truncated chunk descriptor")

// ErrBadDistance is returned when a chunk descriptor references a position
// before the start of the available outer-tier history.
var ErrBadDistance = errors.New("xcrush: chunk distance exceeds available history")
