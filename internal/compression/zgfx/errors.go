package zgfx

import "errors"

// ErrInvalidToken is returned when a bit sequence does not match any of the
// 40 fixed token prefixes.
var ErrInvalidToken = errors.New("zgfx: invalid token prefix")

// ErrBadDistance is returned when a match token's distance reaches before
// the start of the available history.
var ErrBadDistance = errors.New("zgfx: match distance exceeds available history")

// ErrTruncatedSegment is returned when a segment is empty or its declared
// unused-bit count does not fit the payload.
var ErrTruncatedSegment = errors.New("zgfx: truncated segment payload")
