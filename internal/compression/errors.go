package compression

import "errors"

// ErrInvalidCode is returned when a Huffman-coded bit stream does not trace
// to any known codeword within the alphabet's maximum code length.
var ErrInvalidCode = errors.New("compression: invalid huffman code")
