// Package prompt turns a drained request body into the prompt text handed to
// the generation backend.
package prompt

import (
	"fmt"
	"unicode/utf8"
)

// InvalidEncodingError is returned when the body is not valid UTF-8.
type InvalidEncodingError struct {
	// Offset is the index of the first byte that does not start a valid
	// UTF-8 sequence.
	Offset int
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 at byte offset %d", e.Offset)
}

// Extract interprets b as UTF-8 text. An empty buffer yields an empty prompt.
func Extract(b []byte) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}
	return "", &InvalidEncodingError{Offset: firstInvalid(b)}
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
