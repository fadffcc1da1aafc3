package common

import (
	"errors"
	"fmt"
)

// ErrInput marks request validation failures that must surface to the
// caller before any subprocess spawns. Handlers map it to 400.
var ErrInput = errors.New("invalid input")

// InputErrorf wraps a formatted message with ErrInput so callers can test
// the class with errors.Is.
func InputErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}
