package dispatch

import (
	"fmt"
	"strings"
)

// ExhaustedError is returned when every candidate adapter failed. Last is
// the final adapter error.
type ExhaustedError struct {
	Endpoint Endpoint
	Attempts []string
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all adapters failed for %s (attempted %s): %v",
		e.Endpoint, strings.Join(e.Attempts, " -> "), e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
