package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedModality is returned when image content reaches an adapter that
// cannot render it.
var ErrUnsupportedModality = errors.New("unsupported modality")

// AdapterError describes any upstream failure: network, timeout, non-2xx
// status, malformed body or missing reply field. It is the only error kind the
// dispatcher falls back on.
type AdapterError struct {
	Adapter string

	// Status is the upstream HTTP status, 0 when no response was received.
	Status int

	// BodyExcerpt is a truncated copy of the upstream body for diagnostics.
	BodyExcerpt string

	Cause error
}

func (e *AdapterError) Error() string {
	var b strings.Builder
	b.WriteString(e.Adapter)
	b.WriteString(" adapter failed")
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.BodyExcerpt != "" && (e.Cause == nil || !strings.Contains(e.Cause.Error(), e.BodyExcerpt)) {
		b.WriteString(": ")
		b.WriteString(e.BodyExcerpt)
	}
	return b.String()
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the failure was a transport timeout.
func (e *AdapterError) Timeout() bool {
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}

// ConfigurationError reports a credential or endpoint that is required but
// missing. It is structural and never retried on another adapter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Excerpt returns at most maxLen bytes of body with newlines flattened, for
// error messages and logs. The cut never splits a UTF-8 sequence.
func Excerpt(body []byte, maxLen int) string {
	s := strings.TrimSpace(strings.ReplaceAll(string(body), "\n", " "))
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
