package conversation

import "errors"

// ErrInvalidHistory is returned when a history is malformed or lacks the user
// turn a request needs. It is structural and never retried.
var ErrInvalidHistory = errors.New("invalid history")
