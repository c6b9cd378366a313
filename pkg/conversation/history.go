package conversation

import "encoding/json"

// History is the ordered sequence of turns of one conversation. It is supplied
// by the caller on every request and never persisted here.
type History []Turn

// Append returns a new history with t as its last element. h is never
// modified, even when it has spare capacity.
func Append(h History, t Turn) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, t)
}

// Clone returns a copy of h backed by a new array.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}

// LastUserIndex returns the index of the most recent user turn, or -1.
func (h History) LastUserIndex() int {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// HasImages reports whether any turn carries an image part.
func (h History) HasImages() bool {
	for _, t := range h {
		if t.Content.HasImages() {
			return true
		}
	}
	return false
}

// MarshalJSON encodes a nil history as an empty array.
func (h History) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Turn(h))
}
