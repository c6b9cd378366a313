package conversation

import "fmt"

// AttachImage returns a history whose most recent user turn carries url as an
// additional image part. Plain text content becomes [text, image]; multimodal
// content gets the image appended. Turns other than the rewritten one are
// carried over unchanged and h itself is never modified.
//
// A history without any user turn is a contract violation and yields
// ErrInvalidHistory with a nil history. An empty url returns h unchanged.
func AttachImage(h History, url string) (History, error) {
	if url == "" {
		return h, nil
	}
	idx := h.LastUserIndex()
	if idx < 0 {
		return nil, fmt.Errorf("%w: no user turn to attach the image to", ErrInvalidHistory)
	}
	out := h.Clone()
	out[idx] = Turn{
		Role:    out[idx].Role,
		Content: out[idx].Content.WithImage(url),
	}
	return out, nil
}
