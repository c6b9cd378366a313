package llm

import "time"

// KeepLoaded is the keep_alive value that pins a model in daemon memory.
const KeepLoaded = -1

// Message is a single message in a daemon chat request.
type Message struct {
	Role    string   `json:"role"`             // "system", "user", "assistant"
	Content string   `json:"content"`          // Text of the turn
	Images  []string `json:"images,omitempty"` // Image references attached to the turn
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   *bool     `json:"stream,omitempty"`

	// Generation options
	Options *Options `json:"options,omitempty"`

	// KeepAlive is a duration string ("5m") or a number of seconds; -1 keeps
	// the model loaded indefinitely.
	KeepAlive any `json:"keep_alive,omitempty"`
}

// ChatResponse is the non-streaming body returned by POST /api/chat.
type ChatResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Message   Message   `json:"message"`
	Done      bool      `json:"done"`

	TotalDuration int64 `json:"total_duration,omitempty"` // nanoseconds
	EvalCount     int   `json:"eval_count,omitempty"`     // generated tokens
}
