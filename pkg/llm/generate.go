package llm

// GenerateRequest is the body of POST /api/generate. With Raw set the daemon
// applies no prompt template of its own; the prompt is sent to the model as is.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Raw     bool     `json:"raw,omitempty"`
	Stream  *bool    `json:"stream,omitempty"`
	Options *Options `json:"options,omitempty"`

	KeepAlive any `json:"keep_alive,omitempty"`
}

// GenerateResponse is the non-streaming body returned by POST /api/generate.
type GenerateResponse struct {
	Model      string `json:"model"`
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
	EvalCount  int    `json:"eval_count,omitempty"`
}
