package llm

// Options contains model inference parameters.
type Options struct {
	// Sampling parameters
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`

	// NumPredict bounds the number of generated tokens.
	NumPredict *int `json:"num_predict,omitempty"`

	// Stop generation at these sequences
	Stop []string `json:"stop,omitempty"`
}

// Ptr returns a pointer to v, for populating optional option fields.
func Ptr[T any](v T) *T {
	return &v
}
