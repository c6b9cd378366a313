// Package llm holds the wire types of the Ollama-compatible inference daemon
// API: the chat endpoint used by the self-hosted daemon adapter and the raw
// generate endpoint driven by the local engine handle.
package llm

// ErrorResponse is the error body shape shared by the daemon and this service.
type ErrorResponse struct {
	Error string `json:"error"`
}
