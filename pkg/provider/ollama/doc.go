// Package ollama implements the self-hosted daemon adapter. It talks to an
// Ollama-compatible /api/chat endpoint synchronously and carries image parts
// as the daemon's sibling "images" array rather than inline content parts.
package ollama
