package provider

// Config holds the settings one adapter uses for one endpoint. It is resolved
// from the current configuration snapshot at request time, so credentials can
// be rotated without a restart.
type Config struct {
	// Credential is the bearer secret for hosted providers. Empty means unset.
	Credential string

	// RemoteURL is the provider base URL (daemon URL, hosted API base, engine URL).
	RemoteURL string

	// Model is the provider-side model name.
	Model string

	MaxTokens int

	// Temperature is nil when unset. Zero is a valid setting.
	Temperature *float64
	TopP        float64
	TopK        int
}

// HasCredential reports whether a non-empty credential is configured.
func (c Config) HasCredential() bool {
	return c.Credential != ""
}
