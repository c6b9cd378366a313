// Package openrouter implements the hosted API adapter against an
// OpenAI-compatible chat completions endpoint (OpenRouter by default).
package openrouter

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/provider"
)

const (
	// DefaultBaseURL is the OpenRouter API base.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTemperature is used when the resolved config leaves it unset.
	DefaultTemperature = 0.7

	// DefaultTimeout bounds a whole hosted round trip.
	DefaultTimeout = 2 * time.Minute

	excerptLen = 500
)

// Options are the static attribution and transport settings of the adapter.
type Options struct {
	// Referer and Title are sent as the HTTP-Referer and X-Title
	// attribution headers when non-empty.
	Referer string
	Title   string

	Timeout time.Duration
}

// Adapter is the hosted API adapter. A client is built per call from the
// resolved provider.Config so a rotated credential takes effect on the next
// request; the underlying http.Client and its connections are shared.
type Adapter struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an Adapter.
func New(opts Options, logger *zap.Logger) *Adapter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &headerTransport{
				base: http.DefaultTransport,
				headers: map[string]string{
					"HTTP-Referer": opts.Referer,
					"X-Title":      opts.Title,
				},
			},
		},
		logger: logger,
	}
}

func (a *Adapter) Name() string {
	return provider.HostedAPI
}

func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsImages: true}
}

// Generate sends the history as one chat completion and returns the first
// choice's message content.
func (a *Adapter) Generate(ctx context.Context, history conversation.History, cfg provider.Config) (provider.Reply, error) {
	if !cfg.HasCredential() {
		return provider.Reply{}, &provider.ConfigurationError{Field: "hosted.api_key", Reason: "no credential configured"}
	}

	clientConfig := openai.DefaultConfig(cfg.Credential)
	clientConfig.BaseURL = DefaultBaseURL
	if cfg.RemoteURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.RemoteURL, "/")
	}
	clientConfig.HTTPClient = a.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	req := openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    Messages(history),
		Temperature: wireTemperature(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
	}

	a.logger.Debug("forwarding request to hosted api",
		zap.String("base_url", clientConfig.BaseURL),
		zap.String("model", cfg.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("multimodal", history.HasImages()),
	)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return provider.Reply{}, adapterError(err)
	}
	if len(resp.Choices) == 0 {
		return provider.Reply{}, &provider.AdapterError{
			Adapter: provider.HostedAPI,
			Status:  http.StatusOK,
			Cause:   errors.New("response has no choices"),
		}
	}

	text := resp.Choices[0].Message.Content
	a.logger.Debug("received response from hosted api",
		zap.String("model", resp.Model),
		zap.String("content_preview", provider.Excerpt([]byte(text), 100)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)

	model := resp.Model
	if model == "" {
		model = cfg.Model
	}
	return provider.Reply{Text: text, Model: model}, nil
}

// adapterError maps client errors onto the adapter taxonomy, keeping the
// upstream status when the client saw one.
func adapterError(err error) *provider.AdapterError {
	out := &provider.AdapterError{Adapter: provider.HostedAPI, Cause: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		out.Status = apiErr.HTTPStatusCode
		out.BodyExcerpt = provider.Excerpt([]byte(apiErr.Message), excerptLen)
	case errors.As(err, &reqErr):
		out.Status = reqErr.HTTPStatusCode
	}
	return out
}

// Messages projects canonical turns onto chat completion messages. Plain text
// stays a string; multimodal content becomes text and image_url parts in
// their original order.
func Messages(history conversation.History) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, t := range history {
		msg := openai.ChatCompletionMessage{Role: string(t.Role)}
		if !t.Content.IsMultimodal() {
			msg.Content = t.Content.Text()
			out = append(out, msg)
			continue
		}
		for _, p := range t.Content.Parts() {
			switch p.Kind {
			case conversation.PartText:
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			case conversation.PartImage:
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: p.URL},
				})
			}
		}
		out = append(out, msg)
	}
	return out
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// wireTemperature maps the configured temperature onto the request field.
// go-openai omits a zero temperature, so greedy decoding is sent as the
// smallest positive float32 instead.
func wireTemperature(t *float64) float32 {
	if t == nil {
		return DefaultTemperature
	}
	if *t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(*t)
}
