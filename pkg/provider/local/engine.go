package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/llm"
	"github.com/papercomputeco/murasame/pkg/provider"
)

// Generation defaults for the local engine.
const (
	DefaultMaxNewTokens = 2048
	DefaultTemperature  = 0.9
	DefaultTopP         = 0.95
	DefaultTopK         = 20

	// DefaultTimeout bounds one engine generation.
	DefaultTimeout = 5 * time.Minute
)

// Params are the sampling settings of one generation.
type Params struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	TopK         int

	// Stop ends generation at the first occurrence of any of these strings.
	Stop []string
}

// DefaultParams returns the engine's default sampling settings.
func DefaultParams() Params {
	return Params{
		MaxNewTokens: DefaultMaxNewTokens,
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
		TopK:         DefaultTopK,
	}
}

// ParamsFrom overlays the set or non-zero settings of cfg on DefaultParams.
func ParamsFrom(cfg provider.Config) Params {
	p := DefaultParams()
	if cfg.MaxTokens > 0 {
		p.MaxNewTokens = cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		p.Temperature = *cfg.Temperature
	}
	if cfg.TopP > 0 {
		p.TopP = cfg.TopP
	}
	if cfg.TopK > 0 {
		p.TopK = cfg.TopK
	}
	return p
}

// Engine is a handle on a loaded model that completes a fully rendered
// prompt. It is created once at startup and shared by all requests, so
// implementations must be safe for concurrent use.
type Engine interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// RawEngine drives a model served behind an Ollama-compatible
// /api/generate endpoint in raw mode, so the prompt reaches the model with
// no daemon-side templating.
type RawEngine struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRawEngine creates a RawEngine for model served at baseURL.
func NewRawEngine(baseURL, model string, timeout time.Duration, logger *zap.Logger) *RawEngine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RawEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Generate completes prompt. Failures are reported as *provider.AdapterError
// attributed to the local engine.
func (e *RawEngine) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	req := llm.GenerateRequest{
		Model:  e.model,
		Prompt: prompt,
		Raw:    true,
		Stream: llm.Ptr(false),
		Options: &llm.Options{
			Temperature: llm.Ptr(params.Temperature),
			TopP:        llm.Ptr(params.TopP),
			TopK:        llm.Ptr(params.TopK),
			NumPredict:  llm.Ptr(params.MaxNewTokens),
			Stop:        params.Stop,
		},
		KeepAlive: llm.KeepLoaded,
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", e.fail(0, nil, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", e.fail(0, nil, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	e.logger.Debug("running local generation",
		zap.String("model", e.model),
		zap.Int("prompt_size", len(prompt)),
		zap.Int("max_new_tokens", params.MaxNewTokens),
	)

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", e.fail(0, nil, fmt.Errorf("do request: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", e.fail(httpResp.StatusCode, nil, fmt.Errorf("read response: %w", err))
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", e.fail(httpResp.StatusCode, body, fmt.Errorf("engine returned %d", httpResp.StatusCode))
	}
	if !gjson.ValidBytes(body) {
		return "", e.fail(httpResp.StatusCode, body, errors.New("response is not valid JSON"))
	}
	if !gjson.GetBytes(body, "response").Exists() {
		return "", e.fail(httpResp.StatusCode, body, errors.New("response is missing the generated text"))
	}

	var resp llm.GenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", e.fail(httpResp.StatusCode, body, fmt.Errorf("unmarshal response: %w", err))
	}

	e.logger.Debug("local generation finished",
		zap.String("done_reason", resp.DoneReason),
		zap.Int("eval_count", resp.EvalCount),
	)
	return resp.Response, nil
}

func (e *RawEngine) fail(status int, body []byte, cause error) *provider.AdapterError {
	return &provider.AdapterError{
		Adapter:     provider.LocalEngine,
		Status:      status,
		BodyExcerpt: provider.Excerpt(body, 500),
		Cause:       cause,
	}
}
