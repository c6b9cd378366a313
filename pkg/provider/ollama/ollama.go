package ollama

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

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/llm"
	"github.com/papercomputeco/murasame/pkg/provider"
)

const (
	// DefaultTimeout bounds a whole daemon round trip; local generation of a
	// long reply can be slow.
	DefaultTimeout = 5 * time.Minute

	excerptLen   = 500
	maxBodyBytes = 8 << 20
)

// Adapter is the self-hosted daemon adapter.
type Adapter struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an Adapter whose requests are bounded by timeout (DefaultTimeout
// when zero).
func New(timeout time.Duration, logger *zap.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (a *Adapter) Name() string {
	return provider.SelfHostedDaemon
}

func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsImages: true}
}

// Generate posts the history to {cfg.RemoteURL}/api/chat with streaming off
// and the model pinned in memory, and returns message.content.
func (a *Adapter) Generate(ctx context.Context, history conversation.History, cfg provider.Config) (provider.Reply, error) {
	if cfg.RemoteURL == "" {
		return provider.Reply{}, &provider.ConfigurationError{Field: "daemon.url", Reason: "no daemon URL configured"}
	}

	req := llm.ChatRequest{
		Model:     cfg.Model,
		Messages:  Messages(history),
		Stream:    llm.Ptr(false),
		KeepAlive: llm.KeepLoaded,
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return provider.Reply{}, a.fail(0, nil, fmt.Errorf("marshal request: %w", err))
	}

	upstreamURL := strings.TrimRight(cfg.RemoteURL, "/") + "/api/chat"
	a.logger.Debug("forwarding request to daemon",
		zap.String("url", upstreamURL),
		zap.String("model", cfg.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		return provider.Reply{}, a.fail(0, nil, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return provider.Reply{}, a.fail(0, nil, fmt.Errorf("do request: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return provider.Reply{}, a.fail(httpResp.StatusCode, nil, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return provider.Reply{}, a.fail(httpResp.StatusCode, body, fmt.Errorf("daemon returned %d", httpResp.StatusCode))
	}
	if !gjson.ValidBytes(body) {
		return provider.Reply{}, a.fail(httpResp.StatusCode, body, errors.New("response is not valid JSON"))
	}
	content := gjson.GetBytes(body, "message.content")
	if !content.Exists() || content.Type != gjson.String {
		return provider.Reply{}, a.fail(httpResp.StatusCode, body, errors.New("response is missing message.content"))
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.Reply{}, a.fail(httpResp.StatusCode, body, fmt.Errorf("unmarshal response: %w", err))
	}

	a.logger.Debug("received response from daemon",
		zap.String("model", resp.Model),
		zap.String("content_preview", provider.Excerpt([]byte(content.String()), 100)),
		zap.Int("eval_count", resp.EvalCount),
		zap.Duration("duration", time.Since(start)),
	)

	model := resp.Model
	if model == "" {
		model = cfg.Model
	}
	return provider.Reply{Text: content.String(), Model: model}, nil
}

func (a *Adapter) fail(status int, body []byte, cause error) *provider.AdapterError {
	return &provider.AdapterError{
		Adapter:     provider.SelfHostedDaemon,
		Status:      status,
		BodyExcerpt: provider.Excerpt(body, excerptLen),
		Cause:       cause,
	}
}

// Messages projects canonical turns onto daemon messages: text parts are
// joined into content and image parts become the images array.
func Messages(history conversation.History) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, t := range history {
		out = append(out, llm.Message{
			Role:    string(t.Role),
			Content: t.Content.Text(),
			Images:  t.Content.Images(),
		})
	}
	return out
}
