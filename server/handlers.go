package server

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/dispatch"
	"github.com/papercomputeco/murasame/pkg/envelope"
	"github.com/papercomputeco/murasame/pkg/llm"
	"github.com/papercomputeco/murasame/pkg/metrics"
	"github.com/papercomputeco/murasame/pkg/transcript"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Prompt       string               `json:"prompt"`
	History      conversation.History `json:"history"`
	MaxNewTokens int                  `json:"max_new_tokens,omitempty"`
}

// QARequest is the body of POST /qa. An empty Prompt appends nothing and
// answers the history as given; Role defaults to "user". A system or
// assistant prompt still needs a user turn somewhere in the history, or the
// request fails as an invalid history without calling any adapter.
type QARequest struct {
	Prompt  string               `json:"prompt"`
	History conversation.History `json:"history"`
	Role    string               `json:"role,omitempty"`
}

// VisionRequest is the body of POST /vision. Image is a URL or a data URI.
type VisionRequest struct {
	Prompt  string               `json:"prompt"`
	History conversation.History `json:"history"`
	Image   string               `json:"image,omitempty"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if ok, err := s.decode(c, dispatch.Chat, &req); !ok {
		return err
	}
	s.logRequest(c, dispatch.Chat, req.Prompt)

	history := conversation.Append(req.History, conversation.UserTurn(req.Prompt))
	return s.respond(c, dispatch.Request{
		Endpoint:  dispatch.Chat,
		History:   history,
		MaxTokens: req.MaxNewTokens,
	})
}

func (s *Server) handleQA(c *fiber.Ctx) error {
	var req QARequest
	if ok, err := s.decode(c, dispatch.QA, &req); !ok {
		return err
	}
	s.logRequest(c, dispatch.QA, req.Prompt)

	history := req.History
	if req.Prompt != "" {
		role := conversation.RoleUser
		if req.Role != "" {
			r, err := conversation.ParseRole(req.Role)
			if err != nil {
				return s.fail(c, dispatch.QA, history, err)
			}
			role = r
		}
		history = conversation.Append(history, conversation.Turn{
			Role:    role,
			Content: conversation.Text(req.Prompt),
		})
	}

	return s.respond(c, dispatch.Request{Endpoint: dispatch.QA, History: history})
}

func (s *Server) handleVision(c *fiber.Ctx) error {
	var req VisionRequest
	if ok, err := s.decode(c, dispatch.Vision, &req); !ok {
		return err
	}
	s.logRequest(c, dispatch.Vision, req.Prompt)

	history := conversation.Append(req.History, conversation.UserTurn(req.Prompt))
	if req.Image != "" {
		s.logger.Debug("image attached",
			zap.String("request_id", requestID(c)),
			zap.String("image_preview", truncate(req.Image, 100)),
		)
		withImage, err := conversation.AttachImage(history, req.Image)
		if err != nil {
			return s.fail(c, dispatch.Vision, history, err)
		}
		history = withImage
	}

	return s.respond(c, dispatch.Request{Endpoint: dispatch.Vision, History: history})
}

// decode parses the request body into dst. A body that is not JSON is a
// transport error (400); a well-formed body carrying a malformed history is
// answered with a failure envelope. ok is false when a response has already
// been written.
func (s *Server) decode(c *fiber.Ctx, endpoint dispatch.Endpoint, dst any) (ok bool, err error) {
	decodeErr := json.Unmarshal(c.Body(), dst)
	if decodeErr == nil {
		return true, nil
	}

	if errors.Is(decodeErr, conversation.ErrInvalidHistory) {
		return false, s.fail(c, endpoint, nil, decodeErr)
	}

	s.logger.Warn("invalid request body",
		zap.String("request_id", requestID(c)),
		zap.String("endpoint", string(endpoint)),
		zap.Error(decodeErr),
	)
	return false, c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
}

// respond dispatches req against the current configuration snapshot and
// writes the resulting envelope.
func (s *Server) respond(c *fiber.Ctx, req dispatch.Request) error {
	snapshot := s.store.Current()

	// A client that goes away does not cancel the provider call; the adapter
	// timeouts bound it instead.
	ctx := context.WithoutCancel(c.UserContext())

	result, err := s.dispatcher.Dispatch(ctx, snapshot, req)
	env := s.envelopes.Build(req.History, result.Reply, err)
	s.count(req.Endpoint, env)

	if err != nil {
		s.logger.Error("request failed",
			zap.String("request_id", requestID(c)),
			zap.String("endpoint", string(req.Endpoint)),
			zap.Strings("attempts", result.Attempts),
			zap.Error(err),
		)
		return c.JSON(env)
	}

	s.logger.Info("request answered",
		zap.String("request_id", requestID(c)),
		zap.String("endpoint", string(req.Endpoint)),
		zap.String("adapter", result.Adapter),
		zap.String("model", result.Reply.Model),
		zap.Int("history_len", len(env.History)),
		zap.String("reply_preview", truncate(result.Reply.Text, 100)),
	)

	s.record(ctx, c, env.History, transcript.Meta{
		Endpoint: string(req.Endpoint),
		Adapter:  result.Adapter,
		Model:    result.Reply.Model,
	})
	return c.JSON(env)
}

// fail writes a failure envelope for an error found before dispatch.
func (s *Server) fail(c *fiber.Ctx, endpoint dispatch.Endpoint, history conversation.History, err error) error {
	env := s.envelopes.Failure(history, err)
	s.count(endpoint, env)
	s.logger.Warn("rejected request",
		zap.String("request_id", requestID(c)),
		zap.String("endpoint", string(endpoint)),
		zap.Error(err),
	)
	return c.JSON(env)
}

func (s *Server) count(endpoint dispatch.Endpoint, env envelope.Envelope) {
	metrics.EnvelopesTotal.WithLabelValues(string(endpoint), strconv.Itoa(env.Status)).Inc()
}

// record stores an answered conversation. Recording problems are logged and
// never change the response.
func (s *Server) record(ctx context.Context, c *fiber.Ctx, history conversation.History, meta transcript.Meta) {
	if s.recorder == nil {
		return
	}
	head, err := s.recorder.Record(ctx, history, meta)
	if err != nil {
		s.logger.Error("failed to record transcript",
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("recorded transcript",
		zap.String("request_id", requestID(c)),
		zap.String("head_hash", truncate(head, 16)),
	)
}

func (s *Server) logRequest(c *fiber.Ctx, endpoint dispatch.Endpoint, prompt string) {
	s.logger.Info("received request",
		zap.String("request_id", requestID(c)),
		zap.String("endpoint", string(endpoint)),
		zap.String("prompt_preview", truncate(prompt, 100)),
	)
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
