package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/llm"
	"github.com/papercomputeco/murasame/pkg/transcript"
)

// HistoryResponse is a recorded conversation ending at a given node.
type HistoryResponse struct {
	// Messages in chronological order, up to and including the requested node
	Messages []HistoryMessage `json:"messages"`
	// HeadHash is the hash of the node that was requested
	HeadHash string `json:"head_hash"`
	// Depth is the number of messages in the history
	Depth int `json:"depth"`
}

// HistoryMessage is one recorded turn.
type HistoryMessage struct {
	Hash       string   `json:"hash"`
	ParentHash *string  `json:"parent_hash,omitempty"`
	Role       string   `json:"role"`
	Content    string   `json:"content"`
	Images     []string `json:"images,omitempty"`
	Endpoint   string   `json:"endpoint,omitempty"`
	Adapter    string   `json:"adapter,omitempty"`
	Model      string   `json:"model,omitempty"`
}

// PushResponse reports the outcome of POST /dag/nodes.
type PushResponse struct {
	New       int `json:"new"`
	Duplicate int `json:"duplicate"`
	Errors    int `json:"errors"`
}

func (s *Server) handleDAGStats(c *fiber.Ctx) error {
	ctx := c.Context()
	storer := s.recorder.Storer()

	nodes, err := storer.List(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list nodes"})
	}

	roots, err := storer.Roots(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get roots"})
	}

	leaves, err := storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	return c.JSON(map[string]any{
		"total_nodes": len(nodes),
		"root_count":  len(roots),
		"leaf_count":  len(leaves),
	})
}

func (s *Server) handleGetNode(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "hash parameter required"})
	}

	node, err := s.recorder.Storer().Get(c.Context(), hash)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(node)
}

// handleListHistories returns one history per leaf, i.e. every recorded
// conversation branch.
func (s *Server) handleListHistories(c *fiber.Ctx) error {
	ctx := c.Context()

	leaves, err := s.recorder.Storer().Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	histories := make([]HistoryResponse, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := s.buildHistory(c, leaf.Hash)
		if err != nil {
			s.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "hash parameter required"})
	}

	history, err := s.buildHistory(c, hash)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}

	return c.JSON(history)
}

// handlePutNodes accepts nodes pushed from another transcript store. Nodes
// whose hash does not match their content are counted as errors.
func (s *Server) handlePutNodes(c *fiber.Ctx) error {
	var nodes []*transcript.Node
	if err := json.Unmarshal(c.Body(), &nodes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	ctx := c.Context()
	storer := s.recorder.Storer()

	var resp PushResponse
	for _, node := range nodes {
		if !node.Verify() {
			resp.Errors++
			continue
		}
		exists, err := storer.Has(ctx, node.Hash)
		if err != nil {
			resp.Errors++
			continue
		}
		if exists {
			resp.Duplicate++
			continue
		}
		if err := storer.Put(ctx, node); err != nil {
			s.logger.Warn("failed to store pushed node", zap.String("hash", node.Hash), zap.Error(err))
			resp.Errors++
			continue
		}
		resp.New++
	}

	s.logger.Info("received pushed nodes",
		zap.Int("new", resp.New),
		zap.Int("duplicate", resp.Duplicate),
		zap.Int("errors", resp.Errors),
	)
	return c.JSON(resp)
}

func (s *Server) buildHistory(c *fiber.Ctx, hash string) (*HistoryResponse, error) {
	// Ancestry is newest first.
	ancestry, err := s.recorder.Storer().Ancestry(c.Context(), hash)
	if err != nil {
		return nil, err
	}

	messages := make([]HistoryMessage, len(ancestry))
	for i, node := range ancestry {
		messages[len(ancestry)-1-i] = HistoryMessage{
			Hash:       node.Hash,
			ParentHash: node.ParentHash,
			Role:       string(node.Turn.Role),
			Content:    node.Turn.Content.Text(),
			Images:     node.Turn.Content.Images(),
			Endpoint:   node.Meta.Endpoint,
			Adapter:    node.Meta.Adapter,
			Model:      node.Meta.Model,
		}
	}

	return &HistoryResponse{
		Messages: messages,
		HeadHash: hash,
		Depth:    len(messages),
	}, nil
}
