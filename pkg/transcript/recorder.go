package transcript

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/provider"
)

// Recorder stores completed conversations in a Storer.
type Recorder struct {
	storer Storer
	logger *zap.Logger
}

// NewRecorder creates a Recorder writing to storer.
func NewRecorder(storer Storer, logger *zap.Logger) *Recorder {
	return &Recorder{storer: storer, logger: logger}
}

// Storer returns the underlying store for inspection.
func (r *Recorder) Storer() Storer {
	return r.storer
}

// Record stores every turn of history as a chain of nodes and returns the
// hash of the head. meta is attached to the head node, which is the reply the
// request produced. Turns already recorded are left untouched.
func (r *Recorder) Record(ctx context.Context, history conversation.History, meta Meta) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("nothing to record")
	}

	var parent *Node
	for i, turn := range history {
		node := NewNode(turn, parent)
		if i == len(history)-1 {
			node.Meta = meta
		}
		if err := r.storer.Put(ctx, node); err != nil {
			return "", fmt.Errorf("storing %s turn: %w", turn.Role, err)
		}

		r.logger.Debug("stored turn in transcript",
			zap.String("hash", provider.Excerpt([]byte(node.Hash), 16)),
			zap.String("role", string(turn.Role)),
			zap.String("content_preview", provider.Excerpt([]byte(turn.Content.Text()), 50)),
		)
		parent = node
	}
	return parent.Hash, nil
}

// Close closes the underlying store.
func (r *Recorder) Close() error {
	return r.storer.Close()
}
