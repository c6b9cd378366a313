package transcript

import (
	"context"
	"fmt"
)

// Storer persists and traverses transcript nodes. Put is idempotent by
// hash, which is what deduplicates repeated conversation prefixes.
type Storer interface {
	// Put stores a node. If a node with the same hash exists this is a no-op.
	Put(ctx context.Context, node *Node) error

	// Get retrieves a node by its hash. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, hash string) (*Node, error)

	// Has checks if a node exists by its hash.
	Has(ctx context.Context, hash string) (bool, error)

	// GetByParent retrieves the children of parentHash; nil returns roots.
	GetByParent(ctx context.Context, parentHash *string) ([]*Node, error)

	// List returns all nodes in insertion order.
	List(ctx context.Context) ([]*Node, error)

	// Roots returns all nodes without a parent.
	Roots(ctx context.Context) ([]*Node, error)

	// Leaves returns all nodes without children.
	Leaves(ctx context.Context) ([]*Node, error)

	// Ancestry returns the path from a node back to its root (node first).
	Ancestry(ctx context.Context, hash string) ([]*Node, error)

	// Depth returns the depth of a node (0 for roots).
	Depth(ctx context.Context, hash string) (int, error)

	Close() error
}

// ErrNotFound is returned when a node doesn't exist in the store.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "node not found"
	}
	return "node not found: " + e.Hash
}

// Open returns the storer for backend: "memory" or "sqlite" at path.
func Open(backend, path string) (Storer, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStorer(), nil
	case "sqlite":
		return NewSQLiteStorer(path)
	default:
		return nil, fmt.Errorf("unknown transcript backend %q", backend)
	}
}

// ancestry walks parent links from hash using get.
func ancestry(ctx context.Context, hash string, get func(context.Context, string) (*Node, error)) ([]*Node, error) {
	var path []*Node
	for current := hash; ; {
		node, err := get(ctx, current)
		if err != nil {
			return nil, err
		}
		path = append(path, node)
		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}
