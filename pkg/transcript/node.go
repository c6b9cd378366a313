// Package transcript records conversations as a content-addressed Merkle DAG.
// Each turn is a node whose hash covers the turn and its parent's hash, so
// identical conversation prefixes deduplicate and divergent replies branch
// from their common ancestor.
package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/papercomputeco/murasame/pkg/conversation"
)

// Node is a single turn in the transcript DAG.
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous turn. Nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	Turn conversation.Turn `json:"turn"`

	// Meta describes how a reply was produced. It is not part of the hash:
	// the first recording of a turn keeps its metadata.
	Meta Meta `json:"meta"`
}

// Meta is the unhashed provenance of a node.
type Meta struct {
	Endpoint string `json:"endpoint,omitempty"`
	Adapter  string `json:"adapter,omitempty"`
	Model    string `json:"model,omitempty"`
}

// NewNode creates a node for turn linked to parent (nil for a root).
func NewNode(turn conversation.Turn, parent *Node) *Node {
	n := &Node{Turn: turn}
	if parent != nil {
		h := parent.Hash
		n.ParentHash = &h
	}
	n.Hash = n.computeHash()
	return n
}

type hashInput struct {
	Parent string            `json:"parent,omitempty"`
	Turn   conversation.Turn `json:"turn"`
}

func (n *Node) computeHash() string {
	in := hashInput{Turn: n.Turn}
	if n.ParentHash != nil {
		in.Parent = *n.ParentHash
	}

	// Turn encoding is canonical, so equal turns hash equally.
	data, err := json.Marshal(in)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether the node's hash matches its content and parent.
// Nodes received from other stores are verified before they are stored.
func (n *Node) Verify() bool {
	return n != nil && n.Hash != "" && n.Hash == n.computeHash()
}
