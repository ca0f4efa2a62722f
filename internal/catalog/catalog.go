// Package catalog defines the snapshot types emitted by the catalog server's
// B-tree tracer: books as keys, tree nodes, and the steps of an operation trace.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingKeyID is returned when a key object carries no identifier.
var ErrMissingKeyID = errors.New("key has no id")

// Key is one book stored in the tree. Identity is the ID alone; the display
// fields are only used for tooltips.
type Key struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// UnmarshalJSON accepts either a bare key id or a key object. Object fields may
// use the catalog's native names (ma_sach, ten_sach, tac_gia).
func (k *Key) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		if id == "" {
			return ErrMissingKeyID
		}
		*k = Key{ID: id}
		return nil
	}

	var raw struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Author  string `json:"author"`
		MaSach  string `json:"ma_sach"`
		TenSach string `json:"ten_sach"`
		TacGia  string `json:"tac_gia"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding key: %w", err)
	}

	*k = Key{
		ID:     firstNonEmpty(raw.ID, raw.MaSach),
		Title:  firstNonEmpty(raw.Title, raw.TenSach),
		Author: firstNonEmpty(raw.Author, raw.TacGia),
	}
	if k.ID == "" {
		return ErrMissingKeyID
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// TreeNode is one node of a snapshot. Children, when present, should number
// len(Keys)+1, but transient shapes produced mid-operation are accepted as-is.
type TreeNode struct {
	Keys     []Key       `json:"keys"`
	Children []*TreeNode `json:"children"`

	// Degree is the branching factor the server reports on the root.
	// It is passed through untouched.
	Degree int `json:"m,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *TreeNode) IsLeaf() bool {
	return n == nil || len(n.Children) == 0
}

// IsEmpty reports whether the node holds neither keys nor children, which is
// how the server represents an empty tree.
func (n *TreeNode) IsEmpty() bool {
	return n == nil || (len(n.Keys) == 0 && len(n.Children) == 0)
}

// KeyIDs returns the ids of the node's keys in order.
func (n *TreeNode) KeyIDs() []string {
	ids := make([]string, len(n.Keys))
	for i, k := range n.Keys {
		ids[i] = k.ID
	}
	return ids
}

// Signature returns the node's content signature.
func (n *TreeNode) Signature() Signature {
	return SignatureOf(n.KeyIDs())
}

// Contains reports whether the node holds a key with the given id.
func (n *TreeNode) Contains(id string) bool {
	for _, k := range n.Keys {
		if k.ID == id {
			return true
		}
	}
	return false
}

// Walk visits the subtree in depth-first pre-order. Nil children are skipped.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int)) {
	n.walk(0, fn)
}

func (n *TreeNode) walk(depth int, fn func(*TreeNode, int)) {
	if n == nil {
		return
	}
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(depth+1, fn)
	}
}

// Count returns the number of nodes in the subtree.
func (n *TreeNode) Count() int {
	count := 0
	n.Walk(func(*TreeNode, int) { count++ })
	return count
}

// Signature identifies a node within one snapshot by the ordered ids of its
// keys. Nodes carry no stable id, so this is the only identity that survives
// from one snapshot to the next. Two nodes sharing a signature in the same
// snapshot cannot be told apart.
type Signature string

// SignatureOf joins key ids the way the server does.
func SignatureOf(ids []string) Signature {
	return Signature(strings.Join(ids, ","))
}

// IDs splits the signature back into key ids.
func (s Signature) IDs() []string {
	if s == "" {
		return nil
	}
	return strings.Split(string(s), ",")
}

// Step is one moment of an operation trace: a full snapshot plus the hints the
// server attaches to it.
type Step struct {
	Tree *TreeNode `json:"tree"`

	// Highlights lists the signatures of the nodes relevant to this step.
	Highlights [][]string `json:"highlights"`

	// Message describes the event in natural language and may embed key ids
	// and light markup.
	Message string `json:"message"`

	// FoundKeys is the accumulated result set of a range scan.
	FoundKeys []string `json:"found_keys,omitempty"`

	// Events optionally carries structured event tags. When present they take
	// precedence over keywords found in Message.
	Events []string `json:"events,omitempty"`
}

// Signatures returns the highlighted node signatures.
func (s Step) Signatures() []Signature {
	sigs := make([]Signature, len(s.Highlights))
	for i, ids := range s.Highlights {
		sigs[i] = SignatureOf(ids)
	}
	return sigs
}

// IsHighlighted reports whether sig is among the step's highlights.
func (s Step) IsHighlighted(sig Signature) bool {
	for _, h := range s.Highlights {
		if SignatureOf(h) == sig {
			return true
		}
	}
	return false
}
