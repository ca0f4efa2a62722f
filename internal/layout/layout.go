// Package layout positions the nodes of a tree snapshot for drawing.
//
// Leaves are packed left to right in traversal order; every internal node is
// centred over the horizontal span of its children, whatever its own width.
// The result is rebuilt from scratch for every snapshot.
package layout

import "github.com/matsen/btreeplay/internal/catalog"

// Options holds the geometry constants, in canvas pixels.
type Options struct {
	KeyWidth    float64 // width of one key chip slot
	Padding     float64 // horizontal padding added to every node
	NodeHeight  float64
	LevelHeight float64 // vertical distance between depths
	Spacing     float64 // gap between neighbouring leaves
	EmptyWidth  float64 // minimum width of a node without keys
}

// DefaultOptions returns the geometry used by the catalog's web renderer.
func DefaultOptions() Options {
	return Options{
		KeyWidth:    66,
		Padding:     16,
		NodeHeight:  50,
		LevelHeight: 120,
		Spacing:     30,
		EmptyWidth:  20,
	}
}

// Node is the positioned counterpart of a catalog.TreeNode. Parent is kept for
// geometry only.
type Node struct {
	Tree     *catalog.TreeNode
	Depth    int
	X, Y     float64 // top-left corner
	Width    float64
	Height   float64
	Parent   *Node
	Children []*Node
}

// Signature returns the signature of the wrapped tree node.
func (n *Node) Signature() catalog.Signature {
	return n.Tree.Signature()
}

// IsLeaf reports whether the node has no laid-out children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Right returns the x coordinate of the node's right edge.
func (n *Node) Right() float64 {
	return n.X + n.Width
}

// BottomCenter returns the midpoint of the node's bottom edge.
func (n *Node) BottomCenter() (x, y float64) {
	return n.X + n.Width/2, n.Y + n.Height
}

// TopCenter returns the midpoint of the node's top edge.
func (n *Node) TopCenter() (x, y float64) {
	return n.X + n.Width/2, n.Y
}

// Result is a laid-out snapshot. Nodes are listed in pre-order. Width is the
// largest right edge of any node; it does not include the Spacing that follows
// the last leaf.
type Result struct {
	Root   *Node
	Nodes  []*Node
	Width  float64
	Height float64
}

// Compute lays out the tree rooted at root. It never fails and does not check
// search-tree invariants; a nil root yields an empty Result. Callers are
// expected to treat a root without keys and children as an empty tree and
// skip layout altogether.
//
// When a parent is wider than its children's span the whole layout is shifted
// right so no node starts left of zero. Result.Width is measured after that
// shift and stops at the rightmost edge, so a lone leaf is exactly as wide as
// its box with no trailing gap.
func Compute(root *catalog.TreeNode, opts Options) Result {
	if root == nil {
		return Result{}
	}

	b := &builder{opts: opts}
	top := b.build(root, 0, nil)

	cursor := 0.0
	b.assignX(top, &cursor)
	b.normalize()

	return Result{
		Root:   top,
		Nodes:  b.nodes,
		Width:  b.rightmost(),
		Height: float64(b.maxDepth+1) * opts.LevelHeight,
	}
}

type builder struct {
	opts     Options
	nodes    []*Node
	maxDepth int
}

func (b *builder) build(tree *catalog.TreeNode, depth int, parent *Node) *Node {
	n := &Node{
		Tree:   tree,
		Depth:  depth,
		Width:  b.width(tree),
		Height: b.opts.NodeHeight,
		Y:      float64(depth) * b.opts.LevelHeight,
		Parent: parent,
	}
	b.nodes = append(b.nodes, n)
	if depth > b.maxDepth {
		b.maxDepth = depth
	}

	for _, child := range tree.Children {
		if child == nil {
			continue
		}
		n.Children = append(n.Children, b.build(child, depth+1, n))
	}
	return n
}

func (b *builder) width(tree *catalog.TreeNode) float64 {
	w := float64(len(tree.Keys))*b.opts.KeyWidth + b.opts.Padding
	if len(tree.Keys) == 0 && w < b.opts.EmptyWidth {
		w = b.opts.EmptyWidth
	}
	return w
}

// assignX runs post-order: leaves take the cursor, parents are centred over
// their first and last child.
func (b *builder) assignX(n *Node, cursor *float64) {
	if n.IsLeaf() {
		n.X = *cursor
		*cursor += n.Width + b.opts.Spacing
		return
	}

	for _, c := range n.Children {
		b.assignX(c, cursor)
	}
	first, last := n.Children[0], n.Children[len(n.Children)-1]
	center := (first.X + last.Right()) / 2
	n.X = center - n.Width/2
}

// normalize translates the layout right when a parent wider than its
// children's span would otherwise start left of the origin.
func (b *builder) normalize() {
	minX := 0.0
	for _, n := range b.nodes {
		if n.X < minX {
			minX = n.X
		}
	}
	if minX == 0 {
		return
	}
	for _, n := range b.nodes {
		n.X -= minX
	}
}

// rightmost is the right edge of the last leaf unless a wide parent sticks
// out further.
func (b *builder) rightmost() float64 {
	right := 0.0
	for _, n := range b.nodes {
		if r := n.Right(); r > right {
			right = r
		}
	}
	return right
}

// Find returns the first node, in pre-order, with the given signature.
func (r Result) Find(sig catalog.Signature) *Node {
	for _, n := range r.Nodes {
		if n.Signature() == sig {
			return n
		}
	}
	return nil
}
