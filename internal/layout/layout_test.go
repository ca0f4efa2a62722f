package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/stretchr/testify/require"
)

func TestCompute_DataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/compute", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "layout":
			root := parseTree(t, d.Input)
			res := Compute(root, DefaultOptions())
			var sb strings.Builder
			for _, n := range res.Nodes {
				fmt.Fprintf(&sb, "%s[%s] x=%s y=%s w=%s\n",
					strings.Repeat("  ", n.Depth), n.Signature(),
					fmtFloat(n.X), fmtFloat(n.Y), fmtFloat(n.Width))
			}
			fmt.Fprintf(&sb, "size %sx%s\n", fmtFloat(res.Width), fmtFloat(res.Height))
			return sb.String()
		default:
			return fmt.Sprintf("unknown command: %s", d.Cmd)
		}
	})
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseTree reads the [keys]{children} notation used in testdata.
func parseTree(t *testing.T, s string) *catalog.TreeNode {
	t.Helper()
	p := &treeParser{src: s}
	n := p.node(t)
	p.skipSpace()
	require.Equal(t, len(p.src), p.pos, "trailing input in %q", s)
	return n
}

type treeParser struct {
	src string
	pos int
}

func (p *treeParser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *treeParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *treeParser) node(t *testing.T) *catalog.TreeNode {
	require.Equal(t, byte('['), p.peek(), "expected [ at %d", p.pos)
	end := strings.IndexByte(p.src[p.pos:], ']')
	require.NotEqual(t, -1, end)
	n := &catalog.TreeNode{}
	for _, id := range strings.Fields(p.src[p.pos+1 : p.pos+end]) {
		n.Keys = append(n.Keys, catalog.Key{ID: id})
	}
	p.pos += end + 1

	if p.peek() == '{' {
		p.pos++
		for p.peek() != '}' {
			n.Children = append(n.Children, p.node(t))
		}
		p.pos++
	}
	return n
}

func sampleTree() *catalog.TreeNode {
	leaf := func(ids ...string) *catalog.TreeNode {
		n := &catalog.TreeNode{}
		for _, id := range ids {
			n.Keys = append(n.Keys, catalog.Key{ID: id})
		}
		return n
	}
	left := leaf("B004", "B007")
	left.Children = []*catalog.TreeNode{leaf("B001", "B002", "B003"), leaf("B005", "B006"), leaf("B008")}
	right := leaf("B012")
	right.Children = []*catalog.TreeNode{leaf("B010", "B011"), leaf("B013", "B014", "B015", "B016")}
	root := leaf("B009")
	root.Children = []*catalog.TreeNode{left, right}
	return root
}

func TestCompute_OneLayoutNodePerTreeNode(t *testing.T) {
	root := sampleTree()
	res := Compute(root, DefaultOptions())

	require.Len(t, res.Nodes, root.Count())

	type point struct{ x, y float64 }
	seen := make(map[point]bool)
	for _, n := range res.Nodes {
		require.GreaterOrEqual(t, n.X, 0.0)
		require.GreaterOrEqual(t, n.Y, 0.0)
		p := point{n.X, n.Y}
		require.False(t, seen[p], "duplicate position %v", p)
		seen[p] = true
	}
}

func TestCompute_LeavesFollowKeyOrder(t *testing.T) {
	opts := DefaultOptions()
	res := Compute(sampleTree(), opts)

	var leaves []*Node
	for _, n := range res.Nodes {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
	}
	require.Len(t, leaves, 5)
	for i := 1; i < len(leaves); i++ {
		a, b := leaves[i-1], leaves[i]
		require.LessOrEqual(t, a.X+a.Width, b.X)
		require.InDelta(t, a.Right()+opts.Spacing, b.X, 1e-9)
	}
	require.InDelta(t, leaves[len(leaves)-1].Right(), res.Width, 1e-9)
}

func TestCompute_ParentsCentredOverChildren(t *testing.T) {
	res := Compute(sampleTree(), DefaultOptions())
	for _, n := range res.Nodes {
		if n.IsLeaf() {
			continue
		}
		first, last := n.Children[0], n.Children[len(n.Children)-1]
		want := (first.X+last.X+last.Width)/2 - n.Width/2
		require.InDelta(t, want, n.X, 1e-9, "node %s", n.Signature())
		require.Same(t, n, first.Parent)
	}
}

func TestCompute_EmptyRootCentredOverTwoLeaves(t *testing.T) {
	opts := DefaultOptions()
	root := &catalog.TreeNode{
		Children: []*catalog.TreeNode{
			{Keys: []catalog.Key{{ID: "A"}, {ID: "B"}}},
			{Keys: []catalog.Key{{ID: "C"}, {ID: "D"}}},
		},
	}
	res := Compute(root, opts)
	top, leaf1, leaf2 := res.Nodes[0], res.Nodes[1], res.Nodes[2]

	require.Equal(t, 0.0, leaf1.X)
	require.Equal(t, leaf1.Width+opts.Spacing, leaf2.X)
	require.InDelta(t, (leaf1.X+leaf2.X+leaf2.Width)/2-top.Width/2, top.X, 1e-9)
	require.Equal(t, opts.EmptyWidth, top.Width)
}

func TestCompute_WidthStopsAtRightmostEdge(t *testing.T) {
	opts := DefaultOptions()
	res := Compute(&catalog.TreeNode{Keys: []catalog.Key{{ID: "A"}}}, opts)
	require.Equal(t, opts.KeyWidth+opts.Padding, res.Width)

	res = Compute(sampleTree(), opts)
	right := 0.0
	for _, n := range res.Nodes {
		right = math.Max(right, n.Right())
	}
	require.Equal(t, right, res.Width)
}

func TestCompute_HeightFromDepth(t *testing.T) {
	opts := DefaultOptions()
	res := Compute(sampleTree(), opts)
	require.Equal(t, 3*opts.LevelHeight, res.Height)
	for _, n := range res.Nodes {
		require.Equal(t, float64(n.Depth)*opts.LevelHeight, n.Y)
		require.Equal(t, opts.NodeHeight, n.Height)
	}
}

func TestCompute_NilRoot(t *testing.T) {
	res := Compute(nil, DefaultOptions())
	require.Nil(t, res.Root)
	require.Empty(t, res.Nodes)
}

func TestCompute_IgnoresNilChildren(t *testing.T) {
	root := &catalog.TreeNode{
		Keys:     []catalog.Key{{ID: "K"}},
		Children: []*catalog.TreeNode{nil, {Keys: []catalog.Key{{ID: "A"}}}},
	}
	res := Compute(root, DefaultOptions())
	require.Len(t, res.Nodes, 2)
	require.False(t, math.IsNaN(res.Nodes[0].X))
}

func TestResult_Find(t *testing.T) {
	res := Compute(sampleTree(), DefaultOptions())
	n := res.Find("B010,B011")
	require.NotNil(t, n)
	require.Equal(t, 2, n.Depth)
	require.Nil(t, res.Find("nope"))
}
