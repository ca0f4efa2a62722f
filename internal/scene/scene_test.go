package scene

import (
	"testing"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/highlight"
	"github.com/matsen/btreeplay/internal/layout"
	"github.com/stretchr/testify/require"
)

func keys(ids ...string) []catalog.Key {
	out := make([]catalog.Key, len(ids))
	for i, id := range ids {
		out[i] = catalog.Key{ID: id}
	}
	return out
}

func TestRender_SingleInsert(t *testing.T) {
	step := catalog.Step{
		Tree:       &catalog.TreeNode{Keys: []catalog.Key{{ID: "BK-001", Title: "Go in Action"}}},
		Highlights: [][]string{{"BK-001"}},
		Message:    "Chèn BK-001",
	}
	s := Render(step, "", DefaultOptions())

	require.False(t, s.Empty)
	require.Len(t, s.Boxes, 1)
	require.Empty(t, s.Connectors)

	box := s.Boxes[0]
	require.Equal(t, highlight.RoleInsertActive, box.Role)
	require.Equal(t, Rect{X: 50, Y: 20, Width: 82, Height: 50}, box.Rect)
	require.Len(t, box.Chips, 1)

	chip := box.Chips[0]
	require.Equal(t, highlight.RoleNone, chip.Role)
	require.Equal(t, highlight.RoleInsertActive, chip.Display)
	require.Equal(t, "Go in Action", chip.Title)
	require.Equal(t, Rect{X: 60, Y: 27, Width: 62, Height: 36}, chip.Rect)

	require.NotNil(t, s.Focus)
	require.Equal(t, box.Rect, *s.Focus)
	require.Equal(t, 82.0+100, s.Width)
	require.Equal(t, 120.0+40, s.Height)
}

func TestBuild_ConnectorsFromLayout(t *testing.T) {
	root := &catalog.TreeNode{Children: []*catalog.TreeNode{
		{Keys: keys("A", "B")},
		{Keys: keys("C", "D")},
	}}
	opts := DefaultOptions()
	res := layout.Compute(root, opts.Layout)
	s := Build(res, highlight.Classify(catalog.Step{Tree: root}, ""), opts)

	require.Len(t, s.Connectors, 2)
	c := s.Connectors[0]
	require.Equal(t, catalog.Signature(""), c.From)
	require.Equal(t, catalog.Signature("A,B"), c.To)
	require.Equal(t, Point{213, 70}, c.Start)
	require.Equal(t, Point{124, 140}, c.End)
	require.Equal(t, Point{213, 105}, c.Control1)
	require.Equal(t, Point{124, 105}, c.Control2)
	require.Equal(t, "M 213 70 C 213 105, 124 105, 124 140", c.Path())

	for _, conn := range s.Connectors {
		require.Equal(t, (conn.Start.Y+conn.End.Y)/2, conn.Control1.Y)
		require.Equal(t, conn.Control1.Y, conn.Control2.Y)
	}
	require.Nil(t, s.Focus)
}

func TestBuild_ChipsFollowKeyOrder(t *testing.T) {
	root := &catalog.TreeNode{Keys: keys("B001", "B002", "B003")}
	opts := DefaultOptions()
	s := Build(layout.Compute(root, opts.Layout), highlight.Classify(catalog.Step{Tree: root}, "B002"), opts)

	chips := s.Boxes[0].Chips
	require.Len(t, chips, 3)
	for i := 1; i < len(chips); i++ {
		require.Equal(t, opts.Layout.KeyWidth, chips[i].X-chips[i-1].X)
	}
	require.Equal(t, highlight.RoleFound, chips[1].Role)
	require.Equal(t, highlight.RoleFound, chips[1].Display)
	require.Equal(t, highlight.RoleNone, chips[0].Display)
	require.LessOrEqual(t, chips[2].X+chips[2].Width, s.Boxes[0].X+s.Boxes[0].Width)
}

func TestRender_EmptyTree(t *testing.T) {
	for _, tree := range []*catalog.TreeNode{nil, {}} {
		s := Render(catalog.Step{Tree: tree, Message: "Xóa B001"}, "B001", DefaultOptions())
		require.True(t, s.Empty)
		require.Empty(t, s.Boxes)
		require.Nil(t, s.Focus)
	}
}

func TestRender_FocusFollowsTarget(t *testing.T) {
	step := catalog.Step{
		Tree: &catalog.TreeNode{
			Keys: keys("M"),
			Children: []*catalog.TreeNode{
				{Keys: keys("A")},
				{Keys: keys("Z")},
			},
		},
		Highlights: [][]string{{"M"}},
		Message:    "Tìm thấy Z",
	}
	s := Render(step, "Z", DefaultOptions())
	require.NotNil(t, s.Focus)
	require.Equal(t, s.Boxes[2].Rect, *s.Focus)
	require.Equal(t, highlight.RoleSearchActive, s.Boxes[0].Role)
}
