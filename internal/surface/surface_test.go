package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/playback"
	"github.com/matsen/btreeplay/internal/scene"
	"github.com/stretchr/testify/require"
)

func leaf(ids ...string) *catalog.TreeNode {
	n := &catalog.TreeNode{}
	for _, id := range ids {
		n.Keys = append(n.Keys, catalog.Key{ID: id})
	}
	return n
}

func insertFrames(t *testing.T, message string) []playback.Frame {
	t.Helper()
	step := catalog.Step{
		Tree:       &catalog.TreeNode{Keys: []catalog.Key{{ID: "BK-001", Title: "Go in Action"}}},
		Highlights: [][]string{{"BK-001"}},
		Message:    message,
	}
	frames := playback.Sequence([]catalog.Step{step}, "", playback.Options{})
	require.Len(t, frames, 1)
	return frames
}

func TestWriteSVG_EmptyScene(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, scene.Scene{Empty: true}, SVGOptions{}))

	out := buf.String()
	require.Contains(t, out, "Empty tree")
	require.Contains(t, out, `width="320"`)
	require.NotContains(t, out, "<rect")
}

func TestWriteSVG_NodesAndChips(t *testing.T) {
	frames := insertFrames(t, "Chèn BK-001")

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, frames[0].Scene, SVGOptions{Standalone: true}))

	out := buf.String()
	require.Contains(t, out, `xmlns="http://www.w3.org/2000/svg"`)
	require.Contains(t, out, `class="node node-insert-active"`)
	require.Contains(t, out, `class="key key-insert-active"`)
	require.Contains(t, out, "<title>Go in Action</title>")
	require.Contains(t, out, ">BK-001</text>")
	require.Contains(t, out, `viewBox="0 0 182 160"`)
}

func TestWriteSVG_Connectors(t *testing.T) {
	root := &catalog.TreeNode{Keys: []catalog.Key{{ID: "M"}}, Children: []*catalog.TreeNode{leaf("A"), leaf("Z")}}
	s := scene.Render(catalog.Step{Tree: root}, "", scene.DefaultOptions())

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, s, SVGOptions{}))
	require.Equal(t, 2, strings.Count(buf.String(), `class="edge"`))
	require.NotContains(t, buf.String(), "xmlns")
}

func TestWriteSVG_EscapesText(t *testing.T) {
	s := scene.Render(catalog.Step{Tree: leaf("<x>")}, "", scene.DefaultOptions())

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, s, SVGOptions{}))
	require.Contains(t, buf.String(), "&lt;x&gt;")
	require.NotContains(t, buf.String(), "<x>")
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Chèn <code>BK-001</code>", "Chèn <code>BK-001</code>"},
		{"<b>Tách</b> node", "<b>Tách</b> node"},
		{"<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{`<code onclick="x">`, "&lt;code onclick=&#34;x&#34;&gt;"},
		{"a & b", "a &amp; b"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, string(sanitizeMessage(tt.in)), tt.in)
	}
}

func TestWriteHTML_NoFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, nil, PageOptions{}))
	require.Contains(t, buf.String(), "No steps to play")
}

func TestWriteHTML_Frames(t *testing.T) {
	frames := insertFrames(t, "Chèn <code>BK-001</code> <script>alert(1)</script>")

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, frames, PageOptions{Title: "insert BK-001"}))

	out := buf.String()
	require.Contains(t, out, "<title>insert BK-001</title>")
	require.Contains(t, out, "<code>BK-001</code>")
	require.Contains(t, out, "&lt;script&gt;alert(1)")
	require.NotContains(t, out, "<script>alert")
	require.Contains(t, out, `class="node node-insert-active"`)
	require.Contains(t, out, "[1200]")
}

func TestWriteHTML_DefaultTitle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, insertFrames(t, "x"), PageOptions{}))
	require.Contains(t, buf.String(), "<title>B-tree trace</title>")
}

func TestWriteJSON(t *testing.T) {
	frames := insertFrames(t, "Chèn BK-001")

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, frames, true))

	var got []struct {
		Index    int     `json:"index"`
		Total    int     `json:"total"`
		Progress float64 `json:"progress"`
		Message  string  `json:"message"`
		DelayMS  int64   `json:"delay_ms"`
		Scene    struct {
			Boxes []struct {
				Role  string `json:"role"`
				Chips []struct {
					Key     string `json:"key"`
					Display string `json:"display"`
				} `json:"chips"`
			} `json:"boxes"`
		} `json:"scene"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, 0, got[0].Index)
	require.Equal(t, 1, got[0].Total)
	require.Equal(t, 100.0, got[0].Progress)
	require.Equal(t, int64(1200), got[0].DelayMS)
	require.Equal(t, "insert-active", got[0].Scene.Boxes[0].Role)
	require.Equal(t, "BK-001", got[0].Scene.Boxes[0].Chips[0].Key)
	require.Equal(t, "insert-active", got[0].Scene.Boxes[0].Chips[0].Display)
}

func TestPlainMessage(t *testing.T) {
	require.Equal(t, "Tìm thấy BK-002", PlainMessage("  Tìm thấy <code>BK-002</code> "))
	require.Equal(t, "", PlainMessage("<br>"))
}

func TestFormatFrame_Plain(t *testing.T) {
	frames := insertFrames(t, "Chèn <code>BK-001</code>")
	out := FormatFrame(frames[0], 80, false)

	require.NotContains(t, out, "\x1b[")
	require.Contains(t, out, "Step 1/1 [####################] 100%")
	require.Contains(t, out, "Chèn BK-001\n")
	require.Contains(t, out, "[ BK-001 ]")
	require.Contains(t, out, "legend:  insert-active ")
}

func TestFormatFrame_Colored(t *testing.T) {
	frames := insertFrames(t, "Chèn BK-001")
	require.Contains(t, FormatFrame(frames[0], 80, true), "\x1b[")
}

func TestFormatFrame_RowsFollowDepth(t *testing.T) {
	root := &catalog.TreeNode{Keys: []catalog.Key{{ID: "M"}}, Children: []*catalog.TreeNode{leaf("A"), leaf("Z")}}
	frames := playback.Sequence([]catalog.Step{{Tree: root}}, "", playback.Options{})
	out := FormatFrame(frames[0], 80, false)

	lines := strings.Split(out, "\n")
	var rootLine, leafLine string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "[ M ]"):
			rootLine = l
		case strings.Contains(l, "[ A ]"):
			leafLine = l
		}
	}
	require.NotEmpty(t, rootLine)
	require.NotEmpty(t, leafLine)
	require.Contains(t, leafLine, "[ Z ]")
	require.Less(t, strings.Index(leafLine, "[ A ]"), strings.Index(leafLine, "[ Z ]"))
	require.Greater(t, strings.Index(rootLine, "[ M ]"), strings.Index(leafLine, "[ A ]"))
	require.NotContains(t, out, "legend:")
}

func TestFormatFrame_EmptyTree(t *testing.T) {
	frames := playback.Sequence([]catalog.Step{{Tree: &catalog.TreeNode{}, Message: "Cây rỗng"}}, "", playback.Options{})
	out := FormatFrame(frames[0], 0, false)
	require.Contains(t, out, "(empty tree)")
	require.Contains(t, out, "Cây rỗng")
}

func TestTerminal_RawModeAndClear(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Clear: true, RawMode: true, Width: 80})

	var r playback.Renderer = term
	r.Render(insertFrames(t, "Chèn BK-001")[0])

	require.NoError(t, term.Err())
	out := buf.String()
	require.True(t, strings.HasPrefix(out, clearScreen))
	require.Contains(t, out, "\r\n")
	require.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestTerminal_Throttled(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Width: 80, FramesPerSecond: 1000})
	frame := insertFrames(t, "Chèn BK-001")[0]
	for i := 0; i < 3; i++ {
		term.Render(frame)
	}
	require.NoError(t, term.Err())
	require.Equal(t, 3, strings.Count(buf.String(), "Step 1/1"))
}

func TestTerminal_CancelledContextDropsFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Width: 80, FramesPerSecond: 0.1, Context: ctx})
	frame := insertFrames(t, "Chèn BK-001")[0]

	term.Render(frame)
	require.Equal(t, 1, strings.Count(buf.String(), "Step 1/1"))

	cancel()
	done := make(chan struct{})
	go func() {
		term.Render(frame)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Render blocked after the context was cancelled")
	}
	require.NoError(t, term.Err())
	require.Equal(t, 1, strings.Count(buf.String(), "Step 1/1"))
}
