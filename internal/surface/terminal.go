package surface

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/matsen/btreeplay/internal/highlight"
	"github.com/matsen/btreeplay/internal/playback"
	"github.com/matsen/btreeplay/internal/scene"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// DefaultTerminalWidth is used when stdout is not a terminal.
const DefaultTerminalWidth = 120

const (
	clearScreen = "\x1b[H\x1b[2J"
	progressLen = 20
)

var markupTag = regexp.MustCompile(`<[^>]*>`)

// TerminalWidth returns the width of the controlling terminal, or
// DefaultTerminalWidth when there is none.
func TerminalWidth() int {
	if term.IsTerminal(0) {
		if w, _, err := term.GetSize(0); err == nil && w > 0 {
			return w
		}
	}
	return DefaultTerminalWidth
}

// TerminalOptions configures a Terminal.
type TerminalOptions struct {
	Color bool
	Clear bool // clear the screen before each frame

	// FramesPerSecond caps how often frames are written. Zero disables the cap.
	FramesPerSecond float64

	// RawMode ends lines with CRLF, which a terminal in raw mode needs.
	RawMode bool

	// Width overrides the detected terminal width.
	Width int

	// Context bounds the wait between throttled frames. Once it is done,
	// frames are dropped instead of written.
	Context context.Context
}

// Terminal renders frames as text. It implements playback.Renderer.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	opts    TerminalOptions
	limiter *rate.Limiter
	err     error
}

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer, opts TerminalOptions) *Terminal {
	if opts.Width <= 0 {
		opts.Width = TerminalWidth()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	t := &Terminal{w: w, opts: opts}
	if opts.FramesPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(opts.FramesPerSecond), 1)
	}
	return t
}

// Render writes one frame, waiting first if frames arrive faster than the
// configured rate. Nothing is written once the options' Context is done.
func (t *Terminal) Render(f playback.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx := t.opts.Context
	if ctx.Err() != nil {
		return
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil && t.err == nil {
				t.err = err
			}
			return
		}
	}

	out := FormatFrame(f, t.opts.Width, t.opts.Color)
	if t.opts.RawMode {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	if t.opts.Clear {
		out = clearScreen + out
	}
	if _, err := io.WriteString(t.w, out); err != nil && t.err == nil {
		t.err = err
	}
}

// Err returns the first error met while writing.
func (t *Terminal) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// FormatFrame lays a frame out as lines of text at most width columns wide,
// boxes placed left to right in proportion to their canvas position.
func FormatFrame(f playback.Frame, width int, colored bool) string {
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	p := newPalette(colored)

	var b strings.Builder
	b.WriteString(header(f))
	b.WriteByte('\n')
	if msg := PlainMessage(f.Message); msg != "" {
		b.WriteString(runewidth.Truncate(msg, width, "..."))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if f.Scene.Empty {
		b.WriteString("  (empty tree)\n")
		return b.String()
	}

	for _, row := range rows(f.Scene) {
		b.WriteString(formatRow(row, f.Scene.Width, width, p))
		b.WriteByte('\n')
	}

	if legend := formatLegend(f.Scene, p); legend != "" {
		b.WriteByte('\n')
		b.WriteString(legend)
		b.WriteByte('\n')
	}
	return b.String()
}

// PlainMessage drops markup from a step message.
func PlainMessage(msg string) string {
	return strings.TrimSpace(markupTag.ReplaceAllString(msg, ""))
}

func header(f playback.Frame) string {
	filled := int(f.Progress / 100 * progressLen)
	if filled > progressLen {
		filled = progressLen
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressLen-filled)
	return fmt.Sprintf("Step %d/%d [%s] %3.0f%%", f.Index+1, f.Total, bar, f.Progress)
}

func rows(s scene.Scene) [][]scene.Box {
	byDepth := map[int][]scene.Box{}
	maxDepth := 0
	for _, b := range s.Boxes {
		byDepth[b.Depth] = append(byDepth[b.Depth], b)
		if b.Depth > maxDepth {
			maxDepth = b.Depth
		}
	}
	out := make([][]scene.Box, 0, maxDepth+1)
	for d := 0; d <= maxDepth; d++ {
		row := byDepth[d]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		out = append(out, row)
	}
	return out
}

// formatRow places each box at a column proportional to its x. A box never
// starts before the previous one ends, so a crowded row overflows to the
// right instead of overlapping.
func formatRow(row []scene.Box, sceneWidth float64, width int, p palette) string {
	var b strings.Builder
	col := 0
	for _, box := range row {
		plain, styled := formatBox(box, p)
		want := 0
		if sceneWidth > 0 {
			want = int(box.X / sceneWidth * float64(width))
		}
		if col > 0 && want < col+1 {
			want = col + 1
		}
		if want > col {
			b.WriteString(strings.Repeat(" ", want-col))
			col = want
		}
		b.WriteString(styled)
		col += runewidth.StringWidth(plain)
	}
	return b.String()
}

// formatBox returns the box as plain text, used for width, and as styled
// text.
func formatBox(box scene.Box, p palette) (plain, styled string) {
	if len(box.Chips) == 0 {
		return "[ ]", p.sprint(box.Role, "[ ]")
	}
	var pl, st strings.Builder
	pl.WriteByte('[')
	st.WriteByte('[')
	for i, c := range box.Chips {
		if i > 0 {
			pl.WriteByte(' ')
			st.WriteByte(' ')
		}
		chip := " " + c.KeyID + " "
		pl.WriteString(chip)
		st.WriteString(p.sprint(c.Display, chip))
	}
	pl.WriteByte(']')
	st.WriteByte(']')
	return pl.String(), st.String()
}

func formatLegend(s scene.Scene, p palette) string {
	seen := map[highlight.Role]bool{}
	for _, b := range s.Boxes {
		for _, c := range b.Chips {
			seen[c.Display] = true
		}
	}
	var parts []string
	for _, r := range highlight.Roles() {
		if r == highlight.RoleNone || !seen[r] {
			continue
		}
		parts = append(parts, p.sprint(r, " "+r.String()+" "))
	}
	if len(parts) == 0 {
		return ""
	}
	return "legend: " + strings.Join(parts, " ")
}
