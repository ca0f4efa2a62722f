// Package surface draws scenes and playback frames: SVG documents, a
// self-contained HTML player, JSON dumps and a coloured terminal view.
package surface

import (
	"github.com/fatih/color"
	"github.com/matsen/btreeplay/internal/highlight"
)

// swatch is the look of one role: Stroke and Fill for a node box, Chip for
// the key chips displayed with that role.
type swatch struct {
	Stroke string
	Fill   string
	Chip   string
	Dashed bool
}

var swatches = map[highlight.Role]swatch{
	highlight.RoleNone:         {Stroke: "#475569", Fill: "#334155", Chip: "#3b82f6"},
	highlight.RoleSearchActive: {Stroke: "#3b82f6", Fill: "#eff6ff", Chip: "#3b82f6"},
	highlight.RoleInsertActive: {Stroke: "#f59e0b", Fill: "#fffbeb", Chip: "#f59e0b"},
	highlight.RoleDeleteActive: {Stroke: "#ef4444", Fill: "#fef2f2", Chip: "#ef4444"},
	highlight.RoleBatchActive:  {Stroke: "#0ea5e9", Fill: "#f0f9ff", Chip: "#0ea5e9"},
	highlight.RoleOverflow:     {Stroke: "#f97316", Fill: "#fff7ed", Chip: "#f97316"},
	highlight.RoleFound:        {Stroke: "#22c55e", Fill: "#f0fdf4", Chip: "#22c55e"},
	highlight.RoleDeleteTarget: {Stroke: "#dc2626", Fill: "#fef2f2", Chip: "#dc2626"},
	highlight.RoleFinalResult:  {Stroke: "#16a34a", Fill: "#f0fdf4", Chip: "#16a34a"},
	highlight.RoleMedian:       {Stroke: "#eab308", Fill: "#fefce8", Chip: "#eab308"},
	highlight.RoleRangeMatch:   {Stroke: "#9333ea", Fill: "#faf5ff", Chip: "#9333ea"},
	highlight.RoleGhost:        {Stroke: "#94a3b8", Fill: "none", Chip: "#e2e8f0", Dashed: true},
}

func swatchFor(r highlight.Role) swatch {
	if s, ok := swatches[r]; ok {
		return s
	}
	return swatches[highlight.RoleNone]
}

const (
	connectorColor = "#94a3b8"
	emptyNodeFill  = "#64748b"
)

// termAttrs approximates each role on an ANSI terminal.
var termAttrs = map[highlight.Role][]color.Attribute{
	highlight.RoleNone:         {color.FgHiWhite, color.BgBlue},
	highlight.RoleSearchActive: {color.FgHiWhite, color.BgHiBlue, color.Bold},
	highlight.RoleInsertActive: {color.FgBlack, color.BgYellow, color.Bold},
	highlight.RoleDeleteActive: {color.FgHiWhite, color.BgRed, color.Bold},
	highlight.RoleBatchActive:  {color.FgBlack, color.BgCyan},
	highlight.RoleOverflow:     {color.FgBlack, color.BgHiYellow, color.Bold},
	highlight.RoleFound:        {color.FgBlack, color.BgGreen, color.Bold},
	highlight.RoleDeleteTarget: {color.FgHiWhite, color.BgHiRed, color.Bold, color.Underline},
	highlight.RoleFinalResult:  {color.FgBlack, color.BgHiGreen},
	highlight.RoleMedian:       {color.FgBlack, color.BgHiYellow, color.Underline},
	highlight.RoleRangeMatch:   {color.FgHiWhite, color.BgMagenta, color.Bold},
	highlight.RoleGhost:        {color.FgHiBlack, color.Faint, color.CrossedOut},
}

// palette holds one *color.Color per role with colouring forced on or off,
// independent of whether stdout is a terminal.
type palette map[highlight.Role]*color.Color

func newPalette(enabled bool) palette {
	p := make(palette, len(termAttrs))
	for role, attrs := range termAttrs {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		p[role] = c
	}
	return p
}

func (p palette) sprint(r highlight.Role, s string) string {
	c, ok := p[r]
	if !ok {
		c = p[highlight.RoleNone]
	}
	return c.Sprint(s)
}
