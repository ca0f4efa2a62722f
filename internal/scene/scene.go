// Package scene turns a laid-out, classified snapshot into draw primitives:
// node boxes, key chips and curved connectors. Coordinates are canvas pixels
// and are derived from the layout alone.
package scene

import (
	"fmt"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/highlight"
	"github.com/matsen/btreeplay/internal/layout"
)

// Options controls primitive geometry on top of the layout constants.
type Options struct {
	Layout     layout.Options
	MarginX    float64 // canvas offset applied to every primitive
	MarginY    float64
	ChipHeight float64
	ChipGap    float64 // horizontal gap between neighbouring chips
}

// DefaultOptions matches the catalog's web canvas.
func DefaultOptions() Options {
	return Options{
		Layout:     layout.DefaultOptions(),
		MarginX:    50,
		MarginY:    20,
		ChipHeight: 36,
		ChipGap:    4,
	}
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Chip is one key drawn inside its node box. Role is the key's own role;
// Display is what the chip should look like, which falls back to the
// enclosing node's role when the key has none.
type Chip struct {
	Rect
	KeyID   string         `json:"key"`
	Title   string         `json:"title,omitempty"`
	Author  string         `json:"author,omitempty"`
	Role    highlight.Role `json:"role"`
	Display highlight.Role `json:"display"`
}

// Box is one tree node.
type Box struct {
	Rect
	Signature catalog.Signature `json:"signature"`
	Depth     int               `json:"depth"`
	Role      highlight.Role    `json:"role"`
	Chips     []Chip            `json:"chips"`
}

// Connector is a cubic Bézier from a parent's bottom centre to a child's top
// centre. Both control points sit at the vertical midpoint.
type Connector struct {
	From     catalog.Signature `json:"from"`
	To       catalog.Signature `json:"to"`
	Start    Point             `json:"start"`
	Control1 Point             `json:"c1"`
	Control2 Point             `json:"c2"`
	End      Point             `json:"end"`
}

// Path returns the connector as SVG path data.
func (c Connector) Path() string {
	return fmt.Sprintf("M %g %g C %g %g, %g %g, %g %g",
		c.Start.X, c.Start.Y,
		c.Control1.X, c.Control1.Y,
		c.Control2.X, c.Control2.Y,
		c.End.X, c.End.Y)
}

// Scene is everything a render surface needs for one step.
type Scene struct {
	Boxes      []Box       `json:"boxes"`
	Connectors []Connector `json:"connectors"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`

	// Focus is the area the viewport should centre on, if any.
	Focus *Rect `json:"focus,omitempty"`

	// Empty marks a tree without keys or children; nothing is laid out.
	Empty bool `json:"empty,omitempty"`

	Tags      highlight.Tags      `json:"-"`
	Ambiguous []catalog.Signature `json:"ambiguous,omitempty"`
}

// Render classifies and lays out step and builds its scene.
func Render(step catalog.Step, target string, opts Options) Scene {
	cls := highlight.Classify(step, target)
	if step.Tree.IsEmpty() {
		return Scene{Empty: true, Tags: cls.Tags}
	}
	return Build(layout.Compute(step.Tree, opts.Layout), cls, opts)
}

// Build combines a layout and a classification of the same snapshot.
func Build(res layout.Result, cls highlight.Classification, opts Options) Scene {
	s := Scene{
		Width:     res.Width + 2*opts.MarginX,
		Height:    res.Height + 2*opts.MarginY,
		Tags:      cls.Tags,
		Ambiguous: cls.Ambiguous,
		Boxes:     make([]Box, 0, len(res.Nodes)),
	}

	for _, n := range res.Nodes {
		s.Boxes = append(s.Boxes, buildBox(n, cls, opts))
		if n.Parent != nil {
			s.Connectors = append(s.Connectors, connect(n.Parent, n, opts))
		}
	}

	if cls.HasFocus {
		if n := res.Find(cls.Focus); n != nil {
			r := nodeRect(n, opts)
			s.Focus = &r
		}
	}
	return s
}

func nodeRect(n *layout.Node, opts Options) Rect {
	return Rect{X: n.X + opts.MarginX, Y: n.Y + opts.MarginY, Width: n.Width, Height: n.Height}
}

func buildBox(n *layout.Node, cls highlight.Classification, opts Options) Box {
	sig := n.Signature()
	b := Box{
		Rect:      nodeRect(n, opts),
		Signature: sig,
		Depth:     n.Depth,
		Role:      cls.NodeRole(sig),
		Chips:     make([]Chip, 0, len(n.Tree.Keys)),
	}

	chipY := b.Y + (b.Height-opts.ChipHeight)/2
	for i, k := range n.Tree.Keys {
		role := cls.KeyRole(sig, k.ID)
		display := role
		if display == highlight.RoleNone {
			display = b.Role
		}
		b.Chips = append(b.Chips, Chip{
			Rect: Rect{
				X:      b.X + opts.Layout.Padding/2 + float64(i)*opts.Layout.KeyWidth + opts.ChipGap/2,
				Y:      chipY,
				Width:  opts.Layout.KeyWidth - opts.ChipGap,
				Height: opts.ChipHeight,
			},
			KeyID:   k.ID,
			Title:   k.Title,
			Author:  k.Author,
			Role:    role,
			Display: display,
		})
	}
	return b
}

func connect(parent, child *layout.Node, opts Options) Connector {
	sx, sy := parent.BottomCenter()
	ex, ey := child.TopCenter()
	sx, sy = sx+opts.MarginX, sy+opts.MarginY
	ex, ey = ex+opts.MarginX, ey+opts.MarginY
	cy := (sy + ey) / 2
	return Connector{
		From:     parent.Signature(),
		To:       child.Signature(),
		Start:    Point{sx, sy},
		Control1: Point{sx, cy},
		Control2: Point{ex, cy},
		End:      Point{ex, ey},
	}
}
