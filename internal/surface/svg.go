package surface

import (
	"fmt"
	"html"
	"io"

	"github.com/matsen/btreeplay/internal/highlight"
	"github.com/matsen/btreeplay/internal/scene"
	"github.com/matsen/btreeplay/internal/viewport"
)

// SVGOptions controls SVG output. A zero screen size uses the scene size.
type SVGOptions struct {
	Viewport     viewport.Viewport
	ScreenWidth  float64
	ScreenHeight float64

	// Standalone adds the XML namespace so the document can be saved on its
	// own; inline SVG inside HTML does not need it.
	Standalone bool
}

// errWriter keeps the first write error so drawing code can ignore errors
// until the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// WriteSVG draws s as an SVG document.
func WriteSVG(w io.Writer, s scene.Scene, opts SVGOptions) error {
	width, height := opts.ScreenWidth, opts.ScreenHeight
	if width <= 0 {
		width = s.Width
	}
	if height <= 0 {
		height = s.Height
	}
	if s.Empty || width <= 0 || height <= 0 {
		width, height = 320, 120
	}

	ew := &errWriter{w: w}
	ns := ""
	if opts.Standalone {
		ns = ` xmlns="http://www.w3.org/2000/svg"`
	}
	ew.printf(`<svg%s class="btree" width="%g" height="%g" viewBox="%s">`+"\n",
		ns, width, height, opts.Viewport.ViewBox(width, height))

	if s.Empty {
		ew.printf(`  <text class="empty" x="%g" y="%g" text-anchor="middle" fill="#9ca3af">Empty tree</text>`+"\n",
			width/2, height/2)
		ew.printf("</svg>\n")
		return ew.err
	}

	for _, c := range s.Connectors {
		ew.printf(`  <path class="edge" d="%s" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
			c.Path(), connectorColor)
	}

	for _, b := range s.Boxes {
		sw := swatchFor(b.Role)
		fill := sw.Fill
		if len(b.Chips) == 0 && b.Role == highlight.RoleNone {
			fill = emptyNodeFill
		}
		ew.printf(`  <g class="node node-%s" data-signature="%s">`+"\n",
			b.Role, html.EscapeString(string(b.Signature)))
		ew.printf(`    <rect x="%g" y="%g" width="%g" height="%g" rx="10" fill="%s" stroke="%s" stroke-width="2"/>`+"\n",
			b.X, b.Y, b.Width, b.Height, fill, sw.Stroke)

		for _, c := range b.Chips {
			cs := swatchFor(c.Display)
			dash := ""
			if cs.Dashed {
				dash = ` stroke-dasharray="4 3" stroke="#94a3b8"`
			}
			ew.printf(`    <g class="key key-%s">`+"\n", c.Display)
			if c.Title != "" || c.Author != "" {
				ew.printf(`      <title>%s</title>`+"\n", html.EscapeString(tooltip(c)))
			}
			ew.printf(`      <rect x="%g" y="%g" width="%g" height="%g" rx="8" fill="%s"%s/>`+"\n",
				c.X, c.Y, c.Width, c.Height, cs.Chip, dash)
			center := c.Center()
			textFill := "#ffffff"
			if cs.Dashed {
				textFill = "#64748b"
			}
			ew.printf(`      <text x="%g" y="%g" text-anchor="middle" dominant-baseline="central" font-size="12" font-weight="bold" fill="%s">%s</text>`+"\n",
				center.X, center.Y, textFill, html.EscapeString(c.KeyID))
			ew.printf("    </g>\n")
		}
		ew.printf("  </g>\n")
	}

	ew.printf("</svg>\n")
	return ew.err
}

func tooltip(c scene.Chip) string {
	switch {
	case c.Title != "" && c.Author != "":
		return c.Title + " - " + c.Author
	case c.Title != "":
		return c.Title
	default:
		return c.Author
	}
}
