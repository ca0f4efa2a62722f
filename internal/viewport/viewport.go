// Package viewport holds the pan/zoom transform applied to a scene. A
// Viewport is a plain value: callers own it and pass it to whatever draws.
package viewport

import (
	"fmt"
	"math"
)

const (
	MinScale = 0.1
	MaxScale = 3.0
)

// Viewport maps canvas coordinates to screen coordinates as
// screen = canvas*Scale + (X, Y).
type Viewport struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Identity returns the untransformed viewport.
func Identity() Viewport {
	return Viewport{Scale: 1}
}

func clampScale(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 1
	}
	return math.Min(MaxScale, math.Max(MinScale, s))
}

// Pan shifts the viewport by a screen-space offset.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.X += dx
	v.Y += dy
	return v
}

// Zoom multiplies the scale by factor around the screen point (px, py), which
// stays fixed on screen. The scale is clamped to [MinScale, MaxScale].
func (v Viewport) Zoom(factor, px, py float64) Viewport {
	old := clampScale(v.Scale)
	scale := clampScale(old * factor)
	ratio := scale / old
	return Viewport{
		X:     px - (px-v.X)*ratio,
		Y:     py - (py-v.Y)*ratio,
		Scale: scale,
	}
}

// CenterOn returns a viewport, at the current scale, that puts the centre of
// the canvas rectangle (x, y, w, h) in the middle of a screen of the given
// size.
func (v Viewport) CenterOn(x, y, w, h, screenW, screenH float64) Viewport {
	scale := clampScale(v.Scale)
	cx, cy := x+w/2, y+h/2
	return Viewport{
		X:     screenW/2 - cx*scale,
		Y:     screenH/2 - cy*scale,
		Scale: scale,
	}
}

// ToScreen converts a canvas point.
func (v Viewport) ToScreen(x, y float64) (float64, float64) {
	s := clampScale(v.Scale)
	return x*s + v.X, y*s + v.Y
}

// ViewBox returns the SVG viewBox showing a screen of the given size.
func (v Viewport) ViewBox(screenW, screenH float64) string {
	s := clampScale(v.Scale)
	return fmt.Sprintf("%g %g %g %g", noNegZero(-v.X/s), noNegZero(-v.Y/s), screenW/s, screenH/s)
}

// noNegZero keeps an unpanned viewBox from printing as "-0".
func noNegZero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}
