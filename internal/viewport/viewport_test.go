package viewport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCenterOn(t *testing.T) {
	v := Identity().CenterOn(100, 50, 80, 40, 800, 600)
	x, y := v.ToScreen(140, 70)
	require.InDelta(t, 400, x, 1e-9)
	require.InDelta(t, 300, y, 1e-9)

	zoomed := Viewport{Scale: 2}.CenterOn(100, 50, 80, 40, 800, 600)
	x, y = zoomed.ToScreen(140, 70)
	require.InDelta(t, 400, x, 1e-9)
	require.InDelta(t, 300, y, 1e-9)
	require.Equal(t, 2.0, zoomed.Scale)
}

func TestZoom_ClampsAndKeepsPivot(t *testing.T) {
	v := Identity().Pan(10, 20)

	bigger := v.Zoom(100, 200, 150)
	require.Equal(t, MaxScale, bigger.Scale)

	before := []float64{(200 - v.X) / v.Scale, (150 - v.Y) / v.Scale}
	x, y := bigger.ToScreen(before[0], before[1])
	require.InDelta(t, 200, x, 1e-9)
	require.InDelta(t, 150, y, 1e-9)

	require.Equal(t, MinScale, v.Zoom(0.0001, 0, 0).Scale)
}

func TestViewBox(t *testing.T) {
	require.Equal(t, "0 0 800 600", Identity().ViewBox(800, 600))
	require.Equal(t, "-5 -10 400 300", Viewport{X: 10, Y: 20, Scale: 2}.ViewBox(800, 600))
}

func TestZeroValueBehavesAsIdentity(t *testing.T) {
	var v Viewport
	x, y := v.ToScreen(3, 4)
	require.Equal(t, 3.0, x)
	require.Equal(t, 4.0, y)
}
