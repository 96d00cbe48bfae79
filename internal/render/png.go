// Package render rasterizes draw commands with gg. Commands are painted in
// slice order, so a back-to-front listing gives correct occlusion.
package render

import (
	"errors"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/engine"
)

const (
	defaultBackground = "#ffffff"
	defaultStroke     = "#1f2933"
	eyeColor          = "#e3342f"
	eyeRadius         = 5
)

// ErrBadSize is returned for a non-positive output size.
var ErrBadSize = errors.New("render: width and height must be positive")

// Options controls a single rendered frame.
type Options struct {
	Width      int
	Height     int
	Background string

	// Eye, when set, is drawn as a marker. It is in world coordinates and
	// mapped with View; a zero View means identity.
	Eye  *bsp.Point
	View engine.Matrix2D
}

// PNG paints cmds onto a fresh canvas and writes it to w as PNG.
func PNG(w io.Writer, cmds []engine.DrawCommand, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return ErrBadSize
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	defer dc.Close()

	bg := opts.Background
	if bg == "" {
		bg = defaultBackground
	}
	dc.ClearWithColor(gg.Hex(bg))
	dc.SetLineCap(gg.LineCapRound)

	for _, cmd := range cmds {
		if err := paint(dc, cmd); err != nil {
			return err
		}
	}

	if opts.Eye != nil {
		view := opts.View
		if view == (engine.Matrix2D{}) {
			view = engine.Identity()
		}
		x, y := view.TransformPoint(opts.Eye.X, opts.Eye.Y)
		dc.SetHexColor(eyeColor)
		dc.DrawCircle(x, y, eyeRadius)
		if err := dc.Fill(); err != nil {
			return err
		}
	}

	return dc.EncodePNG(w)
}

// paint strokes one line command. Endpoints are mapped to pixels here rather
// than through the context transform so the stroke width stays in pixels.
func paint(dc *gg.Context, cmd engine.DrawCommand) error {
	x1, y1, x2, y2, ok := cmd.Line()
	if !ok {
		return nil
	}

	m := engine.Identity()
	if len(cmd.Transform) == 6 {
		t := cmd.Transform
		m = engine.Matrix2D{t[0], t[1], t[2], t[3], t[4], t[5]}
	}
	x1, y1 = m.TransformPoint(x1, y1)
	x2, y2 = m.TransformPoint(x2, y2)

	stroke := cmd.Stroke
	if stroke == "" {
		stroke = defaultStroke
	}
	dc.SetHexColor(stroke)
	dc.SetLineWidth(math.Max(cmd.StrokeWidth, 1))
	dc.DrawLine(x1, y1, x2, y2)
	return dc.Stroke()
}
