package engine

import (
	"encoding/json"

	"github.com/inamate/bspview/internal/bsp"
)

// PathCommand is a single path step in Canvas2D form: ["M", x, y] or ["L", x, y].
type PathCommand []interface{}

// DrawCommand is a single drawing operation for a canvas to execute.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "line"
	SegmentID   string        `json:"segmentId,omitempty"`   // for hit correlation
	Depth       int           `json:"depth"`                 // position in paint order
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] view matrix
	Path        []PathCommand `json:"path,omitempty"`        // world coordinates
	Stroke      string        `json:"stroke,omitempty"`      // stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // stroke width
}

// Line returns the endpoints of a "line" command in world coordinates.
func (c DrawCommand) Line() (x1, y1, x2, y2 float64, ok bool) {
	if c.Op != "line" || len(c.Path) != 2 || len(c.Path[0]) < 3 || len(c.Path[1]) < 3 {
		return 0, 0, 0, 0, false
	}
	return toFloat64(c.Path[0][1]), toFloat64(c.Path[0][2]), toFloat64(c.Path[1][1]), toFloat64(c.Path[1][2]), true
}

// CompileDrawCommands turns ordered segments into draw commands. The
// commands keep the order of segs, so a back-to-front slice yields the
// painter's order.
func CompileDrawCommands(segs []bsp.Segment, view Matrix2D) []DrawCommand {
	if len(segs) == 0 {
		return nil
	}

	transform := view.ToSlice()
	commands := make([]DrawCommand, 0, len(segs))
	for i, s := range segs {
		tag := TagOf(s)
		commands = append(commands, DrawCommand{
			Op:        "line",
			SegmentID: tag.SegmentID,
			Depth:     i,
			Transform: transform,
			Path: []PathCommand{
				{"M", s.Start.X, s.Start.Y},
				{"L", s.End.X, s.End.Y},
			},
			Stroke:      tag.Stroke,
			StrokeWidth: tag.StrokeWidth,
		})
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTestResult contains information about a hit test.
type HitTestResult struct {
	SegmentID string  `json:"segmentId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// HitTest returns the id of the segment nearest to the eye among those
// within tolerance of (x, y), or "" when nothing is hit. Segments are tried
// front to back so the first match is the one drawn on top.
func HitTest(ix *Index, eye bsp.Point, x, y, tolerance float64) string {
	if ix == nil || ix.Tree.Empty() {
		return ""
	}

	p := bsp.Point{X: x, Y: y}
	var hit string
	ix.Tree.Traverse(eye, bsp.FrontToBack, func(s bsp.Segment) bool {
		if distanceToSegment(p, s) <= tolerance {
			hit = TagOf(s).SegmentID
			return false
		}
		return true
	})
	return hit
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}

// toFloat64 converts an interface{} to float64.
func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
