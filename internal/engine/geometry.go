package engine

import (
	"math"

	"github.com/inamate/bspview/internal/bsp"
)

// Rect is an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// segmentBounds returns the bounding box of segs. A flat box (all segments
// on one axis-aligned line) is padded to one unit so it is not empty.
func segmentBounds(segs []bsp.Segment) Rect {
	if len(segs) == 0 {
		return Rect{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range segs {
		for _, p := range [2]bsp.Point{s.Start, s.End} {
			minX = min(minX, p.X)
			minY = min(minY, p.Y)
			maxX = max(maxX, p.X)
			maxY = max(maxY, p.Y)
		}
	}

	r := Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	if r.Width == 0 {
		r.X -= 0.5
		r.Width = 1
	}
	if r.Height == 0 {
		r.Y -= 0.5
		r.Height = 1
	}
	return r
}

// distanceToSegment returns the distance from p to the closest point of s.
func distanceToSegment(p bsp.Point, s bsp.Segment) float64 {
	dx := s.End.X - s.Start.X
	dy := s.End.Y - s.Start.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-s.Start.X, p.Y-s.Start.Y)
	}

	t := ((p.X-s.Start.X)*dx + (p.Y-s.Start.Y)*dy) / lenSq
	t = max(0, min(1, t))
	cx := s.Start.X + t*dx
	cy := s.Start.Y + t*dy
	return math.Hypot(p.X-cx, p.Y-cy)
}
