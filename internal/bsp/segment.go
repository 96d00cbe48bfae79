package bsp

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate.
type Point struct {
	X, Y float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", unsigned(p.X), unsigned(p.Y))
}

// Segment is a directed line segment. Payload is opaque to the tree and is
// copied into both fragments when the segment is split.
type Segment struct {
	Start   Point
	End     Point
	Payload any
}

// NewSegment creates a segment from (x1, y1) to (x2, y2).
func NewSegment(x1, y1, x2, y2 float64, payload any) Segment {
	return Segment{
		Start:   Point{X: x1, Y: y1},
		End:     Point{X: x2, Y: y2},
		Payload: payload,
	}
}

// Plane returns the directed line the segment lies on. Its front side is to
// the left when walking from Start to End.
func (s Segment) Plane() Plane {
	dx := s.End.X - s.Start.X
	dy := s.End.Y - s.Start.Y
	return Plane{
		A: -dy,
		B: dx,
		C: dy*s.Start.X - dx*s.Start.Y,
	}
}

// Length returns the euclidean length of the segment.
func (s Segment) Length() float64 {
	return math.Hypot(s.End.X-s.Start.X, s.End.Y-s.Start.Y)
}

func (s Segment) String() string {
	return fmt.Sprintf("Segment(%s,%s)", s.Start, s.End)
}
