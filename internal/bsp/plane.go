package bsp

import (
	"errors"
	"fmt"
)

// Epsilon makes a plane "thick": evaluations within it count as on the plane.
const Epsilon = 0.001

// ErrNotSpanning is returned by Split for a segment that does not cross the plane.
var ErrNotSpanning = errors.New("segment does not span plane")

// Side is the result of classifying a point or a segment against a plane.
type Side uint8

const (
	On Side = iota
	Front
	Back
	Spanning
	Coincident
)

func (s Side) String() string {
	switch s {
	case On:
		return "on"
	case Front:
		return "front"
	case Back:
		return "back"
	case Spanning:
		return "spanning"
	case Coincident:
		return "coincident"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Plane is a directed line A·x + B·y + C = 0. Points with a positive
// evaluation are in front of it.
type Plane struct {
	A, B, C float64
}

// Eval returns A·x + B·y + C for p.
func (pl Plane) Eval(p Point) float64 {
	return pl.A*p.X + pl.B*p.Y + pl.C
}

// ClassifyPoint reports whether p is in front of, behind or on the plane.
func (pl Plane) ClassifyPoint(p Point) Side {
	f := pl.Eval(p)
	switch {
	case f > Epsilon:
		return Front
	case f < -Epsilon:
		return Back
	default:
		return On
	}
}

// ClassifySegment combines the classification of both endpoints. It never
// returns On: a segment with both endpoints on the plane is Coincident.
func (pl Plane) ClassifySegment(s Segment) Side {
	a := pl.ClassifyPoint(s.Start)
	b := pl.ClassifyPoint(s.End)
	switch {
	case a == On && b == On:
		return Coincident
	case a == On:
		return b
	case b == On:
		return a
	case a != b:
		return Spanning
	default:
		return a
	}
}

// Split cuts a spanning segment at its intersection with the plane. The
// front fragment comes first. Both fragments keep the direction and the
// payload of s.
func (pl Plane) Split(s Segment) (front, back Segment, err error) {
	a := pl.ClassifyPoint(s.Start)
	b := pl.ClassifyPoint(s.End)
	if !(a == Front && b == Back) && !(a == Back && b == Front) {
		return Segment{}, Segment{}, fmt.Errorf("split %s against %s: %w", s, pl, ErrNotSpanning)
	}

	cross := pl.intersect(s)

	head := Segment{Start: s.Start, End: cross, Payload: s.Payload}
	tail := Segment{Start: cross, End: s.End, Payload: s.Payload}
	if a == Front {
		return head, tail, nil
	}
	return tail, head, nil
}

// intersect solves the 2x2 system formed by the plane and the carrier line
// of s.
func (pl Plane) intersect(s Segment) Point {
	sp := s.Plane()
	divider := pl.A*sp.B - pl.B*sp.A
	if divider != 0 {
		return Point{
			X: (-pl.C*sp.B + pl.B*sp.C) / divider,
			Y: (-pl.A*sp.C + pl.C*sp.A) / divider,
		}
	}

	// Parallel carriers cannot really span; rounding got us here. Start from
	// the segment and pull the coordinate the plane fixes onto it.
	cross := s.Start
	if pl.A == 0 && pl.B != 0 {
		cross.Y = -pl.C / pl.B
	}
	if pl.B == 0 && pl.A != 0 {
		cross.X = -pl.C / pl.A
	}
	logger().Warn("degenerate split, substituting axis coordinate",
		"plane", pl.String(), "segment", s.String(), "point", cross.String())
	return cross
}

func (pl Plane) String() string {
	return fmt.Sprintf("Plane(%g,%g,%g)", unsigned(pl.A), unsigned(pl.B), unsigned(pl.C))
}

// unsigned folds -0 into 0 so listings do not print "-0".
func unsigned(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
