package bsp

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentPlane(t *testing.T) {
	s := NewSegment(1, 2, 4, 6, nil)
	pl := s.Plane()
	require.Equal(t, Plane{A: -4, B: 3, C: 4*1 - 3*2}, pl)

	// Both endpoints evaluate to zero on their own plane.
	require.InDelta(t, 0, pl.Eval(s.Start), 1e-12)
	require.InDelta(t, 0, pl.Eval(s.End), 1e-12)

	// The left-hand side of the direction of travel is the front.
	require.Equal(t, Front, pl.ClassifyPoint(Point{X: 0, Y: 10}))
	require.Equal(t, Back, pl.ClassifyPoint(Point{X: 10, Y: 0}))
}

func TestClassifyPoint(t *testing.T) {
	horizontal := Plane{A: 0, B: 1, C: 0} // f = y

	tests := []struct {
		name string
		p    Point
		want Side
	}{
		{"well in front", Point{X: 3, Y: 2}, Front},
		{"well behind", Point{X: 3, Y: -2}, Back},
		{"exactly on", Point{X: 3, Y: 0}, On},
		{"upper tolerance edge", Point{X: -7, Y: Epsilon}, On},
		{"lower tolerance edge", Point{X: -7, Y: -Epsilon}, On},
		{"just past upper edge", Point{X: 0, Y: 0.0011}, Front},
		{"just past lower edge", Point{X: 0, Y: -0.0011}, Back},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, horizontal.ClassifyPoint(tc.p))
		})
	}
}

func TestClassifyPointAlongNormal(t *testing.T) {
	s := NewSegment(0, 0, 3, 4, nil)
	pl := s.Plane()
	norm := math.Hypot(pl.A, pl.B)
	nx, ny := pl.A/norm, pl.B/norm
	base := Point{X: 1.5, Y: 2}

	at := func(d float64) Point {
		return Point{X: base.X + d*nx, Y: base.Y + d*ny}
	}

	require.Equal(t, On, pl.ClassifyPoint(base))
	// |f| = d*|n|, so anything below Epsilon/|n| stays on the plane.
	require.Equal(t, On, pl.ClassifyPoint(at(0.5*Epsilon/norm)))
	require.Equal(t, On, pl.ClassifyPoint(at(-0.5*Epsilon/norm)))

	for _, d := range []float64{0.01, 0.5, 3} {
		require.Equal(t, Front, pl.ClassifyPoint(at(d)), "offset %v", d)
		require.Equal(t, Back, pl.ClassifyPoint(at(-d)), "offset %v", -d)
	}
}

func TestClassifySegment(t *testing.T) {
	pl := NewSegment(0, 0, 4, 0, nil).Plane() // f = 4y

	tests := []struct {
		name string
		s    Segment
		want Side
	}{
		{"both on", NewSegment(5, 0, 9, 0, nil), Coincident},
		{"both on reversed", NewSegment(9, 0, -1, 0, nil), Coincident},
		{"start on end front", NewSegment(1, 0, 1, 3, nil), Front},
		{"start back end on", NewSegment(1, -3, 1, 0, nil), Back},
		{"both front", NewSegment(0, 1, 5, 2, nil), Front},
		{"both back", NewSegment(0, -1, 5, -2, nil), Back},
		{"front to back", NewSegment(2, 2, 2, -2, nil), Spanning},
		{"back to front", NewSegment(2, -2, 2, 2, nil), Spanning},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, pl.ClassifySegment(tc.s))
		})
	}
}

func TestSplit(t *testing.T) {
	pl := NewSegment(0, 0, 4, 0, nil).Plane()

	t.Run("back to front", func(t *testing.T) {
		s := NewSegment(2, -2, 2, 2, "wall")
		front, back, err := pl.Split(s)
		require.NoError(t, err)

		require.Equal(t, NewSegment(2, 0, 2, 2, "wall"), front)
		require.Equal(t, NewSegment(2, -2, 2, 0, "wall"), back)
		require.Equal(t, Front, pl.ClassifySegment(front))
		require.Equal(t, Back, pl.ClassifySegment(back))
		require.Equal(t, front.Start, back.End)
	})

	t.Run("front to back", func(t *testing.T) {
		s := NewSegment(1, 3, 3, -1, 7)
		front, back, err := pl.Split(s)
		require.NoError(t, err)

		require.Equal(t, s.Start, front.Start)
		require.Equal(t, s.End, back.End)
		require.Equal(t, front.End, back.Start)
		require.InDelta(t, 2.5, front.End.X, 1e-12)
		require.InDelta(t, 0, front.End.Y, 1e-12)
		require.Equal(t, 7, front.Payload)
		require.Equal(t, 7, back.Payload)
		require.InDelta(t, s.Length(), front.Length()+back.Length(), 1e-9)
	})

	t.Run("oblique plane", func(t *testing.T) {
		diag := NewSegment(0, 0, 1, 1, nil).Plane() // front is y > x
		s := NewSegment(0, 4, 4, 0, nil)
		front, back, err := diag.Split(s)
		require.NoError(t, err)

		require.InDelta(t, 2, front.End.X, 1e-12)
		require.InDelta(t, 2, front.End.Y, 1e-12)
		require.Equal(t, Front, diag.ClassifySegment(front))
		require.Equal(t, Back, diag.ClassifySegment(back))
	})
}

func TestSplitRejectsNonSpanning(t *testing.T) {
	pl := NewSegment(0, 0, 4, 0, nil).Plane()

	for _, s := range []Segment{
		NewSegment(0, 1, 4, 1, nil),   // front
		NewSegment(0, -1, 4, -1, nil), // back
		NewSegment(1, 0, 3, 0, nil),   // coincident
		NewSegment(1, 0, 1, 5, nil),   // touches the plane
	} {
		_, _, err := pl.Split(s)
		require.Error(t, err, s.String())
		require.True(t, errors.Is(err, ErrNotSpanning))
	}
}

func TestIntersectParallelFallback(t *testing.T) {
	// Horizontal plane y = 0.5: substitute y, keep x from the segment.
	horizontal := NewSegment(0, 0.5, 4, 0.5, nil).Plane()
	p := horizontal.intersect(NewSegment(1, 3, 5, 3, nil))
	require.Equal(t, Point{X: 1, Y: 0.5}, p)

	// Vertical plane x = 2: substitute x, keep y from the segment.
	vertical := NewSegment(2, 0, 2, 4, nil).Plane()
	p = vertical.intersect(NewSegment(0, 1, 0, 4, nil))
	require.Equal(t, Point{X: 2, Y: 1}, p)
}

func TestSideString(t *testing.T) {
	require.Equal(t, "front", Front.String())
	require.Equal(t, "coincident", Coincident.String())
	require.Equal(t, "side(9)", Side(9).String())
}

func TestPlaneStringHasNoNegativeZero(t *testing.T) {
	require.Equal(t, "Plane(0,4,0)", NewSegment(0, 0, 4, 0, nil).Plane().String())
}
