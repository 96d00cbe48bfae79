package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inamate/bspview/internal/typeid"
)

func TestSampleSceneIsValid(t *testing.T) {
	s := NewSampleScene("scene_sample")
	require.NoError(t, s.Validate())
	require.Equal(t, "scene_sample", s.ID)
	require.NotEmpty(t, s.Segments)
	for _, seg := range s.Segments {
		require.NoError(t, typeid.Validate(seg.ID, typeid.PrefixSegment))
	}
}

func TestEmptySceneIsValid(t *testing.T) {
	s := NewEmptyScene("scene_x", "blank")
	require.NoError(t, s.Validate())
	require.Empty(t, s.Segments)
	require.Equal(t, 1, s.Version)
}

func TestValidate(t *testing.T) {
	base := func() *Scene {
		s := NewEmptyScene("scene_x", "v")
		s.Segments = []Segment{
			{ID: "a", Start: Point{X: 0, Y: 0}, End: Point{X: 1, Y: 0}},
			{ID: "b", Start: Point{X: 0, Y: 1}, End: Point{X: 1, Y: 1}},
		}
		return s
	}

	tests := []struct {
		name   string
		mutate func(s *Scene)
	}{
		{"missing id", func(s *Scene) { s.Segments[1].ID = "" }},
		{"duplicate id", func(s *Scene) { s.Segments[1].ID = "a" }},
		{"zero length", func(s *Scene) { s.Segments[0].End = s.Segments[0].Start }},
		{"nan coordinate", func(s *Scene) { s.Segments[0].Start.X = math.NaN() }},
		{"inf coordinate", func(s *Scene) { s.Segments[1].End.Y = math.Inf(1) }},
		{"negative stroke", func(s *Scene) { s.Segments[0].StrokeWidth = -1 }},
		{"negative size", func(s *Scene) { s.Width = -5 }},
		{"bad transform", func(s *Scene) { s.Transform.R = math.NaN() }},
		{"key past camera", func(s *Scene) { s.Camera.Keys = []EyeKey{{Frame: 48}} }},
		{"negative key", func(s *Scene) { s.Camera.Keys = []EyeKey{{Frame: -1}} }},
	}

	require.NoError(t, base().Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := base()
			tc.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidScene))
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSampleScene("scene_c")
	c := s.Clone()
	c.Segments[0].Start.X = -999
	c.Camera.Keys[0].X = -999
	require.NotEqual(t, s.Segments[0].Start.X, c.Segments[0].Start.X)
	require.NotEqual(t, s.Camera.Keys[0].X, c.Camera.Keys[0].X)
}

func TestSegmentIndex(t *testing.T) {
	s := NewSampleScene("scene_i")
	require.Equal(t, 2, s.SegmentIndex(s.Segments[2].ID))
	require.Equal(t, -1, s.SegmentIndex("seg_missing"))
}
