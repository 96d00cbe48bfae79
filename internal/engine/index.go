package engine

import (
	"cmp"
	"fmt"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/scene"
)

// Tag is the payload every indexed segment carries. It survives splits, so
// each fragment can be traced back to the scene segment it came from.
type Tag struct {
	SegmentID   string
	Stroke      string
	StrokeWidth float64
}

// Index is a built BSP tree for one version of a scene, in world space.
type Index struct {
	SceneID    string
	Version    int
	Background string
	Tree       *bsp.Tree
	Bounds     Rect
	World      Matrix2D
}

// WorldMatrix returns the matrix that places scene coordinates in world
// space.
func WorldMatrix(t scene.Transform) Matrix2D {
	return FromTransform(t.X, t.Y, cmp.Or(t.SX, 1), cmp.Or(t.SY, 1), t.R, t.AX, t.AY)
}

// BuildIndex validates s and builds its tree. Segments are consumed in scene
// order.
func BuildIndex(s *scene.Scene) (*Index, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	world := WorldMatrix(s.Transform)
	segs := make([]bsp.Segment, len(s.Segments))
	for i, seg := range s.Segments {
		segs[i] = bsp.Segment{
			Start: world.Apply(bsp.Point{X: seg.Start.X, Y: seg.Start.Y}),
			End:   world.Apply(bsp.Point{X: seg.End.X, Y: seg.End.Y}),
			Payload: Tag{
				SegmentID:   seg.ID,
				Stroke:      seg.Stroke,
				StrokeWidth: seg.StrokeWidth,
			},
		}
	}

	tree, err := bsp.Build(segs)
	if err != nil {
		return nil, fmt.Errorf("build tree for scene %s: %w", s.ID, err)
	}

	return &Index{
		SceneID:    s.ID,
		Version:    s.Version,
		Background: s.Background,
		Tree:       tree,
		Bounds:     segmentBounds(segs),
		World:      world,
	}, nil
}

// Order returns the indexed segments as seen from eye.
func (ix *Index) Order(eye bsp.Point, order bsp.Order) []bsp.Segment {
	return ix.Tree.QueryOrder(eye, order)
}

// TagOf returns the tag of an indexed segment.
func TagOf(s bsp.Segment) Tag {
	t, _ := s.Payload.(Tag)
	return t
}
