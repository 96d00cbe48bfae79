package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/scene"
)

func triangleScene() *scene.Scene {
	s := scene.NewEmptyScene("scene_tri", "triangle")
	s.Width, s.Height = 100, 100
	s.Segments = []scene.Segment{
		{ID: "s1", Start: scene.Point{X: 0, Y: 0}, End: scene.Point{X: 4, Y: 0}, Stroke: "#ff0000", StrokeWidth: 2},
		{ID: "s2", Start: scene.Point{X: 4, Y: 0}, End: scene.Point{X: 0, Y: 4}, Stroke: "#00ff00", StrokeWidth: 2},
		{ID: "s3", Start: scene.Point{X: 0, Y: 4}, End: scene.Point{X: 0, Y: 0}, Stroke: "#0000ff", StrokeWidth: 2},
	}
	return s
}

func segmentIDs(segs []bsp.Segment) []string {
	ids := make([]string, len(segs))
	for i, s := range segs {
		ids[i] = TagOf(s).SegmentID
	}
	return ids
}

func TestBuildIndexOrder(t *testing.T) {
	s := triangleScene()
	s.Background = "#102030"
	ix, err := BuildIndex(s)
	require.NoError(t, err)
	require.Equal(t, "scene_tri", ix.SceneID)
	require.Equal(t, "#102030", ix.Background)
	require.Equal(t, 1, ix.Version)
	require.Equal(t, Rect{X: 0, Y: 0, Width: 4, Height: 4}, ix.Bounds)
	require.True(t, ix.World.IsIdentity())

	require.Equal(t, []string{"s1", "s3", "s2"}, segmentIDs(ix.Order(bsp.Point{X: 10, Y: 10}, bsp.BackToFront)))
	require.Equal(t, []string{"s1", "s2", "s3"}, segmentIDs(ix.Order(bsp.Point{X: 1, Y: 1}, bsp.BackToFront)))
	require.Equal(t, []string{"s2", "s3", "s1"}, segmentIDs(ix.Order(bsp.Point{X: 10, Y: 10}, bsp.FrontToBack)))
}

func TestBuildIndexAppliesTransform(t *testing.T) {
	s := triangleScene()
	s.Transform = scene.Transform{X: 100, Y: 50, SX: 2, SY: 2}

	ix, err := BuildIndex(s)
	require.NoError(t, err)
	require.Equal(t, Rect{X: 100, Y: 50, Width: 8, Height: 8}, ix.Bounds)

	segs := ix.Order(bsp.Point{X: 1000, Y: 1000}, bsp.BackToFront)
	require.Equal(t, bsp.Point{X: 100, Y: 50}, segs[0].Start)
	require.Equal(t, bsp.Point{X: 108, Y: 50}, segs[0].End)
}

func TestBuildIndexRejectsInvalidScene(t *testing.T) {
	s := triangleScene()
	s.Segments[1].End = s.Segments[1].Start
	_, err := BuildIndex(s)
	require.True(t, errors.Is(err, scene.ErrInvalidScene))
}

func TestBuildIndexEmptyScene(t *testing.T) {
	ix, err := BuildIndex(scene.NewEmptyScene("scene_e", "empty"))
	require.NoError(t, err)
	require.True(t, ix.Tree.Empty())
	require.Empty(t, ix.Order(bsp.Point{}, bsp.BackToFront))
	require.True(t, ix.Bounds.IsEmpty())
}

func TestSampleSceneSplits(t *testing.T) {
	ix, err := BuildIndex(scene.NewSampleScene("scene_sample"))
	require.NoError(t, err)
	stats := ix.Tree.Stats()
	require.Greater(t, stats.Splits, 0)
	require.Equal(t, stats.Inputs+stats.Splits, stats.Segments)
}

func TestCompileDrawCommands(t *testing.T) {
	ix, err := BuildIndex(triangleScene())
	require.NoError(t, err)

	view := Scale(10, 10)
	cmds := CompileDrawCommands(ix.Order(bsp.Point{X: 10, Y: 10}, bsp.BackToFront), view)
	require.Len(t, cmds, 3)

	for i, c := range cmds {
		require.Equal(t, "line", c.Op)
		require.Equal(t, i, c.Depth)
		require.Equal(t, view.ToSlice(), c.Transform)
		require.Equal(t, 2.0, c.StrokeWidth)
	}
	require.Equal(t, "s3", cmds[1].SegmentID)
	require.Equal(t, "#0000ff", cmds[1].Stroke)

	x1, y1, x2, y2, ok := cmds[1].Line()
	require.True(t, ok)
	require.Equal(t, [4]float64{0, 4, 0, 0}, [4]float64{x1, y1, x2, y2})

	_, _, _, _, ok = DrawCommand{Op: "line"}.Line()
	require.False(t, ok)

	require.Nil(t, CompileDrawCommands(nil, Identity()))
}

func TestDrawCommandsToJSON(t *testing.T) {
	out, err := DrawCommandsToJSON(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", out)

	out, err = DrawCommandsToJSON([]DrawCommand{{
		Op:        "line",
		SegmentID: "s1",
		Path:      []PathCommand{{"M", 0.0, 0.0}, {"L", 1.0, 2.0}},
	}})
	require.NoError(t, err)
	require.JSONEq(t, `[{"op":"line","segmentId":"s1","depth":0,"path":[["M",0,0],["L",1,2]]}]`, out)
}

func TestHitTest(t *testing.T) {
	ix, err := BuildIndex(triangleScene())
	require.NoError(t, err)

	outside := bsp.Point{X: 10, Y: 10}
	inside := bsp.Point{X: 1, Y: 1}

	tests := []struct {
		name string
		eye  bsp.Point
		x, y float64
		want string
	}{
		{"on hypotenuse", outside, 2, 2, "s2"},
		{"on left edge", outside, 0, 2, "s3"},
		{"miss", outside, 50, 50, ""},
		{"shared corner from outside", outside, 0, 4, "s2"},
		{"shared corner from inside", inside, 0, 4, "s3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, HitTest(ix, tc.eye, tc.x, tc.y, 0.1))
		})
	}

	require.Equal(t, "", HitTest(nil, outside, 0, 0, 1))
}

func TestFitViewport(t *testing.T) {
	m := FitViewport(Rect{X: 0, Y: 0, Width: 4, Height: 4}, 100, 100, 10)
	x, y := m.TransformPoint(0, 0)
	require.InDelta(t, 10, x, 1e-9)
	require.InDelta(t, 10, y, 1e-9)
	x, y = m.TransformPoint(4, 4)
	require.InDelta(t, 90, x, 1e-9)
	require.InDelta(t, 90, y, 1e-9)

	// Wide bounds are centered vertically.
	m = FitViewport(Rect{X: 0, Y: 0, Width: 4, Height: 2}, 100, 100, 0)
	x, y = m.TransformPoint(0, 0)
	require.InDelta(t, 0, x, 1e-9)
	require.InDelta(t, 25, y, 1e-9)

	require.True(t, FitViewport(Rect{}, 100, 100, 10).IsIdentity())
	require.True(t, FitViewport(Rect{Width: 1, Height: 1}, 0, 100, 10).IsIdentity())
}

func TestMatrixInvert(t *testing.T) {
	m := FromTransform(30, -20, 2, 3, 45, 5, 5)
	x, y := m.TransformPoint(7, 11)
	bx, by := m.Invert().TransformPoint(x, y)
	require.InDelta(t, 7, bx, 1e-9)
	require.InDelta(t, 11, by, 1e-9)
	require.True(t, m.Multiply(m.Invert()).IsIdentity())
	require.True(t, Scale(0, 0).Invert().IsIdentity())
}

func TestEyeAt(t *testing.T) {
	cam := scene.Camera{
		Length: 40,
		Keys: []scene.EyeKey{
			{Frame: 30, X: 0, Y: 30},
			{Frame: 10, X: 10, Y: 0, Easing: scene.EasingEaseIn},
			{Frame: 4, X: 0, Y: 0},
		},
	}

	tests := []struct {
		frame int
		want  bsp.Point
	}{
		{0, bsp.Point{X: 0, Y: 0}},      // before first key
		{4, bsp.Point{X: 0, Y: 0}},      // on a key
		{7, bsp.Point{X: 5, Y: 0}},      // linear halfway
		{20, bsp.Point{X: 7.5, Y: 7.5}}, // ease-in: t = 0.25
		{39, bsp.Point{X: 0, Y: 30}},    // hold after last key
	}
	for _, tc := range tests {
		got, ok := EyeAt(cam, tc.frame)
		require.True(t, ok)
		require.InDelta(t, tc.want.X, got.X, 1e-9, "frame %d", tc.frame)
		require.InDelta(t, tc.want.Y, got.Y, 1e-9, "frame %d", tc.frame)
	}

	_, ok := EyeAt(scene.Camera{}, 3)
	require.False(t, ok)
}

func TestApplyEasingEndpoints(t *testing.T) {
	for _, e := range []scene.EasingType{
		scene.EasingLinear, scene.EasingEaseIn, scene.EasingEaseOut, scene.EasingEaseInOut,
		scene.EasingCubicIn, scene.EasingCubicOut, scene.EasingCubicInOut,
	} {
		require.InDelta(t, 0, applyEasing(0, e), 1e-12, string(e))
		require.InDelta(t, 1, applyEasing(1, e), 1e-12, string(e))
	}
}

func TestOrderToGeoJSON(t *testing.T) {
	ix, err := BuildIndex(triangleScene())
	require.NoError(t, err)

	data, err := OrderToGeoJSON(ix.Order(bsp.Point{X: 10, Y: 10}, bsp.BackToFront))
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string       `json:"type"`
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)

	var ids []string
	for i, f := range fc.Features {
		require.Equal(t, "LineString", f.Geometry.Type)
		require.Equal(t, float64(i), f.Properties["order"])
		ids = append(ids, f.Properties["segmentId"].(string))
	}
	require.Equal(t, []string{"s1", "s3", "s2"}, ids)
	require.Equal(t, [][2]float64{{0, 4}, {0, 0}}, fc.Features[1].Geometry.Coordinates)
}

func TestEngineLifecycle(t *testing.T) {
	e := NewEngine()
	require.Equal(t, "[]", e.Render())
	require.Equal(t, "", e.HitTest(1, 1, 1))
	require.Equal(t, "{}", e.GetScene())

	data, err := json.Marshal(triangleScene())
	require.NoError(t, err)
	require.NoError(t, e.LoadScene(string(data)))
	require.NoError(t, e.Err())

	e.SetEye(10, 10)
	var ids []string
	for _, c := range e.Commands() {
		ids = append(ids, c.SegmentID)
	}
	require.Equal(t, []string{"s1", "s3", "s2"}, ids)

	require.NoError(t, e.SetOrder("front-to-back"))
	ids = ids[:0]
	for _, c := range e.Commands() {
		ids = append(ids, c.SegmentID)
	}
	require.Equal(t, []string{"s2", "s3", "s1"}, ids)
	require.Error(t, e.SetOrder("diagonal"))

	// 100x100 viewport with a 20px margin maps world (2, 2) to (50, 50).
	require.Equal(t, "s2", e.HitTest(50, 50, 3))
	require.Equal(t, "", e.HitTest(99, 99, 3))

	require.Contains(t, e.GetListing(), "Plane(0,4,0)")

	var stats bsp.Stats
	require.NoError(t, json.Unmarshal([]byte(e.GetStats()), &stats))
	require.Equal(t, 3, stats.Nodes)

	var bounds Rect
	require.NoError(t, json.Unmarshal([]byte(e.GetBounds()), &bounds))
	require.Equal(t, Rect{Width: 4, Height: 4}, bounds)
}

func TestEngineRejectsBadScene(t *testing.T) {
	e := NewEngine()
	require.Error(t, e.LoadScene("{"))

	s := triangleScene()
	s.Segments[0].ID = ""
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.ErrorIs(t, e.LoadScene(string(data)), scene.ErrInvalidScene)
}

func TestEnginePlayback(t *testing.T) {
	e := NewEngine()
	e.LoadSampleScene("scene_sample")
	require.Equal(t, 96, e.GetTotalFrames())
	require.Equal(t, 24, e.GetFPS())
	require.Equal(t, bsp.Point{X: 160, Y: 160}, e.Eye())

	// Paused ticks do not move the eye.
	e.Tick()
	require.Equal(t, 0, e.GetFrame())

	e.Play()
	require.True(t, e.IsPlaying())
	before := e.Eye()
	out := e.Tick()
	require.Equal(t, 1, e.GetFrame())
	require.NotEqual(t, before, e.Eye())

	var cmds []DrawCommand
	require.NoError(t, json.Unmarshal([]byte(out), &cmds))
	require.NotEmpty(t, cmds)

	e.TogglePlay()
	require.False(t, e.IsPlaying())

	e.SetPlayhead(500)
	require.Equal(t, 95, e.GetFrame())
	require.Equal(t, bsp.Point{X: 160, Y: 600}, e.Eye())
	e.SetPlayhead(-3)
	require.Equal(t, 0, e.GetFrame())

	var state map[string]any
	require.NoError(t, json.Unmarshal([]byte(e.GetPlaybackState()), &state))
	require.Equal(t, "back-to-front", state["order"])
}

func TestEngineUpdateScenePreservesPlayback(t *testing.T) {
	e := NewEngine()
	e.LoadSampleScene("scene_sample")
	e.SetPlayhead(50)
	e.Play()

	s := triangleScene()
	s.Camera.Length = 10
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, e.UpdateScene(string(data)))

	require.True(t, e.IsPlaying())
	require.Equal(t, 9, e.GetFrame())

	var got scene.Scene
	require.NoError(t, json.Unmarshal([]byte(e.GetScene()), &got))
	require.Empty(t, cmp.Diff(s.Segments, got.Segments))
}
