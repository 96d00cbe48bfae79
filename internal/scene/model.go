package scene

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidScene is wrapped by every validation failure.
var ErrInvalidScene = errors.New("invalid scene")

type Scene struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Version    int       `json:"version"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Background string    `json:"background"`
	Transform  Transform `json:"transform"`
	Segments   []Segment `json:"segments"`
	Camera     Camera    `json:"camera"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}

// Transform places the scene's segments in world space. Zero scales are
// read as 1 so a scene without a transform is left untouched.
type Transform struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	SX float64 `json:"sx"`
	SY float64 `json:"sy"`
	R  float64 `json:"r"`
	AX float64 `json:"ax"`
	AY float64 `json:"ay"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is one wall of the scene. The order of Scene.Segments is the
// order the index consumes them in.
type Segment struct {
	ID          string  `json:"id"`
	Start       Point   `json:"start"`
	End         Point   `json:"end"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

type EasingType string

const (
	EasingLinear     EasingType = "linear"
	EasingEaseIn     EasingType = "easeIn"
	EasingEaseOut    EasingType = "easeOut"
	EasingEaseInOut  EasingType = "easeInOut"
	EasingCubicIn    EasingType = "cubicIn"
	EasingCubicOut   EasingType = "cubicOut"
	EasingCubicInOut EasingType = "cubicInOut"
)

// EyeKey pins the eye position at a frame. Easing shapes the motion towards
// the next key.
type EyeKey struct {
	Frame  int        `json:"frame"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Easing EasingType `json:"easing,omitempty"`
}

// Camera animates the eye over a fixed number of frames.
type Camera struct {
	Length int      `json:"length"`
	FPS    int      `json:"fps"`
	Keys   []EyeKey `json:"keys"`
}

// NewEmptyScene creates a scene with no segments and a static camera.
func NewEmptyScene(sceneID, name string) *Scene {
	return &Scene{
		ID:         sceneID,
		Name:       name,
		Version:    1,
		Width:      1280,
		Height:     720,
		Background: "#1a1a2e",
		Transform:  Transform{SX: 1, SY: 1},
		Segments:   []Segment{},
		Camera: Camera{
			Length: 48,
			FPS:    24,
			Keys:   []EyeKey{},
		},
	}
}

// Clone returns a deep copy of s.
func (s *Scene) Clone() *Scene {
	out := *s
	out.Segments = append([]Segment(nil), s.Segments...)
	out.Camera.Keys = append([]EyeKey(nil), s.Camera.Keys...)
	return &out
}

// SegmentIndex returns the position of the segment with the given id, or -1.
func (s *Scene) SegmentIndex(id string) int {
	for i, seg := range s.Segments {
		if seg.ID == id {
			return i
		}
	}
	return -1
}

func (seg Segment) Length() float64 {
	return math.Hypot(seg.End.X-seg.Start.X, seg.End.Y-seg.Start.Y)
}

// Validate reports the first structural problem in s. Zero-length segments
// are rejected here because they have no line to partition with.
func (s *Scene) Validate() error {
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("%w: negative size %dx%d", ErrInvalidScene, s.Width, s.Height)
	}
	for _, v := range []float64{s.Transform.X, s.Transform.Y, s.Transform.SX, s.Transform.SY, s.Transform.R, s.Transform.AX, s.Transform.AY} {
		if !finite(v) {
			return fmt.Errorf("%w: transform is not finite", ErrInvalidScene)
		}
	}

	seen := make(map[string]struct{}, len(s.Segments))
	for i, seg := range s.Segments {
		if seg.ID == "" {
			return fmt.Errorf("%w: segment %d has no id", ErrInvalidScene, i)
		}
		if _, dup := seen[seg.ID]; dup {
			return fmt.Errorf("%w: duplicate segment id %q", ErrInvalidScene, seg.ID)
		}
		seen[seg.ID] = struct{}{}

		if !finite(seg.Start.X) || !finite(seg.Start.Y) || !finite(seg.End.X) || !finite(seg.End.Y) {
			return fmt.Errorf("%w: segment %q has non-finite coordinates", ErrInvalidScene, seg.ID)
		}
		if seg.Start == seg.End {
			return fmt.Errorf("%w: segment %q has zero length", ErrInvalidScene, seg.ID)
		}
		if seg.StrokeWidth < 0 {
			return fmt.Errorf("%w: segment %q has negative stroke width", ErrInvalidScene, seg.ID)
		}
	}

	if s.Camera.Length < 0 || s.Camera.FPS < 0 {
		return fmt.Errorf("%w: negative camera length or fps", ErrInvalidScene)
	}
	for i, k := range s.Camera.Keys {
		if !finite(k.X) || !finite(k.Y) {
			return fmt.Errorf("%w: eye key %d is not finite", ErrInvalidScene, i)
		}
		if k.Frame < 0 || (s.Camera.Length > 0 && k.Frame >= s.Camera.Length) {
			return fmt.Errorf("%w: eye key %d frame %d outside camera length %d", ErrInvalidScene, i, k.Frame, s.Camera.Length)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
