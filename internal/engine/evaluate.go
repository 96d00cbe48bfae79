package engine

import (
	"sort"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/scene"
)

// EyeAt evaluates the camera's eye keyframes at frame. It reports false when
// the camera has no keys.
func EyeAt(cam scene.Camera, frame int) (bsp.Point, bool) {
	if len(cam.Keys) == 0 {
		return bsp.Point{}, false
	}

	keys := make([]scene.EyeKey, len(cam.Keys))
	copy(keys, cam.Keys)
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].Frame < keys[j].Frame
	})

	// Find surrounding keyframes
	var prev, next *scene.EyeKey
	for i := range keys {
		if keys[i].Frame <= frame {
			prev = &keys[i]
		}
		if keys[i].Frame >= frame && next == nil {
			next = &keys[i]
		}
	}

	// Before first keyframe - use first value
	if prev == nil {
		return bsp.Point{X: next.X, Y: next.Y}, true
	}

	// After last keyframe - hold
	if next == nil || prev.Frame == next.Frame {
		return bsp.Point{X: prev.X, Y: prev.Y}, true
	}

	t := float64(frame-prev.Frame) / float64(next.Frame-prev.Frame)
	t = applyEasing(t, prev.Easing)

	return bsp.Point{
		X: prev.X + (next.X-prev.X)*t,
		Y: prev.Y + (next.Y-prev.Y)*t,
	}, true
}

// WorldEyeAt is EyeAt for the scene's camera, placed in world space.
func WorldEyeAt(s *scene.Scene, frame int) (bsp.Point, bool) {
	eye, ok := EyeAt(s.Camera, frame)
	if !ok {
		return eye, false
	}
	return WorldMatrix(s.Transform).Apply(eye), true
}

// applyEasing applies an easing function to interpolation factor t (0-1).
func applyEasing(t float64, easing scene.EasingType) float64 {
	switch easing {
	case scene.EasingEaseIn:
		return t * t

	case scene.EasingEaseOut:
		return t * (2 - t)

	case scene.EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t

	case scene.EasingCubicIn:
		return t * t * t

	case scene.EasingCubicOut:
		t2 := 1 - t
		return 1 - t2*t2*t2

	case scene.EasingCubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		t2 := -2*t + 2
		return 1 - t2*t2*t2/2

	default: // linear
		return t
	}
}
