package scene

import (
	"time"

	"github.com/inamate/bspview/internal/typeid"
)

func NewSampleScene(sceneID string) *Scene {
	now := time.Now().UTC().Format(time.RFC3339)

	wall := func(x1, y1, x2, y2 float64, stroke string) Segment {
		return Segment{
			ID:          typeid.NewSegmentID(),
			Start:       Point{X: x1, Y: y1},
			End:         Point{X: x2, Y: y2},
			Stroke:      stroke,
			StrokeWidth: 4,
		}
	}

	return &Scene{
		ID:         sceneID,
		Name:       "Gallery",
		Version:    1,
		Width:      1280,
		Height:     720,
		Background: "#1a1a2e",
		Transform:  Transform{SX: 1, SY: 1},
		Segments: []Segment{
			// Outer room, counter-clockwise so the inside is in front.
			wall(80, 80, 1200, 80, "#e94560"),
			wall(1200, 80, 1200, 640, "#e94560"),
			wall(1200, 640, 80, 640, "#e94560"),
			wall(80, 640, 80, 80, "#e94560"),

			// Partition crossing the room; the room walls split it.
			wall(640, 40, 640, 420, "#53d769"),

			// Free-standing screen, clockwise so it faces away from the partition.
			wall(300, 300, 300, 500, "#0f3460"),
			wall(300, 500, 460, 500, "#0f3460"),
			wall(460, 500, 460, 300, "#0f3460"),

			// Diagonal display wall that the partition crosses.
			wall(520, 200, 900, 360, "#f5a623"),

			// Pillar.
			wall(900, 480, 980, 480, "#bd10e0"),
			wall(980, 480, 980, 560, "#bd10e0"),
			wall(980, 560, 900, 560, "#bd10e0"),
			wall(900, 560, 900, 480, "#bd10e0"),
		},
		Camera: Camera{
			Length: 96,
			FPS:    24,
			Keys: []EyeKey{
				{Frame: 0, X: 160, Y: 160, Easing: EasingEaseInOut},
				{Frame: 32, X: 1120, Y: 160, Easing: EasingEaseInOut},
				{Frame: 64, X: 1120, Y: 600, Easing: EasingCubicInOut},
				{Frame: 95, X: 160, Y: 600, Easing: EasingLinear},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
