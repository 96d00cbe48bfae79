package engine

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/inamate/bspview/internal/bsp"
)

// OrderToGeoJSON encodes ordered segments as a FeatureCollection of
// LineStrings. Each feature records its position in the order and the scene
// segment it came from.
func OrderToGeoJSON(segs []bsp.Segment) ([]byte, error) {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(segs)),
	}
	for i, s := range segs {
		ls, err := geom.NewLineString(geom.XY).SetCoords([]geom.Coord{
			{s.Start.X, s.Start.Y},
			{s.End.X, s.End.Y},
		})
		if err != nil {
			return nil, fmt.Errorf("encode segment %d: %w", i, err)
		}

		tag := TagOf(s)
		props := map[string]interface{}{
			"order":     i,
			"segmentId": tag.SegmentID,
		}
		if tag.Stroke != "" {
			props["stroke"] = tag.Stroke
		}
		if tag.StrokeWidth > 0 {
			props["stroke-width"] = tag.StrokeWidth
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   ls,
			Properties: props,
		})
	}
	return json.Marshal(fc)
}
