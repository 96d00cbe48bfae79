package scene

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/inamate/bspview/internal/typeid"
)

type geoJSONHead struct {
	Type string `json:"type"`
}

type geoJSONFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type geoJSONCollection struct {
	Features []geoJSONFeature `json:"features"`
}

// FromGeoJSON builds a scene from a FeatureCollection, a single Feature or a
// bare geometry. Every line string and polygon ring becomes a run of
// consecutive segments in document order. Feature properties "stroke" and
// "stroke-width" style the segments they produce.
func FromGeoJSON(sceneID, name string, data []byte) (*Scene, error) {
	var head geoJSONHead
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: decode geojson: %v", ErrInvalidScene, err)
	}

	var features []geoJSONFeature
	switch head.Type {
	case "FeatureCollection":
		var fc geoJSONCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("%w: decode feature collection: %v", ErrInvalidScene, err)
		}
		features = fc.Features
	case "Feature":
		var f geoJSONFeature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: decode feature: %v", ErrInvalidScene, err)
		}
		features = []geoJSONFeature{f}
	default:
		features = []geoJSONFeature{{Geometry: data}}
	}

	s := NewEmptyScene(sceneID, name)
	for i, f := range features {
		if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
			continue
		}
		var g geom.T
		if err := geojson.Unmarshal(f.Geometry, &g); err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", ErrInvalidScene, i, err)
		}

		style := Segment{StrokeWidth: 2}
		if v, ok := f.Properties["stroke"].(string); ok {
			style.Stroke = v
		}
		if v, ok := f.Properties["stroke-width"].(float64); ok {
			style.StrokeWidth = v
		}

		runs, err := coordRuns(g)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", ErrInvalidScene, i, err)
		}
		for _, run := range runs {
			s.Segments = appendRun(s.Segments, run, style)
		}
	}

	if len(s.Segments) == 0 {
		return nil, fmt.Errorf("%w: geojson contains no line work", ErrInvalidScene)
	}
	fitBounds(s)
	return s, nil
}

// coordRuns flattens a geometry into polylines. Polygon rings are already
// closed by GeoJSON so they need no extra closing segment.
func coordRuns(g geom.T) ([][]geom.Coord, error) {
	switch g := g.(type) {
	case *geom.LineString:
		return [][]geom.Coord{g.Coords()}, nil
	case *geom.MultiLineString:
		return g.Coords(), nil
	case *geom.Polygon:
		return g.Coords(), nil
	case *geom.MultiPolygon:
		var runs [][]geom.Coord
		for _, rings := range g.Coords() {
			runs = append(runs, rings...)
		}
		return runs, nil
	case *geom.GeometryCollection:
		var runs [][]geom.Coord
		for _, child := range g.Geoms() {
			sub, err := coordRuns(child)
			if err != nil {
				return nil, err
			}
			runs = append(runs, sub...)
		}
		return runs, nil
	default:
		return nil, fmt.Errorf("unsupported geometry %T", g)
	}
}

// appendRun adds one segment per consecutive pair of distinct coordinates.
func appendRun(segs []Segment, run []geom.Coord, style Segment) []Segment {
	for i := 1; i < len(run); i++ {
		a, b := run[i-1], run[i]
		start := Point{X: a[0], Y: a[1]}
		end := Point{X: b[0], Y: b[1]}
		if start == end {
			continue
		}
		segs = append(segs, Segment{
			ID:          typeid.NewSegmentID(),
			Start:       start,
			End:         end,
			Stroke:      style.Stroke,
			StrokeWidth: style.StrokeWidth,
		})
	}
	return segs
}

// fitBounds sizes the scene to the extent of its segments.
func fitBounds(s *Scene) {
	b := geom.NewBounds(geom.XY)
	for _, seg := range s.Segments {
		b.Extend(geom.NewPointFlat(geom.XY, []float64{seg.Start.X, seg.Start.Y}))
		b.Extend(geom.NewPointFlat(geom.XY, []float64{seg.End.X, seg.End.Y}))
	}
	w := b.Max(0) - b.Min(0)
	h := b.Max(1) - b.Min(1)
	if w >= 1 {
		s.Width = int(w + 0.5)
	}
	if h >= 1 {
		s.Height = int(h + 0.5)
	}
}
