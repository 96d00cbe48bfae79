// Package catalog serves stored scenes and the queries over their trees.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/cache"
	"github.com/inamate/bspview/internal/engine"
	"github.com/inamate/bspview/internal/metrics"
	"github.com/inamate/bspview/internal/render"
	"github.com/inamate/bspview/internal/scene"
	"github.com/inamate/bspview/internal/store"
	"github.com/inamate/bspview/internal/typeid"
)

var (
	ErrNotFound         = store.ErrNotFound
	ErrVersionConflict  = store.ErrVersionConflict
	ErrTooManySegments  = errors.New("too many segments")
	ErrInvalidScene     = scene.ErrInvalidScene
	ErrInvalidViewport  = errors.New("invalid viewport")
	ErrInvalidTolerance = errors.New("tolerance must not be negative")
)

const (
	previewMargin  = 20
	maxPreviewSide = 4096
)

type Service struct {
	store       store.Store
	trees       *cache.TreeCache
	maxSegments int
	tracer      trace.Tracer
}

// NewService creates a catalog over st. trees may be nil, in which case
// every query rebuilds its index.
func NewService(st store.Store, trees *cache.TreeCache, maxSegments int) *Service {
	return &Service{
		store:       st,
		trees:       trees,
		maxSegments: maxSegments,
		tracer:      otel.Tracer("bspview/catalog"),
	}
}

// Ordered is the answer to an eye query.
type Ordered struct {
	SceneID  string
	Version  int
	Eye      bsp.Point
	Order    bsp.Order
	Segments []bsp.Segment
}

// TreeInfo describes a scene's built tree.
type TreeInfo struct {
	SceneID string      `json:"sceneId"`
	Version int         `json:"version"`
	Stats   bsp.Stats   `json:"stats"`
	Bounds  engine.Rect `json:"bounds"`
	Listing string      `json:"listing"`
}

// Create stores a new scene. Missing scene and segment ids are generated.
func (s *Service) Create(ctx context.Context, in *scene.Scene) (*scene.Scene, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Create")
	defer span.End()

	sc := in.Clone()
	if sc.ID == "" {
		sc.ID = typeid.NewSceneID()
	}
	assignSegmentIDs(sc)
	span.SetAttributes(attribute.String("scene_id", sc.ID), attribute.Int("segments", len(sc.Segments)))

	if err := s.check(sc); err != nil {
		return nil, fail(span, err)
	}

	created, err := s.store.Create(ctx, sc)
	if err != nil {
		return nil, fail(span, fmt.Errorf("create scene: %w", err))
	}
	return created, nil
}

// Import creates a scene from a GeoJSON document.
func (s *Service) Import(ctx context.Context, name string, data []byte) (*scene.Scene, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Import")
	defer span.End()

	sc, err := scene.FromGeoJSON(typeid.NewSceneID(), name, data)
	if err != nil {
		return nil, fail(span, err)
	}
	return s.Create(ctx, sc)
}

func (s *Service) Get(ctx context.Context, id string) (*scene.Scene, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Get", trace.WithAttributes(attribute.String("scene_id", id)))
	defer span.End()

	sc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return sc, nil
}

func (s *Service) List(ctx context.Context) ([]store.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.List")
	defer span.End()

	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	return list, nil
}

// Replace stores a new version of a scene. expected is the version the
// caller edited; zero skips the check.
func (s *Service) Replace(ctx context.Context, id string, in *scene.Scene, expected int) (*scene.Scene, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Replace", trace.WithAttributes(
		attribute.String("scene_id", id),
		attribute.Int("expected_version", expected),
	))
	defer span.End()

	sc := in.Clone()
	sc.ID = id
	assignSegmentIDs(sc)
	if err := s.check(sc); err != nil {
		return nil, fail(span, err)
	}

	put, err := s.store.Put(ctx, sc, expected)
	if err != nil {
		return nil, fail(span, err)
	}
	if s.trees != nil {
		s.trees.Del(id)
	}
	return put, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.Delete", trace.WithAttributes(attribute.String("scene_id", id)))
	defer span.End()

	if err := s.store.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	if s.trees != nil {
		s.trees.Del(id)
	}
	return nil
}

// Index returns the built index for the scene's current version, building it
// when the cache has none.
func (s *Service) Index(ctx context.Context, id string) (*engine.Index, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Index", trace.WithAttributes(attribute.String("scene_id", id)))
	defer span.End()

	sc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	if s.trees != nil {
		if ix, ok := s.trees.Get(id, sc.Version); ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return ix, nil
		}
	}

	start := time.Now()
	ix, err := engine.BuildIndex(sc)
	if err != nil {
		return nil, fail(span, err)
	}
	elapsed := time.Since(start)

	stats := ix.Tree.Stats()
	metrics.BuildDuration.Observe(elapsed.Seconds())
	metrics.BuildFragments.Observe(float64(stats.Segments))
	span.SetAttributes(
		attribute.Bool("cache_hit", false),
		attribute.Int("fragments", stats.Segments),
		attribute.Int("splits", stats.Splits),
	)
	slog.Debug("scene index built",
		"scene", id,
		"version", sc.Version,
		"fragments", stats.Segments,
		"duration", elapsed,
	)

	if s.trees != nil {
		s.trees.Set(ix)
	}
	return ix, nil
}

// Order returns the scene's segments as seen from eye.
func (s *Service) Order(ctx context.Context, id string, eye bsp.Point, order bsp.Order) (*Ordered, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Order", trace.WithAttributes(
		attribute.String("scene_id", id),
		attribute.String("order", order.String()),
	))
	defer span.End()

	ix, err := s.Index(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	start := time.Now()
	segs := ix.Order(eye, order)
	metrics.QueryDuration.WithLabelValues(order.String()).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("segments", len(segs)))

	return &Ordered{
		SceneID:  ix.SceneID,
		Version:  ix.Version,
		Eye:      eye,
		Order:    order,
		Segments: segs,
	}, nil
}

// Listing returns the tree's statistics and debug listing.
func (s *Service) Listing(ctx context.Context, id string) (*TreeInfo, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Listing", trace.WithAttributes(attribute.String("scene_id", id)))
	defer span.End()

	ix, err := s.Index(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return &TreeInfo{
		SceneID: ix.SceneID,
		Version: ix.Version,
		Stats:   ix.Tree.Stats(),
		Bounds:  ix.Bounds,
		Listing: ix.Tree.String(),
	}, nil
}

// Preview renders the scene from eye as a PNG of the given size.
func (s *Service) Preview(ctx context.Context, id string, eye bsp.Point, width, height int) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Preview", trace.WithAttributes(
		attribute.String("scene_id", id),
		attribute.Int("width", width),
		attribute.Int("height", height),
	))
	defer span.End()

	if width <= 0 || height <= 0 || width > maxPreviewSide || height > maxPreviewSide {
		return nil, fail(span, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height))
	}

	ix, err := s.Index(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	view := engine.FitViewport(ix.Bounds, width, height, previewMargin)
	cmds := engine.CompileDrawCommands(ix.Order(eye, bsp.BackToFront), view)

	var buf bytes.Buffer
	err = render.PNG(&buf, cmds, render.Options{
		Width:      width,
		Height:     height,
		Background: ix.Background,
		Eye:        &eye,
		View:       view,
	})
	if err != nil {
		return nil, fail(span, fmt.Errorf("render preview: %w", err))
	}
	return buf.Bytes(), nil
}

// Pick returns the id of the segment nearest the eye within tolerance of the
// world point (x, y), or "".
func (s *Service) Pick(ctx context.Context, id string, eye bsp.Point, x, y, tolerance float64) (string, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Pick", trace.WithAttributes(attribute.String("scene_id", id)))
	defer span.End()

	if tolerance < 0 {
		return "", fail(span, ErrInvalidTolerance)
	}

	ix, err := s.Index(ctx, id)
	if err != nil {
		return "", fail(span, err)
	}
	return engine.HitTest(ix, eye, x, y, tolerance), nil
}

func (s *Service) check(sc *scene.Scene) error {
	if len(sc.Segments) > s.maxSegments {
		return fmt.Errorf("%w: %d > %d", ErrTooManySegments, len(sc.Segments), s.maxSegments)
	}
	return sc.Validate()
}

func assignSegmentIDs(sc *scene.Scene) {
	for i := range sc.Segments {
		if sc.Segments[i].ID == "" {
			sc.Segments[i].ID = typeid.NewSegmentID()
		}
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
