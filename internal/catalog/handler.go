package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/engine"
	"github.com/inamate/bspview/internal/scene"
	"github.com/inamate/bspview/internal/store"
)

const (
	maxBodyBytes   = 16 << 20
	defaultPreview = 640
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the scene routes on r. Routes that change scenes are
// wrapped with guard.
func (h *Handler) Register(r *mux.Router, guard mux.MiddlewareFunc) {
	r.HandleFunc("/api/scenes", h.List).Methods("GET")
	r.HandleFunc("/api/scenes/{sceneId}", h.Get).Methods("GET")
	r.HandleFunc("/api/scenes/{sceneId}/order", h.Order).Methods("GET")
	r.HandleFunc("/api/scenes/{sceneId}/tree", h.Tree).Methods("GET")
	r.HandleFunc("/api/scenes/{sceneId}/preview.png", h.Preview).Methods("GET")
	r.HandleFunc("/api/scenes/{sceneId}/pick", h.Pick).Methods("GET")

	// OPTIONS lets CORS preflights reach the router middleware.
	r.Handle("/api/scenes", guard(http.HandlerFunc(h.Create))).Methods("POST", "OPTIONS")
	r.Handle("/api/scenes/import", guard(http.HandlerFunc(h.Import))).Methods("POST", "OPTIONS")
	r.Handle("/api/scenes/{sceneId}", guard(http.HandlerFunc(h.Replace))).Methods("PUT", "OPTIONS")
	r.Handle("/api/scenes/{sceneId}", guard(http.HandlerFunc(h.Delete))).Methods("DELETE")
}

type orderedSegment struct {
	SegmentID   string      `json:"segmentId"`
	Start       scene.Point `json:"start"`
	End         scene.Point `json:"end"`
	Stroke      string      `json:"stroke,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
}

type orderResponse struct {
	SceneID  string           `json:"sceneId"`
	Version  int              `json:"version"`
	Eye      scene.Point      `json:"eye"`
	Order    string           `json:"order"`
	Segments []orderedSegment `json:"segments"`
}

type pickResponse struct {
	SegmentID string `json:"segmentId"`
	Hit       bool   `json:"hit"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scenes, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]

	sc, err := h.service.Get(r.Context(), sceneID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req scene.Scene
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	sc, err := h.service.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sc, err := h.service.Import(r.Context(), name, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// Replace takes the edited scene; its version field is the version the edit
// was based on.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]

	var req scene.Scene
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	sc, err := h.service.Replace(r.Context(), sceneID, &req, req.Version)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]

	if err := h.service.Delete(r.Context(), sceneID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]
	q := r.URL.Query()

	eye, err := pointParam(q.Get("x"), q.Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	order, err := bsp.ParseOrder(q.Get("order"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	format := q.Get("format")
	if format != "" && format != "json" && format != "geojson" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown format %q", format)})
		return
	}

	res, err := h.service.Order(r.Context(), sceneID, eye, order)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if format == "geojson" {
		data, err := engine.OrderToGeoJSON(res.Segments)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	out := orderResponse{
		SceneID:  res.SceneID,
		Version:  res.Version,
		Eye:      scene.Point{X: eye.X, Y: eye.Y},
		Order:    res.Order.String(),
		Segments: make([]orderedSegment, len(res.Segments)),
	}
	for i, s := range res.Segments {
		tag := engine.TagOf(s)
		out.Segments[i] = orderedSegment{
			SegmentID:   tag.SegmentID,
			Start:       scene.Point{X: s.Start.X, Y: s.Start.Y},
			End:         scene.Point{X: s.End.X, Y: s.End.Y},
			Stroke:      tag.Stroke,
			StrokeWidth: tag.StrokeWidth,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]

	info, err := h.service.Listing(r.Context(), sceneID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]
	q := r.URL.Query()

	eye, err := pointParam(q.Get("x"), q.Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	width, err := intParam(q.Get("w"), defaultPreview)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid w"})
		return
	}
	height, err := intParam(q.Get("h"), defaultPreview)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid h"})
		return
	}

	data, err := h.service.Preview(r.Context(), sceneID, eye, width, height)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) Pick(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]
	q := r.URL.Query()

	eye, err := pointParam(q.Get("ex"), q.Get("ey"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid eye: " + err.Error()})
		return
	}
	at, err := pointParam(q.Get("x"), q.Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	tol := 1.0
	if v := q.Get("tol"); v != "" {
		if tol, err = strconv.ParseFloat(v, 64); err != nil || !finite(tol) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tol"})
			return
		}
	}

	id, err := h.service.Pick(r.Context(), sceneID, eye, at.X, at.Y, tol)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pickResponse{SegmentID: id, Hit: id != ""})
}

func pointParam(xs, ys string) (bsp.Point, error) {
	if xs == "" || ys == "" {
		return bsp.Point{}, errors.New("x and y are required")
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return bsp.Point{}, fmt.Errorf("invalid x %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return bsp.Point{}, fmt.Errorf("invalid y %q", ys)
	}
	if !finite(x) || !finite(y) {
		return bsp.Point{}, fmt.Errorf("point (%s, %s) is not finite", xs, ys)
	}
	return bsp.Point{X: x, Y: y}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrVersionConflict), errors.Is(err, store.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrTooManySegments):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidScene), errors.Is(err, ErrInvalidViewport), errors.Is(err, ErrInvalidTolerance):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}
