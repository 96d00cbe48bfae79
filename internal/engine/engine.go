package engine

import (
	"encoding/json"
	"math"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/scene"
)

const viewportMargin = 20

// Engine owns one scene, its index and the viewer state around it. It
// processes commands from the frontend and returns query results. An Engine
// is driven from a single goroutine.
type Engine struct {
	// Scene state
	scene *scene.Scene

	// Retained index, rebuilt when dirty
	index *Index
	err   error

	// Viewer state
	eye    bsp.Point
	order  bsp.Order
	width  int
	height int

	// Playback state
	frame       int
	playing     bool
	fps         int
	totalFrames int

	// Dirty flag - index needs rebuild
	dirty bool
}

// NewEngine creates a new engine instance.
func NewEngine() *Engine {
	return &Engine{
		fps:         24,
		totalFrames: 1,
		dirty:       true,
	}
}

// --- Commands (frontend → backend) ---

// LoadScene loads a scene from JSON and resets the viewer.
func (e *Engine) LoadScene(jsonData string) error {
	var s scene.Scene
	if err := json.Unmarshal([]byte(jsonData), &s); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	e.setScene(&s)
	e.frame = 0
	e.playing = false
	return nil
}

// UpdateScene replaces the scene while preserving playback and eye.
func (e *Engine) UpdateScene(jsonData string) error {
	var s scene.Scene
	if err := json.Unmarshal([]byte(jsonData), &s); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	e.setScene(&s)

	// Clamp frame to valid range (but don't reset it)
	if e.frame >= e.totalFrames {
		e.frame = e.totalFrames - 1
	}
	return nil
}

// LoadSampleScene loads the built-in sample scene.
func (e *Engine) LoadSampleScene(sceneID string) {
	e.setScene(scene.NewSampleScene(sceneID))
	e.frame = 0
	e.playing = false
}

func (e *Engine) setScene(s *scene.Scene) {
	e.scene = s
	e.fps = s.Camera.FPS
	if e.fps <= 0 {
		e.fps = 24
	}
	e.totalFrames = s.Camera.Length
	if e.totalFrames <= 0 {
		e.totalFrames = 1
	}
	if e.width == 0 || e.height == 0 {
		e.width, e.height = s.Width, s.Height
	}
	if eye, ok := WorldEyeAt(s, 0); ok {
		e.eye = eye
	}
	e.dirty = true
}

// SetEye moves the eye. While playing, the camera overrides it on the next
// tick.
func (e *Engine) SetEye(x, y float64) {
	e.eye = bsp.Point{X: x, Y: y}
}

// SetOrder selects the traversal order by name.
func (e *Engine) SetOrder(name string) error {
	o, err := bsp.ParseOrder(name)
	if err != nil {
		return err
	}
	e.order = o
	return nil
}

// SetViewport sets the output size in pixels.
func (e *Engine) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		e.width, e.height = width, height
	}
}

// SetPlayhead sets the current frame and moves the eye to it.
func (e *Engine) SetPlayhead(frame int) {
	if frame < 0 {
		frame = 0
	}
	if frame >= e.totalFrames {
		frame = e.totalFrames - 1
	}
	e.frame = frame
	e.followCamera()
}

// Play starts playback.
func (e *Engine) Play() {
	e.playing = true
}

// Pause stops playback.
func (e *Engine) Pause() {
	e.playing = false
}

// TogglePlay toggles play/pause state.
func (e *Engine) TogglePlay() {
	e.playing = !e.playing
}

// Tick advances the frame if playing and returns draw commands.
// This is called once per animation frame from the frontend.
func (e *Engine) Tick() string {
	if e.playing {
		e.frame = (e.frame + 1) % e.totalFrames
		e.followCamera()
	}
	return e.Render()
}

func (e *Engine) followCamera() {
	if e.scene == nil {
		return
	}
	if eye, ok := WorldEyeAt(e.scene, e.frame); ok {
		e.eye = eye
	}
}

// --- Queries (frontend ← backend) ---

func (e *Engine) ensureIndex() *Index {
	if e.scene == nil {
		return nil
	}
	if e.dirty {
		e.index, e.err = BuildIndex(e.scene)
		e.dirty = false
	}
	return e.index
}

// View returns the matrix from world space to the viewport.
func (e *Engine) View() Matrix2D {
	ix := e.ensureIndex()
	if ix == nil {
		return Identity()
	}
	return FitViewport(ix.Bounds, e.width, e.height, viewportMargin)
}

// Commands returns the draw commands for the current eye and order.
func (e *Engine) Commands() []DrawCommand {
	ix := e.ensureIndex()
	if ix == nil {
		return nil
	}
	return CompileDrawCommands(ix.Order(e.eye, e.order), e.View())
}

// Render returns the draw commands for the current eye as JSON.
func (e *Engine) Render() string {
	result, _ := DrawCommandsToJSON(e.Commands())
	return result
}

// HitTest takes viewport coordinates and returns the id of the topmost
// segment within tolerance pixels, or "".
func (e *Engine) HitTest(x, y, tolerance float64) string {
	ix := e.ensureIndex()
	if ix == nil {
		return ""
	}
	view := e.View()
	wx, wy := view.Invert().TransformPoint(x, y)
	if det := math.Abs(view.Determinant()); det > 0 {
		tolerance /= math.Sqrt(det)
	}
	return HitTest(ix, e.eye, wx, wy, tolerance)
}

// Err returns the error of the last index build, if any.
func (e *Engine) Err() error {
	e.ensureIndex()
	return e.err
}

// GetScene returns the current scene as JSON.
func (e *Engine) GetScene() string {
	if e.scene == nil {
		return "{}"
	}
	data, _ := json.Marshal(e.scene)
	return string(data)
}

// GetPlaybackState returns the current playback state as JSON.
func (e *Engine) GetPlaybackState() string {
	data, _ := json.Marshal(map[string]interface{}{
		"frame":       e.frame,
		"playing":     e.playing,
		"fps":         e.fps,
		"totalFrames": e.totalFrames,
		"eye":         map[string]float64{"x": e.eye.X, "y": e.eye.Y},
		"order":       e.order.String(),
	})
	return string(data)
}

// GetListing returns the debug listing of the tree.
func (e *Engine) GetListing() string {
	ix := e.ensureIndex()
	if ix == nil {
		return ""
	}
	return ix.Tree.String()
}

// GetStats returns the tree statistics as JSON.
func (e *Engine) GetStats() string {
	ix := e.ensureIndex()
	if ix == nil {
		return "{}"
	}
	data, _ := json.Marshal(ix.Tree.Stats())
	return string(data)
}

// GetBounds returns the world bounds of the scene as JSON.
func (e *Engine) GetBounds() string {
	ix := e.ensureIndex()
	if ix == nil {
		return RectToJSON(Rect{})
	}
	return RectToJSON(ix.Bounds)
}

// Eye returns the current eye position.
func (e *Engine) Eye() bsp.Point {
	return e.eye
}

// GetFrame returns the current frame number.
func (e *Engine) GetFrame() int {
	return e.frame
}

// IsPlaying returns whether playback is active.
func (e *Engine) IsPlaying() bool {
	return e.playing
}

// GetFPS returns the frames per second.
func (e *Engine) GetFPS() int {
	return e.fps
}

// GetTotalFrames returns the total number of frames.
func (e *Engine) GetTotalFrames() int {
	return e.totalFrames
}
