//go:build js && wasm

package main

import (
	"log/slog"
	"syscall/js"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/engine"
)

var eng *engine.Engine

func main() {
	bsp.SetLogger(slog.Default())
	eng = engine.NewEngine()

	// Create the engine API object
	bspEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	bspEngine.Set("loadScene", js.FuncOf(loadScene))
	bspEngine.Set("updateScene", js.FuncOf(updateScene))
	bspEngine.Set("loadSampleScene", js.FuncOf(loadSampleScene))
	bspEngine.Set("setEye", js.FuncOf(setEye))
	bspEngine.Set("setOrder", js.FuncOf(setOrder))
	bspEngine.Set("setViewport", js.FuncOf(setViewport))
	bspEngine.Set("setPlayhead", js.FuncOf(setPlayhead))
	bspEngine.Set("play", js.FuncOf(play))
	bspEngine.Set("pause", js.FuncOf(pause))
	bspEngine.Set("togglePlay", js.FuncOf(togglePlay))
	bspEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← backend) ---
	bspEngine.Set("render", js.FuncOf(render))
	bspEngine.Set("hitTest", js.FuncOf(hitTest))
	bspEngine.Set("getScene", js.FuncOf(getScene))
	bspEngine.Set("getPlaybackState", js.FuncOf(getPlaybackState))
	bspEngine.Set("getListing", js.FuncOf(getListing))
	bspEngine.Set("getStats", js.FuncOf(getStats))
	bspEngine.Set("getBounds", js.FuncOf(getBounds))
	bspEngine.Set("getFrame", js.FuncOf(getFrame))
	bspEngine.Set("isPlaying", js.FuncOf(isPlaying))
	bspEngine.Set("getFPS", js.FuncOf(getFPS))
	bspEngine.Set("getTotalFrames", js.FuncOf(getTotalFrames))

	// Register on global scope
	js.Global().Set("bspEngine", bspEngine)

	// Signal that WASM is ready
	js.Global().Set("bspWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

func loadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing scene JSON"})
	}

	if err := eng.LoadScene(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func updateScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing scene JSON"})
	}

	if err := eng.UpdateScene(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleScene(this js.Value, args []js.Value) interface{} {
	sceneID := "scene_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		sceneID = args[0].String()
	}

	eng.LoadSampleScene(sceneID)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setEye(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetEye(args[0].Float(), args[1].Float())
	return nil
}

func setOrder(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	if err := eng.SetOrder(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setViewport(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetViewport(args[0].Int(), args[1].Int())
	return nil
}

func setPlayhead(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetPlayhead(args[0].Int())
	return nil
}

func play(this js.Value, args []js.Value) interface{} {
	eng.Play()
	return nil
}

func pause(this js.Value, args []js.Value) interface{} {
	eng.Pause()
	return nil
}

func togglePlay(this js.Value, args []js.Value) interface{} {
	eng.TogglePlay()
	return nil
}

func tick(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Tick())
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	tolerance := 4.0
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		tolerance = args[2].Float()
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float(), tolerance))
}

func getScene(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetScene())
}

func getPlaybackState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetPlaybackState())
}

func getListing(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetListing())
}

func getStats(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetStats())
}

func getBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetBounds())
}

func getFrame(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetFrame())
}

func isPlaying(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.IsPlaying())
}

func getFPS(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetFPS())
}

func getTotalFrames(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetTotalFrames())
}
