package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/engine"
	"github.com/inamate/bspview/internal/scene"
)

type sceneOpts struct {
	path   string
	sample bool
}

type eyeOpts struct {
	x, y  float64
	order string
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "bspctl",
		Short: "Query BSP scenes from the command line",
		Long: `
bspctl builds the BSP tree of a scene file and answers questions about it:
the painter's order from an eye point, the shape of the tree, a rendered
preview, and signed tokens for the server's edit routes.

Scenes are read from JSON scene files or, for files ending in .geojson,
from GeoJSON line work.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				bsp.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log tree construction to stderr.")

	root.AddCommand(newOrderCmd(), newTreeCmd(), newRenderCmd(), newTokenCmd())
	return root
}

func addSceneFlags(cmd *cobra.Command, o *sceneOpts) {
	flags := cmd.Flags()
	flags.StringVarP(&o.path, "scene", "s", "", "Scene file, .json or .geojson.")
	flags.BoolVar(&o.sample, "sample", false, "Use the built-in sample scene.")
}

func addEyeFlags(cmd *cobra.Command, o *eyeOpts) {
	flags := cmd.Flags()
	flags.Float64VarP(&o.x, "x", "x", 0, "Eye x in world coordinates.")
	flags.Float64VarP(&o.y, "y", "y", 0, "Eye y in world coordinates.")
	flags.StringVarP(&o.order, "order", "o", "back-to-front", "Traversal order: back-to-front or front-to-back.")
}

func (o *sceneOpts) load() (*scene.Scene, error) {
	if o.sample {
		return scene.NewSampleScene("scene_sample"), nil
	}
	if o.path == "" {
		return nil, fmt.Errorf("one of --scene or --sample is required")
	}

	data, err := os.ReadFile(o.path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(o.path), filepath.Ext(o.path))
	if strings.EqualFold(filepath.Ext(o.path), ".geojson") {
		return scene.FromGeoJSON("scene_"+name, name, data)
	}

	var s scene.Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", o.path, err)
	}
	if s.ID == "" {
		s.ID = "scene_" + name
	}
	return &s, nil
}

func (o *sceneOpts) index() (*engine.Index, error) {
	s, err := o.load()
	if err != nil {
		return nil, err
	}
	return engine.BuildIndex(s)
}
