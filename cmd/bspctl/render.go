package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/engine"
	"github.com/inamate/bspview/internal/render"
)

func newRenderCmd() *cobra.Command {
	var (
		so            sceneOpts
		eo            eyeOpts
		width, height int
		output        string
		background    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the scene from an eye point to a PNG file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("--out is required")
			}
			s, err := so.load()
			if err != nil {
				return err
			}
			ix, err := engine.BuildIndex(s)
			if err != nil {
				return err
			}

			if background == "" {
				background = s.Background
			}
			eye := bsp.Point{X: eo.x, Y: eo.y}
			view := engine.FitViewport(ix.Bounds, width, height, 20)
			cmds := engine.CompileDrawCommands(ix.Order(eye, bsp.BackToFront), view)

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			err = render.PNG(f, cmds, render.Options{
				Width:      width,
				Height:     height,
				Background: background,
				Eye:        &eye,
				View:       view,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d segments)\n", output, len(cmds))
			return f.Close()
		},
	}

	addSceneFlags(cmd, &so)
	addEyeFlags(cmd, &eo)
	flags := cmd.Flags()
	flags.IntVarP(&width, "width", "W", 800, "Image width in pixels.")
	flags.IntVarP(&height, "height", "H", 600, "Image height in pixels.")
	flags.StringVar(&output, "out", "", "Output PNG path.")
	flags.StringVar(&background, "background", "", "Background color, defaults to the scene's.")
	return cmd
}
