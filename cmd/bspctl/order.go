package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inamate/bspview/internal/bsp"
	"github.com/inamate/bspview/internal/engine"
)

func newOrderCmd() *cobra.Command {
	var (
		so     sceneOpts
		eo     eyeOpts
		format string
	)

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the segments in painter's order from an eye point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := bsp.ParseOrder(eo.order)
			if err != nil {
				return err
			}
			ix, err := so.index()
			if err != nil {
				return err
			}
			segs := ix.Order(bsp.Point{X: eo.x, Y: eo.y}, order)

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				for i, s := range segs {
					fmt.Fprintf(out, "%d\t%s\t%s\n", i, engine.TagOf(s).SegmentID, s)
				}
			case "geojson":
				data, err := engine.OrderToGeoJSON(segs)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "commands":
				data, err := engine.DrawCommandsToJSON(engine.CompileDrawCommands(segs, engine.Identity()))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, data)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return nil
		},
	}

	addSceneFlags(cmd, &so)
	addEyeFlags(cmd, &eo)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, geojson or commands.")
	return cmd
}
