package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newTreeCmd() *cobra.Command {
	var (
		so        sceneOpts
		statsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the BSP tree listing and statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := so.index()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stats, err := json.Marshal(ix.Tree.Stats())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(stats))
			if !statsOnly {
				fmt.Fprint(out, ix.Tree.String())
			}
			return nil
		},
	}

	addSceneFlags(cmd, &so)
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "Print only the statistics.")
	return cmd
}
