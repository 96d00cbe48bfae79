package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inamate/bspview/internal/auth"
	"github.com/inamate/bspview/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		name    string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a token for the server",
		Long: `Token signs a token with the server's JWT_SECRET and TOKEN_TTL, read from
the environment the same way the server reads them. Editor tokens unlock the
write routes and websocket edits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}

			svc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
			token, err := svc.IssueToken(auth.Identity{Subject: subject, Name: name, Role: r})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&subject, "subject", "", "Token subject.")
	flags.StringVar(&name, "name", "", "Display name shown to other viewers.")
	flags.StringVar(&role, "role", string(auth.RoleEditor), "Role: viewer or editor.")
	cmd.MarkFlagRequired("subject")
	return cmd
}
