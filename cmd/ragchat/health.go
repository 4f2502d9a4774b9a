package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()
			if err := a.client.Health(ctx); err != nil {
				return fmt.Errorf("%s: %w", a.cfg.Server.BaseURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", a.cfg.Server.BaseURL)
			return nil
		},
	}
}
