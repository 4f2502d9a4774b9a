package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/fwojciec/ragchat"
	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models grouped by provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()
			catalog, err := a.client.ListModels(ctx)
			if err != nil {
				return err
			}
			groups := catalog.ByProvider()
			providers := make([]string, 0, len(groups))
			for p := range groups {
				providers = append(providers, p)
			}
			sort.Strings(providers)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, p := range providers {
				if i > 0 {
					fmt.Fprintln(tw)
				}
				fmt.Fprintf(tw, "%s\n", p)
				for _, m := range groups[p] {
					marker := " "
					if m.Key == catalog.Default {
						marker = "*"
					}
					key := ""
					if m.RequiresAPIKey {
						key = "api key"
					}
					fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n", marker, m.Key, m.DisplayName, ragchat.FormatContextLength(m.ContextLength), key)
				}
			}
			return tw.Flush()
		},
	}
}

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List model providers and their availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()
			providers, err := a.client.ListProviders(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range providers {
				status := "available"
				if !p.Available {
					status = "unavailable"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Key, status, p.Description)
			}
			return tw.Flush()
		},
	}
}
