package main

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

func newContextsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "Manage ingested document sources",
	}
	cmd.AddCommand(newContextsListCmd(a), newContextsDeleteCmd(a))
	return cmd
}

func newContextsListCmd(a *app) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if match != "" && !doublestar.ValidatePattern(match) {
				return fmt.Errorf("invalid --match pattern %q", match)
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()
			ids, err := a.client.ListContexts(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			n := 0
			for _, id := range ids {
				if match != "" {
					// Pattern is validated above, so Match cannot fail.
					if ok, _ := doublestar.Match(match, id); !ok {
						continue
					}
				}
				marker := "  "
				if id == a.cfg.Chat.Context {
					marker = "* "
				}
				fmt.Fprintln(out, marker+id)
				n++
			}
			if n == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no contexts found")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "only list sources matching this glob, e.g. 'https://*.example.com/**'")
	return cmd
}

func newContextsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete ingested sources and their vectors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				ctx, cancel := a.withTimeout(cmd.Context())
				err := a.client.DeleteContext(ctx, id)
				cancel()
				if err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}
}
