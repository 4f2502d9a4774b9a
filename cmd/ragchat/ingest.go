package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <url>",
		Short: "Fetch, chunk and index a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.ParseRequestURI(args[0])
			if err != nil || u.Host == "" {
				return fmt.Errorf("invalid url %q", args[0])
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()
			res, err := a.client.Ingest(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Message)
			fmt.Fprintf(out, "context:    %s\n", res.ContextID)
			fmt.Fprintf(out, "characters: %d\n", res.TextLength)
			fmt.Fprintf(out, "chunks:     %d\n", res.InsertCount)
			fmt.Fprintf(out, "dimension:  %d\n", res.VectorDim)
			return nil
		},
	}
}
