package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/chat"
	"github.com/fwojciec/ragchat/term"
	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		timeout  time.Duration
		noStream bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Long: `Ask one question against the active context and stream the answer to
stdout, followed by its sources. Failures are printed to stderr.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			query := strings.Join(args, " ")
			if noStream {
				return a.askOnce(ctx, cmd.OutOrStdout(), query)
			}
			return a.askStream(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), query)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the answer after this long (0 = none)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "use the non-streaming endpoint")
	return cmd
}

// answerPrinter writes the open assistant turn's new content as snapshots
// arrive.
type answerPrinter struct {
	out     io.Writer
	printed int
	last    ragchat.Turn
}

func (p *answerPrinter) observe(c ragchat.Conversation) {
	if len(c.Turns) == 0 {
		return
	}
	t := c.Turns[len(c.Turns)-1]
	if t.Role != ragchat.RoleAssistant {
		return
	}
	text := term.Clean(t.Content)
	if len(text) > p.printed {
		fmt.Fprint(p.out, text[p.printed:])
		p.printed = len(text)
	}
	p.last = t
}

func (a *app) askStream(ctx context.Context, stdout, stderr io.Writer, query string) error {
	p := &answerPrinter{out: stdout}
	r := chat.New(a.client,
		chat.WithObserver(p.observe),
		chat.WithFailureReporter(ragchat.FailureReporterFunc(func(msg string) {
			fmt.Fprintf(stderr, "error: %s\n", term.Clean(msg))
		})),
		chat.WithLogger(a.logger),
		chat.WithDefaultModel(a.cfg.Chat.DefaultModel),
		chat.WithTopK(a.cfg.Chat.TopK),
	)
	r.SetContext(a.cfg.Chat.Context)

	err := r.Submit(ctx, query)
	if p.printed > 0 {
		fmt.Fprintln(stdout)
	}
	switch {
	case err == nil:
		printSources(stdout, p.last.Sources, p.last.Method)
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintln(stderr, "[cancelled]")
		return err
	}
	// Already reported through the failure reporter.
	return errReported
}

func (a *app) askOnce(ctx context.Context, stdout io.Writer, query string) error {
	req := ragchat.StreamRequest{Query: query, ContextID: a.cfg.Chat.Context}
	if err := req.Validate(); err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	ans, err := a.client.Ask(ctx, query, a.cfg.Chat.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, term.Clean(ans.Text))
	printSources(stdout, ans.Sources, "")
	return nil
}

func printSources(w io.Writer, sources []ragchat.Source, method string) {
	if len(sources) == 0 {
		return
	}
	header := "Sources:"
	if method != "" {
		header = fmt.Sprintf("Sources (%s):", method)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, header)
	for i, s := range sources {
		if s.Distance != nil {
			fmt.Fprintf(w, "  %d. %s (%.3f)\n", i+1, term.Clean(s.Locator), *s.Distance)
			continue
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, term.Clean(s.Locator))
	}
}
