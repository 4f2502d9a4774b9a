package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/ragchat"
	bt "github.com/fwojciec/ragchat/bubbletea"
	"github.com/fwojciec/ragchat/chat"
	"github.com/spf13/cobra"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the chat UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd.Context())
		},
	}
}

func (a *app) runChat(ctx context.Context) error {
	feed := bt.NewFeed()
	reducer := chat.New(a.client,
		chat.WithObserver(feed.Observe),
		chat.WithFailureReporter(feed),
		chat.WithLogger(a.logger),
		chat.WithDefaultModel(a.cfg.Chat.DefaultModel),
		chat.WithTopK(a.cfg.Chat.TopK),
	)
	if a.cfg.Chat.Context != "" {
		reducer.SetContext(a.cfg.Chat.Context)
	}

	m := bt.New(reducer, feed, ragchat.DefaultTheme(), bt.WithContextRegistry(a.client))
	if err := bt.Run(ctx, m); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}
