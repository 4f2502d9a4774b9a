package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/api"
	"github.com/fwojciec/ragchat/config"
	ragchatlog "github.com/fwojciec/ragchat/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	cfg        config.Config
	logger     *zap.Logger
	client     *api.Client
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "ragchat",
		Short: "Chat with your documents from the terminal",
		Long: `ragchat talks to a retrieval-augmented chat backend.

Ingest a document with "ragchat ingest <url>", then run ragchat to open the
chat UI against it. Answers stream token by token with their citations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd.Context())
		},
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setup(root, cmd == root || cmd.Name() == "chat")
	}
	root.PersistentPostRun = func(*cobra.Command, []string) {
		ragchatlog.Sync(a.logger)
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.ragchat/config.yaml)")
	pf.String("base-url", api.DefaultBaseURL, "backend base URL")
	pf.Duration("request-timeout", 30*time.Second, "timeout for non-streaming requests (0 = none)")
	pf.String("model", ragchat.DefaultModel, "model used for answers")
	pf.Int("top-k", ragchat.DefaultTopK, "number of passages retrieved per question")
	pf.String("context", "", "active context (document source)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newChatCmd(a),
		newAskCmd(a),
		newContextsCmd(a),
		newIngestCmd(a),
		newModelsCmd(a),
		newProvidersCmd(a),
		newHealthCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger and API client. The chat
// UI owns the terminal, so its logs default to a file next to the config.
func (a *app) setup(root *cobra.Command, tui bool) error {
	cfg, err := config.Load(a.configPath, root.PersistentFlags())
	if err != nil {
		return err
	}
	if tui && cfg.Log.OutputPath == "" {
		if def := config.DefaultPath(); def != "" {
			cfg.Log.OutputPath = filepath.Dir(def)
		}
	}
	logger, err := ragchatlog.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	a.client = api.New(api.WithBaseURL(cfg.Server.BaseURL), api.WithLogger(logger))
	logger.Debug("configured",
		zap.String("base_url", cfg.Server.BaseURL),
		zap.String("model", cfg.Chat.DefaultModel),
		zap.String("context", cfg.Chat.Context),
	)
	return nil
}

// withTimeout bounds a non-streaming request by the configured timeout.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Server.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Server.Timeout)
}
