// Command ragchat is a terminal client for a retrieval-augmented chat
// backend.
//
// Usage:
//
//	ragchat [flags]                 open the chat UI
//	ragchat ask [flags] <question>  stream one answer to stdout
//	ragchat contexts list|delete    manage ingested sources
//	ragchat ingest <url>            register a new source
//	ragchat models | providers      show the model catalog
//	ragchat health                  check the backend
//
// Settings are read from ~/.ragchat/config.yaml, RAGCHAT_* environment
// variables and flags, in increasing order of precedence.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

// errReported marks failures already shown to the user.
var errReported = errors.New("failure reported")

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "ragchat: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}
