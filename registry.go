package ragchat

import (
	"context"
	"fmt"
)

// Answer is the result of a non-streaming chat request.
type Answer struct {
	Text    string
	Sources []Source
}

// Chatter asks a single question without streaming. It is an alternative
// transport and is not used by the streaming reducer.
type Chatter interface {
	Ask(ctx context.Context, query, contextID string) (Answer, error)
}

// ContextRegistry lists and removes ingested document sources.
type ContextRegistry interface {
	ListContexts(ctx context.Context) ([]string, error)
	DeleteContext(ctx context.Context, id string) error
}

// IngestResult summarizes a processed document source.
type IngestResult struct {
	ContextID   string
	Message     string
	TextLength  int
	VectorDim   int
	InsertCount int
}

// Ingester registers a new document source.
type Ingester interface {
	Ingest(ctx context.Context, url string) (IngestResult, error)
}

// ModelInfo describes a backend model.
type ModelInfo struct {
	Key            string
	Name           string
	DisplayName    string
	Provider       string
	RequiresAPIKey bool
	ContextLength  int
}

// ModelCatalog is the set of selectable models and the server's default.
type ModelCatalog struct {
	Models  []ModelInfo // sorted by provider, then key
	Default string
}

// Lookup returns the model with the given key.
func (c ModelCatalog) Lookup(key string) (ModelInfo, bool) {
	for _, m := range c.Models {
		if m.Key == key {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// ByProvider groups models by provider, preserving catalog order.
func (c ModelCatalog) ByProvider() map[string][]ModelInfo {
	out := make(map[string][]ModelInfo)
	for _, m := range c.Models {
		out[m.Provider] = append(out[m.Provider], m)
	}
	return out
}

// ProviderInfo describes a model provider and whether it can serve requests.
type ProviderInfo struct {
	Key            string
	Name           string
	Description    string
	Available      bool
	RequiresAPIKey bool
}

// ModelRegistry lists available models and providers.
type ModelRegistry interface {
	ListModels(ctx context.Context) (ModelCatalog, error)
	ListProviders(ctx context.Context) ([]ProviderInfo, error)
}

// FormatContextLength renders a token count compactly, e.g. 4096 -> "4K",
// 1000000 -> "1M".
func FormatContextLength(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%dM", (n+500_000)/1_000_000)
	case n >= 1000:
		return fmt.Sprintf("%dK", (n+500)/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// HealthChecker probes backend liveness.
type HealthChecker interface {
	Health(ctx context.Context) error
}
