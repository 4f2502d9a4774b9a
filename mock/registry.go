package mock

import (
	"context"

	"github.com/fwojciec/ragchat"
)

// Interface compliance checks.
var (
	_ ragchat.Chatter         = (*Chatter)(nil)
	_ ragchat.ContextRegistry = (*ContextRegistry)(nil)
	_ ragchat.Ingester        = (*Ingester)(nil)
	_ ragchat.ModelRegistry   = (*ModelRegistry)(nil)
	_ ragchat.HealthChecker   = (*HealthChecker)(nil)
)

// Chatter is a test double for ragchat.Chatter.
type Chatter struct {
	AskFn func(ctx context.Context, query, contextID string) (ragchat.Answer, error)
}

// Ask delegates to AskFn.
func (c *Chatter) Ask(ctx context.Context, query, contextID string) (ragchat.Answer, error) {
	return c.AskFn(ctx, query, contextID)
}

// ContextRegistry is a test double for ragchat.ContextRegistry.
type ContextRegistry struct {
	ListContextsFn  func(ctx context.Context) ([]string, error)
	DeleteContextFn func(ctx context.Context, id string) error
}

// ListContexts delegates to ListContextsFn.
func (r *ContextRegistry) ListContexts(ctx context.Context) ([]string, error) {
	return r.ListContextsFn(ctx)
}

// DeleteContext delegates to DeleteContextFn.
func (r *ContextRegistry) DeleteContext(ctx context.Context, id string) error {
	return r.DeleteContextFn(ctx, id)
}

// Ingester is a test double for ragchat.Ingester.
type Ingester struct {
	IngestFn func(ctx context.Context, url string) (ragchat.IngestResult, error)
}

// Ingest delegates to IngestFn.
func (i *Ingester) Ingest(ctx context.Context, url string) (ragchat.IngestResult, error) {
	return i.IngestFn(ctx, url)
}

// ModelRegistry is a test double for ragchat.ModelRegistry.
type ModelRegistry struct {
	ListModelsFn    func(ctx context.Context) (ragchat.ModelCatalog, error)
	ListProvidersFn func(ctx context.Context) ([]ragchat.ProviderInfo, error)
}

// ListModels delegates to ListModelsFn.
func (r *ModelRegistry) ListModels(ctx context.Context) (ragchat.ModelCatalog, error) {
	return r.ListModelsFn(ctx)
}

// ListProviders delegates to ListProvidersFn.
func (r *ModelRegistry) ListProviders(ctx context.Context) ([]ragchat.ProviderInfo, error) {
	return r.ListProvidersFn(ctx)
}

// HealthChecker is a test double for ragchat.HealthChecker.
type HealthChecker struct {
	HealthFn func(ctx context.Context) error
}

// Health delegates to HealthFn.
func (h *HealthChecker) Health(ctx context.Context) error {
	return h.HealthFn(ctx)
}
