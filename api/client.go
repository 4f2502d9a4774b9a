// Package api implements the ragchat collaborator interfaces against the
// chat backend's HTTP API.
//
// Streaming answers are opened with Open and decoded by [sse.Decoder]; the
// remaining endpoints are plain JSON request/response calls.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/fwojciec/ragchat"
	ragjson "github.com/fwojciec/ragchat/json"
	"github.com/fwojciec/ragchat/sse"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is where a locally started backend listens.
	DefaultBaseURL = "http://localhost:8002"

	apiPrefix = "/api/v1"
)

// Interface compliance checks.
var (
	_ ragchat.Transport       = (*Client)(nil)
	_ ragchat.Chatter         = (*Client)(nil)
	_ ragchat.ContextRegistry = (*Client)(nil)
	_ ragchat.Ingester        = (*Client)(nil)
	_ ragchat.ModelRegistry   = (*Client)(nil)
	_ ragchat.HealthChecker   = (*Client)(nil)
)

// Client talks to the chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	chunkSize  int
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the backend base URL. Useful for testing with httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger for requests and dropped frames.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithChunkSize sets the read size used when decoding streamed answers.
func WithChunkSize(n int) Option {
	return func(c *Client) { c.chunkSize = n }
}

// New creates a new [Client].
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
		chunkSize:  sse.DefaultChunkSize,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open starts a streamed answer. The returned stream yields frames until the
// body is exhausted; cancelling ctx aborts it.
func (c *Client) Open(ctx context.Context, req ragchat.StreamRequest) (ragchat.FrameStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := ragjson.MarshalStreamRequest(req)
	if err != nil {
		return nil, fmt.Errorf("chat-stream: %w", err)
	}
	resp, err := c.do(ctx, "chat-stream", http.MethodPost, apiPrefix+"/chat-stream", body)
	if err != nil {
		return nil, err
	}
	return sse.NewDecoder(resp.Body,
		sse.WithChunkSize(c.chunkSize),
		sse.WithLogger(c.logger),
	), nil
}

// Ask sends a non-streaming chat request. History is not sent on this path.
func (c *Client) Ask(ctx context.Context, query, contextID string) (ragchat.Answer, error) {
	body, err := ragjson.MarshalChatRequest(query, contextID)
	if err != nil {
		return ragchat.Answer{}, fmt.Errorf("chat: %w", err)
	}
	data, err := c.call(ctx, "chat", http.MethodPost, apiPrefix+"/chat", body)
	if err != nil {
		return ragchat.Answer{}, err
	}
	return ragjson.UnmarshalAnswer(data)
}

// ListContexts returns the identifiers of every ingested source.
func (c *Client) ListContexts(ctx context.Context) ([]string, error) {
	data, err := c.call(ctx, "contexts", http.MethodGet, apiPrefix+"/contexts", nil)
	if err != nil {
		return nil, err
	}
	return ragjson.UnmarshalContexts(data)
}

// DeleteContext removes an ingested source and its vectors.
func (c *Client) DeleteContext(ctx context.Context, id string) error {
	data, err := c.call(ctx, "delete context", http.MethodDelete, apiPrefix+"/contexts/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	msg, err := ragjson.UnmarshalMessage(data)
	if err != nil {
		return err
	}
	c.logger.Info("context deleted", zap.String("context", id), zap.String("message", msg))
	return nil
}

// Ingest fetches, chunks and indexes the document at u.
func (c *Client) Ingest(ctx context.Context, u string) (ragchat.IngestResult, error) {
	body, err := ragjson.MarshalIngestRequest(u)
	if err != nil {
		return ragchat.IngestResult{}, fmt.Errorf("process-url: %w", err)
	}
	data, err := c.call(ctx, "process-url", http.MethodPost, apiPrefix+"/process-url", body)
	if err != nil {
		return ragchat.IngestResult{}, err
	}
	return ragjson.UnmarshalIngestResult(data)
}

// ListModels returns the model catalog.
func (c *Client) ListModels(ctx context.Context) (ragchat.ModelCatalog, error) {
	data, err := c.call(ctx, "models", http.MethodGet, apiPrefix+"/models", nil)
	if err != nil {
		return ragchat.ModelCatalog{}, err
	}
	return ragjson.UnmarshalModelCatalog(data)
}

// ListProviders returns the model providers and their availability.
func (c *Client) ListProviders(ctx context.Context) ([]ragchat.ProviderInfo, error) {
	data, err := c.call(ctx, "providers", http.MethodGet, apiPrefix+"/models/providers", nil)
	if err != nil {
		return nil, err
	}
	return ragjson.UnmarshalProviders(data)
}

// Health returns nil when the backend reports status "ok".
func (c *Client) Health(ctx context.Context) error {
	data, err := c.call(ctx, "health", http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	status, err := ragjson.UnmarshalHealth(data)
	if err != nil {
		return err
	}
	if status != "ok" {
		return &ragchat.TransportError{Op: "health", Message: fmt.Sprintf("status %q", status)}
	}
	return nil
}

// call performs a request and returns the full response body.
func (c *Client) call(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	resp, err := c.do(ctx, op, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ragchat.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return data, nil
}

// do sends a request. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, &ragchat.TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ragchat.TransportError{Op: op, Err: err}
	}
	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseHTTPError(op, resp)
	}
	return resp, nil
}

// parseHTTPError prefers the server's {"detail": ...} message and falls back
// to the raw body.
func parseHTTPError(op string, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ragchat.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if detail, ok := ragjson.UnmarshalDetail(data); ok {
		return &ragchat.TransportError{Op: op, StatusCode: resp.StatusCode, Message: detail}
	}
	return &ragchat.TransportError{Op: op, StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
}
