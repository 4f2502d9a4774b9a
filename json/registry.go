package json

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fwojciec/ragchat"
)

type modelDTO struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	Provider       string `json:"provider"`
	RequiresAPIKey bool   `json:"requires_api_key"`
	ContextLength  int    `json:"context_length"`
}

type modelsResponse struct {
	Models       map[string]modelDTO `json:"models"`
	DefaultModel string              `json:"default_model"`
}

type providerDTO struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Available      bool   `json:"available"`
	RequiresAPIKey bool   `json:"requires_api_key"`
}

type providersResponse struct {
	Providers map[string]providerDTO `json:"providers"`
}

type ingestRequest struct {
	URL string `json:"url"`
}

type ingestResponse struct {
	URL               string `json:"url"`
	Message           string `json:"message"`
	TextLength        int    `json:"text_length"`
	VectorDim         int    `json:"vector_dim"`
	MilvusInsertCount int    `json:"milvus_insert_count"`
}

// UnmarshalContexts decodes the list of ingested context identifiers.
func UnmarshalContexts(data []byte) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal contexts: %w", err)
	}
	return ids, nil
}

// UnmarshalMessage decodes a {"message": ...} acknowledgement.
func UnmarshalMessage(data []byte) (string, error) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "", fmt.Errorf("unmarshal message: %w", err)
	}
	return body.Message, nil
}

// UnmarshalModelCatalog decodes the model registry response.
func UnmarshalModelCatalog(data []byte) (ragchat.ModelCatalog, error) {
	var resp modelsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ragchat.ModelCatalog{}, fmt.Errorf("unmarshal models: %w", err)
	}
	models := make([]ragchat.ModelInfo, 0, len(resp.Models))
	for key, m := range resp.Models {
		models = append(models, ragchat.ModelInfo{
			Key:            key,
			Name:           m.Name,
			DisplayName:    m.DisplayName,
			Provider:       m.Provider,
			RequiresAPIKey: m.RequiresAPIKey,
			ContextLength:  m.ContextLength,
		})
	}
	sortModels(models)
	return ragchat.ModelCatalog{Models: models, Default: resp.DefaultModel}, nil
}

// UnmarshalProviders decodes the provider listing, sorted by key.
func UnmarshalProviders(data []byte) ([]ragchat.ProviderInfo, error) {
	var resp providersResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal providers: %w", err)
	}
	out := make([]ragchat.ProviderInfo, 0, len(resp.Providers))
	for key, p := range resp.Providers {
		out = append(out, ragchat.ProviderInfo{
			Key:            key,
			Name:           p.Name,
			Description:    p.Description,
			Available:      p.Available,
			RequiresAPIKey: p.RequiresAPIKey,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// MarshalIngestRequest encodes a document source registration.
func MarshalIngestRequest(url string) ([]byte, error) {
	return json.Marshal(ingestRequest{URL: url})
}

// UnmarshalIngestResult decodes the ingestion summary.
func UnmarshalIngestResult(data []byte) (ragchat.IngestResult, error) {
	var resp ingestResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ragchat.IngestResult{}, fmt.Errorf("unmarshal ingest result: %w", err)
	}
	return ragchat.IngestResult{
		ContextID:   resp.URL,
		Message:     resp.Message,
		TextLength:  resp.TextLength,
		VectorDim:   resp.VectorDim,
		InsertCount: resp.MilvusInsertCount,
	}, nil
}

// UnmarshalHealth decodes the {"status": ...} body of the health endpoint.
func UnmarshalHealth(data []byte) (string, error) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "", fmt.Errorf("unmarshal health: %w", err)
	}
	return body.Status, nil
}
