// Package json defines the wire format of the RAG chat backend: streamed
// frame payloads, request bodies, and registry responses.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/fwojciec/ragchat"
)

// ErrUnknownFrame indicates a frame payload with an unrecognized type
// discriminator.
var ErrUnknownFrame = errors.New("unknown frame type")

// frameDTO is the JSON representation of a Frame with a type discriminator.
// Content carries the delta for "content" frames and the message for
// "error" frames.
type frameDTO struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Sources []sourceDTO `json:"sources,omitempty"`
	Method  string      `json:"method,omitempty"`
}

type sourceDTO struct {
	URL      string   `json:"url"`
	Text     string   `json:"text"`
	Distance *float64 `json:"distance,omitempty"`
}

type messageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamRequest is the body of POST /chat-stream.
type streamRequest struct {
	Query      string       `json:"query"`
	ContextURL string       `json:"context_url"`
	Messages   []messageDTO `json:"messages"`
	Model      string       `json:"model"`
	TopK       int          `json:"top_k"`
}

// chatRequest is the body of POST /chat.
type chatRequest struct {
	Query      string `json:"query"`
	ContextURL string `json:"context_url"`
}

type chatResponse struct {
	Answer  string      `json:"answer"`
	Sources []sourceDTO `json:"sources"`
}

// UnmarshalFrame decodes one frame payload. It returns an error for invalid
// JSON and wraps ErrUnknownFrame for an unrecognized discriminator.
func UnmarshalFrame(data []byte) (ragchat.Frame, error) {
	var dto frameDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	switch dto.Type {
	case "sources":
		return ragchat.FrameSources{Sources: unmarshalSources(dto.Sources), Method: dto.Method}, nil
	case "content":
		return ragchat.FrameContent{Delta: dto.Content}, nil
	case "error":
		return ragchat.FrameError{Message: dto.Content}, nil
	case "end":
		return ragchat.FrameEnd{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", dto.Type, ErrUnknownFrame)
	}
}

// MarshalFrame encodes a frame in wire format. The client never produces
// frames; this exists for test servers and tooling.
func MarshalFrame(f ragchat.Frame) ([]byte, error) {
	switch v := f.(type) {
	case ragchat.FrameSources:
		return json.Marshal(frameDTO{Type: "sources", Sources: marshalSources(v.Sources), Method: v.Method})
	case ragchat.FrameContent:
		return json.Marshal(frameDTO{Type: "content", Content: v.Delta})
	case ragchat.FrameError:
		return json.Marshal(frameDTO{Type: "error", Content: v.Message})
	case ragchat.FrameEnd:
		return json.Marshal(frameDTO{Type: "end"})
	default:
		return nil, fmt.Errorf("unknown frame type: %T", f)
	}
}

// MarshalStreamRequest encodes a streaming chat request, applying the
// default model and top_k when unset.
func MarshalStreamRequest(r ragchat.StreamRequest) ([]byte, error) {
	model := r.Model
	if model == "" {
		model = ragchat.DefaultModel
	}
	topK := r.TopK
	if topK == 0 {
		topK = ragchat.DefaultTopK
	}
	msgs := make([]messageDTO, len(r.History))
	for i, m := range r.History {
		msgs[i] = messageDTO{Role: string(m.Role), Content: m.Content}
	}
	return json.Marshal(streamRequest{
		Query:      r.Query,
		ContextURL: r.ContextID,
		Messages:   msgs,
		Model:      model,
		TopK:       topK,
	})
}

// MarshalChatRequest encodes a non-streaming chat request.
func MarshalChatRequest(query, contextID string) ([]byte, error) {
	return json.Marshal(chatRequest{Query: query, ContextURL: contextID})
}

// UnmarshalAnswer decodes a non-streaming chat response.
func UnmarshalAnswer(data []byte) (ragchat.Answer, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ragchat.Answer{}, fmt.Errorf("unmarshal answer: %w", err)
	}
	return ragchat.Answer{Text: resp.Answer, Sources: unmarshalSources(resp.Sources)}, nil
}

// UnmarshalDetail extracts the "detail" field of an error body. It returns
// false when the body is not a JSON object carrying a string detail.
func UnmarshalDetail(data []byte) (string, bool) {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "", false
	}
	switch d := body.Detail.(type) {
	case string:
		return d, d != ""
	case nil:
		return "", false
	default:
		// Validation errors carry a list of objects; keep them readable.
		b, err := json.Marshal(d)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func unmarshalSources(dtos []sourceDTO) []ragchat.Source {
	out := make([]ragchat.Source, len(dtos))
	for i, s := range dtos {
		out[i] = ragchat.Source{Locator: s.URL, Excerpt: s.Text, Distance: s.Distance}
	}
	return out
}

func marshalSources(sources []ragchat.Source) []sourceDTO {
	out := make([]sourceDTO, len(sources))
	for i, s := range sources {
		out[i] = sourceDTO{URL: s.Locator, Text: s.Excerpt, Distance: s.Distance}
	}
	return out
}

// sortModels orders models by provider, then key, so map-shaped responses
// render deterministically.
func sortModels(models []ragchat.ModelInfo) {
	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].Key < models[j].Key
	})
}
