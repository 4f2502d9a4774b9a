package ragchat

import (
	"fmt"
	"strings"
)

// DefaultModel is the backend model used when none is selected.
const DefaultModel = "gpt-oss:20b"

// DefaultTopK is the number of retrieved passages requested when unset.
const DefaultTopK = 3

// StreamRequest carries everything the server needs to produce one streamed
// answer. The transport applies defaults when Model or TopK are zero.
type StreamRequest struct {
	Query     string
	ContextID string
	Model     string // empty = DefaultModel
	History   []HistoryMessage
	TopK      int // 0 = DefaultTopK
}

// Validate checks the preconditions for opening a stream.
func (r StreamRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query must not be empty: %w", ErrValidation)
	}
	if r.ContextID == "" {
		return fmt.Errorf("no context selected: %w", ErrValidation)
	}
	if r.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d: %w", r.TopK, ErrValidation)
	}
	for i, m := range r.History {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("history message %d has unknown role %q: %w", i, m.Role, ErrValidation)
		}
	}
	return nil
}
