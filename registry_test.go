package ragchat_test

import (
	"testing"

	"github.com/fwojciec/ragchat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatContextLength(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int
		want string
	}{
		{512, "512"},
		{1000, "1K"},
		{1500, "2K"},
		{4096, "4K"},
		{128000, "128K"},
		{1_000_000, "1M"},
		{2_000_000, "2M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ragchat.FormatContextLength(tt.in), "input %d", tt.in)
	}
}

func TestModelCatalog(t *testing.T) {
	t.Parallel()
	cat := ragchat.ModelCatalog{
		Default: "gpt-oss:20b",
		Models: []ragchat.ModelInfo{
			{Key: "gpt-4o", Provider: "openai"},
			{Key: "gpt-oss:20b", Provider: "ollama"},
			{Key: "llama3.2", Provider: "ollama"},
		},
	}

	m, ok := cat.Lookup("llama3.2")
	require.True(t, ok)
	assert.Equal(t, "ollama", m.Provider)

	_, ok = cat.Lookup("missing")
	assert.False(t, ok)

	groups := cat.ByProvider()
	assert.Len(t, groups["ollama"], 2)
	assert.Equal(t, "gpt-oss:20b", groups["ollama"][0].Key)
	assert.Len(t, groups["openai"], 1)
}
