package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"github.com/bitfantasy/mechai/internal/config"
)

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), config.LLMConfig{APIKey: "  ", Model: "gemini-2.5-flash"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestUpstreamErrorFromAPIError(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"})

	err := upstreamError(wrapped)
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 429, ue.Code)
	assert.Equal(t, map[string]any{"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "quota exceeded"}, ue.Body())
	assert.Contains(t, ue.Error(), "quota exceeded")

	plain := errors.New("dial tcp: timeout")
	assert.Same(t, plain, upstreamError(plain))
}
