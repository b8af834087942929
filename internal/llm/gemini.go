package llm

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"

	"github.com/bitfantasy/mechai/internal/config"
)

// ErrMissingAPIKey is returned by NewGeminiClient when no key is configured.
var ErrMissingAPIKey = errors.New("llm: api key is not configured")

// GeminiClient is a thin wrapper around the official genai client. One call,
// no retries, no response schema.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	temperature float32
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

// Generate sends prompt with the system instruction and returns the text of the
// first candidate.
func (g *GeminiClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	temperature := g.temperature
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			Temperature:       &temperature,
		},
	)
	if err != nil {
		return "", upstreamError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

func upstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		ue := &UpstreamError{Code: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
		if len(apiErr.Details) > 0 {
			ue.Details = apiErr.Details
		}
		return ue
	}
	return err
}
