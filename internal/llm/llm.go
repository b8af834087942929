// Package llm wraps the text generation service used to plan itineraries.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Generator produces free-form text for a system instruction and a prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// UpstreamError carries the status and body returned by the generation service.
type UpstreamError struct {
	Code    int
	Status  string
	Message string
	Details any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream error %d %s: %s", e.Code, e.Status, e.Message)
}

// Body is the upstream error payload forwarded to API callers.
func (e *UpstreamError) Body() map[string]any {
	body := map[string]any{"code": e.Code, "status": e.Status, "message": e.Message}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return body
}
