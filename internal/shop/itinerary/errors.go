package itinerary

import "errors"

// Failure kinds of an itinerary-generation request. Each one is terminal.
var (
	ErrUpstreamConfigMissing    = errors.New("generation service credential is not configured")
	ErrInventoryFetchFailed     = errors.New("failed to load shop inventory")
	ErrModelInvocationFailed    = errors.New("itinerary generation request failed")
	ErrModelResponseUnparseable = errors.New("could not parse an itinerary from the model response")
	ErrPersistenceFailed        = errors.New("failed to save itinerary")
	ErrGenerationInProgress     = errors.New("an itinerary is already being generated for this part")
)

// StageError ties a failure kind to its cause and any upstream diagnostics.
type StageError struct {
	Kind    error
	Err     error
	Details any
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Fail wraps err as a failure of the given kind.
func Fail(kind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}
