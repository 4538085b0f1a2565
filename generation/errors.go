package generation

import "errors"

var (
	// ErrModelUnavailable is wrapped by backends when the provider reports the
	// model as unknown, unavailable or rejects the request as invalid for it.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrEmptyResponse is returned when a backend answers with no text.
	ErrEmptyResponse = errors.New("empty response")
	// ErrPromptTooLong is wrapped by backends whose preflight token count does
	// not fit the context window.
	ErrPromptTooLong = errors.New("prompt exceeds context window")
	ErrNoProviders   = errors.New("at least one provider with a model is required")
)
