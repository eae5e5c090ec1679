package muikit

import (
	"errors"
	"fmt"
)

// Sentinel errors for adapters and components.
// All use prefix "muikit:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrConfig               = errors.New("muikit: invalid or unusable configuration")
	ErrMalformedResponse    = errors.New("muikit: provider response is missing an expected field")
	ErrStreamNotImplemented = errors.New("muikit: streaming not implemented for this provider")
	ErrStreamConsumed       = errors.New("muikit: stream already consumed")
	ErrToolsNotSupported    = errors.New("muikit: tool calling is not supported by this client")
	ErrUnknownProvider      = errors.New("muikit: no factory registered for provider")
	ErrInvalidManifest      = errors.New("muikit: component manifest is malformed")
)

// ResponseError wraps ErrMalformedResponse (or another sentinel) with the provider and the
// response field that could not be read.
// Use errors.Is(err, ErrMalformedResponse) and errors.As(err, &respErr) to inspect.
type ResponseError struct {
	Provider string
	Field    string
	Err      error
}

// Error implements error.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("muikit: %s response field %q: %v", e.Provider, e.Field, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *ResponseError) Unwrap() error { return e.Err }

// Compile-time check that ResponseError implements error.
var _ error = (*ResponseError)(nil)

// MissingField returns a ResponseError for a required field absent from a provider response.
func MissingField(provider, field string) error {
	return &ResponseError{Provider: provider, Field: field, Err: ErrMalformedResponse}
}
