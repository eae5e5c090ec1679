package muikit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseError_Error(t *testing.T) {
	t.Parallel()
	err := &ResponseError{Provider: "bedrock", Field: "content[0].text", Err: ErrMalformedResponse}
	assert.Contains(t, err.Error(), "bedrock")
	assert.Contains(t, err.Error(), "content[0].text")
	assert.Contains(t, err.Error(), "muikit:")
}

func TestResponseError_Unwrap(t *testing.T) {
	t.Parallel()
	err := MissingField("gemini", "text")
	require.ErrorIs(t, err, ErrMalformedResponse)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "gemini", respErr.Provider)
	assert.Equal(t, "text", respErr.Field)
}

func TestResponseError_Wrapped(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("create: %w", MissingField("bedrock", "content"))
	assert.True(t, errors.Is(wrapped, ErrMalformedResponse))
	assert.False(t, errors.Is(wrapped, ErrConfig))
}
