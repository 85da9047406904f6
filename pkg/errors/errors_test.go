package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsPlainErrors(t *testing.T) {
	plain := errors.New("connection reset")
	appErr := FromError(plain)

	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, plain)
}

func TestIsMatchesByCode(t *testing.T) {
	err := Clone(ErrNotFound, "event not found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestPrefixKeepsCodeAndDetails(t *testing.T) {
	cause := Validation("invalid event payload", []FieldError{{Field: "name", Rule: "required", Message: "Required"}})

	prefixed := Prefix(cause, "failed to create event")

	assert.Equal(t, "failed to create event: invalid event payload", prefixed.Message)
	assert.Equal(t, http.StatusBadRequest, prefixed.Status)
	assert.Len(t, prefixed.Details, 1)
	assert.ErrorIs(t, prefixed, ErrValidation)
	assert.Equal(t, "invalid event payload", cause.Message)
}

func TestPrefixPlainError(t *testing.T) {
	prefixed := Prefix(errors.New("disk full"), "failed to delete event")

	assert.Equal(t, ErrInternal.Code, prefixed.Code)
	assert.Equal(t, "failed to delete event: internal server error: disk full", prefixed.Error())
}
