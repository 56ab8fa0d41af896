package service

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MimeLyc/doctrans/internal/deepl"
)

func TestTransError_ErrorIncludesContextAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewErrorWithCause(ErrNetwork, msgStatusCheckFailed, cause).
		WithContext("document_id", "doc-1").
		WithContext("attempt", 3)

	assert.Equal(t,
		"[Network] Could not check translation status | context: attempt=3, document_id=doc-1 | cause: connection reset",
		err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestIsErrorType_FollowsWrapping(t *testing.T) {
	base := NewError(ErrTimeout, msgTimeout)
	wrapped := fmt.Errorf("poll: %w", base)

	assert.True(t, IsErrorType(wrapped, ErrTimeout))
	assert.False(t, IsErrorType(wrapped, ErrProvider))
	assert.False(t, IsErrorType(errors.New("plain"), ErrTimeout))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, msgTimeout, UserMessage(fmt.Errorf("x: %w", NewError(ErrTimeout, msgTimeout))))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
	assert.Empty(t, UserMessage(nil))
}

func TestUploadError(t *testing.T) {
	err := uploadError(&deepl.APIError{StatusCode: http.StatusForbidden, Message: "Wrong key"})
	assert.Equal(t, ErrUpload, err.Type)
	assert.Equal(t, "Upload failed: the translation API key was rejected", err.Message)
	assert.Equal(t, http.StatusForbidden, err.Context["status"])

	err = uploadError(errors.New("dial tcp: timeout"))
	assert.Equal(t, "Upload failed: could not reach the translation service", err.Message)
}

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrValidation, "Validation"},
		{ErrBusy, "Busy"},
		{ErrResultFetch, "ResultFetch"},
		{ErrCancelled, "Cancelled"},
		{ErrorType(99), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.errType.String())
	}
}
