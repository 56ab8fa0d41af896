package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/doctrans/internal/deepl"
)

type ErrorType int

const (
	ErrValidation ErrorType = iota
	ErrBusy
	ErrUpload
	ErrProvider
	ErrTimeout
	ErrNetwork
	ErrResultFetch
	ErrCancelled
	ErrConfig
	ErrUnknown
)

// User-facing texts of the terminal failures.
const (
	msgProviderFailed    = "Translation failed"
	msgTimeout           = "Translation is taking too long, please try again later"
	msgStatusCheckFailed = "Could not check translation status"
	msgResultFetchFailed = "Translation finished but the result could not be downloaded"
	msgUploadCancelled   = "Upload was cancelled"
)

// TransError carries a human readable Message and the failure class.
type TransError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *TransError {
	return &TransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *TransError {
	return &TransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *TransError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *TransError) Unwrap() error {
	return e.Cause
}

func (e *TransError) WithContext(key string, value any) *TransError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrValidation:
		return "Validation"
	case ErrBusy:
		return "Busy"
	case ErrUpload:
		return "Upload"
	case ErrProvider:
		return "Provider"
	case ErrTimeout:
		return "Timeout"
	case ErrNetwork:
		return "Network"
	case ErrResultFetch:
		return "ResultFetch"
	case ErrCancelled:
		return "Cancelled"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var transErr *TransError
	if errors.As(err, &transErr) {
		return transErr.Type == errorType
	}
	return false
}

// UserMessage returns the text the UI should display for err.
func UserMessage(err error) string {
	var transErr *TransError
	if errors.As(err, &transErr) {
		return transErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func uploadError(err error) *TransError {
	var apiErr *deepl.APIError
	if errors.As(err, &apiErr) {
		return NewErrorWithCause(ErrUpload, "Upload failed: "+apiErr.Reason(), err).
			WithContext("status", apiErr.StatusCode)
	}
	return NewErrorWithCause(ErrUpload, "Upload failed: could not reach the translation service", err)
}
