package deepl

import (
	"fmt"
	"io"
	"net/http"
)

// Handle identifies an in-flight document translation. Both values are opaque.
type Handle struct {
	DocumentID  string `json:"document_id"`
	DocumentKey string `json:"document_key"`
}

func (h Handle) Valid() bool {
	return h.DocumentID != "" && h.DocumentKey != ""
}

// DocumentState is the provider-reported state of a document.
type DocumentState string

const (
	StateQueued      DocumentState = "queued"
	StateTranslating DocumentState = "translating"
	StateDone        DocumentState = "done"
	StateError       DocumentState = "error"
)

// Status is one status response.
type Status struct {
	DocumentID       string        `json:"document_id"`
	State            DocumentState `json:"status"`
	SecondsRemaining *int          `json:"seconds_remaining,omitempty"`
	BilledCharacters int           `json:"billed_characters,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
}

// UploadRequest carries the document bytes and language pair.
// SourceLang may be empty to let the provider detect it.
type UploadRequest struct {
	FileName   string
	Body       io.Reader
	SourceLang string
	TargetLang string
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("deepl: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("deepl: request failed with status %d: %s", e.StatusCode, e.Message)
}

// Reason is a short human explanation of the failure class.
func (e *APIError) Reason() string {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return "the request was rejected by the translation service"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "the translation API key was rejected"
	case http.StatusNotFound:
		return "the document is no longer available on the translation service"
	case http.StatusRequestEntityTooLarge:
		return "the document is too large for the translation service"
	case http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return "the document format is not supported"
	case http.StatusTooManyRequests:
		return "too many requests to the translation service"
	case 456:
		return "the translation quota has been exceeded"
	case http.StatusServiceUnavailable, 529:
		return "the translation service is temporarily unavailable"
	default:
		return "the translation service returned an error"
	}
}

type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

type uploadResponse struct {
	DocumentID  string `json:"document_id"`
	DocumentKey string `json:"document_key"`
}
