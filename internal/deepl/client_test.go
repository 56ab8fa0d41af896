package deepl

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{AuthKey: "test-key", APIURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func TestConfig_BaseURL(t *testing.T) {
	assert.Equal(t, FreeAPIURL, Config{AuthKey: "abc:fx"}.BaseURL())
	assert.Equal(t, ProAPIURL, Config{AuthKey: "abc"}.BaseURL())
	assert.Equal(t, "http://localhost:9000", Config{AuthKey: "abc:fx", APIURL: "http://localhost:9000/"}.BaseURL())
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestClient_Upload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/document", r.URL.Path)
		assert.Equal(t, "DeepL-Auth-Key test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "DE", r.FormValue("target_lang"))
		assert.Equal(t, "EN", r.FormValue("source_lang"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "report.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.7 body", string(content))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"document_id":  "doc-1",
			"document_key": "key-1",
		})
	})

	handle, err := client.Upload(t.Context(), UploadRequest{
		FileName:   "report.pdf",
		Body:       strings.NewReader("%PDF-1.7 body"),
		SourceLang: "en",
		TargetLang: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, Handle{DocumentID: "doc-1", DocumentKey: "key-1"}, handle)
}

func TestClient_Upload_OmitsEmptySourceLang(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, ok := r.MultipartForm.Value["source_lang"]
		assert.False(t, ok)
		_, _ = w.Write([]byte(`{"document_id":"d","document_key":"k"}`))
	})

	_, err := client.Upload(t.Context(), UploadRequest{
		FileName:   "a.docx",
		Body:       strings.NewReader("x"),
		TargetLang: "fr",
	})
	require.NoError(t, err)
}

func TestClient_Upload_RejectedCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Wrong endpoint"}`))
	})

	_, err := client.Upload(t.Context(), UploadRequest{
		FileName:   "a.pdf",
		Body:       strings.NewReader("x"),
		TargetLang: "de",
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Wrong endpoint", apiErr.Message)
	assert.Equal(t, "the translation API key was rejected", apiErr.Reason())
}

func TestClient_Upload_MissingHandle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"document_id":"only-id"}`))
	})

	_, err := client.Upload(t.Context(), UploadRequest{FileName: "a.pdf", Body: strings.NewReader("x"), TargetLang: "de"})
	require.Error(t, err)
}

func TestClient_Status(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/document/doc-1", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key-1", body["document_key"])
		_, _ = w.Write([]byte(`{"document_id":"doc-1","status":"translating","seconds_remaining":42,"billed_characters":1200}`))
	})

	status, err := client.Status(t.Context(), Handle{DocumentID: "doc-1", DocumentKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, StateTranslating, status.State)
	require.NotNil(t, status.SecondsRemaining)
	assert.Equal(t, 42, *status.SecondsRemaining)
	assert.Equal(t, 1200, status.BilledCharacters)
}

func TestClient_Status_ErrorState(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"document_id":"doc-1","status":"error","error_message":"Source and target language are equal."}`))
	})

	status, err := client.Status(t.Context(), Handle{DocumentID: "doc-1", DocumentKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, StateError, status.State)
	assert.Nil(t, status.SecondsRemaining)
	assert.Equal(t, "Source and target language are equal.", status.ErrorMessage)
}

func TestClient_Status_IncompleteHandle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})

	_, err := client.Status(t.Context(), Handle{DocumentID: "doc-1"})
	require.Error(t, err)
}

func TestClient_Download(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/document/doc-1/result", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("translated bytes"))
	})

	data, err := client.Download(t.Context(), Handle{DocumentID: "doc-1", DocumentKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, "translated bytes", string(data))
}

func TestClient_Download_Expired(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	})

	_, err := client.Download(t.Context(), Handle{DocumentID: "doc-1", DocumentKey: "key-1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not found", apiErr.Message)
}
