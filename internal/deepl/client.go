package deepl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	ProAPIURL  = "https://api.deepl.com"
	FreeAPIURL = "https://api-free.deepl.com"

	// free-tier keys carry this suffix
	freeKeySuffix = ":fx"
)

// Config holds the credentials and endpoint of the document API.
type Config struct {
	AuthKey string
	// APIURL overrides the host derived from the key.
	APIURL  string
	Timeout time.Duration
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AuthKey) == "" {
		return fmt.Errorf("deepl auth key is required")
	}
	if c.APIURL != "" {
		if _, err := url.ParseRequestURI(c.APIURL); err != nil {
			return fmt.Errorf("invalid deepl api url: %w", err)
		}
	}
	return nil
}

// BaseURL picks the configured URL or the free/pro host matching the key.
func (c Config) BaseURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	if strings.HasSuffix(strings.TrimSpace(c.AuthKey), freeKeySuffix) {
		return FreeAPIURL
	}
	return ProAPIURL
}

// Client talks to the DeepL document translation endpoints.
// Safe for concurrent use.
type Client struct {
	authKey    string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		authKey: strings.TrimSpace(cfg.AuthKey),
		baseURL: cfg.BaseURL(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Upload submits a document for translation. It never retries.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (Handle, error) {
	if req.Body == nil {
		return Handle{}, fmt.Errorf("upload body is nil")
	}
	if req.TargetLang == "" {
		return Handle{}, fmt.Errorf("target language is required")
	}

	// Stream the multipart body so large documents are not buffered twice.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, req))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/document", pr)
	if err != nil {
		_ = pr.Close()
		return Handle{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	if err := c.do(httpReq, &resp); err != nil {
		_ = pr.CloseWithError(err)
		return Handle{}, err
	}

	handle := Handle{DocumentID: resp.DocumentID, DocumentKey: resp.DocumentKey}
	if !handle.Valid() {
		return Handle{}, fmt.Errorf("upload response is missing the document handle")
	}
	return handle, nil
}

func writeUploadForm(mw *multipart.Writer, req UploadRequest) error {
	if req.SourceLang != "" {
		if err := mw.WriteField("source_lang", strings.ToUpper(req.SourceLang)); err != nil {
			return err
		}
	}
	if err := mw.WriteField("target_lang", strings.ToUpper(req.TargetLang)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", req.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return err
	}
	return mw.Close()
}

// Status fetches the current state of a document.
func (c *Client) Status(ctx context.Context, h Handle) (Status, error) {
	httpReq, err := c.documentRequest(ctx, "/v2/document/"+url.PathEscape(h.DocumentID), h)
	if err != nil {
		return Status{}, err
	}
	var status Status
	if err := c.do(httpReq, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Download retrieves the translated document. The provider only serves it once.
func (c *Client) Download(ctx context.Context, h Handle) ([]byte, error) {
	httpReq, err := c.documentRequest(ctx, "/v2/document/"+url.PathEscape(h.DocumentID)+"/result", h)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read result body: %w", err)
	}
	return data, nil
}

func (c *Client) documentRequest(ctx context.Context, path string, h Handle) (*http.Request, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("document handle is incomplete")
	}
	body, err := json.Marshal(map[string]string{"document_key": h.DocumentKey})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.authKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var parsed errorBody
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		apiErr.Message = parsed.Message
		if parsed.Detail != "" {
			apiErr.Message += ": " + parsed.Detail
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
