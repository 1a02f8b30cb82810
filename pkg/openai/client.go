// Package openai is a minimal client for the OpenAI Files and Batch APIs:
// upload a JSONL artifact, open a batch referencing it, poll the batch, and
// fetch its raw output artifact. Only the surface the enrichment pipeline
// needs is implemented.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client defines the batch-lifecycle operations used by the pipeline. Every
// operation is idempotent on the remote side: submitting is the only call
// that creates state, and it is split into its two phases (upload, create)
// so a retry never double-opens a job by accident.
type Client interface {
	UploadFile(ctx context.Context, name, purpose string, data []byte) (*File, error)
	CreateBatch(ctx context.Context, req CreateBatchRequest) (*Batch, error)
	GetBatch(ctx context.Context, batchID string) (*Batch, error)
	ListBatches(ctx context.Context, limit int) ([]Batch, error)
	CancelBatch(ctx context.Context, batchID string) (*Batch, error)
	GetFileContent(ctx context.Context, fileID string) (string, error)
}

// APIError is a non-success response from the remote service, carrying the
// remote's status code and raw error payload for diagnosis. The caller
// decides retry vs. abort.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default outbound request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an OpenAI API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) UploadFile(ctx context.Context, name, purpose string, data []byte) (*File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", purpose); err != nil {
		return nil, eris.Wrap(err, "openai: write purpose field")
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, eris.Wrap(err, "openai: create form file")
	}
	if _, err := fw.Write(data); err != nil {
		return nil, eris.Wrap(err, "openai: write form file")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "openai: close multipart writer")
	}

	body, err := c.do(ctx, "upload file", http.MethodPost, "/files", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, eris.Wrap(err, "openai: unmarshal file")
	}
	return &f, nil
}

func (c *httpClient) CreateBatch(ctx context.Context, req CreateBatchRequest) (*Batch, error) {
	return c.batchCall(ctx, "create batch", http.MethodPost, "/batches", req)
}

func (c *httpClient) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	return c.batchCall(ctx, "get batch", http.MethodGet, "/batches/"+batchID, nil)
}

func (c *httpClient) CancelBatch(ctx context.Context, batchID string) (*Batch, error) {
	return c.batchCall(ctx, "cancel batch", http.MethodPost, "/batches/"+batchID+"/cancel", nil)
}

func (c *httpClient) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	path := "/batches"
	if limit > 0 {
		path = fmt.Sprintf("/batches?limit=%d", limit)
	}
	body, err := c.do(ctx, "list batches", http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	var page struct {
		Data []Batch `json:"data"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "openai: unmarshal batch list")
	}
	return page.Data, nil
}

func (c *httpClient) GetFileContent(ctx context.Context, fileID string) (string, error) {
	body, err := c.do(ctx, "get file content", http.MethodGet, "/files/"+fileID+"/content", nil, "")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// batchCall performs a JSON request that returns a single Batch resource.
func (c *httpClient) batchCall(ctx context.Context, op, method, path string, payload any) (*Batch, error) {
	var reqBody io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "openai: marshal request")
		}
		reqBody = bytes.NewReader(raw)
		contentType = "application/json"
	}

	body, err := c.do(ctx, op, method, path, reqBody, contentType)
	if err != nil {
		return nil, err
	}

	var b Batch
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, eris.Wrap(err, "openai: unmarshal batch")
	}
	return &b, nil
}

// do executes one rate-limited request and returns the raw response body.
// Non-2xx responses become *APIError.
func (c *httpClient) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "openai: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "openai: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("openai: %s", op))
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("openai: %s: read response", op))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
