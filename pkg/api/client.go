// Package api is the remote data gateway for the requirements backend.
// It issues HTTP requests and returns decoded resources or a typed *Error;
// it never retries and never touches client-side caches.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single round trip.
const DefaultTimeout = 10 * time.Second

// Client talks to the requirements backend. All methods are safe for
// concurrent use; the zero value is not usable, construct with New.
type Client struct {
	baseURL string
	httpc   *http.Client
	logf    func(format string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// WithLogger sets a debug log sink. Disabled by default.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(c *Client) { c.logf = logf }
}

// New creates a gateway client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: DefaultTimeout},
		logf:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the shared response wrapper: {success, data?, error?, message?}.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// do issues one request and decodes the envelope into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return networkErr(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return networkErr(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logf("api: %s %s", method, u)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return networkErr(err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, out)
}

func decodeEnvelope(resp *http.Response, out any) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return networkErr(fmt.Errorf("decode response: %w", err))
	}

	if !env.Success {
		kind := KindServer
		if resp.StatusCode == http.StatusNotFound {
			kind = KindNotFound
		}
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		return &Error{Kind: kind, Message: msg, StatusCode: resp.StatusCode}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return networkErr(fmt.Errorf("decode data: %w", err))
		}
	}
	return nil
}

// download fetches a binary endpoint (no envelope) into w.
func (c *Client) download(ctx context.Context, path string, query url.Values, w io.Writer) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return networkErr(err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return networkErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: KindServer, Message: resp.Status, StatusCode: resp.StatusCode}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return networkErr(err)
	}
	return nil
}

// upload posts a multipart form with one file part plus extra fields.
func (c *Client) upload(ctx context.Context, path, filename string, file io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return networkErr(err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return networkErr(err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return networkErr(err)
		}
	}
	if err := mw.Close(); err != nil {
		return networkErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return networkErr(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logf("api: POST %s (multipart %s)", path, filename)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return networkErr(err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, out)
}
