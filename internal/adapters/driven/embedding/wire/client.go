// Package wire holds the HTTP plumbing shared by the embedding oracle
// adapters. Every failure it returns wraps domain.ErrEmbeddingUnavailable.
package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 512

// Client sends JSON requests to one embedding API.
type Client struct {
	provider string
	baseURL  string
	header   http.Header
	http     *http.Client
}

// New creates a client for the provider named in errors. header is sent
// with every request.
func New(provider, baseURL string, timeout time.Duration, header http.Header) *Client {
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		header:   header,
		http:     &http.Client{Timeout: timeout},
	}
}

// PostJSON sends in to path and decodes a 200 response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.Errorf("decode response: %w", err)
	}
	return nil
}

// Get checks that path answers 200 without reading the body.
func (c *Client) Get(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Errorf reports an unusable response from the provider.
func (c *Client) Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, c.provider, fmt.Errorf(format, args...))
}

// Close drops idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// do sends req and returns the response only for status 200.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	for k, v := range c.header {
		req.Header[k] = v
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.Errorf("send request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, c.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err)
	}
	return nil, c.Errorf("status %d: %s", resp.StatusCode, errorMessage(body))
}

// errorMessage extracts the message of an error body. Ollama sends
// {"error": "..."}; OpenAI sends {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Error) > 0 {
		var text string
		if json.Unmarshal(payload.Error, &text) == nil {
			return text
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// Float32s converts a decoded vector, requiring dims components when dims
// is positive.
func Float32s(values []float64, dims int) ([]float32, error) {
	if dims > 0 && len(values) != dims {
		return nil, fmt.Errorf("%w: got %d dimensions, configured %d", domain.ErrDimensionMismatch, len(values), dims)
	}
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}
