// Package httpclient provides the shared outbound HTTP client.
//
// A Client is built once at startup with default settings: no client timeout,
// the standard connection pooling of a private transport, and no retries. Callers
// bound each call with their context. The transport propagates W3C trace context
// to downstream services.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxErrorBody caps the response body kept on a StatusError.
const maxErrorBody = 4 << 10

// Client is safe for concurrent use. None of its methods mutate it.
type Client struct {
	hc *http.Client
}

// New returns a client with default settings. It never fails.
func New() *Client {
	return &Client{
		hc: &http.Client{Transport: otelhttp.NewTransport(defaultTransport())},
	}
}

// defaultTransport clones http.DefaultTransport so that clients never share
// idle connection pools.
func defaultTransport() http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok || base == nil {
		return &http.Transport{}
	}
	return base.Clone()
}

// HTTPClient exposes the underlying handle for libraries that need one.
func (c *Client) HTTPClient() *http.Client { return c.hc }

// Do sends req as is. As with net/http, non-2xx responses are not errors and the
// caller must close the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpclient: nil request")
	}
	return c.hc.Do(req)
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.exchange(ctx, http.MethodGet, url, nil, out)
}

// PostJSON sends in as JSON and decodes the response into out. A nil out discards the body.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	return c.exchange(ctx, http.MethodPost, url, in, out)
}

// PutJSON sends in as JSON and discards the response body.
func (c *Client) PutJSON(ctx context.Context, url string, in any) error {
	return c.exchange(ctx, http.MethodPut, url, in, nil)
}

// Delete issues a DELETE and discards the response body.
func (c *Client) Delete(ctx context.Context, url string) error {
	return c.exchange(ctx, http.MethodDelete, url, nil, nil)
}

func (c *Client) exchange(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpclient: encode %s %s: %w", method, url, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("httpclient: build %s %s: %w", method, url, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       raw,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpclient: decode %s %s: %w", method, url, err)
	}
	return nil
}
