// Package transport provides the shared HTTP plumbing for the two catalog
// upstreams: authentication, request construction and response decoding
// into the romsync error taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/romsync/romsync/pkg/errors"
)

// Client wraps an HTTP client with a base URL and authentication for one
// upstream. Timeouts are enforced per call by the caller's context, not
// here, so the reconciler stays in control of cancellation.
type Client struct {
	name    string // upstream name used in errors: "romm" or "emby"
	baseURL string
	http    *http.Client
	auth    Authenticator
}

// New creates a transport client for the named upstream.
func New(name, baseURL string, auth Authenticator) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		auth:    auth,
	}
}

// Upstream returns the upstream name the client reports in errors.
func (c *Client) Upstream() string {
	return c.name
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

// PostJSON performs a POST request with a JSON body and decodes the JSON
// response into out. A nil out discards the response body.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.WrapProtocol(c.name, path, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

// Post performs a POST request with a raw body and content type, for
// binary uploads. The response body is discarded.
func (c *Client) Post(ctx context.Context, path string, contentType string, body io.Reader) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, path, nil)
}

// Delete performs a DELETE request. The response body is discarded.
func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, nil)
}

// newRequest builds an authenticated request against the upstream.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.WrapUpstream(c.name, path, err)
	}
	req.Header.Set("Accept", "application/json")
	c.auth.Apply(req)
	return req, nil
}

// do executes the request and decodes the response. Transport-level
// failures and non-2xx statuses become UpstreamErrors, whose status code
// drives the reconciler's retry/conflict classification; an undecodable
// body on a success status is a ProtocolError.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapUpstream(c.name, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapUpstream(c.name, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewUpstreamError(c.name, endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapProtocol(c.name, endpoint, err)
	}
	return nil
}
