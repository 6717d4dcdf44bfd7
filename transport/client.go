package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client issues requests against the application, resolving relative
// targets against its origin. Its http.Client is expected to carry an
// Interceptor.
type Client struct {
	httpClient *http.Client
	src        TokenSource
}

func NewClient(httpClient *http.Client, src TokenSource) *Client {
	return &Client{httpClient: httpClient, src: src}
}

// HTTPClient returns the underlying client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Resolve turns target into an absolute URL. Relative targets resolve
// against the application origin; absolute ones are returned as-is.
func (c *Client) Resolve(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("Client.Resolve %q: %w", target, err)
	}
	if u.IsAbs() {
		return u, nil
	}
	origin := c.src.BaseURL()
	if origin == nil {
		return nil, fmt.Errorf("Client.Resolve %q: no application origin", target)
	}
	return origin.ResolveReference(u), nil
}

// Fetch sends a request to target. The caller closes the response body.
func (c *Client) Fetch(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	u, err := c.Resolve(target)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("Client.Fetch: %w", err)
	}
	return c.httpClient.Do(req)
}

// PostForm submits values as a form-encoded body.
func (c *Client) PostForm(ctx context.Context, target string, values url.Values) (*http.Response, error) {
	u, err := c.Resolve(target)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("Client.PostForm: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.httpClient.Do(req)
}
