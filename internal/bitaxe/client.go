// Package bitaxe talks to the bitaxe firmware's REST API.
package bitaxe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codeberg.org/mutker/axemon/internal/errors"
)

const defaultTimeout = 10 * time.Second

// HTTPClient fetches telemetry from one bitaxe device.
type HTTPClient struct {
	host       string
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// NewClient creates a client for the device at host (IP or hostname).
func NewClient(host string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		host:    host,
		baseURL: fmt.Sprintf("http://%s", host),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Host returns the device address this client talks to.
func (c *HTTPClient) Host() string {
	return c.host
}

// SystemInfo fetches the current telemetry snapshot. Connection
// failures, timeouts and non-200 responses are all transient fetch
// errors; the poller's backoff handles them.
func (c *HTTPClient) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	errFactory := errors.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/system/info", nil)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errFactory.WithData(errors.ErrTransientFetch, struct {
			Host   string
			Status int
			Body   string
		}{
			Host:   c.host,
			Status: resp.StatusCode,
			Body:   string(body),
		})
	}

	info := &SystemInfo{}
	if err := json.NewDecoder(resp.Body).Decode(info); err != nil {
		return nil, errFactory.Wrap(errors.ErrTransientFetch, err)
	}

	return info, nil
}
