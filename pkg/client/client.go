package client

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to a gatewarden dev harness.
type Client struct {
	addr       string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New builds a Client for the harness at addr, e.g. "http://localhost:8080".
func New(addr string, opts ...Option) *Client {
	c := &Client{
		addr:       strings.TrimRight(addr, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// url joins the harness address with a route path.
func (c *Client) url(route string) string {
	return c.addr + route
}
