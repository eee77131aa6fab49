// Package registry implements an OCI/Docker Distribution v2 registry
// client: manifest and blob retrieval, blob/manifest upload, catalog and
// tag listing, and the pull/push algorithms that bridge the wire format
// to the in-memory image.Image model.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTTL = 60 * time.Second

// Client talks to a single registry host. Its only mutable state is the
// auth cache. Most operations are a single HTTP round-trip; the
// exceptions (GetManifestConfiguration, UploadManifest, DeleteImage,
// PullImage, PushImage) describe their extra requests on their own docs.
type Client struct {
	hostname   string
	auth       Auth
	ttl        time.Duration
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithAuth attaches an authenticator. Without one, requests carry no
// Authorization header.
func WithAuth(a Auth) Option {
	return func(c *Client) { c.auth = a }
}

// WithTTL overrides the auth token cache bucket width (default 60s).
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithHTTPClient overrides the transport used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches structured logging. Without one, operations are
// silent.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client for hostname (e.g. "https://registry-1.docker.io"
// or "http://localhost:5000"), applying opts in order.
func New(hostname string, opts ...Option) *Client {
	c := &Client{
		hostname:   hostname,
		ttl:        defaultTTL,
		httpClient: http.DefaultClient,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.auth != nil {
		c.auth = newCachingAuth(c.auth, c.ttl)
	}
	return c
}

// request is the one place every operation dispatches an HTTP call:
// resolve the URL, attach auth headers for (image, action) when given,
// send, and hand back the raw response with its body already read into
// memory. It never inspects the status code — every caller in ops.go
// decides what counts as success.
func (c *Client) request(ctx context.Context, method, path string, headers http.Header, body io.Reader, image, action string) (*http.Response, []byte, error) {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.hostname + path
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if c.auth != nil {
		authHeaders, err := c.auth.Headers(ctx, image, action)
		if err != nil {
			return nil, nil, fmt.Errorf("authenticating: %w", err)
		}
		for k, vs := range authHeaders {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}
	}

	c.log.Debugw("registry request", "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp, respBody, nil
}

func statusOK(resp *http.Response, want ...int) bool {
	for _, w := range want {
		if resp.StatusCode == w {
			return true
		}
	}
	return false
}
