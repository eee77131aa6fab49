package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Auth produces the headers to attach to a request for (image, action).
// A nil Auth means no Authorization header is added.
type Auth interface {
	Headers(ctx context.Context, image, action string) (http.Header, error)
}

// BasicAuth returns an Auth that always sends the same HTTP Basic header.
func BasicAuth(user, pass string) Auth {
	return &basicAuth{user: user, pass: pass}
}

type basicAuth struct{ user, pass string }

func (a *basicAuth) Headers(ctx context.Context, image, action string) (http.Header, error) {
	creds := base64.StdEncoding.EncodeToString([]byte(a.user + ":" + a.pass))
	h := make(http.Header)
	h.Set("Authorization", "Basic "+creds)
	return h, nil
}

// DockerHubAuth returns an Auth that fetches a bearer token from Docker
// Hub's token endpoint, scoped to the (image, action) pair being
// authorized.
func DockerHubAuth(user, pass string) Auth {
	return &dockerHubAuth{user: user, pass: pass, httpClient: http.DefaultClient, baseURL: dockerHubTokenURL}
}

const dockerHubTokenURL = "https://auth.docker.io/token"

// DockerHubAuthFromEnv returns a DockerHubAuth seeded from the
// DOCKER_USERNAME/DOCKER_PASSWORD environment variables. Either may be
// empty (anonymous pulls of public images still work).
func DockerHubAuthFromEnv() Auth {
	return DockerHubAuth(os.Getenv("DOCKER_USERNAME"), os.Getenv("DOCKER_PASSWORD"))
}

type dockerHubAuth struct {
	user, pass string
	httpClient *http.Client
	baseURL    string
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (a *dockerHubAuth) Headers(ctx context.Context, image, action string) (http.Header, error) {
	q := url.Values{}
	q.Set("service", "registry.docker.io")
	if image != "" {
		scope := "repository:" + image + ":" + action
		q.Set("scope", scope)
	}
	tokenURL := a.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return nil, err
	}
	if a.user != "" {
		req.SetBasicAuth(a.user, a.pass)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching docker hub token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProtocolError{Op: "token", URL: tokenURL, StatusCode: resp.StatusCode, Body: body}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}

	h := make(http.Header)
	h.Set("Authorization", "Bearer "+tr.Token)
	return h, nil
}

// cachingAuth wraps an Auth with a TTL-bucketed, single-flight-coalesced
// cache: repeated calls for the same (bucket, image, action) within the
// same time bucket return the same headers without re-invoking the
// underlying Auth, and concurrent calls for a cold key collapse onto one
// upstream fetch. Bucketing (rather than a plain expiry timestamp) keeps
// the cache key itself reproducible across calls made in the same
// window: the cache key is (bucket, image, action), not a timestamp.
type cachingAuth struct {
	underlying Auth
	ttl        time.Duration
	group      singleflight.Group

	mu    sync.Mutex
	cache map[string]http.Header
}

func newCachingAuth(underlying Auth, ttl time.Duration) *cachingAuth {
	return &cachingAuth{
		underlying: underlying,
		ttl:        ttl,
		cache:      make(map[string]http.Header),
	}
}

func (c *cachingAuth) Headers(ctx context.Context, image, action string) (http.Header, error) {
	bucket := int64(0)
	if c.ttl > 0 {
		bucket = time.Now().Unix() / int64(c.ttl/time.Second)
	}
	key := fmt.Sprintf("%d/%s/%s", bucket, image, action)

	c.mu.Lock()
	if h, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		h, err := c.underlying.Headers(ctx, image, action)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = h
		c.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(http.Header), nil
}
