package registry

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBasicAuthHeader(t *testing.T) {
	a := BasicAuth("alice", "hunter2")
	h, err := a.Headers(context.Background(), "repo", "pull")
	if err != nil {
		t.Fatal(err)
	}
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
	if got := h.Get("Authorization"); got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
}

func TestDockerHubAuthFetchesToken(t *testing.T) {
	var gotScope string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotScope = r.URL.Query().Get("scope")
		w.Write([]byte(`{"token":"abc123"}`))
	}))
	defer srv.Close()

	a := &dockerHubAuth{httpClient: srv.Client(), baseURL: srv.URL}
	h, err := a.Headers(context.Background(), "library/busybox", "pull")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}

	if want := "repository:library/busybox:pull"; gotScope != want {
		t.Errorf("scope = %q, want %q", gotScope, want)
	}
	if got := h.Get("Authorization"); got != "Bearer abc123" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer abc123")
	}
}

func TestCachingAuthCoalescesConcurrentFetches(t *testing.T) {
	var calls int32
	underlying := authFunc(func(ctx context.Context, image, action string) (http.Header, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		h := make(http.Header)
		h.Set("Authorization", "Bearer x")
		return h, nil
	})

	c := newCachingAuth(underlying, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Headers(context.Background(), "repo", "pull"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("underlying Auth invoked %d times, want 1 (single-flight failed)", got)
	}
}

func TestCachingAuthBucketsByTTL(t *testing.T) {
	var calls int32
	underlying := authFunc(func(ctx context.Context, image, action string) (http.Header, error) {
		n := atomic.AddInt32(&calls, 1)
		h := make(http.Header)
		h.Set("Authorization", "Bearer "+strconv.Itoa(int(n)))
		return h, nil
	})

	c := newCachingAuth(underlying, time.Hour) // wide bucket: both calls land in it

	h1, err := c.Headers(context.Background(), "repo", "pull")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := c.Headers(context.Background(), "repo", "pull")
	if err != nil {
		t.Fatal(err)
	}
	if h1.Get("Authorization") != h2.Get("Authorization") {
		t.Errorf("expected cached header reused within the same TTL bucket")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("underlying Auth invoked %d times, want 1", got)
	}
}

type authFunc func(ctx context.Context, image, action string) (http.Header, error)

func (f authFunc) Headers(ctx context.Context, image, action string) (http.Header, error) {
	return f(ctx, image, action)
}
