package trust

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkuran/gatewarden/internal/core"
)

// keySetServer serves a swappable JWKS payload and counts fetches.
type keySetServer struct {
	mu      sync.Mutex
	payload []byte
	calls   atomic.Int32
	*httptest.Server
}

func newKeySetServer(t *testing.T, payload []byte) *keySetServer {
	t.Helper()
	s := &keySetServer{payload: payload}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.mu.Lock()
		defer s.mu.Unlock()
		_, _ = w.Write(s.payload)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *keySetServer) swap(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = payload
}

func TestCachingSource_ReusesFreshSnapshot(t *testing.T) {
	server := newKeySetServer(t, newKeySetJSON(t, "kid-1"))
	source := NewCachingSource(NewFetcher(server.URL, time.Second, nil), 5*time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := source.ResolveKey(context.Background(), "kid-1"); err != nil {
			t.Fatalf("ResolveKey() unexpected error: %v", err)
		}
	}

	if got := server.calls.Load(); got != 1 {
		t.Errorf("fetch count = %d, want 1 for five lookups within the TTL", got)
	}
}

func TestCachingSource_RefreshesExpiredSnapshot(t *testing.T) {
	server := newKeySetServer(t, newKeySetJSON(t, "kid-1"))
	source := NewCachingSource(NewFetcher(server.URL, time.Second, nil), 5*time.Minute)

	if _, err := source.ResolveKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("ResolveKey() unexpected error: %v", err)
	}

	// move past the TTL
	source.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	if _, err := source.ResolveKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("ResolveKey() after expiry: %v", err)
	}
	if got := server.calls.Load(); got != 2 {
		t.Errorf("fetch count = %d, want 2 after the snapshot expired", got)
	}
}

func TestCachingSource_RefreshOnMissFindsRotatedKey(t *testing.T) {
	server := newKeySetServer(t, newKeySetJSON(t, "kid-old"))
	source := NewCachingSource(NewFetcher(server.URL, time.Second, nil), time.Hour)

	// prime the snapshot
	if _, err := source.ResolveKey(context.Background(), "kid-old"); err != nil {
		t.Fatalf("priming lookup: %v", err)
	}

	// the issuer rotates a new key in while the snapshot is still fresh
	server.swap(newKeySetJSON(t, "kid-old", "kid-new"))

	key, err := source.ResolveKey(context.Background(), "kid-new")
	if err != nil {
		t.Fatalf("ResolveKey() after rotation: %v", err)
	}
	if key == nil {
		t.Fatalf("ResolveKey() returned nil key")
	}
	if got := server.calls.Load(); got != 2 {
		t.Errorf("fetch count = %d, want exactly one forced refresh", got)
	}
}

func TestCachingSource_MissAfterRefreshReportsKeyNotFound(t *testing.T) {
	server := newKeySetServer(t, newKeySetJSON(t, "kid-1"))
	source := NewCachingSource(NewFetcher(server.URL, time.Second, nil), time.Hour)

	if _, err := source.ResolveKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("priming lookup: %v", err)
	}

	_, err := source.ResolveKey(context.Background(), "kid-ghost")
	if err == nil {
		t.Fatalf("ResolveKey() expected error for unknown kid")
	}
	if kind := core.KindOf(err); kind != core.KindKeyNotFound {
		t.Errorf("KindOf() = %v, want %v", kind, core.KindKeyNotFound)
	}
	// the miss is allowed exactly one refresh, not a retry storm
	if got := server.calls.Load(); got != 2 {
		t.Errorf("fetch count = %d, want 2", got)
	}
}

func TestCachingSource_PropagatesFetchFailure(t *testing.T) {
	server := newKeySetServer(t, []byte("not json at all"))
	source := NewCachingSource(NewFetcher(server.URL, time.Second, nil), time.Hour)

	_, err := source.ResolveKey(context.Background(), "kid-1")
	if err == nil {
		t.Fatalf("ResolveKey() expected error")
	}
	if kind := core.KindOf(err); kind != core.KindKeySetUnavailable {
		t.Errorf("KindOf() = %v, want %v", kind, core.KindKeySetUnavailable)
	}
}

func TestCachingSource_ConcurrentLookups(t *testing.T) {
	server := newKeySetServer(t, newKeySetJSON(t, "kid-1"))
	source := NewCachingSource(NewFetcher(server.URL, time.Second, nil), time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := source.ResolveKey(context.Background(), "kid-1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent ResolveKey(): %v", err)
	}
}
