package realestate

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-advisor/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:      3,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       2 * time.Millisecond,
		Multiplier:       2,
		RateLimitBackoff: time.Millisecond,
	}
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

// routes maps a request path to a fixture file and records hits per path.
type routes struct {
	t     *testing.T
	files map[string]string
	codes map[string]int
	hits  map[string]*atomic.Int32
	total atomic.Int32
}

func newRoutes(t *testing.T) *routes {
	return &routes{t: t, files: map[string]string{}, codes: map[string]int{}, hits: map[string]*atomic.Int32{}}
}

func (r *routes) file(path, name string) *routes {
	r.files[path] = name
	r.hits[path] = &atomic.Int32{}
	return r
}

func (r *routes) status(path string, code int) *routes {
	r.codes[path] = code
	r.hits[path] = &atomic.Int32{}
	return r
}

func (r *routes) count(path string) int {
	return int(r.hits[path].Load())
}

func (r *routes) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.total.Add(1)
	if h, ok := r.hits[req.URL.Path]; ok {
		h.Add(1)
	}
	if code, ok := r.codes[req.URL.Path]; ok {
		w.WriteHeader(code)
		w.Write([]byte(`{"message":"status"}`)) //nolint:errcheck
		return
	}
	name, ok := r.files[req.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(fixture(r.t, name)) //nolint:errcheck
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := []Option{WithBaseURL(srv.URL), WithRetry(fastRetry())}
	return NewClient("test-key", append(base, opts...)...)
}
