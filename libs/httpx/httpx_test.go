package httpx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(h http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.7:51234"
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := Chain(okHandler, NewRedisRateLimiter(rdb, 2, time.Minute, "test").Middleware(nil, false))

	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/", nil).Code)
	rec := request(h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// A different client has its own window.
	other := request(h, http.MethodGet, "/", map[string]string{"X-Forwarded-For": "192.0.2.1, 10.0.0.1"})
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	limiter := NewRedisRateLimiter(rdb, 1, time.Minute, "test")
	assert.Equal(t, http.StatusOK, request(Chain(okHandler, limiter.Middleware(nil, true)), http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, request(Chain(okHandler, limiter.Middleware(nil, false)), http.MethodGet, "/", nil).Code)
}

func TestLocalRateLimiter(t *testing.T) {
	h := Chain(okHandler, NewLocalRateLimiter(1, time.Minute))
	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(h, http.MethodGet, "/", nil).Code)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := request(h, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = request(h, http.MethodGet, "/", nil)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestWithCORS(t *testing.T) {
	h := Chain(okHandler, WithCORS(CORSPolicy{AllowedOrigins: []string{"https://app.example.com"}}))

	rec := request(h, http.MethodOptions, "/", map[string]string{
		"Origin":                        "https://app.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = request(h, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	noop := Chain(okHandler, WithCORS(CORSPolicy{}))
	rec = request(noop, http.MethodGet, "/", map[string]string{"Origin": "https://app.example.com"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type recordingObserver struct {
	route  string
	status int
}

func (o *recordingObserver) ObserveRequest(_, route string, status int, _ time.Duration) {
	o.route, o.status = route, status
}

func TestWithAccessLog_UsesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(WithRequestID, WithAccessLog(logger, obs))
	r.Get("/providers/{providerID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	request(r, http.MethodGet, "/providers/p-1", nil)
	assert.Equal(t, "/providers/{providerID}", obs.route)
	assert.Equal(t, http.StatusTeapot, obs.status)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/providers/p-1", line["path"])
	assert.Equal(t, "/providers/{providerID}", line["route"])
	assert.NotEmpty(t, line["request_id"])
}

func TestWithRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), WithRecover(logger))

	rec := request(h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "http handler panic")
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond, time.Minute))
	assert.Equal(t, 30, retryAfterSeconds(30*time.Second, time.Minute))
	assert.Equal(t, 60, retryAfterSeconds(-1, time.Minute))
}
