package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/platform/auth"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d,"echo":%q}`, n, body)
	})
}

func post(h http.Handler, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	req = req.WithContext(WithActor(req.Context(), core.Actor{UserID: 5, Role: core.RoleBroker}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplaysRecordedResponse(t *testing.T) {
	_, rdb := newRedis(t)
	var calls int32
	h := Idempotency(rdb, time.Hour, discard)(countingHandler(&calls, http.StatusCreated))

	first := post(h, "/api/v1/offers/1:convert", "k-1", "x")
	require.Equal(t, http.StatusCreated, first.Code)

	second := post(h, "/api/v1/offers/1:convert", "k-1", "x")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(replayedHeader))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	mismatch := post(h, "/api/v1/offers/1:convert", "k-1", "y")
	assert.Equal(t, http.StatusConflict, mismatch.Code)

	other := post(h, "/api/v1/offers/2:convert", "k-1", "x")
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyPassThrough(t *testing.T) {
	_, rdb := newRedis(t)
	var calls int32
	h := Idempotency(rdb, time.Hour, discard)(countingHandler(&calls, http.StatusOK))

	post(h, "/api/v1/clients", "", "a")
	post(h, "/api/v1/clients", "", "a")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	req.Header.Set(idempotencyHeader, "k")
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))

	long := post(h, "/api/v1/clients", strings.Repeat("k", maxIdempotencyKey+1), "a")
	assert.Equal(t, http.StatusBadRequest, long.Code)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls int32
	h := Idempotency(rdb, time.Hour, discard)(countingHandler(&calls, http.StatusInternalServerError))

	post(h, "/api/v1/policies/1:cancel", "k-2", "")
	assert.Empty(t, mr.Keys())
	post(h, "/api/v1/policies/1:cancel", "k-2", "")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyInProgress(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls int32
	h := Idempotency(rdb, time.Hour, discard)(countingHandler(&calls, http.StatusOK))

	payload := `{"in_progress":true,"code":0,"body_sha256":"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855","created_at":"2025-06-02T10:00:00Z"}`
	require.NoError(t, mr.Set(idempotencyKey(5, http.MethodPost, "/api/v1/x", "k-3"), payload))

	rec := post(h, "/api/v1/x", "k-3", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestIdempotencyStoreDown(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	var calls int32
	h := Idempotency(rdb, time.Hour, discard)(countingHandler(&calls, http.StatusOK))

	rec := post(h, "/api/v1/x", "k-4", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestAuthenticate(t *testing.T) {
	signer, err := auth.NewSigner("0123456789abcdef-test-secret", "go-brokerage", time.Hour)
	require.NoError(t, err)
	brokerID := int64(3)
	token, err := signer.Issue(9, core.RoleBroker, &brokerID)
	require.NoError(t, err)

	var seen core.Actor
	h := Authenticate(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(viewAllHeader, "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(9), seen.UserID)
	assert.Equal(t, core.RoleBroker, seen.Role)
	assert.True(t, seen.ShowAllData)
	assert.False(t, seen.CanViewAllData(), "brokers never widen their scope")

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1001").Code)
	limited := hit("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, hit("[::1]:2000").Code)

	now = now.Add(31 * time.Second)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1003").Code)

	now = now.Add(10 * time.Minute)
	rl.evictIdle()
	assert.Empty(t, rl.visitors)
}

func TestCORSAndHeaders(t *testing.T) {
	h := CORS([]string{"https://app.brokerage.test"})(SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/offers", nil)
	req.Header.Set("Origin", "https://app.brokerage.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.brokerage.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/offers", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestLimitRequestBody(t *testing.T) {
	h := LimitRequestBody(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
