package middleware

import (
	"encoding/json"
	"io"
	"medisched/pkg/auth"
	"medisched/pkg/logger"
	"medisched/pkg/signature"
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
)

const testSecret = "0123456789abcdef0123456789abcdef"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signedToken(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, err := auth.SignToken(p, testSecret, time.Minute)
	require.NoError(t, err)
	return token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestAuthenticate(t *testing.T) {
	log := logger.Discard()

	tests := []struct {
		name         string
		path         string
		header       string
		expectStatus int
	}{
		{"missing header", "/api/v1/appointments", "", http.StatusUnauthorized},
		{"not bearer", "/api/v1/appointments", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "/api/v1/appointments", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/api/v1/appointments", "Bearer " + signedToken(t, auth.Principal{ID: "p1", Role: auth.RolePatient}), http.StatusOK},
		{"exempt prefix", "/internal/v1/prescriptions/completed", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *auth.Principal
			handler := Authenticate(testSecret, log, "/internal/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = auth.FromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectStatus, rec.Code)
			if tt.name == "valid token" {
				require.NotNil(t, seen)
				assert.Equal(t, "p1", seen.ID)
			}
			if tt.expectStatus == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
			}
		})
	}
}

func TestRateLimit_PerPrincipal(t *testing.T) {
	limiter := NewKeyRateLimiter(2, time.Minute, nil, logger.Discard())
	defer limiter.Stop()
	handler := RateLimit(limiter)(okHandler())

	call := func(id string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: id, Role: auth.RolePatient}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("alice"))
	assert.Equal(t, http.StatusOK, call("alice"))
	assert.Equal(t, http.StatusTooManyRequests, call("alice"))
	assert.Equal(t, http.StatusOK, call("bob"))
}

func TestKeyRateLimiter_WindowSlides(t *testing.T) {
	limiter := NewKeyRateLimiter(1, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	now := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("k"))
	assert.False(t, limiter.Allow("k"))

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("k"))
	assert.True(t, limiter.Allow(""), "empty key is never limited")
}

func TestPrincipalKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "ip:10.1.2.3", PrincipalKey(req))

	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: "u1", Role: auth.RoleAdmin}))
	assert.Equal(t, "principal:u1", PrincipalKey(req))
}

func idempotencyStores(t *testing.T) map[string]IdempotencyStore {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	memory := NewInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(memory.Stop)

	return map[string]IdempotencyStore{
		"memory": memory,
		"redis":  NewRedisIdempotencyStore(rdb, time.Hour),
	}
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	for name, store := range idempotencyStores(t) {
		t.Run(name, func(t *testing.T) {
			var calls int32
			handler := Idempotency(store, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"data":{"n":` + string(rune('0'+n)) + `}}`))
			}))

			send := func(principal string) *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{}`))
				req.Header.Set(IdempotencyHeader, "key-1")
				req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: principal, Role: auth.RolePatient}))
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				return rec
			}

			first := send("p1")
			second := send("p1")
			other := send("p2")

			assert.Equal(t, http.StatusCreated, first.Code)
			assert.Equal(t, http.StatusCreated, second.Code)
			assert.Equal(t, first.Body.String(), second.Body.String())
			assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
			assert.NotEqual(t, first.Body.String(), other.Body.String(), "keys are scoped per principal")
			assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		})
	}
}

func TestIdempotency_DoesNotCacheErrors(t *testing.T) {
	for name, store := range idempotencyStores(t) {
		t.Run(name, func(t *testing.T) {
			var calls int32
			handler := Idempotency(store, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(http.StatusConflict)
			}))

			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(http.MethodPost, "/x", nil)
				req.Header.Set(IdempotencyHeader, "same")
				handler.ServeHTTP(httptest.NewRecorder(), req)
			}
			assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		})
	}
}

func TestRedisIdempotencyStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := NewRedisIdempotencyStore(rdb, time.Minute)
	ctx := t.Context()

	require.NoError(t, store.Set(ctx, "k", &CachedResponse{StatusCode: 201, Body: []byte("ok")}))
	cached, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 201, cached.StatusCode)
	assert.Equal(t, []byte("ok"), cached.Body)

	mr.FastForward(2 * time.Minute)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMaxRequestSize(t *testing.T) {
	handler := MaxRequestSize(16, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, small)
	assert.Equal(t, http.StatusOK, rec.Code)

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", errorCode(t, rec))
}

func TestContentTypeValidation(t *testing.T) {
	handler := ContentTypeValidation(logger.Discard())(okHandler())

	tests := []struct {
		name         string
		method       string
		body         string
		contentType  string
		expectStatus int
	}{
		{"json post", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"text post", http.MethodPost, `{}`, "text/plain", http.StatusUnsupportedMediaType},
		{"bodyless post", http.MethodPost, "", "", http.StatusOK},
		{"get", http.MethodGet, "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectStatus, rec.Code)
		})
	}
}

func TestSignatureVerification(t *testing.T) {
	secret := "webhook-secret"
	body := `{"appointment_id":"a1","prescription_id":"rx1"}`
	handler := SignatureVerification(secret, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ := io.ReadAll(r.Body)
		assert.Equal(t, body, string(got), "body must be restored for the handler")
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name         string
		signature    string
		expectStatus int
	}{
		{"valid with prefix", "sha256=" + signature.Sign([]byte(body), secret), http.StatusOK},
		{"valid bare", signature.Sign([]byte(body), secret), http.StatusOK},
		{"wrong secret", "sha256=" + signature.Sign([]byte(body), "other"), http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/v1/prescriptions/completed", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectStatus, rec.Code)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	handler := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecovery_WithTimeoutPanics(t *testing.T) {
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Recovery(logger.Discard()), RequestTimeout(time.Second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
}

func TestRequestLogging_SetsRequestID(t *testing.T) {
	var seen string
	handler := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	inbound := "0b6f0c2e-8c8e-4a8b-9a55-6d5b1f6c2a10"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, inbound, seen)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler(), mark("outer"), mark("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
