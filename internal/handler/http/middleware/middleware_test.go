package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cmlabs-hris/payroll-ledger-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func countingHandler(calls *atomic.Int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"success":true,"data":{"call":%d}}`, n)
	})
}

func postWithKey(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/batches/b1/process", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ===== IDEMPOTENCY TESTS =====

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	var calls atomic.Int32
	h := Idempotency(rdb, time.Hour)(countingHandler(&calls, http.StatusCreated))

	// Act
	first := postWithKey(h, "key-1")
	second := postWithKey(h, "key-1")

	// Assert
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(IdempotencyReplayHeader))
	assert.Empty(t, first.Header().Get(IdempotencyReplayHeader))

	keys := mr.Keys()
	require.Len(t, keys, 1, "lock is released after the request")
	assert.True(t, mr.TTL(keys[0]) > 0)
}

func TestIdempotency_DifferentKeysRunSeparately(t *testing.T) {
	_, rdb := newTestRedis(t)
	var calls atomic.Int32
	h := Idempotency(rdb, time.Hour)(countingHandler(&calls, http.StatusOK))

	postWithKey(h, "key-1")
	postWithKey(h, "key-2")
	postWithKey(h, "")
	postWithKey(h, "")

	assert.Equal(t, int32(4), calls.Load())
}

func TestIdempotency_InFlightDuplicateIsRejected(t *testing.T) {
	mr, rdb := newTestRedis(t)
	var calls atomic.Int32
	h := Idempotency(rdb, time.Hour)(countingHandler(&calls, http.StatusOK))
	require.NoError(t, mr.Set("idemp:/api/v1/payroll/batches/b1/process::key-1:lock", "locked"))

	rec := postWithKey(h, "key-1")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int32(0), calls.Load())
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	_, rdb := newTestRedis(t)
	var calls atomic.Int32
	h := Idempotency(rdb, time.Hour)(countingHandler(&calls, http.StatusInternalServerError))

	postWithKey(h, "key-1")
	postWithKey(h, "key-1")

	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_RedisDownFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	var calls atomic.Int32
	h := Idempotency(rdb, time.Hour)(countingHandler(&calls, http.StatusOK))

	rec := postWithKey(h, "key-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), calls.Load())
}

// ===== AUTH TESTS =====

func newAuthRouter(t *testing.T, svc jwt.Service, mws ...func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(svc.JWTAuth()))
	r.Use(AuthRequired(svc))
	for _, mw := range mws {
		r.Use(mw)
	}
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	return r
}

func getWithToken(h http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthRequired(t *testing.T) {
	svc := jwt.NewJWTService(testSecret, time.Hour)
	h := newAuthRouter(t, svc)

	token, _, err := svc.GenerateAccessToken(jwt.Claims{UserID: "u1", CompanyID: "c1", Role: jwt.RoleOwner})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, getWithToken(h, token))
	assert.Equal(t, http.StatusUnauthorized, getWithToken(h, ""))
	assert.Equal(t, http.StatusUnauthorized, getWithToken(h, "not-a-token"))

	svc.RevokeToken(token)
	assert.Equal(t, http.StatusUnauthorized, getWithToken(h, token))
}

func TestAuthRequired_RejectsOtherSecret(t *testing.T) {
	svc := jwt.NewJWTService(testSecret, time.Hour)
	other := jwt.NewJWTService("another-secret", time.Hour)
	h := newAuthRouter(t, svc)

	token, _, err := other.GenerateAccessToken(jwt.Claims{UserID: "u1", CompanyID: "c1", Role: jwt.RoleOwner})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, getWithToken(h, token))
}

func TestRequireRole(t *testing.T) {
	svc := jwt.NewJWTService(testSecret, time.Hour)
	h := newAuthRouter(t, svc, RequireManager)

	tests := []struct {
		role jwt.Role
		want int
	}{
		{jwt.RoleOwner, http.StatusNoContent},
		{jwt.RoleManager, http.StatusNoContent},
		{jwt.RoleViewer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			token, _, err := svc.GenerateAccessToken(jwt.Claims{UserID: "u1", CompanyID: "c1", Role: tt.role})
			require.NoError(t, err)
			assert.Equal(t, tt.want, getWithToken(h, token))
		})
	}
}

func TestRequireCompany(t *testing.T) {
	svc := jwt.NewJWTService(testSecret, time.Hour)
	h := newAuthRouter(t, svc, RequireCompany)

	bound, _, err := svc.GenerateAccessToken(jwt.Claims{UserID: "u1", CompanyID: "c1", Role: jwt.RoleOwner})
	require.NoError(t, err)
	unbound, _, err := svc.GenerateAccessToken(jwt.Claims{UserID: "u1", Role: jwt.RoleOwner})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, getWithToken(h, bound))
	assert.Equal(t, http.StatusForbidden, getWithToken(h, unbound))
}
