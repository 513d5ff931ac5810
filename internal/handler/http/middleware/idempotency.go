package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-ledger-go/internal/handler/http/response"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyHeader       = "Idempotency-Key"
	IdempotencyReplayHeader = "Idempotent-Replayed"

	idempotencyLockTTL = 30 * time.Second
)

type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Idempotency replays the stored response of a POST that already completed with
// the same Idempotency-Key, and rejects a duplicate while the first is still
// running. Requests without the header pass through. Server errors are not
// stored so the caller can retry with the same key. Redis failures fail open.
func Idempotency(rdb *redis.Client, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempKey := r.Header.Get(IdempotencyHeader)
			if idempKey == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID := ""
			if _, claims, err := jwtauth.FromContext(ctx); err == nil {
				userID, _ = claims["user_id"].(string)
			}
			cacheKey := fmt.Sprintf("idemp:%s:%s:%s", r.URL.Path, userID, idempKey)
			lockKey := cacheKey + ":lock"

			val, err := rdb.Get(ctx, cacheKey).Bytes()
			switch {
			case err == nil:
				var cached cachedResponse
				if err := json.Unmarshal(val, &cached); err == nil {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set(IdempotencyReplayHeader, "true")
					w.WriteHeader(cached.Status)
					_, _ = w.Write(cached.Body)
					return
				}
				slog.WarnContext(ctx, "discarding unreadable idempotency entry", "key", cacheKey)
			case !errors.Is(err, redis.Nil):
				slog.ErrorContext(ctx, "idempotency lookup failed, continuing without it", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			isNew, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
			if err != nil {
				slog.ErrorContext(ctx, "idempotency lock failed, continuing without it", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !isNew {
				response.Conflict(w, "A request with this Idempotency-Key is still being processed")
				return
			}
			// The lock and the stored response must outlive a client disconnect.
			storeCtx := context.WithoutCancel(ctx)
			defer rdb.Del(storeCtx, lockKey)

			var body bytes.Buffer
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError || !json.Valid(body.Bytes()) {
				return
			}

			payload, err := json.Marshal(cachedResponse{Status: status, Body: body.Bytes()})
			if err != nil {
				return
			}
			if err := rdb.Set(storeCtx, cacheKey, payload, ttl).Err(); err != nil {
				slog.ErrorContext(ctx, "failed to store idempotent response", "key", cacheKey, "error", err)
			}
		})
	}
}
