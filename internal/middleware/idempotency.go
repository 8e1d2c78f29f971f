package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/MrKriegler/go-brokerage/pkg/problem"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxIdempotencyKey = 128

	// provisionalLockTTL bounds how long an unfinished request holds its key.
	provisionalLockTTL = 60 * time.Second
	storeTimeout       = 2 * time.Second
)

type idempotencyEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	BodySHA256  string    `json:"body_sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

type responseRecorder struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the recorded response when a mutating request repeats its
// Idempotency-Key. Requests without the header pass through untouched. It must run
// after Authenticate so keys are scoped per user.
func Idempotency(rdb redis.Cmdable, ttl time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			idemKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if idemKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(idemKey) > maxIdempotencyKey {
				problem.Write(w, http.StatusBadRequest, "Bad Request", "Idempotency-Key is too long")
				return
			}

			// 1) Buffer and hash the body
			body, err := io.ReadAll(r.Body)
			if err != nil {
				problem.Write(w, http.StatusBadRequest, "Bad Request", "Could not read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			bodyHash := hex.EncodeToString(sum[:])

			// 2) Claim the key
			key := idempotencyKey(ActorFrom(r.Context()).UserID, r.Method, r.URL.Path, idemKey)
			ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
			defer cancel()

			claimed, err := claimKey(ctx, rdb, key, bodyHash)
			if err != nil {
				log.Error("idempotency store unavailable", "error", err)
				problem.Write(w, http.StatusServiceUnavailable, "Service Unavailable", "Idempotency store unavailable")
				return
			}
			if !claimed {
				replay(ctx, w, rdb, key, bodyHash, log)
				return
			}

			// 3) Run the handler and record the outcome
			rec := &responseRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(r.Context()), storeTimeout)
			defer saveCancel()
			if rec.code >= http.StatusInternalServerError {
				// let the client retry with the same key
				if err := rdb.Del(saveCtx, key).Err(); err != nil {
					log.Warn("idempotency key release failed", "key", key, "error", err)
				}
				return
			}
			final := idempotencyEntry{
				Code:        rec.code,
				ContentType: w.Header().Get("Content-Type"),
				Body:        rec.buf.Bytes(),
				BodySHA256:  bodyHash,
				CreatedAt:   time.Now().UTC(),
			}
			if err := saveEntry(saveCtx, rdb, key, final, ttl); err != nil {
				log.Warn("idempotency result not recorded", "key", key, "error", err)
			}
		})
	}
}

func replay(ctx context.Context, w http.ResponseWriter, rdb redis.Cmdable, key, bodyHash string, log *slog.Logger) {
	cur, err := loadEntry(ctx, rdb, key)
	if err != nil {
		log.Warn("idempotency entry unreadable", "key", key, "error", err)
		problem.Write(w, http.StatusConflict, "Conflict", "Request is already in progress")
		return
	}
	if cur.BodySHA256 != bodyHash {
		problem.Write(w, http.StatusConflict, "Conflict", "Idempotency-Key reused with a different body")
		return
	}
	if cur.InProgress {
		problem.Write(w, http.StatusConflict, "Conflict", "Request is already in progress")
		return
	}
	if cur.ContentType != "" {
		w.Header().Set("Content-Type", cur.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(cur.Code)
	_, _ = w.Write(cur.Body)
}

func idempotencyKey(userID int64, method, path, key string) string {
	return "idem:" + strconv.FormatInt(userID, 10) + ":" + strings.ToLower(method) + ":" + path + ":" + key
}

func claimKey(ctx context.Context, rdb redis.Cmdable, key, bodyHash string) (bool, error) {
	payload, err := json.Marshal(idempotencyEntry{InProgress: true, BodySHA256: bodyHash, CreatedAt: time.Now().UTC()})
	if err != nil {
		return false, err
	}
	return rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func loadEntry(ctx context.Context, rdb redis.Cmdable, key string) (idempotencyEntry, error) {
	var e idempotencyEntry
	v, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(v, &e)
	return e, err
}

func saveEntry(ctx context.Context, rdb redis.Cmdable, key string, e idempotencyEntry, ttl time.Duration) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, payload, ttl).Err()
}
