package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayo6706/swift-remit/internal/api/problem"
	"github.com/ayo6706/swift-remit/internal/idempotency"
	"github.com/ayo6706/swift-remit/internal/observability"
	"go.uber.org/zap"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	replayHeader            = "X-Idempotent-Replay"
	maxIdempotencyKeyLength = 255
)

var mutatingMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// ReplayStore persists idempotent responses.
type ReplayStore interface {
	Lookup(ctx context.Context, key, requestHash string) (*idempotency.Record, error)
	Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error)
	Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*idempotency.Record, error)
	Release(ctx context.Context, key, requestHash string) error
	WaitForCompletion(ctx context.Context, key, requestHash string) (*idempotency.Record, error)
}

// IdempotencyMiddleware enforces the Idempotency-Key contract for mutating requests.
// Keys are scoped to the authenticated actor, so two actors can never collide on the
// same client-chosen key. Server errors release the reservation instead of being
// replayed. A nil store disables the middleware.
func IdempotencyMiddleware(store ReplayStore, logger *zap.Logger) func(http.Handler) http.Handler {
	g := &replayGuard{store: store, logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := mutatingMethods[r.Method]; !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next)
		})
	}
}

type replayGuard struct {
	store  ReplayStore
	logger *zap.Logger
}

func (g *replayGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	key, ok := scopedKey(r)
	if !ok {
		observability.IncrementIdempotencyEvent("missing_key")
		problem.Write(w, r, http.StatusBadRequest, problem.Type("idempotency/missing-key"), http.StatusText(http.StatusBadRequest), "Idempotency-Key header is required (at most 255 characters)")
		return
	}
	body, err := bufferBody(r)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("request/invalid-body"), http.StatusText(http.StatusBadRequest), "Failed to read request body")
		return
	}
	hash := hashRequest(r.Method, r.URL.Path, body)

	if g.replayed(w, r, key, hash) {
		return
	}

	reserved, err := g.store.Reserve(r.Context(), key, hash, r.Method, r.URL.Path)
	switch {
	case err != nil:
		observability.IncrementIdempotencyEvent("reserve_error")
		g.logger.Error("idempotency reserve failed", zap.Error(err))
		problem.Write(w, r, http.StatusServiceUnavailable, problem.Type("idempotency/unavailable"), http.StatusText(http.StatusServiceUnavailable), "idempotency unavailable")
		return
	case !reserved:
		g.await(w, r, key, hash, "replay_after_reserve")
		return
	}
	observability.IncrementIdempotencyEvent("reserved")

	rec := &bodyRecorder{ResponseWriter: w}
	next.ServeHTTP(rec, r)
	g.persist(context.WithoutCancel(r.Context()), key, hash, rec)
}

// replayed answers from a stored record when one exists and reports whether the
// request was fully handled.
func (g *replayGuard) replayed(w http.ResponseWriter, r *http.Request, key, hash string) bool {
	rec, err := g.store.Lookup(r.Context(), key, hash)
	switch {
	case err == nil:
		observability.IncrementIdempotencyEvent("replay")
		respondFromRecord(w, rec)
		return true
	case errors.Is(err, idempotency.ErrHashMismatch):
		observability.IncrementIdempotencyEvent("hash_mismatch")
		problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/key-conflict"), http.StatusText(http.StatusConflict), "conflicting idempotency key")
		return true
	case errors.Is(err, idempotency.ErrInProgress):
		g.await(w, r, key, hash, "replay_after_wait")
		return true
	case !errors.Is(err, idempotency.ErrNotFound):
		observability.IncrementIdempotencyEvent("lookup_error")
		g.logger.Warn("idempotency lookup failed", zap.Error(err))
	}
	return false
}

func (g *replayGuard) await(w http.ResponseWriter, r *http.Request, key, hash, event string) {
	rec, err := g.store.WaitForCompletion(r.Context(), key, hash)
	if err != nil {
		observability.IncrementIdempotencyEvent("in_progress_conflict")
		g.logger.Warn("idempotency wait failed", zap.Error(err))
		problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/in-progress"), http.StatusText(http.StatusConflict), "idempotency processing")
		return
	}
	observability.IncrementIdempotencyEvent(event)
	respondFromRecord(w, rec)
}

func (g *replayGuard) persist(ctx context.Context, key, hash string, rec *bodyRecorder) {
	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		if err := g.store.Release(ctx, key, hash); err != nil {
			g.logger.Warn("idempotency release failed", zap.Error(err), zap.String("key", key))
		}
		observability.IncrementIdempotencyEvent("released")
		return
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	if _, err := g.store.Finalize(ctx, key, hash, status, rec.body.Bytes(), contentType); err != nil {
		observability.IncrementIdempotencyEvent("finalize_error")
		g.logger.Warn("idempotency finalize failed", zap.Error(err), zap.String("key", key))
		return
	}
	observability.IncrementIdempotencyEvent("finalized")
}

func scopedKey(r *http.Request) (string, bool) {
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if clientKey == "" || len(clientKey) > maxIdempotencyKeyLength {
		return "", false
	}
	if actorID := UserIDFromContext(r.Context()); actorID != "" {
		return actorID + ":" + clientKey, true
	}
	return clientKey, true
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// bodyRecorder tees the response so it can be stored for replay.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if br.status == 0 {
		br.status = http.StatusOK
	}
	br.body.Write(b)
	return br.ResponseWriter.Write(b)
}

func respondFromRecord(w http.ResponseWriter, rec *idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set(replayHeader, rec.ServedBy)
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}
