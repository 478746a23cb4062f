package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ayo6706/swift-remit/internal/idempotency"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryReplayStore struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func newMemoryReplayStore() *memoryReplayStore {
	return &memoryReplayStore{records: make(map[string]*idempotency.Record)}
}

func (s *memoryReplayStore) Lookup(_ context.Context, key, requestHash string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, idempotency.ErrNotFound
	}
	if rec.RequestHash != requestHash {
		return nil, idempotency.ErrHashMismatch
	}
	if rec.Status == 0 {
		return nil, idempotency.ErrInProgress
	}
	return rec, nil
}

func (s *memoryReplayStore) Reserve(_ context.Context, key, requestHash, _, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = &idempotency.Record{Key: key, RequestHash: requestHash}
	return true, nil
}

func (s *memoryReplayStore) Finalize(_ context.Context, key, requestHash string, status int, body []byte, contentType string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &idempotency.Record{Key: key, RequestHash: requestHash, Status: status, Body: body, ContentType: contentType, ServedBy: "memory"}
	s.records[key] = rec
	return rec, nil
}

func (s *memoryReplayStore) Release(_ context.Context, key, requestHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok && rec.RequestHash == requestHash && rec.Status == 0 {
		delete(s.records, key)
	}
	return nil
}

func (s *memoryReplayStore) WaitForCompletion(ctx context.Context, key, requestHash string) (*idempotency.Record, error) {
	return s.Lookup(ctx, key, requestHash)
}

func withActor(r *http.Request, actor models.Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorContextKey, actor))
}

func TestCSRFMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := CSRFMiddleware("csrf_token")(next)

	cases := []struct {
		name   string
		method string
		header string
		cookie string
		status int
	}{
		{name: "reads pass", method: http.MethodGet, status: http.StatusNoContent},
		{name: "matching token", method: http.MethodPost, header: "tok", cookie: "tok", status: http.StatusNoContent},
		{name: "missing header", method: http.MethodPost, cookie: "tok", status: http.StatusForbidden},
		{name: "mismatch", method: http.MethodPost, header: "tok", cookie: "other", status: http.StatusForbidden},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/v1/transactions", nil)
			if tc.header != "" {
				req.Header.Set(CSRFHeader, tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "csrf_token", Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestIdempotencyMiddlewareReplays(t *testing.T) {
	store := newMemoryReplayStore()
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	h := IdempotencyMiddleware(store, zap.NewNop())(next)
	actor := models.Actor{ID: uuid.New(), Email: "c@example.com", Role: "customer"}

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/transactions", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, withActor(req, actor))
		return w
	}

	first := send(`{"amount":"10.00"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	replay := send(`{"amount":"10.00"}`)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, "memory", replay.Header().Get("X-Idempotent-Replay"))

	conflict := send(`{"amount":"20.00"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, 1, calls)

	_, scoped := store.records[actor.ID.String()+":key-1"]
	assert.True(t, scoped)
}

func TestIdempotencyMiddlewareReleasesServerErrors(t *testing.T) {
	store := newMemoryReplayStore()
	status := http.StatusServiceUnavailable
	calls := 0
	h := IdempotencyMiddleware(store, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))
	actor := models.Actor{ID: uuid.New(), Email: "c@example.com", Role: "customer"}

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/transactions", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "retry-me")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, withActor(req, actor))
		return w.Code
	}

	assert.Equal(t, http.StatusServiceUnavailable, send())
	assert.Empty(t, store.records)

	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddlewareRequiresKey(t *testing.T) {
	h := IdempotencyMiddleware(newMemoryReplayStore(), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotencyMiddlewareDisabledWithoutStore(t *testing.T) {
	called := false
	h := IdempotencyMiddleware(nil, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/transactions", nil))
	assert.True(t, called)
}

func TestTraceMiddleware(t *testing.T) {
	var seen string
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", w.Header().Get("X-Trace-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", strings.Repeat("x", maxTraceIDLength+1))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), models.KindInternal)
}
