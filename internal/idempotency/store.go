package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key body mismatch")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const (
	redisKeyPrefix = "remit:idempotency"
	waitInterval   = 50 * time.Millisecond
	maxWait        = 10 * time.Second
)

// Record is a stored response for one Idempotency-Key.
type Record struct {
	Key         string
	RequestHash string
	Status      int
	Body        []byte
	ContentType string
	ServedBy    string
}

// Store keeps idempotent responses in Postgres. Finished records are also written to
// redis when a client is configured, and redis is consulted first on lookup.
type Store struct {
	cache *responseCache
	db    *pgxpool.Pool
	ttl   time.Duration
}

func NewStore(rdb redis.Cmdable, db *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{cache: &responseCache{redis: rdb, ttl: ttl}, db: db, ttl: ttl}
}

// Lookup returns the finished record for key. It fails with ErrHashMismatch when the
// key was used for a different request and ErrInProgress while the first request runs.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	if rec, ok := s.cache.get(ctx, key); ok {
		if rec.RequestHash != requestHash {
			return nil, ErrHashMismatch
		}
		return rec, nil
	}

	var (
		rec        Record
		inProgress bool
	)
	err := s.db.QueryRow(ctx, `
		SELECT idempotency_key, request_hash, in_progress, response_status, COALESCE(response_body, ''::bytea), content_type
		FROM idempotency_keys
		WHERE idempotency_key = $1 AND expires_at > NOW()
	`, key).Scan(&rec.Key, &rec.RequestHash, &inProgress, &rec.Status, &rec.Body, &rec.ContentType)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	case rec.RequestHash != requestHash:
		return nil, ErrHashMismatch
	case inProgress:
		return nil, ErrInProgress
	}
	rec.ServedBy = "postgres"
	s.cache.set(ctx, rec)
	return &rec, nil
}

// Reserve claims key for a new request. It reports false when a live reservation or
// record already holds the key; an expired one is taken over.
func (s *Store) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	var reservedKey string
	err := s.db.QueryRow(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, expires_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW() + make_interval(secs => $5))
		ON CONFLICT (idempotency_key) DO UPDATE SET
			request_hash = EXCLUDED.request_hash,
			method = EXCLUDED.method,
			path = EXCLUDED.path,
			in_progress = TRUE,
			response_status = 0,
			response_body = NULL,
			content_type = '',
			created_at = NOW(),
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_keys.expires_at <= NOW()
		RETURNING idempotency_key
	`, key, requestHash, method, path, s.ttl.Seconds()).Scan(&reservedKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
}

// Finalize stores the response of a reserved request.
func (s *Store) Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*Record, error) {
	rec := &Record{ServedBy: "postgres"}
	err := s.db.QueryRow(ctx, `
		UPDATE idempotency_keys
		SET in_progress = FALSE, response_status = $3, response_body = $4, content_type = $5
		WHERE idempotency_key = $1 AND request_hash = $2 AND in_progress
		RETURNING idempotency_key, request_hash, response_status, response_body, content_type
	`, key, requestHash, status, body, contentType).Scan(&rec.Key, &rec.RequestHash, &rec.Status, &rec.Body, &rec.ContentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finalize idempotency key: %w", err)
	}
	s.cache.set(ctx, *rec)
	return rec, nil
}

// Release drops an unfinished reservation so the client may retry with the same key.
func (s *Store) Release(ctx context.Context, key, requestHash string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE idempotency_key = $1 AND request_hash = $2 AND in_progress
	`, key, requestHash)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// WaitForCompletion polls until the request holding key finishes, ctx ends, or a
// bounded wait elapses.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	ticker := time.NewTicker(waitInterval)
	defer ticker.Stop()
	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if !errors.Is(err, ErrInProgress) {
			return rec, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for idempotency key: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

type responseCache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

type cacheEnvelope struct {
	Key         string `json:"key"`
	Hash        string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

func (c *responseCache) get(ctx context.Context, key string) (*Record, bool) {
	if c.redis == nil {
		return nil, false
	}
	val, err := c.redis.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis idempotency lookup failed", zap.Error(err))
		}
		return nil, false
	}
	var env cacheEnvelope
	if err := json.Unmarshal(val, &env); err != nil {
		return nil, false
	}
	return &Record{
		Key:         env.Key,
		RequestHash: env.Hash,
		Status:      env.Status,
		Body:        env.Body,
		ContentType: env.ContentType,
		ServedBy:    "redis",
	}, true
}

func (c *responseCache) set(ctx context.Context, rec Record) {
	if c.redis == nil {
		return
	}
	payload, err := json.Marshal(cacheEnvelope{
		Key:         rec.Key,
		Hash:        rec.RequestHash,
		Status:      rec.Status,
		Body:        rec.Body,
		ContentType: rec.ContentType,
	})
	if err != nil {
		zap.L().Warn("marshal idempotency cache", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, redisKey(rec.Key), payload, c.ttl).Err(); err != nil {
		zap.L().Warn("redis idempotency cache set failed", zap.Error(err))
	}
}

func redisKey(key string) string {
	return redisKeyPrefix + ":" + key
}
