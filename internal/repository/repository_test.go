package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/swift-remit/internal/db"
	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/ayo6706/swift-remit/internal/testutil/dblock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env") // Load from root
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	dblock.Acquire(t)

	_, err := db.Migrate(dbURL)
	require.NoError(t, err)

	pool, err := db.Connect(context.Background(), dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), "TRUNCATE TABLE audit_log, transactions CASCADE")
	require.NoError(t, err)
	return pool
}

func TestRepository_CreateGetAndAudit(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	tx := newTransaction(uuid.New(), time.Now().UTC().Truncate(time.Microsecond))
	tx.Reference = "Invoice 42"
	require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))

	got, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, "250.75", got.Amount.StringFixed(2))
	assert.Equal(t, "Invoice 42", got.Reference)
	assert.True(t, tx.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.VerifiedAt)

	_, err = repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)

	trail, err := repo.AuditTrail(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "created", trail[0].Action)
	assert.Equal(t, "", trail[0].PrevStatus)
}

func TestRepository_PutIfStatusGuardsStatusAndVerifier(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	tx := newTransaction(uuid.New(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))

	verified := tx.Clone()
	verified.Status = domain.StatusVerified
	email := "a@bank.com"
	now := time.Now().UTC()
	verified.VerifiedByEmail = &email
	verified.VerifiedAt = &now
	require.NoError(t, repo.PutIfStatus(ctx, domain.StatusPending, verified, auditFor(verified, "verify", domain.StatusPending)))

	err := repo.PutIfStatus(ctx, domain.StatusPending, verified, auditFor(verified, "verify", domain.StatusPending))
	require.ErrorIs(t, err, models.ErrConflictingTransition)

	submitted := verified.Clone()
	submitted.Status = domain.StatusSubmittedToSwift
	other := "mallory@bank.com"
	submitted.VerifiedByEmail = &other
	require.NoError(t, repo.PutIfStatus(ctx, domain.StatusVerified, submitted, auditFor(submitted, "submit_to_swift", domain.StatusVerified)))

	got, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmittedToSwift, got.Status)
	assert.Equal(t, "a@bank.com", *got.VerifiedByEmail)

	missing := newTransaction(uuid.New(), time.Now())
	err = repo.PutIfStatus(ctx, domain.StatusPending, missing, auditFor(missing, "verify", domain.StatusPending))
	require.ErrorIs(t, err, models.ErrNotFound)

	trail, err := repo.AuditTrail(ctx, tx.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 3)
}

func TestRepository_ConcurrentPutIfStatusHasOneWinner(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	tx := newTransaction(uuid.New(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, status := range []string{domain.StatusVerified, domain.StatusRejected, domain.StatusVerified, domain.StatusRejected} {
		status := status
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := tx.Clone()
			next.Status = status
			if err := repo.PutIfStatus(ctx, domain.StatusPending, next, auditFor(next, status, domain.StatusPending)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRepository_Query(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	customer := uuid.New()

	var created []*models.Transaction
	for i := 0; i < 3; i++ {
		tx := newTransaction(customer, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))
		created = append(created, tx)
	}

	verified := created[0].Clone()
	verified.Status = domain.StatusVerified
	email := "B@bank.com"
	verified.VerifiedByEmail = &email
	require.NoError(t, repo.PutIfStatus(ctx, domain.StatusPending, verified, auditFor(verified, "verify", domain.StatusPending)))

	pending, err := repo.Query(ctx, models.TransactionFilter{Statuses: []string{domain.StatusPending}, OldestFirst: true})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, created[1].ID, pending[0].ID)

	lookup := "b@bank.com"
	mine, err := repo.Query(ctx, models.TransactionFilter{
		Statuses:        []string{domain.StatusVerified, domain.StatusSubmittedToSwift, domain.StatusCompleted},
		VerifiedByEmail: &lookup,
	})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created[0].ID, mine[0].ID)

	paged, err := repo.Query(ctx, models.TransactionFilter{CustomerID: &customer, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, created[1].ID, paged[0].ID)

	require.NoError(t, repo.Ping(ctx))
}
