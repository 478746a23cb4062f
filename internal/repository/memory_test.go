package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransaction(customerID uuid.UUID, createdAt time.Time) *models.Transaction {
	return &models.Transaction{
		ID:               uuid.New(),
		CustomerID:       customerID,
		CustomerEmail:    "cust@example.com",
		CustomerName:     "Carol Customer",
		CustomerCountry:  "ZA",
		Amount:           decimal.RequireFromString("250.75"),
		Currency:         domain.CurrencyEUR,
		RecipientName:    "Jane Recipient",
		RecipientAccount: "DE89370400440532013000",
		RecipientSwift:   "COBADEFFXXX",
		Status:           domain.StatusPending,
		CreatedAt:        createdAt,
	}
}

func auditFor(t *models.Transaction, action, prev string) models.AuditEntry {
	return models.AuditEntry{
		TransactionID: t.ID,
		Action:        action,
		PrevStatus:    prev,
		NextStatus:    t.Status,
		ActorEmail:    "a@bank.com",
		ActorRole:     domain.RoleEmployee,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestMemoryRepository_PutIfStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	tx := newTransaction(uuid.New(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))

	next := tx.Clone()
	next.Status = domain.StatusVerified
	email := "a@bank.com"
	next.VerifiedByEmail = &email
	require.NoError(t, repo.PutIfStatus(ctx, domain.StatusPending, next, auditFor(next, "verify", domain.StatusPending)))

	stale := tx.Clone()
	stale.Status = domain.StatusRejected
	err := repo.PutIfStatus(ctx, domain.StatusPending, stale, auditFor(stale, "reject", domain.StatusPending))
	require.ErrorIs(t, err, models.ErrConflictingTransition)

	stored, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, stored.Status)

	trail, err := repo.AuditTrail(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Less(t, trail[0].ID, trail[1].ID)

	missing := newTransaction(uuid.New(), time.Now())
	err = repo.PutIfStatus(ctx, domain.StatusPending, missing, auditFor(missing, "verify", domain.StatusPending))
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryRepository_ProtectsImmutableFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	tx := newTransaction(uuid.New(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))

	verified := tx.Clone()
	verified.Status = domain.StatusVerified
	first := "a@bank.com"
	verified.VerifiedByEmail = &first
	now := time.Now().UTC()
	verified.VerifiedAt = &now
	require.NoError(t, repo.PutIfStatus(ctx, domain.StatusPending, verified, auditFor(verified, "verify", domain.StatusPending)))

	tampered := verified.Clone()
	tampered.Status = domain.StatusSubmittedToSwift
	other := "mallory@bank.com"
	tampered.VerifiedByEmail = &other
	tampered.Amount = decimal.RequireFromString("9999.99")
	tampered.Currency = domain.CurrencyUSD
	require.NoError(t, repo.PutIfStatus(ctx, domain.StatusVerified, tampered, auditFor(tampered, "submit_to_swift", domain.StatusVerified)))

	stored, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmittedToSwift, stored.Status)
	assert.Equal(t, "a@bank.com", *stored.VerifiedByEmail)
	assert.Equal(t, "250.75", stored.Amount.StringFixed(2))
	assert.Equal(t, domain.CurrencyEUR, stored.Currency)
}

func TestMemoryRepository_ConcurrentPutIfStatusHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	tx := newTransaction(uuid.New(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := tx.Clone()
			next.Status = domain.StatusVerified
			err := repo.PutIfStatus(ctx, domain.StatusPending, next, auditFor(next, "verify", domain.StatusPending))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrConflictingTransition)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryRepository_Query(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	customer := uuid.New()

	var created []*models.Transaction
	for i := 0; i < 4; i++ {
		tx := newTransaction(customer, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))
		created = append(created, tx)
	}
	other := newTransaction(uuid.New(), base.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, other, auditFor(other, "created", "")))

	verified := created[1].Clone()
	verified.Status = domain.StatusVerified
	email := "B@bank.com"
	verified.VerifiedByEmail = &email
	require.NoError(t, repo.PutIfStatus(ctx, domain.StatusPending, verified, auditFor(verified, "verify", domain.StatusPending)))

	oldest, err := repo.Query(ctx, models.TransactionFilter{Statuses: []string{domain.StatusPending}, OldestFirst: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, created[0].ID, oldest[0].ID)
	assert.Equal(t, created[2].ID, oldest[1].ID)

	newest, err := repo.Query(ctx, models.TransactionFilter{CustomerID: &customer})
	require.NoError(t, err)
	require.Len(t, newest, 4)
	assert.Equal(t, created[3].ID, newest[0].ID)

	lookup := "b@bank.com"
	byVerifier, err := repo.Query(ctx, models.TransactionFilter{VerifiedByEmail: &lookup})
	require.NoError(t, err)
	require.Len(t, byVerifier, 1)
	assert.Equal(t, created[1].ID, byVerifier[0].ID)

	past, err := repo.Query(ctx, models.TransactionFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestMemoryRepository_FailWith(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.FailWith(errors.New("disk on fire"))

	_, err := repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrStoreUnavailable)
	require.ErrorIs(t, repo.Ping(ctx), models.ErrStoreUnavailable)

	repo.FailWith(nil)
	_, err = repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	tx := newTransaction(uuid.New(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, tx, auditFor(tx, "created", "")))

	got, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	got.Status = domain.StatusCompleted

	again, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, again.Status)
}
