package service

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/ayo6706/swift-remit/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

var (
	employeeA = models.Actor{ID: uuid.New(), Email: "a@bank.com", Name: "Alice Adams", Role: domain.RoleEmployee, Department: "Payments"}
	employeeB = models.Actor{ID: uuid.New(), Email: "b@bank.com", Name: "Bob Brown", Role: domain.RoleEmployee, Department: "Compliance"}
	customer1 = models.Actor{ID: uuid.New(), Email: "cust1@example.com", Name: "Carol Customer", Role: domain.RoleCustomer, Country: "ZA"}
	customer2 = models.Actor{ID: uuid.New(), Email: "cust2@example.com", Name: "Dan Customer", Role: domain.RoleCustomer, Country: "GB"}
)

type testEnv struct {
	store  *repository.MemoryRepository
	engine *TransitionEngine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryRepository()
	return &testEnv{
		store:  store,
		engine: NewTransitionEngine(store, nil).WithClock(fixedClock),
	}
}

// seedTransaction stores a pending transaction owned by owner. createdOffset orders
// seeded records in time.
func (e *testEnv) seedTransaction(t *testing.T, owner models.Actor, createdOffset time.Duration) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		ID:               uuid.New(),
		CustomerID:       owner.ID,
		CustomerEmail:    owner.Email,
		CustomerName:     owner.Name,
		CustomerCountry:  owner.Country,
		Amount:           decimal.RequireFromString("100.00"),
		Currency:         domain.CurrencyUSD,
		RecipientName:    "Jane Recipient",
		RecipientAccount: "GB29NWBK60161331926819",
		RecipientSwift:   "NWBKGB2L",
		Status:           domain.StatusPending,
		CreatedAt:        testNow.Add(createdOffset),
	}
	entry := models.AuditEntry{TransactionID: tx.ID, Action: auditActionCreated, NextStatus: domain.StatusPending, ActorEmail: owner.Email, ActorRole: owner.Role}
	require.NoError(t, e.store.Create(context.Background(), tx, entry))
	return tx
}

// advance drives a seeded transaction along the given transitions.
func (e *testEnv) advance(t *testing.T, id uuid.UUID, verifier models.Actor, trs ...Transition) *models.Transaction {
	t.Helper()
	var (
		out *models.Transaction
		err error
	)
	for _, tr := range trs {
		payload := TransitionPayload{}
		if tr == TransitionSubmit {
			payload.SwiftReference = uuid.NewString()
		}
		out, err = e.engine.Apply(context.Background(), id, tr, verifier, payload)
		require.NoError(t, err, "apply %s", tr)
	}
	return out
}

func strRef(s string) *string { return &s }
