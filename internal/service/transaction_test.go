package service

import (
	"context"
	"testing"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/ayo6706/swift-remit/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() domain.TransferDraft {
	return domain.TransferDraft{
		Amount:           "100.00",
		Currency:         "usd",
		RecipientName:    " Jane Recipient ",
		RecipientAccount: "gb29 nwbk 6016 1331 9268 19",
		RecipientSwift:   "nwbkgb2l",
		Reference:        "Invoice 42",
	}
}

func TestSubmit_CreatesPendingTransaction(t *testing.T) {
	store := repository.NewMemoryRepository()
	svc := NewTransactionService(store).WithClock(fixedClock)

	tx, err := svc.Submit(context.Background(), customer1, validDraft())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Equal(t, customer1.ID, tx.CustomerID)
	assert.Equal(t, customer1.Email, tx.CustomerEmail)
	assert.Equal(t, "ZA", tx.CustomerCountry)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, "GB29NWBK60161331926819", tx.RecipientAccount)
	assert.Equal(t, "NWBKGB2L", tx.RecipientSwift)
	assert.Equal(t, "Jane Recipient", tx.RecipientName)
	assert.Equal(t, testNow, tx.CreatedAt)
	assert.Nil(t, tx.VerifiedByEmail)
	assert.Nil(t, tx.VerifiedAt)
	assert.Nil(t, tx.SubmittedToSwiftAt)

	stored, err := store.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx, stored)

	trail, err := store.AuditTrail(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, auditActionCreated, trail[0].Action)
	assert.JSONEq(t, `{"amount":"100.00","currency":"USD"}`, string(trail[0].Metadata))
}

func TestSubmit_ReportsAllInvalidFields(t *testing.T) {
	svc := NewTransactionService(repository.NewMemoryRepository())

	draft := validDraft()
	draft.Amount = "0.50"
	draft.Currency = "JPY"
	draft.RecipientSwift = "BAD"

	_, err := svc.Submit(context.Background(), customer1, draft)
	require.ErrorIs(t, err, models.ErrValidation)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"amount", "currency", "recipient_swift"}, fields)
}

func TestSubmit_CustomersOnly(t *testing.T) {
	svc := NewTransactionService(repository.NewMemoryRepository())
	_, err := svc.Submit(context.Background(), employeeA, validDraft())
	require.ErrorIs(t, err, models.ErrForbidden)
}
