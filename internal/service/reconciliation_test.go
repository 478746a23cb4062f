package service

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliation_CleanStore(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedTransaction(t, customer1, 0)
	b := env.seedTransaction(t, customer1, 1)
	env.seedTransaction(t, customer2, 2)
	env.advance(t, a.ID, employeeA, TransitionVerify, TransitionSubmit, TransitionComplete)
	env.advance(t, b.ID, employeeB, TransitionReject)

	violations, err := NewReconciliationService(env.store).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestReconciliation_DetectsBrokenRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Stored as completed without any verification or settlement fields.
	broken := &models.Transaction{
		ID:               uuid.New(),
		CustomerID:       customer1.ID,
		Amount:           decimal.RequireFromString("10.00"),
		Currency:         domain.CurrencyGBP,
		RecipientAccount: "GB29NWBK60161331926819",
		RecipientSwift:   "NWBKGB2L",
		Status:           domain.StatusCompleted,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, env.store.Create(ctx, broken, models.AuditEntry{
		TransactionID: broken.ID,
		Action:        auditActionCreated,
		NextStatus:    domain.StatusPending,
	}))

	violations, err := NewReconciliationService(env.store).Run(ctx)
	require.NoError(t, err)

	checks := make([]string, 0, len(violations))
	for _, v := range violations {
		assert.Equal(t, broken.ID.String(), v.TransactionID)
		checks = append(checks, v.Check)
	}
	assert.ElementsMatch(t, []string{
		"missing_verifier",
		"missing_submission_time",
		"missing_completion_time",
		"audit_status_mismatch",
	}, checks)
}
