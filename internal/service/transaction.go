package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService handles customer transfer submission.
type TransactionService struct {
	store TransactionStore
	audit *AuditService
	now   func() time.Time
}

func NewTransactionService(store TransactionStore) *TransactionService {
	return &TransactionService{
		store: store,
		audit: NewAuditService(store),
		now:   time.Now,
	}
}

// WithClock replaces the time source used for createdAt.
func (s *TransactionService) WithClock(now func() time.Time) *TransactionService {
	s.now = now
	s.audit.now = now
	return s
}

// Submit validates a customer's transfer and stores it as pending. Customer identity
// fields come from the actor, never from the payload.
func (s *TransactionService) Submit(ctx context.Context, actor models.Actor, draft domain.TransferDraft) (*models.Transaction, error) {
	if err := requireRole(actor, "submit transfer", domain.RoleCustomer); err != nil {
		return nil, err
	}

	draft = draft.Normalize()
	if violations := draft.Validate(); len(violations) > 0 {
		return nil, &models.ValidationError{Fields: violations}
	}
	amount, err := domain.ParseAmount(draft.Amount)
	if err != nil {
		return nil, models.NewValidationError("amount", err.Error())
	}

	t := &models.Transaction{
		ID:               uuid.New(),
		CustomerID:       actor.ID,
		CustomerEmail:    actor.Email,
		CustomerName:     actor.Name,
		CustomerCountry:  actor.Country,
		Amount:           amount,
		Currency:         draft.Currency,
		RecipientName:    draft.RecipientName,
		RecipientAccount: draft.RecipientAccount,
		RecipientSwift:   draft.RecipientSwift,
		Reference:        draft.Reference,
		Status:           domain.StatusPending,
		CreatedAt:        s.now().UTC(),
	}

	entry, err := s.audit.NewEntry(t.ID, auditActionCreated, "", domain.StatusPending, actor, map[string]any{
		"amount":   amount.StringFixed(2),
		"currency": t.Currency,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t, entry); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	zap.L().Info("transaction submitted",
		zap.String("transaction_id", t.ID.String()),
		zap.String("customer_id", t.CustomerID.String()),
		zap.String("currency", t.Currency),
	)
	return t, nil
}
