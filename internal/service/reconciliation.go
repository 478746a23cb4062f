package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/ayo6706/swift-remit/internal/observability"
	"go.uber.org/zap"
)

const reconciliationPageSize = 500

// IntegrityViolation is one stored transaction that breaks a lifecycle invariant.
type IntegrityViolation struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Check         string `json:"check"`
}

// ReconciliationService verifies lifecycle integrity invariants over the whole store.
type ReconciliationService struct {
	store TransactionStore
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store TransactionStore) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run checks every transaction against its status and audit trail and returns the
// violations found. Violations are logged and counted; nothing is repaired.
func (s *ReconciliationService) Run(ctx context.Context) ([]IntegrityViolation, error) {
	var violations []IntegrityViolation
	checked := 0
	for offset := 0; ; offset += reconciliationPageSize {
		page, err := s.store.Query(ctx, models.TransactionFilter{
			OldestFirst: true,
			Limit:       reconciliationPageSize,
			Offset:      offset,
		})
		if err != nil {
			return violations, fmt.Errorf("load transactions: %w", err)
		}
		for i := range page {
			found, err := s.check(ctx, &page[i])
			if err != nil {
				return violations, err
			}
			violations = append(violations, found...)
		}
		checked += len(page)
		if len(page) < reconciliationPageSize {
			break
		}
	}

	for _, v := range violations {
		observability.IncrementIntegrityViolation(v.Check)
		zap.L().Error("lifecycle integrity violation",
			zap.String("transaction_id", v.TransactionID),
			zap.String("status", v.Status),
			zap.String("check", v.Check),
		)
	}
	if len(violations) == 0 {
		zap.L().Info("lifecycle integrity verified", zap.Int("transactions", checked))
	}
	return violations, nil
}

func (s *ReconciliationService) check(ctx context.Context, t *models.Transaction) ([]IntegrityViolation, error) {
	var out []IntegrityViolation
	flag := func(check string) {
		out = append(out, IntegrityViolation{TransactionID: t.ID.String(), Status: t.Status, Check: check})
	}

	if !domain.IsValidStatus(t.Status) {
		flag("unknown_status")
		return out, nil
	}
	if t.Status != domain.StatusPending && (t.VerifiedAt == nil || t.VerifiedByEmail == nil) {
		flag("missing_verifier")
	}
	if t.Status == domain.StatusPending && t.VerifiedAt != nil {
		flag("pending_with_verifier")
	}
	switch t.Status {
	case domain.StatusSubmittedToSwift, domain.StatusCompleted, domain.StatusFailed:
		if t.SubmittedToSwiftAt == nil {
			flag("missing_submission_time")
		}
	}
	if t.Status == domain.StatusCompleted && t.CompletedAt == nil {
		flag("missing_completion_time")
	}
	if t.Status == domain.StatusFailed && t.FailureReason == nil {
		flag("missing_failure_reason")
	}

	trail, err := s.store.AuditTrail(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("load audit trail for %s: %w", t.ID, err)
	}
	if len(trail) == 0 {
		flag("missing_audit_trail")
		return out, nil
	}
	if trail[len(trail)-1].NextStatus != t.Status {
		flag("audit_status_mismatch")
	}
	for i := 1; i < len(trail); i++ {
		if !CanTransition(trail[i].PrevStatus, trail[i].NextStatus) || trail[i].PrevStatus != trail[i-1].NextStatus {
			flag("audit_illegal_edge")
			break
		}
	}
	return out, nil
}
