package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
)

const auditActionCreated = "created"

// AuditService builds and reads the immutable audit trail. Entries are persisted by the
// store in the same write as the record change they describe.
type AuditService struct {
	store TransactionStore
	now   func() time.Time
}

func NewAuditService(store TransactionStore) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// NewEntry builds a single audit record.
func (s *AuditService) NewEntry(transactionID uuid.UUID, action, prevStatus, nextStatus string, actor models.Actor, metadata map[string]any) (models.AuditEntry, error) {
	var raw []byte
	if len(metadata) > 0 {
		var err error
		raw, err = json.Marshal(metadata)
		if err != nil {
			return models.AuditEntry{}, fmt.Errorf("encode audit metadata: %w", err)
		}
	}
	return models.AuditEntry{
		TransactionID: transactionID,
		Action:        action,
		PrevStatus:    prevStatus,
		NextStatus:    nextStatus,
		ActorEmail:    actor.Email,
		ActorRole:     actor.Role,
		Metadata:      raw,
		CreatedAt:     s.now().UTC(),
	}, nil
}

// Trail returns the audit entries of one transaction, oldest first. Employees only.
func (s *AuditService) Trail(ctx context.Context, actor models.Actor, id uuid.UUID) ([]models.AuditEntry, error) {
	if actor.Role != domain.RoleEmployee {
		return nil, fmt.Errorf("audit trail: %w", models.ErrForbidden)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.AuditTrail(ctx, id)
}
