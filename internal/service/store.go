package service

import (
	"context"

	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
)

// TransactionStore defines the record store contract required by services.
// PutIfStatus must be atomic per record: it writes t and its audit entry only while the
// stored status equals expectedStatus, and otherwise fails with ErrConflictingTransition
// (or ErrNotFound).
type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction, entry models.AuditEntry) error
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	PutIfStatus(ctx context.Context, expectedStatus string, t *models.Transaction, entry models.AuditEntry) error
	Query(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	AuditTrail(ctx context.Context, id uuid.UUID) ([]models.AuditEntry, error)
	Ping(ctx context.Context) error
}
