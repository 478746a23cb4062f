package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
)

// MemoryRepository is an in-process transaction store with the same compare-and-set
// semantics as Repository. It backs unit tests and STORE_DRIVER=memory.
type MemoryRepository struct {
	mu          sync.RWMutex
	records     map[uuid.UUID]*models.Transaction
	audit       map[uuid.UUID][]models.AuditEntry
	nextAuditID int64
	err         error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[uuid.UUID]*models.Transaction),
		audit:   make(map[uuid.UUID][]models.AuditEntry),
	}
}

// FailWith makes every subsequent call return err wrapped as ErrStoreUnavailable.
// Passing nil restores normal behavior.
func (m *MemoryRepository) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryRepository) Create(ctx context.Context, t *models.Transaction, entry models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	if _, exists := m.records[t.ID]; exists {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	m.records[t.ID] = t.Clone()
	m.appendAudit(entry)
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	t, ok := m.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return t.Clone(), nil
}

func (m *MemoryRepository) PutIfStatus(ctx context.Context, expectedStatus string, t *models.Transaction, entry models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	current, ok := m.records[t.ID]
	if !ok {
		return models.ErrNotFound
	}
	if current.Status != expectedStatus {
		return fmt.Errorf("transaction %s left status %s: %w", t.ID, expectedStatus, models.ErrConflictingTransition)
	}

	next := t.Clone()
	// Creation fields and an existing verification are never overwritten.
	next.CustomerID = current.CustomerID
	next.CustomerEmail = current.CustomerEmail
	next.CustomerName = current.CustomerName
	next.CustomerCountry = current.CustomerCountry
	next.Amount = current.Amount
	next.Currency = current.Currency
	next.RecipientName = current.RecipientName
	next.RecipientAccount = current.RecipientAccount
	next.RecipientSwift = current.RecipientSwift
	next.Reference = current.Reference
	next.CreatedAt = current.CreatedAt
	if current.VerifiedAt != nil {
		next.VerifiedByEmail = current.VerifiedByEmail
		next.VerifiedByName = current.VerifiedByName
		next.VerifierDepartment = current.VerifierDepartment
		next.VerifiedAt = current.VerifiedAt
		next.VerifierNotes = current.VerifierNotes
	}
	if current.SwiftReference != nil {
		next.SwiftReference = current.SwiftReference
	}
	if current.SubmittedToSwiftAt != nil {
		next.SubmittedToSwiftAt = current.SubmittedToSwiftAt
	}

	m.records[t.ID] = next.Clone()
	m.appendAudit(entry)
	return nil
}

func (m *MemoryRepository) Query(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}

	statuses := make(map[string]struct{}, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = struct{}{}
	}

	out := make([]models.Transaction, 0)
	for _, t := range m.records {
		if len(statuses) > 0 {
			if _, ok := statuses[t.Status]; !ok {
				continue
			}
		}
		if filter.CustomerID != nil && t.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.VerifiedByEmail != nil && (t.VerifiedByEmail == nil || !strings.EqualFold(*t.VerifiedByEmail, *filter.VerifiedByEmail)) {
			continue
		}
		out = append(out, *t.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if filter.OldestFirst {
			return a.ID.String() < b.ID.String()
		}
		return a.ID.String() > b.ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []models.Transaction{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) AuditTrail(ctx context.Context, id uuid.UUID) ([]models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	entries := m.audit[id]
	out := make([]models.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *MemoryRepository) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check(ctx)
}

func (m *MemoryRepository) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return fmt.Errorf("memory store: %w: %w", models.ErrStoreUnavailable, m.err)
	}
	return nil
}

func (m *MemoryRepository) appendAudit(entry models.AuditEntry) {
	m.nextAuditID++
	entry.ID = m.nextAuditID
	if entry.Metadata != nil {
		entry.Metadata = append([]byte(nil), entry.Metadata...)
	}
	m.audit[entry.TransactionID] = append(m.audit[entry.TransactionID], entry)
}
