package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
)

var (
	acceptedStatuses = []string{
		domain.StatusVerified,
		domain.StatusSubmittedToSwift,
		domain.StatusCompleted,
	}
	invoiceStatuses = []string{
		domain.StatusVerified,
		domain.StatusRejected,
		domain.StatusSubmittedToSwift,
		domain.StatusCompleted,
		domain.StatusFailed,
	}
)

// ViewService answers the role-scoped read views. It never mutates the store.
type ViewService struct {
	store    TransactionStore
	invoices *InvoiceMaterializer
}

func NewViewService(store TransactionStore, invoices *InvoiceMaterializer) *ViewService {
	return &ViewService{store: store, invoices: invoices}
}

// PendingQueue lists transactions awaiting verification, oldest first.
func (s *ViewService) PendingQueue(ctx context.Context, actor models.Actor, page models.Page) ([]models.Transaction, error) {
	if err := requireEmployee(actor, "pending queue"); err != nil {
		return nil, err
	}
	return s.query(ctx, models.TransactionFilter{Statuses: []string{domain.StatusPending}, OldestFirst: true}, page)
}

// VerifiedQueue lists verified transactions not yet submitted for settlement, oldest first.
func (s *ViewService) VerifiedQueue(ctx context.Context, actor models.Actor, page models.Page) ([]models.Transaction, error) {
	if err := requireEmployee(actor, "verified queue"); err != nil {
		return nil, err
	}
	return s.query(ctx, models.TransactionFilter{Statuses: []string{domain.StatusVerified}, OldestFirst: true}, page)
}

// AllTransactions lists every transaction, optionally narrowed to one exact status.
func (s *ViewService) AllTransactions(ctx context.Context, actor models.Actor, status string, page models.Page) ([]models.Transaction, error) {
	if err := requireEmployee(actor, "all transactions"); err != nil {
		return nil, err
	}
	filter := models.TransactionFilter{}
	if status = strings.TrimSpace(status); status != "" {
		if !domain.IsValidStatus(status) {
			return nil, models.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
		}
		filter.Statuses = []string{status}
	}
	return s.query(ctx, filter, page)
}

// AcceptedArchive lists the transactions the acting employee verified that are still on
// the success path. employeeEmail is mandatory and must be the actor's own address.
func (s *ViewService) AcceptedArchive(ctx context.Context, actor models.Actor, employeeEmail string, page models.Page) ([]models.Transaction, error) {
	if err := requireEmployee(actor, "accepted archive"); err != nil {
		return nil, err
	}
	employeeEmail = strings.TrimSpace(employeeEmail)
	if employeeEmail == "" {
		return nil, models.NewValidationError("employee_email", "employee_email is required")
	}
	if !strings.EqualFold(employeeEmail, actor.Email) {
		return nil, fmt.Errorf("accepted archive of another employee: %w", models.ErrForbidden)
	}
	return s.query(ctx, models.TransactionFilter{
		Statuses:        acceptedStatuses,
		VerifiedByEmail: &employeeEmail,
	}, page)
}

// CustomerTransactions lists a customer's transactions in any status.
func (s *ViewService) CustomerTransactions(ctx context.Context, actor models.Actor, customerID uuid.UUID, page models.Page) ([]models.Transaction, error) {
	if err := authorizeCustomerScope(actor, customerID); err != nil {
		return nil, err
	}
	return s.query(ctx, models.TransactionFilter{CustomerID: &customerID}, page)
}

// CustomerInvoices lists invoices for a customer's transactions that are past pending.
func (s *ViewService) CustomerInvoices(ctx context.Context, actor models.Actor, customerID uuid.UUID, page models.Page) ([]models.Invoice, error) {
	if err := authorizeCustomerScope(actor, customerID); err != nil {
		return nil, err
	}
	txs, err := s.query(ctx, models.TransactionFilter{Statuses: invoiceStatuses, CustomerID: &customerID}, page)
	if err != nil {
		return nil, err
	}
	out := make([]models.Invoice, 0, len(txs))
	for i := range txs {
		inv, err := s.invoices.Materialize(&txs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, nil
}

// GetTransaction returns one transaction to an employee or to its owner.
func (s *ViewService) GetTransaction(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Transaction, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeCustomerScope(actor, t.CustomerID); err != nil {
		return nil, err
	}
	return t, nil
}

// GetInvoice returns the invoice of one transaction to an employee or to its owner.
func (s *ViewService) GetInvoice(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error) {
	t, err := s.GetTransaction(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.invoices.Materialize(t)
}

func (s *ViewService) query(ctx context.Context, filter models.TransactionFilter, page models.Page) ([]models.Transaction, error) {
	page = page.Normalize()
	filter.Limit = page.Limit
	filter.Offset = page.Offset
	return s.store.Query(ctx, filter)
}

func authorizeCustomerScope(actor models.Actor, customerID uuid.UUID) error {
	switch actor.Role {
	case domain.RoleEmployee:
		return nil
	case domain.RoleCustomer:
		if actor.ID == customerID {
			return nil
		}
	}
	return fmt.Errorf("transactions of customer %s: %w", customerID, models.ErrForbidden)
}
