package service

import (
	"bytes"
	"fmt"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/oklog/ulid/v2"
)

var paymentStatusText = map[string]string{
	domain.StatusVerified:         "Approved - awaiting settlement",
	domain.StatusRejected:         "Rejected",
	domain.StatusSubmittedToSwift: "Submitted to SWIFT",
	domain.StatusCompleted:        "Paid",
	domain.StatusFailed:           "Settlement failed",
}

// InvoiceMaterializer derives the customer-facing invoice of a verified (or later)
// transaction. Invoices are not stored; the same transaction always yields the same
// invoice.
type InvoiceMaterializer struct{}

func NewInvoiceMaterializer() *InvoiceMaterializer {
	return &InvoiceMaterializer{}
}

// Materialize fails with ErrNotYetVerified while the transaction is pending.
func (m *InvoiceMaterializer) Materialize(t *models.Transaction) (*models.Invoice, error) {
	if t.Status == domain.StatusPending || t.VerifiedAt == nil {
		return nil, fmt.Errorf("invoice for %s: %w", t.ID, models.ErrNotYetVerified)
	}

	number, err := invoiceNumber(t)
	if err != nil {
		return nil, err
	}

	return &models.Invoice{
		InvoiceNumber:          number,
		TransactionID:          t.ID,
		IssuedAt:               *t.VerifiedAt,
		CustomerName:           t.CustomerName,
		CustomerEmail:          t.CustomerEmail,
		CustomerCountry:        t.CustomerCountry,
		Amount:                 t.Amount.StringFixed(2),
		Currency:               t.Currency,
		RecipientName:          t.RecipientName,
		RecipientAccountMasked: domain.MaskAccount(t.RecipientAccount),
		RecipientSwift:         t.RecipientSwift,
		Reference:              t.Reference,
		Status:                 t.Status,
		PaymentStatus:          paymentStatusText[t.Status],
		VerifiedBy: models.Verifier{
			Name:       deref(t.VerifiedByName),
			Email:      deref(t.VerifiedByEmail),
			Department: deref(t.VerifierDepartment),
		},
		CreatedAt:          t.CreatedAt,
		SubmittedToSwiftAt: t.SubmittedToSwiftAt,
		CompletedAt:        t.CompletedAt,
		FailureReason:      t.FailureReason,
	}, nil
}

// invoiceNumber is a ULID whose time part is createdAt and whose entropy is the
// transaction id, so it sorts by submission time and never changes.
func invoiceNumber(t *models.Transaction) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t.CreatedAt), bytes.NewReader(t.ID[:]))
	if err != nil {
		return "", fmt.Errorf("invoice number for %s: %w", t.ID, err)
	}
	return "INV-" + id.String(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
