package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated principal supplied by the identity provider.
type Actor struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	Country    string    `json:"country,omitempty"`
}

// Transaction is one international transfer and its lifecycle state.
type Transaction struct {
	ID                 uuid.UUID       `json:"transaction_id"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	CustomerEmail      string          `json:"customer_email"`
	CustomerName       string          `json:"customer_name"`
	CustomerCountry    string          `json:"customer_country"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	RecipientName      string          `json:"recipient_name"`
	RecipientAccount   string          `json:"recipient_account"`
	RecipientSwift     string          `json:"recipient_swift"`
	Reference          string          `json:"reference,omitempty"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	VerifiedByEmail    *string         `json:"verified_by_email"`
	VerifiedByName     *string         `json:"verified_by_name"`
	VerifierDepartment *string         `json:"verifier_department"`
	VerifiedAt         *time.Time      `json:"verified_at"`
	VerifierNotes      *string         `json:"verifier_notes"`
	SwiftReference     *string         `json:"swift_reference"`
	SubmittedToSwiftAt *time.Time      `json:"submitted_to_swift_at"`
	CompletedAt        *time.Time      `json:"completed_at"`
	FailureReason      *string         `json:"failure_reason"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	c.VerifiedByEmail = cloneString(t.VerifiedByEmail)
	c.VerifiedByName = cloneString(t.VerifiedByName)
	c.VerifierDepartment = cloneString(t.VerifierDepartment)
	c.VerifiedAt = cloneTime(t.VerifiedAt)
	c.VerifierNotes = cloneString(t.VerifierNotes)
	c.SwiftReference = cloneString(t.SwiftReference)
	c.SubmittedToSwiftAt = cloneTime(t.SubmittedToSwiftAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.FailureReason = cloneString(t.FailureReason)
	return &c
}

// AuditEntry is an immutable record of one lifecycle change.
type AuditEntry struct {
	ID            int64     `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Action        string    `json:"action"`
	PrevStatus    string    `json:"prev_status,omitempty"`
	NextStatus    string    `json:"next_status"`
	ActorEmail    string    `json:"actor_email"`
	ActorRole     string    `json:"actor_role"`
	Metadata      []byte    `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Verifier is the public identity of the employee who verified a transaction.
type Verifier struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// Invoice is the customer-facing projection of a verified (or later) transaction.
type Invoice struct {
	InvoiceNumber          string     `json:"invoice_number"`
	TransactionID          uuid.UUID  `json:"transaction_id"`
	IssuedAt               time.Time  `json:"issued_at"`
	CustomerName           string     `json:"customer_name"`
	CustomerEmail          string     `json:"customer_email"`
	CustomerCountry        string     `json:"customer_country"`
	Amount                 string     `json:"amount"`
	Currency               string     `json:"currency"`
	RecipientName          string     `json:"recipient_name"`
	RecipientAccountMasked string     `json:"recipient_account_masked"`
	RecipientSwift         string     `json:"recipient_swift"`
	Reference              string     `json:"reference,omitempty"`
	Status                 string     `json:"status"`
	PaymentStatus          string     `json:"payment_status"`
	VerifiedBy             Verifier   `json:"verified_by"`
	CreatedAt              time.Time  `json:"created_at"`
	SubmittedToSwiftAt     *time.Time `json:"submitted_to_swift_at,omitempty"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	FailureReason          *string    `json:"failure_reason,omitempty"`
}

// BatchFailure is one item that could not be submitted.
type BatchFailure struct {
	ID      uuid.UUID `json:"id"`
	Reason  string    `json:"reason"`
	Message string    `json:"message"`
}

// BatchResult reports per-item outcomes of a batch settlement submission.
type BatchResult struct {
	Successful []uuid.UUID    `json:"successful"`
	Failed     []BatchFailure `json:"failed"`
}

// TransactionFilter narrows a store query. Zero values mean "no constraint".
type TransactionFilter struct {
	Statuses        []string
	CustomerID      *uuid.UUID
	VerifiedByEmail *string
	OldestFirst     bool
	Limit           int
	Offset          int
}

// Page is a limit/offset window over a list view.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Normalize clamps the page into the supported range.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
