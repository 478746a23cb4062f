package domain

import (
	"regexp"
	"strings"
)

var (
	ibanPattern  = regexp.MustCompile(`^[A-Z0-9]{8,34}$`)
	swiftPattern = regexp.MustCompile(`^[A-Z0-9]{8}([A-Z0-9]{3})?$`)
)

// TransferDraft is the customer supplied payload for a new transfer before it is
// turned into a stored transaction.
type TransferDraft struct {
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	RecipientName    string `json:"recipient_name"`
	RecipientAccount string `json:"recipient_account"`
	RecipientSwift   string `json:"recipient_swift"`
	Reference        string `json:"reference,omitempty"`
}

// FieldViolation describes one failed constraint.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type constraint struct {
	field   string
	check   func(TransferDraft) bool
	message string
}

// transferConstraints is evaluated top to bottom; every field reports at most one
// violation, the first one that fails.
var transferConstraints = []constraint{
	{"amount", func(d TransferDraft) bool { return strings.TrimSpace(d.Amount) != "" }, "amount is required"},
	{"amount", func(d TransferDraft) bool { return IsPlainAmount(d.Amount) }, "amount must be a plain decimal number such as 250.00"},
	{"amount", func(d TransferDraft) bool { _, err := ParseAmount(d.Amount); return err == nil }, "amount must be between 1.00 and 10000.00 with at most 2 decimal places"},
	{"currency", func(d TransferDraft) bool { return IsValidCurrency(d.Currency) }, "currency must be one of USD, EUR, GBP, ZAR"},
	{"recipient_name", func(d TransferDraft) bool { return d.RecipientName != "" }, "recipient_name is required"},
	{"recipient_name", func(d TransferDraft) bool { return len([]rune(d.RecipientName)) <= MaxRecipientNameLength }, "recipient_name must be at most 70 characters"},
	{"recipient_account", func(d TransferDraft) bool { return IsValidIBAN(d.RecipientAccount) }, "recipient_account must be 8-34 uppercase letters or digits"},
	{"recipient_swift", func(d TransferDraft) bool { return IsValidSwift(d.RecipientSwift) }, "recipient_swift must be 8 or 11 uppercase letters or digits"},
	{"reference", func(d TransferDraft) bool { return len([]rune(d.Reference)) <= MaxReferenceLength }, "reference must be at most 35 characters"},
}

// Normalize trims free text and canonicalises bank identifiers. IBAN and BIC are
// upper-cased with inner spaces removed, the way they are usually printed.
func (d TransferDraft) Normalize() TransferDraft {
	return TransferDraft{
		Amount:           strings.TrimSpace(d.Amount),
		Currency:         strings.ToUpper(strings.TrimSpace(d.Currency)),
		RecipientName:    strings.TrimSpace(d.RecipientName),
		RecipientAccount: compactUpper(d.RecipientAccount),
		RecipientSwift:   compactUpper(d.RecipientSwift),
		Reference:        strings.TrimSpace(d.Reference),
	}
}

// Validate evaluates the constraint table and returns every violation found.
func (d TransferDraft) Validate() []FieldViolation {
	var out []FieldViolation
	failed := make(map[string]bool)
	for _, c := range transferConstraints {
		if failed[c.field] {
			continue
		}
		if !c.check(d) {
			failed[c.field] = true
			out = append(out, FieldViolation{Field: c.field, Message: c.message})
		}
	}
	return out
}

// IsValidIBAN reports whether s has the structural shape of an IBAN.
func IsValidIBAN(s string) bool {
	return ibanPattern.MatchString(s)
}

// IsValidSwift reports whether s has the structural shape of a BIC.
func IsValidSwift(s string) bool {
	return swiftPattern.MatchString(s)
}

func compactUpper(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
