package domain

// Transaction statuses. Terminal: rejected, completed, failed.
const (
	StatusPending          = "pending"
	StatusVerified         = "verified"
	StatusRejected         = "rejected"
	StatusSubmittedToSwift = "submitted_to_swift"
	StatusCompleted        = "completed"
	StatusFailed           = "failed"
)

// Actor roles supplied by the identity provider.
const (
	RoleCustomer = "customer"
	RoleEmployee = "employee"
	// RoleSystem is used by the settlement worker, webhook and operator CLI.
	RoleSystem = "system"
)

// Supported currencies (ISO 4217).
const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyGBP = "GBP"
	CurrencyZAR = "ZAR"
)

const (
	MaxVerifierNotesLength = 1000
	MaxReferenceLength     = 35
	MaxRecipientNameLength = 70
)

var allStatuses = []string{
	StatusPending,
	StatusVerified,
	StatusRejected,
	StatusSubmittedToSwift,
	StatusCompleted,
	StatusFailed,
}

// Statuses returns every known transaction status in lifecycle order.
func Statuses() []string {
	out := make([]string, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsValidStatus reports whether s is a known transaction status.
func IsValidStatus(s string) bool {
	for _, status := range allStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no transition can leave s.
func IsTerminalStatus(s string) bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsValidCurrency reports whether c is a supported settlement currency.
func IsValidCurrency(c string) bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyZAR:
		return true
	}
	return false
}
