package domain

import "strings"

const accountMask = "****"

// MaskAccount keeps the first and last four characters of an account number.
// Values of eight characters or fewer are masked except for the last four.
func MaskAccount(account string) string {
	runes := []rune(strings.TrimSpace(account))
	switch {
	case len(runes) == 0:
		return ""
	case len(runes) <= 4:
		return accountMask
	case len(runes) <= 8:
		return accountMask + string(runes[len(runes)-4:])
	}
	return string(runes[:4]) + accountMask + string(runes[len(runes)-4:])
}
