package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets the available balance of an account
// without recording a ledger entry.
func SeedBalance(a *Account, amount string) {
	a.Available = decimal.RequireFromString(amount)
}
