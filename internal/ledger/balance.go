// Package ledger implements the reconciliation core: running balances,
// transfer pairing, recurrence expansion and cash-flow aggregation. All
// computations here are pure; callers own persistence.
package ledger

import (
	"sort"

	"livrocaixa/internal/core"
)

// Scope restricts a balance or cash-flow computation to one bank and/or
// wallet. Empty fields mean "any".
type Scope struct {
	BankID   string
	WalletID string
}

func (s Scope) matches(tx core.Transaction) bool {
	if s.BankID != "" && tx.BankID != s.BankID {
		return false
	}
	if s.WalletID != "" && tx.WalletID != s.WalletID {
		return false
	}
	return true
}

// BalanceMap computes the cumulative balance, in cents, at each PAID
// transaction of the scoped subset, keyed by transaction id. PENDING
// entries never appear in the map (callers render them as pending). The
// walk is seeded with seedCents, the historical balance accumulated
// strictly before the displayed window.
//
// The result is independent of input order: entries are sorted by date
// ascending with id as the tie-breaker before the walk.
func BalanceMap(txns []core.Transaction, scope Scope, seedCents int64) map[string]int64 {
	scoped := make([]core.Transaction, 0, len(txns))
	for _, tx := range txns {
		if tx.Status != core.Paid {
			continue
		}
		if !scope.matches(tx) {
			continue
		}
		scoped = append(scoped, tx)
	}
	SortChronological(scoped)

	balances := make(map[string]int64, len(scoped))
	running := seedCents
	for _, tx := range scoped {
		running += tx.Signed()
		balances[tx.ID] = running
	}
	return balances
}

// SeedBalance computes the historical pre-balance: the signed sum of all
// PAID transactions dated strictly before the given date, within scope.
// It must be fed the entire ledger, not a page, so that a date-filtered
// view opens at the true account balance.
func SeedBalance(txns []core.Transaction, scope Scope, before core.Date) int64 {
	var sum int64
	for _, tx := range txns {
		if tx.Status != core.Paid {
			continue
		}
		if !scope.matches(tx) {
			continue
		}
		if before.IsZero() || tx.Date.Compare(before) >= 0 {
			continue
		}
		sum += tx.Signed()
	}
	return sum
}

// PickSeed resolves precedence between a bank-scoped seed and a global
// one: the bank-scoped seed wins whenever a bank filter is active.
func PickSeed(scope Scope, bankSeed, globalSeed int64) int64 {
	if scope.BankID != "" {
		return bankSeed
	}
	return globalSeed
}

// SortChronological orders transactions by date ascending, breaking ties
// by id ascending. The order is total and reproducible across runs.
func SortChronological(txns []core.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if c := txns[i].Date.Compare(txns[j].Date); c != 0 {
			return c < 0
		}
		return txns[i].ID < txns[j].ID
	})
}
