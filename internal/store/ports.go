// Package store defines the ledger persistence contract. Implementations
// own identity assignment: an upserted transaction with an empty ID comes
// back with a store-assigned one, immutable thereafter.
package store

import (
	"context"

	"livrocaixa/internal/core"
)

// TransactionFilter narrows ListTransactions with equality/range
// predicates. Zero values mean "no restriction".
type TransactionFilter struct {
	StartDate core.Date
	EndDate   core.Date
	BankID    string
	WalletID  string
	Status    core.TxStatus
}

// Matches reports whether tx falls inside the filter.
func (f TransactionFilter) Matches(tx core.Transaction) bool {
	if !f.StartDate.IsZero() && tx.Date.Compare(f.StartDate) < 0 {
		return false
	}
	if !f.EndDate.IsZero() && tx.Date.Compare(f.EndDate) > 0 {
		return false
	}
	if f.BankID != "" && tx.BankID != f.BankID {
		return false
	}
	if f.WalletID != "" && tx.WalletID != f.WalletID {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	return true
}

// LedgerStore is the durable collection of transactions and registry
// entries. Batch upserts are not atomic; a partial failure leaves the
// already-written rows in place (the caller reconciles).
type LedgerStore interface {
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	UpsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpsertTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
	DeleteTransactions(ctx context.Context, ids []string) error

	ListRegistry(ctx context.Context, kind core.RegistryKind) ([]core.RegistryEntry, error)
	UpsertRegistryEntry(ctx context.Context, kind core.RegistryKind, e core.RegistryEntry) (core.RegistryEntry, error)
	DeleteRegistryEntry(ctx context.Context, kind core.RegistryKind, id string) error

	Close() error
}
