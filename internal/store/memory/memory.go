// Package memory is the in-process LedgerStore used in local mode and in
// tests. Everything lives behind one mutex; reads hand out copies.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"livrocaixa/internal/core"
	"livrocaixa/internal/store"
)

type Store struct {
	mu         sync.Mutex
	txns       map[string]core.Transaction
	registries map[core.RegistryKind]map[string]core.RegistryEntry
}

var _ store.LedgerStore = (*Store)(nil)

func New() *Store {
	regs := make(map[core.RegistryKind]map[string]core.RegistryEntry)
	for _, kind := range core.RegistryKinds() {
		regs[kind] = make(map[string]core.RegistryEntry)
	}
	return &Store{
		txns:       make(map[string]core.Transaction),
		registries: regs,
	}
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.txns {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txns[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) UpsertTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(tx), nil
}

func (s *Store) UpsertTransactions(_ context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = s.upsertLocked(tx)
	}
	return out, nil
}

func (s *Store) upsertLocked(tx core.Transaction) core.Transaction {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	s.txns[tx.ID] = tx
	return tx
}

func (s *Store) DeleteTransactions(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.txns, id)
	}
	return nil
}

func (s *Store) ListRegistry(_ context.Context, kind core.RegistryKind) ([]core.RegistryEntry, error) {
	if !kind.IsValid() {
		return nil, core.NewValidationError("kind", "unknown registry kind")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RegistryEntry
	for _, e := range s.registries[kind] {
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) UpsertRegistryEntry(_ context.Context, kind core.RegistryKind, e core.RegistryEntry) (core.RegistryEntry, error) {
	if !kind.IsValid() {
		return core.RegistryEntry{}, core.NewValidationError("kind", "unknown registry kind")
	}
	if err := e.Validate(); err != nil {
		return core.RegistryEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.registries[kind][e.ID] = e
	return e, nil
}

func (s *Store) DeleteRegistryEntry(_ context.Context, kind core.RegistryKind, id string) error {
	if !kind.IsValid() {
		return core.NewValidationError("kind", "unknown registry kind")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registries[kind][id]; !ok {
		return core.ErrNotFound
	}
	if refs := s.referencesLocked(kind, id); refs > 0 {
		return &core.ReferentialIntegrityError{Kind: kind, ID: id, Refs: refs}
	}
	delete(s.registries[kind], id)
	return nil
}

func (s *Store) referencesLocked(kind core.RegistryKind, id string) int64 {
	var refs int64
	for _, tx := range s.txns {
		var ref string
		switch kind {
		case core.BankRegistry:
			ref = tx.BankID
		case core.WalletRegistry:
			ref = tx.WalletID
		case core.CategoryRegistry:
			ref = tx.CategoryID
		case core.CostCenterRegistry:
			ref = tx.CostCenterID
		case core.ParticipantRegistry:
			ref = tx.ParticipantID
		}
		if ref == id {
			refs++
		}
	}
	// Wallets can also be referenced by other wallets' bank association.
	if kind == core.BankRegistry {
		for _, w := range s.registries[core.WalletRegistry] {
			if w.BankID == id {
				refs++
			}
		}
	}
	return refs
}

func (s *Store) Close() error { return nil }
