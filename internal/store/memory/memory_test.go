package memory

import (
	"context"
	"errors"
	"testing"

	"livrocaixa/internal/core"
	"livrocaixa/internal/store"
)

func sampleTx(date string, cents int64) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		Date:        d,
		Description: "sample",
		Value:       core.Money{Cents: cents},
		Type:        core.Credit,
		Status:      core.Paid,
	}
}

func TestUpsertAssignsID(t *testing.T) {
	s := New()
	ctx := context.Background()

	saved, err := s.UpsertTransaction(ctx, sampleTx("2024-01-10", 100))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("store did not assign an id")
	}

	// A second upsert with the same id replaces, never duplicates.
	saved.Value = core.Money{Cents: 200}
	again, err := s.UpsertTransaction(ctx, saved)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != saved.ID {
		t.Fatalf("id changed on update: %s -> %s", saved.ID, again.ID)
	}
	all, _ := s.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 1 || all[0].Value.Cents != 200 {
		t.Fatalf("store state after update: %+v", all)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	s := New()
	if _, err := s.GetTransaction(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTransactionsFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := sampleTx("2024-01-05", 100)
	a.BankID = "b1"
	b := sampleTx("2024-02-10", 200)
	b.BankID = "b2"
	b.Status = core.Pending
	c := sampleTx("2024-03-01", 300)
	c.BankID = "b1"
	if _, err := s.UpsertTransactions(ctx, []core.Transaction{a, b, c}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name   string
		filter store.TransactionFilter
		want   int
	}{
		{"all", store.TransactionFilter{}, 3},
		{"date window", store.TransactionFilter{
			StartDate: core.NewDate(2024, 2, 1),
			EndDate:   core.NewDate(2024, 2, 28),
		}, 1},
		{"bank", store.TransactionFilter{BankID: "b1"}, 2},
		{"status", store.TransactionFilter{Status: core.Pending}, 1},
		{"bank and status", store.TransactionFilter{BankID: "b1", Status: core.Pending}, 0},
	}
	for _, tc := range cases {
		got, err := s.ListTransactions(ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(got) != tc.want {
			t.Fatalf("%s: got %d transactions, want %d", tc.name, len(got), tc.want)
		}
	}
}

func TestDeleteTransactionsIgnoresMissing(t *testing.T) {
	s := New()
	ctx := context.Background()
	saved, _ := s.UpsertTransaction(ctx, sampleTx("2024-01-10", 100))
	if err := s.DeleteTransactions(ctx, []string{saved.ID, "no-such-id"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ := s.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 0 {
		t.Fatalf("store still holds %d transactions", len(all))
	}
}

func TestDeleteRegistryEntryReferencedByTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()

	cat, err := s.UpsertRegistryEntry(ctx, core.CategoryRegistry, core.RegistryEntry{Name: "Rent"})
	if err != nil {
		t.Fatalf("upsert category: %v", err)
	}
	tx := sampleTx("2024-01-10", 100)
	tx.CategoryID = cat.ID
	if _, err := s.UpsertTransaction(ctx, tx); err != nil {
		t.Fatalf("upsert tx: %v", err)
	}

	err = s.DeleteRegistryEntry(ctx, core.CategoryRegistry, cat.ID)
	var rie *core.ReferentialIntegrityError
	if !errors.As(err, &rie) {
		t.Fatalf("expected ReferentialIntegrityError, got %v", err)
	}
	if rie.Refs != 1 || rie.Kind != core.CategoryRegistry {
		t.Fatalf("error detail = %+v", rie)
	}

	// Removing the referent frees the entry for deletion.
	saved, _ := s.ListTransactions(ctx, store.TransactionFilter{})
	if err := s.DeleteTransactions(ctx, []string{saved[0].ID}); err != nil {
		t.Fatalf("delete tx: %v", err)
	}
	if err := s.DeleteRegistryEntry(ctx, core.CategoryRegistry, cat.ID); err != nil {
		t.Fatalf("delete after unreference: %v", err)
	}
}

func TestDeleteBankReferencedByWallet(t *testing.T) {
	s := New()
	ctx := context.Background()

	bank, err := s.UpsertRegistryEntry(ctx, core.BankRegistry, core.RegistryEntry{Name: "Banco Azul"})
	if err != nil {
		t.Fatalf("upsert bank: %v", err)
	}
	if _, err := s.UpsertRegistryEntry(ctx, core.WalletRegistry, core.RegistryEntry{Name: "Cofre", BankID: bank.ID}); err != nil {
		t.Fatalf("upsert wallet: %v", err)
	}

	if err := s.DeleteRegistryEntry(ctx, core.BankRegistry, bank.ID); !errors.Is(err, core.ErrReferentialIntegrity) {
		t.Fatalf("expected referential integrity error, got %v", err)
	}
}

func TestDeleteRegistryEntryNotFound(t *testing.T) {
	s := New()
	if err := s.DeleteRegistryEntry(context.Background(), core.BankRegistry, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryKindValidation(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.ListRegistry(ctx, core.RegistryKind("planet")); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("list: expected validation error, got %v", err)
	}
	if _, err := s.UpsertRegistryEntry(ctx, core.RegistryKind("planet"), core.RegistryEntry{Name: "x"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("upsert: expected validation error, got %v", err)
	}
}
