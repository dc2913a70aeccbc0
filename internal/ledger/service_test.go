package ledger

import (
	"context"
	"errors"
	"testing"

	"livrocaixa/internal/core"
	"livrocaixa/internal/store"
	"livrocaixa/internal/store/memory"
)

type recordingMirror struct {
	upserts []string
	deletes []string
}

func (m *recordingMirror) PublishUpsert(_ context.Context, id string) error {
	m.upserts = append(m.upserts, id)
	return nil
}

func (m *recordingMirror) PublishDelete(_ context.Context, id string) error {
	m.deletes = append(m.deletes, id)
	return nil
}

func newTestService() (*Service, *memory.Store, *recordingMirror) {
	st := memory.New()
	mirror := &recordingMirror{}
	return NewService(st, mirror, 0), st, mirror
}

func entry(date string, ty core.TxType, cents int64) EntryInput {
	d, _ := core.ParseDate(date)
	return EntryInput{Transaction: core.Transaction{
		Date:        d,
		Description: "entry",
		Value:       core.Money{Cents: cents},
		Type:        ty,
		Status:      core.Paid,
	}}
}

func TestServiceCreatePlainEntry(t *testing.T) {
	svc, _, mirror := newTestService()
	ctx := context.Background()

	persisted, err := svc.CreateEntry(ctx, entry("2024-01-10", core.Credit, 1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(persisted) != 1 || persisted[0].ID == "" {
		t.Fatalf("persisted = %+v", persisted)
	}
	if len(mirror.upserts) != 1 || mirror.upserts[0] != persisted[0].ID {
		t.Fatalf("mirror upserts = %v", mirror.upserts)
	}
}

func TestServiceCreateRecurringTransfer(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	input := entry("2024-01-15", core.Debit, 5000)
	input.Transaction.WalletID = "w1"
	input.Transfer = &TransferBanks{SourceBankID: "bankA", DestinationBankID: "bankB"}
	input.Recurrence = RecurrenceRule{Frequency: core.Monthly, Count: 3}

	persisted, err := svc.CreateEntry(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Three dates, each a full debit/credit pair.
	if len(persisted) != 6 {
		t.Fatalf("got %d transactions, want 6", len(persisted))
	}
	all, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 6 {
		t.Fatalf("store holds %d transactions, want 6", len(all))
	}
	linked := make(map[string]int)
	for _, tx := range persisted {
		if tx.LinkedID == "" {
			t.Fatalf("transfer instance without linked id: %+v", tx)
		}
		linked[tx.LinkedID]++
	}
	if len(linked) != 3 {
		t.Fatalf("got %d transfer pairs, want 3", len(linked))
	}
	for id, n := range linked {
		if n != 2 {
			t.Fatalf("linked id %s has %d legs, want 2", id, n)
		}
	}
}

func TestServiceRefreshSeedsFromHistory(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateEntry(ctx, entry("2023-12-20", core.Credit, 100000)); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	persisted, err := svc.CreateEntry(ctx, entry("2024-01-10", core.Debit, 25000))
	if err != nil {
		t.Fatalf("window entry: %v", err)
	}

	snap, applied, err := svc.Refresh(ctx, store.TransactionFilter{StartDate: core.NewDate(2024, 1, 1)})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !applied {
		t.Fatal("snapshot not applied")
	}
	if snap.SeedCents != 100000 {
		t.Fatalf("seed = %d, want 100000", snap.SeedCents)
	}
	if got := snap.Balances[persisted[0].ID]; got != 75000 {
		t.Fatalf("windowed balance = %d, want 75000", got)
	}
	if len(snap.Transactions) != 1 {
		t.Fatalf("window holds %d transactions, want 1", len(snap.Transactions))
	}
}

func TestServiceUpdateTransferLegWithMissingCounterpart(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	input := entry("2024-02-01", core.Debit, 30000)
	input.Transfer = &TransferBanks{SourceBankID: "bankA", DestinationBankID: "bankB"}
	persisted, err := svc.CreateEntry(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Delete the credit leg out-of-band.
	var debitLeg, creditLeg core.Transaction
	for _, tx := range persisted {
		if tx.Type == core.Debit {
			debitLeg = tx
		} else {
			creditLeg = tx
		}
	}
	if err := st.DeleteTransactions(ctx, []string{creditLeg.ID}); err != nil {
		t.Fatalf("out-of-band delete: %v", err)
	}

	edit := entry("2024-02-02", core.Debit, 35000)
	edit.Transaction.ID = debitLeg.ID
	edit.Transfer = &TransferBanks{SourceBankID: "bankA", DestinationBankID: "bankB"}
	legs, warning, err := svc.UpdateEntry(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !warning {
		t.Fatal("expected orphan warning")
	}
	if len(legs) != 1 {
		t.Fatalf("orphan edit wrote %d legs, want 1", len(legs))
	}
	all, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 1 {
		t.Fatalf("missing leg was recreated: store holds %d", len(all))
	}
}

func TestServiceUpdateTransferLegWithoutBankPair(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	input := entry("2024-02-01", core.Debit, 30000)
	input.Transfer = &TransferBanks{SourceBankID: "bankA", DestinationBankID: "bankB"}
	persisted, err := svc.CreateEntry(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var debitLeg core.Transaction
	for _, tx := range persisted {
		if tx.Type == core.Debit {
			debitLeg = tx
		}
	}

	// A plain edit of one leg must still move the whole pair.
	edit := entry("2024-02-03", core.Debit, 99900)
	edit.Transaction.ID = debitLeg.ID
	legs, warning, err := svc.UpdateEntry(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if warning {
		t.Fatal("unexpected orphan warning for an intact pair")
	}
	if len(legs) != 2 {
		t.Fatalf("edit wrote %d legs, want 2", len(legs))
	}

	all, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 2 {
		t.Fatalf("store holds %d transactions, want 2", len(all))
	}
	for _, tx := range all {
		if tx.Value.Cents != 99900 {
			t.Fatalf("pair desynced: leg %s value = %d, want 99900", tx.ID, tx.Value.Cents)
		}
		if tx.Date.String() != "2024-02-03" {
			t.Fatalf("pair desynced: leg %s date = %s, want 2024-02-03", tx.ID, tx.Date)
		}
		// Each leg keeps its original bank and direction.
		switch tx.Type {
		case core.Debit:
			if tx.BankID != "bankA" {
				t.Fatalf("debit leg bank = %s, want bankA", tx.BankID)
			}
		case core.Credit:
			if tx.BankID != "bankB" {
				t.Fatalf("credit leg bank = %s, want bankB", tx.BankID)
			}
		}
	}
}

func TestServiceUpdateOrphanLegWithoutBankPair(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	input := entry("2024-02-01", core.Debit, 30000)
	input.Transfer = &TransferBanks{SourceBankID: "bankA", DestinationBankID: "bankB"}
	persisted, err := svc.CreateEntry(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var debitLeg, creditLeg core.Transaction
	for _, tx := range persisted {
		if tx.Type == core.Debit {
			debitLeg = tx
		} else {
			creditLeg = tx
		}
	}
	if err := st.DeleteTransactions(ctx, []string{creditLeg.ID}); err != nil {
		t.Fatalf("out-of-band delete: %v", err)
	}

	edit := entry("2024-02-02", core.Debit, 35000)
	edit.Transaction.ID = debitLeg.ID
	legs, warning, err := svc.UpdateEntry(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !warning {
		t.Fatal("expected orphan warning")
	}
	if len(legs) != 1 || legs[0].Value.Cents != 35000 {
		t.Fatalf("orphan edit legs = %+v", legs)
	}
	if legs[0].LinkedID != debitLeg.LinkedID {
		t.Fatal("surviving leg lost its linked id")
	}
	all, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 1 {
		t.Fatalf("missing leg was recreated: store holds %d", len(all))
	}
}

func TestServiceDeleteCascade(t *testing.T) {
	svc, st, mirror := newTestService()
	ctx := context.Background()

	input := entry("2024-02-01", core.Debit, 30000)
	input.Transfer = &TransferBanks{SourceBankID: "bankA", DestinationBankID: "bankB"}
	persisted, err := svc.CreateEntry(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := svc.DeleteEntry(ctx, persisted[0].ID, true)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("cascade deleted %d, want 2", len(deleted))
	}
	all, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 0 {
		t.Fatalf("store still holds %d transactions", len(all))
	}
	if len(mirror.deletes) != 2 {
		t.Fatalf("mirror deletes = %v", mirror.deletes)
	}
}

func TestServiceDeleteWithoutCascadeLeavesOrphan(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	input := entry("2024-02-01", core.Debit, 30000)
	input.Transfer = &TransferBanks{SourceBankID: "bankA", DestinationBankID: "bankB"}
	persisted, err := svc.CreateEntry(ctx, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.DeleteEntry(ctx, persisted[0].ID, false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ := st.ListTransactions(ctx, store.TransactionFilter{})
	if len(all) != 1 {
		t.Fatalf("store holds %d transactions, want the tolerated orphan", len(all))
	}
}

func TestServiceResolveRegistryName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.ResolveRegistryName(ctx, core.BankRegistry, "Banco do Sul")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.ID == "" {
		t.Fatal("created entry without id")
	}
	// Same name, different casing: must dedup, not duplicate.
	again, err := svc.ResolveRegistryName(ctx, core.BankRegistry, "banco do sul")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("duplicate registry entry created: %s vs %s", again.ID, first.ID)
	}
	banks, _ := svc.ListRegistry(ctx, core.BankRegistry)
	if len(banks) != 1 {
		t.Fatalf("registry holds %d banks, want 1", len(banks))
	}
}

func TestServiceDeleteReferencedRegistryEntry(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	bank, err := svc.UpsertRegistryEntry(ctx, core.BankRegistry, core.RegistryEntry{Name: "Caixa"})
	if err != nil {
		t.Fatalf("upsert bank: %v", err)
	}
	input := entry("2024-01-10", core.Credit, 1000)
	input.Transaction.BankID = bank.ID
	if _, err := svc.CreateEntry(ctx, input); err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.DeleteRegistryEntry(ctx, core.BankRegistry, bank.ID)
	if !errors.Is(err, core.ErrReferentialIntegrity) {
		t.Fatalf("expected referential integrity error, got %v", err)
	}
}
