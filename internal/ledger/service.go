package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"livrocaixa/internal/core"
	"livrocaixa/internal/store"
)

// MirrorPublisher announces ledger writes to the asynchronous mirror
// pipeline. A nil publisher disables mirroring; publish failures are
// never fatal to the originating write.
type MirrorPublisher interface {
	PublishUpsert(ctx context.Context, id string) error
	PublishDelete(ctx context.Context, id string) error
}

// TransferBanks is the bank pair of a transfer intent.
type TransferBanks struct {
	SourceBankID      string
	DestinationBankID string
}

// EntryInput is a user-submitted ledger entry: a template transaction,
// optionally marked as a transfer and/or carrying a recurrence rule.
// Transfer and recurrence compose: each generated date becomes a full
// debit/credit pair.
type EntryInput struct {
	Transaction core.Transaction
	Transfer    *TransferBanks
	Recurrence  RecurrenceRule
}

// Service orchestrates the pure ledger components against the store and
// the mirror pipeline. It owns the stale-response view guard.
type Service struct {
	store          store.LedgerStore
	mirror         MirrorPublisher
	view           *View
	maxRecurrences int
}

func NewService(st store.LedgerStore, mirror MirrorPublisher, maxRecurrences int) *Service {
	if maxRecurrences <= 0 {
		maxRecurrences = DefaultMaxRecurrences
	}
	return &Service{
		store:          st,
		mirror:         mirror,
		view:           NewView(),
		maxRecurrences: maxRecurrences,
	}
}

// View exposes the stale-response guard (read-only use by callers).
func (s *Service) View() *View { return s.view }

// Refresh derives a balance-annotated snapshot for the filter and
// installs it unless a newer refresh superseded this one meanwhile. The
// returned bool reports whether the snapshot was applied.
func (s *Service) Refresh(ctx context.Context, f store.TransactionFilter) (Snapshot, bool, error) {
	stamp := s.view.Begin()
	scope := Scope{BankID: f.BankID, WalletID: f.WalletID}

	txns, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("list transactions: %w", err)
	}

	var seed int64
	if !f.StartDate.IsZero() {
		// The seed walks the whole ledger before the window, not the
		// displayed page, so the balance column opens without a jump.
		pre, err := s.store.ListTransactions(ctx, store.TransactionFilter{
			EndDate:  f.StartDate.AddDays(-1),
			WalletID: f.WalletID,
		})
		if err != nil {
			return Snapshot{}, false, fmt.Errorf("list pre-window transactions: %w", err)
		}
		bankSeed := SeedBalance(pre, scope, f.StartDate)
		globalSeed := SeedBalance(pre, Scope{WalletID: f.WalletID}, f.StartDate)
		seed = PickSeed(scope, bankSeed, globalSeed)
	}

	SortChronological(txns)
	snap := Snapshot{
		Stamp:        stamp,
		Transactions: txns,
		Balances:     BalanceMap(txns, scope, seed),
		SeedCents:    seed,
	}
	applied := s.view.Apply(snap)
	if !applied {
		slog.DebugContext(ctx, "Stale ledger snapshot discarded",
			"stamp", stamp,
			"discarded_total", s.view.Discarded())
	}
	return snap, applied, nil
}

// CreateEntry expands the input (recurrence, then transfer pairing) and
// persists the resulting batch. Batch persistence is not atomic; on
// partial failure the already-written rows stay and the error reports
// what happened.
func (s *Service) CreateEntry(ctx context.Context, input EntryInput) ([]core.Transaction, error) {
	batch, err := s.expandInput(input)
	if err != nil {
		return nil, err
	}

	persisted, err := s.store.UpsertTransactions(ctx, batch)
	if err != nil {
		return persisted, fmt.Errorf("persist entry batch (%d written of %d): %w", len(persisted), len(batch), err)
	}

	s.publishUpserts(ctx, persisted)

	slog.InfoContext(ctx, "Ledger entry created",
		"instances", len(persisted),
		"transfer", input.Transfer != nil,
		"recurring", !input.Recurrence.IsZero())
	return persisted, nil
}

func (s *Service) expandInput(input EntryInput) ([]core.Transaction, error) {
	template := input.Transaction
	template.ID = ""
	if input.Transfer == nil {
		if err := template.Validate(); err != nil {
			return nil, err
		}
	} else if strings.TrimSpace(template.Description) == "" {
		return nil, core.ErrEmptyDescription
	}

	instances, err := Expand(template, input.Recurrence, s.maxRecurrences)
	if err != nil {
		return nil, err
	}

	if input.Transfer == nil {
		return instances, nil
	}
	batch := make([]core.Transaction, 0, 2*len(instances))
	for _, inst := range instances {
		legs, err := CreateTransfer(transferSpec(inst, *input.Transfer))
		if err != nil {
			return nil, err
		}
		batch = append(batch, legs...)
	}
	return batch, nil
}

// transferBanksOf reconstructs the bank pair from persisted legs: the
// debit leg is the source, the credit leg the destination.
func transferBanksOf(leg core.Transaction, counterpart *core.Transaction) TransferBanks {
	var banks TransferBanks
	assign := func(t core.Transaction) {
		if t.Type == core.Debit {
			banks.SourceBankID = t.BankID
		} else {
			banks.DestinationBankID = t.BankID
		}
	}
	assign(leg)
	if counterpart != nil {
		assign(*counterpart)
	}
	return banks
}

func transferSpec(tx core.Transaction, banks TransferBanks) TransferSpec {
	return TransferSpec{
		SourceBankID:      banks.SourceBankID,
		DestinationBankID: banks.DestinationBankID,
		Date:              tx.Date,
		Value:             tx.Value,
		Description:       tx.Description,
		DocNumber:         tx.DocNumber,
		WalletID:          tx.WalletID,
		CategoryID:        tx.CategoryID,
		CostCenterID:      tx.CostCenterID,
		ParticipantID:     tx.ParticipantID,
		Status:            tx.Status,
	}
}

// UpdateEntry edits a persisted transaction. A transfer leg always has
// both sides recomputed so the pair never drifts apart; when the request
// carries no bank pair the banks are reconstructed from the persisted
// legs. If the counterpart was deleted out-of-band the edit proceeds on
// the surviving leg (warning=true) and the missing leg is not recreated.
func (s *Service) UpdateEntry(ctx context.Context, input EntryInput) (legs []core.Transaction, warning bool, err error) {
	tx := input.Transaction
	if tx.ID == "" {
		return nil, false, core.NewValidationError("id", "is required for updates")
	}

	current, err := s.store.GetTransaction(ctx, tx.ID)
	if err != nil {
		return nil, false, fmt.Errorf("load transaction %s: %w", tx.ID, err)
	}

	var toWrite []core.Transaction
	if current.IsTransferLeg() {
		counterpart, err := s.findCounterpart(ctx, current)
		if err != nil {
			return nil, false, err
		}
		if counterpart == nil && input.Transfer == nil {
			// Orphaned leg edited without a bank pair: the other bank is
			// unknowable, so the survivor is edited alone.
			tx.LinkedID = current.LinkedID
			if err := tx.Validate(); err != nil {
				return nil, false, err
			}
			toWrite = []core.Transaction{tx}
			warning = true
			slog.WarnContext(ctx, "Transfer counterpart missing, editing surviving leg only",
				"id", current.ID,
				"linked_id", current.LinkedID)
		} else {
			banks := transferBanksOf(current, counterpart)
			if input.Transfer != nil {
				banks = *input.Transfer
			}
			result, err := EditTransfer(current, counterpart, transferSpec(tx, banks))
			if err != nil {
				return nil, false, err
			}
			if result.CounterpartMissing {
				warning = true
				slog.WarnContext(ctx, "Transfer counterpart missing, editing surviving leg only",
					"id", current.ID,
					"linked_id", current.LinkedID)
			}
			toWrite = result.Legs
		}
	} else {
		tx.LinkedID = current.LinkedID
		if err := tx.Validate(); err != nil {
			return nil, false, err
		}
		toWrite = []core.Transaction{tx}
	}

	persisted, err := s.store.UpsertTransactions(ctx, toWrite)
	if err != nil {
		return persisted, warning, fmt.Errorf("persist edit: %w", err)
	}
	s.publishUpserts(ctx, persisted)
	return persisted, warning, nil
}

// DeleteEntry removes a transaction; with cascade it also removes the
// transfer counterpart when one exists. Returns the deleted ids.
func (s *Service) DeleteEntry(ctx context.Context, id string, cascade bool) ([]string, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", id, err)
	}

	ids := []string{id}
	if cascade && tx.IsTransferLeg() {
		counterpart, err := s.findCounterpart(ctx, tx)
		if err != nil {
			return nil, err
		}
		if counterpart != nil {
			ids = append(ids, counterpart.ID)
		}
	}

	if err := s.store.DeleteTransactions(ctx, ids); err != nil {
		return nil, fmt.Errorf("delete transactions: %w", err)
	}
	for _, deleted := range ids {
		if s.mirror == nil {
			break
		}
		if err := s.mirror.PublishDelete(ctx, deleted); err != nil {
			slog.ErrorContext(ctx, "Failed to publish mirror delete", "id", deleted, "error", err)
		}
	}
	slog.InfoContext(ctx, "Ledger entry deleted", "ids", ids, "cascade", cascade)
	return ids, nil
}

func (s *Service) findCounterpart(ctx context.Context, leg core.Transaction) (*core.Transaction, error) {
	all, err := s.store.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("scan for counterpart: %w", err)
	}
	return FindCounterpart(all, leg), nil
}

// CashflowReport builds the period ladder over the full ledger.
func (s *Service) CashflowReport(ctx context.Context, f CashflowFilter) ([]PeriodRow, error) {
	all, err := s.store.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return Cashflow(all, f)
}

// ListRegistry passes through to the store.
func (s *Service) ListRegistry(ctx context.Context, kind core.RegistryKind) ([]core.RegistryEntry, error) {
	return s.store.ListRegistry(ctx, kind)
}

// UpsertRegistryEntry passes through to the store.
func (s *Service) UpsertRegistryEntry(ctx context.Context, kind core.RegistryKind, e core.RegistryEntry) (core.RegistryEntry, error) {
	return s.store.UpsertRegistryEntry(ctx, kind, e)
}

// DeleteRegistryEntry passes through to the store; a referential
// integrity failure surfaces unmodified.
func (s *Service) DeleteRegistryEntry(ctx context.Context, kind core.RegistryKind, id string) error {
	return s.store.DeleteRegistryEntry(ctx, kind, id)
}

// ResolveRegistryName finds a registry entry by name, case-insensitively,
// creating it when absent. CSV import leans on this for its
// dedup-by-name behavior.
func (s *Service) ResolveRegistryName(ctx context.Context, kind core.RegistryKind, name string) (core.RegistryEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.RegistryEntry{}, nil
	}
	entries, err := s.store.ListRegistry(ctx, kind)
	if err != nil {
		return core.RegistryEntry{}, fmt.Errorf("list %s registry: %w", kind, err)
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	created, err := s.store.UpsertRegistryEntry(ctx, kind, core.RegistryEntry{Name: name})
	if err != nil {
		return core.RegistryEntry{}, fmt.Errorf("create %s %q: %w", kind, name, err)
	}
	slog.InfoContext(ctx, "Registry entry created on demand", "kind", kind, "name", name, "id", created.ID)
	return created, nil
}

func (s *Service) publishUpserts(ctx context.Context, txs []core.Transaction) {
	if s.mirror == nil {
		return
	}
	for _, tx := range txs {
		if err := s.mirror.PublishUpsert(ctx, tx.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish mirror upsert", "id", tx.ID, "error", err)
		}
	}
}
