// Package worker consumes mirror queue messages and replays ledger
// changes into the spreadsheet journal.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"livrocaixa/internal/amqp"
	"livrocaixa/internal/core"
	"livrocaixa/internal/store"
)

// SheetWriter is the slice of the mirror client the worker needs.
type SheetWriter interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) error
	AppendDeletion(ctx context.Context, id string) error
}

type MirrorWorker struct {
	store  store.LedgerStore
	sheets SheetWriter
}

func NewMirrorWorker(st store.LedgerStore, sheets SheetWriter) *MirrorWorker {
	return &MirrorWorker{store: st, sheets: sheets}
}

// HandleMessage processes one mirror queue message. Messages carry only
// the id; the worker reads the current row so out-of-order deliveries
// never write stale field values.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	switch msg.Op {
	case amqp.OpDelete:
		if err := w.sheets.AppendDeletion(ctx, msg.ID); err != nil {
			return fmt.Errorf("mirror deletion %s: %w", msg.ID, err)
		}
		slog.InfoContext(ctx, "Mirrored transaction deletion", "id", msg.ID)
		return nil
	case amqp.OpUpsert:
		tx, err := w.store.GetTransaction(ctx, msg.ID)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between publish and consume; the delete message
			// will follow.
			slog.WarnContext(ctx, "Transaction gone before mirroring, skipping", "id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load transaction %s: %w", msg.ID, err)
		}
		if err := w.sheets.AppendTransaction(ctx, tx); err != nil {
			return fmt.Errorf("mirror transaction %s: %w", msg.ID, err)
		}
		slog.InfoContext(ctx, "Mirrored transaction", "id", msg.ID, "date", tx.Date)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown mirror operation, dropping", "op", msg.Op, "id", msg.ID)
		return nil
	}
}

// BackfillBatch mirrors a window of recent transactions. Used at startup
// to recover from messages lost while the worker was down.
func (w *MirrorWorker) BackfillBatch(ctx context.Context, since core.Date, limit int) (int, error) {
	txns, err := w.store.ListTransactions(ctx, store.TransactionFilter{StartDate: since})
	if err != nil {
		return 0, fmt.Errorf("list transactions for backfill: %w", err)
	}
	mirrored := 0
	for _, tx := range txns {
		if limit > 0 && mirrored >= limit {
			break
		}
		if err := w.sheets.AppendTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Backfill append failed", "id", tx.ID, "error", err)
			continue
		}
		mirrored++
	}
	slog.InfoContext(ctx, "Backfill completed", "candidates", len(txns), "mirrored", mirrored)
	return mirrored, nil
}
