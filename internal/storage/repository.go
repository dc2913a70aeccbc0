// Package storage is the SQLite LedgerStore. Dates travel as ISO strings
// so lexicographic index order matches chronological order.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"livrocaixa/internal/core"
	"livrocaixa/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.LedgerStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const txColumns = `id, date, description, doc_number, value_cents, type, status,
	bank_id, wallet_id, category_id, cost_center_id, participant_id, linked_id`

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	if !f.StartDate.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate.String())
	}
	if f.BankID != "" {
		conds = append(conds, "bank_id = ?")
		args = append(args, f.BankID)
	}
	if f.WalletID != "" {
		conds = append(conds, "wallet_id = ?")
		args = append(args, f.WalletID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}

	query := "SELECT " + txColumns + " FROM transactions"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			description = excluded.description,
			doc_number = excluded.doc_number,
			value_cents = excluded.value_cents,
			type = excluded.type,
			status = excluded.status,
			bank_id = excluded.bank_id,
			wallet_id = excluded.wallet_id,
			category_id = excluded.category_id,
			cost_center_id = excluded.cost_center_id,
			participant_id = excluded.participant_id,
			linked_id = excluded.linked_id,
			updated_at = CURRENT_TIMESTAMP`,
		tx.ID, tx.Date.String(), tx.Description, tx.DocNumber, tx.Value.Cents,
		string(tx.Type), string(tx.Status),
		tx.BankID, tx.WalletID, tx.CategoryID, tx.CostCenterID, tx.ParticipantID, tx.LinkedID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("upsert transaction %s: %w", tx.ID, err)
	}
	return tx, nil
}

// UpsertTransactions writes the batch row by row. Not atomic: a failure
// mid-batch returns the rows written so far alongside the error.
func (r *SQLiteRepository) UpsertTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		saved, err := r.UpsertTransaction(ctx, tx)
		if err != nil {
			return out, err
		}
		out = append(out, saved)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete transaction %s: %w", id, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListRegistry(ctx context.Context, kind core.RegistryKind) ([]core.RegistryEntry, error) {
	if !kind.IsValid() {
		return nil, core.NewValidationError("kind", "unknown registry kind")
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, bank_id FROM registry_entries WHERE kind = ? ORDER BY name",
		string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s registry: %w", kind, err)
	}
	defer rows.Close()

	var out []core.RegistryEntry
	for rows.Next() {
		var e core.RegistryEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.BankID); err != nil {
			return nil, fmt.Errorf("scan registry entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registry entries: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpsertRegistryEntry(ctx context.Context, kind core.RegistryKind, e core.RegistryEntry) (core.RegistryEntry, error) {
	if !kind.IsValid() {
		return core.RegistryEntry{}, core.NewValidationError("kind", "unknown registry kind")
	}
	if err := e.Validate(); err != nil {
		return core.RegistryEntry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registry_entries (kind, id, name, bank_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			name = excluded.name,
			bank_id = excluded.bank_id`,
		string(kind), e.ID, e.Name, e.BankID)
	if err != nil {
		return core.RegistryEntry{}, fmt.Errorf("upsert %s %s: %w", kind, e.ID, err)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteRegistryEntry(ctx context.Context, kind core.RegistryKind, id string) error {
	if !kind.IsValid() {
		return core.NewValidationError("kind", "unknown registry kind")
	}
	refs, err := r.countReferences(ctx, kind, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &core.ReferentialIntegrityError{Kind: kind, ID: id, Refs: refs}
	}
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM registry_entries WHERE kind = ? AND id = ?", string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.DebugContext(ctx, "Registry entry deleted", "kind", kind, "id", id)
	return nil
}

func (r *SQLiteRepository) countReferences(ctx context.Context, kind core.RegistryKind, id string) (int64, error) {
	column := map[core.RegistryKind]string{
		core.BankRegistry:        "bank_id",
		core.WalletRegistry:      "wallet_id",
		core.CategoryRegistry:    "category_id",
		core.CostCenterRegistry:  "cost_center_id",
		core.ParticipantRegistry: "participant_id",
	}[kind]

	var refs int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE "+column+" = ?", id).Scan(&refs)
	if err != nil {
		return 0, fmt.Errorf("count %s references: %w", kind, err)
	}

	// Banks are also referenced by wallets' bank association.
	if kind == core.BankRegistry {
		var walletRefs int64
		err := r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM registry_entries WHERE kind = ? AND bank_id = ?",
			string(core.WalletRegistry), id).Scan(&walletRefs)
		if err != nil {
			return 0, fmt.Errorf("count wallet references: %w", err)
		}
		refs += walletRefs
	}
	return refs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx       core.Transaction
		date     string
		ty, stat string
	)
	err := row.Scan(&tx.ID, &date, &tx.Description, &tx.DocNumber, &tx.Value.Cents,
		&ty, &stat,
		&tx.BankID, &tx.WalletID, &tx.CategoryID, &tx.CostCenterID, &tx.ParticipantID, &tx.LinkedID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, err
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	tx.Type = core.TxType(ty)
	tx.Status = core.TxStatus(stat)
	return tx, nil
}
