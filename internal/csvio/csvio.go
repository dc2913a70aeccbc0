// Package csvio moves ledger entries across the CSV boundary. Files use
// the bookkeeping locale: DD/MM/YYYY dates and comma decimal values.
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"livrocaixa/internal/core"
	"livrocaixa/internal/ledger"
)

const dateLayout = "02/01/2006"

// Row is one loose CSV line. Registry columns carry names, not ids;
// import resolves them, creating entries that don't exist yet.
type Row struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	DocNumber   string `csv:"Document"`
	Value       string `csv:"Value"`
	Type        string `csv:"Type"`
	Status      string `csv:"Status"`
	Bank        string `csv:"Bank"`
	Wallet      string `csv:"Wallet"`
	Category    string `csv:"Category"`
	CostCenter  string `csv:"Cost Center"`
	Participant string `csv:"Participant"`
}

// ExportRow extends Row with the running balance column.
type ExportRow struct {
	Row
	Balance string `csv:"Balance"`
}

// RegistryResolver maps a registry name to an entry, creating it when
// absent. ledger.Service satisfies this.
type RegistryResolver interface {
	ResolveRegistryName(ctx context.Context, kind core.RegistryKind, name string) (core.RegistryEntry, error)
}

// EntryWriter persists expanded entries. ledger.Service satisfies this.
type EntryWriter interface {
	CreateEntry(ctx context.Context, input ledger.EntryInput) ([]core.Transaction, error)
}

// RowError ties an import failure to its line (1-based, excluding the
// header).
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Imported int
	Failed   []RowError
}

type Importer struct {
	resolver RegistryResolver
	writer   EntryWriter
}

func NewImporter(resolver RegistryResolver, writer EntryWriter) *Importer {
	return &Importer{resolver: resolver, writer: writer}
}

// Import reads rows from r and persists each one. A bad row is recorded
// and skipped; the rest of the file still goes through.
func (i *Importer) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var rows []*Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return ImportResult{}, fmt.Errorf("parse CSV: %w", err)
	}

	var result ImportResult
	for n, row := range rows {
		line := n + 1
		tx, err := i.rowToTransaction(ctx, row)
		if err != nil {
			result.Failed = append(result.Failed, RowError{Line: line, Err: err})
			continue
		}
		if _, err := i.writer.CreateEntry(ctx, ledger.EntryInput{Transaction: tx}); err != nil {
			result.Failed = append(result.Failed, RowError{Line: line, Err: err})
			continue
		}
		result.Imported++
	}

	slog.InfoContext(ctx, "CSV import finished",
		"imported", result.Imported,
		"failed", len(result.Failed))
	return result, nil
}

func (i *Importer) rowToTransaction(ctx context.Context, row *Row) (core.Transaction, error) {
	date, err := parseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(row.Value)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("value %q: %w", row.Value, err)
	}

	ty := core.TxType(strings.ToUpper(strings.TrimSpace(row.Type)))
	if !ty.IsValid() {
		return core.Transaction{}, core.NewValidationError("type", fmt.Sprintf("unknown type %q", row.Type))
	}
	status := core.Paid
	if s := strings.ToUpper(strings.TrimSpace(row.Status)); s != "" {
		status = core.TxStatus(s)
		if !status.IsValid() {
			return core.Transaction{}, core.NewValidationError("status", fmt.Sprintf("unknown status %q", row.Status))
		}
	}

	tx := core.Transaction{
		Date:        date,
		Description: strings.TrimSpace(row.Description),
		DocNumber:   strings.TrimSpace(row.DocNumber),
		Value:       core.Money{Cents: cents},
		Type:        ty,
		Status:      status,
	}

	for _, ref := range []struct {
		kind core.RegistryKind
		name string
		dst  *string
	}{
		{core.BankRegistry, row.Bank, &tx.BankID},
		{core.WalletRegistry, row.Wallet, &tx.WalletID},
		{core.CategoryRegistry, row.Category, &tx.CategoryID},
		{core.CostCenterRegistry, row.CostCenter, &tx.CostCenterID},
		{core.ParticipantRegistry, row.Participant, &tx.ParticipantID},
	} {
		if strings.TrimSpace(ref.name) == "" {
			continue
		}
		entry, err := i.resolver.ResolveRegistryName(ctx, ref.kind, ref.name)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("resolve %s %q: %w", ref.kind, ref.name, err)
		}
		*ref.dst = entry.ID
	}

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, core.NewValidationError("date", fmt.Sprintf("%q is not DD/MM/YYYY", s))
	}
	return core.DateOf(t), nil
}

// NameIndex maps registry ids back to names for export.
type NameIndex map[core.RegistryKind]map[string]string

// RegistryLister is the read slice of the registry API.
type RegistryLister interface {
	ListRegistry(ctx context.Context, kind core.RegistryKind) ([]core.RegistryEntry, error)
}

func BuildNameIndex(ctx context.Context, lister RegistryLister) (NameIndex, error) {
	idx := make(NameIndex)
	for _, kind := range core.RegistryKinds() {
		entries, err := lister.ListRegistry(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s registry: %w", kind, err)
		}
		idx[kind] = make(map[string]string, len(entries))
		for _, e := range entries {
			idx[kind][e.ID] = e.Name
		}
	}
	return idx, nil
}

// Export writes the transactions in order with their running balances.
// txns must already be chronologically sorted; balances comes from the
// balance engine and may omit pending rows.
func Export(w io.Writer, txns []core.Transaction, balances map[string]int64, names NameIndex) error {
	rows := make([]*ExportRow, len(txns))
	for i, tx := range txns {
		balance := ""
		if b, ok := balances[tx.ID]; ok {
			balance = core.FormatCents(b)
		}
		rows[i] = &ExportRow{
			Row: Row{
				Date:        tx.Date.Format(dateLayout),
				Description: tx.Description,
				DocNumber:   tx.DocNumber,
				Value:       core.FormatCents(tx.Value.Cents),
				Type:        string(tx.Type),
				Status:      string(tx.Status),
				Bank:        names.lookup(core.BankRegistry, tx.BankID),
				Wallet:      names.lookup(core.WalletRegistry, tx.WalletID),
				Category:    names.lookup(core.CategoryRegistry, tx.CategoryID),
				CostCenter:  names.lookup(core.CostCenterRegistry, tx.CostCenterID),
				Participant: names.lookup(core.ParticipantRegistry, tx.ParticipantID),
			},
			Balance: balance,
		}
	}

	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(csv.NewWriter(w))); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}

func (n NameIndex) lookup(kind core.RegistryKind, id string) string {
	if id == "" {
		return ""
	}
	if name, ok := n[kind][id]; ok {
		return name
	}
	// Dangling reference: keep the id so the row stays traceable.
	return id
}
