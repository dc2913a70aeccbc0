// Package mirror appends ledger rows to a Google spreadsheet. The sheet
// is an append-only journal, not a replica: deletes land as tombstone
// rows so the audit trail survives.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"livrocaixa/internal/core"
)

type SheetsWriter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New builds a Sheets client from service account credentials. Auth
// comes from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string) (*SheetsWriter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing mirror spreadsheet id")
	}
	if sheetName == "" {
		sheetName = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsWriter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendTransaction writes one journal row for the transaction.
func (w *SheetsWriter) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	row := []any{
		tx.ID,
		tx.Date.String(),
		tx.Description,
		tx.DocNumber,
		core.FormatCents(tx.Value.Cents),
		string(tx.Type),
		string(tx.Status),
		tx.BankID,
		tx.WalletID,
		tx.CategoryID,
		tx.CostCenterID,
		tx.ParticipantID,
		tx.LinkedID,
	}
	return w.appendRow(ctx, row)
}

// AppendDeletion writes a tombstone row for a removed transaction.
func (w *SheetsWriter) AppendDeletion(ctx context.Context, id string) error {
	return w.appendRow(ctx, []any{id, "", "DELETED"})
}

func (w *SheetsWriter) appendRow(ctx context.Context, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := w.svc.Spreadsheets.Values.
		Append(w.spreadsheetID, w.sheetName+"!A:M", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append mirror row: %w", err)
	}
	slog.DebugContext(ctx, "Mirror row appended", "sheet", w.sheetName)
	return nil
}
