package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"livrocaixa/internal/core"
	"livrocaixa/internal/csvio"
	"livrocaixa/internal/ledger"
	"livrocaixa/internal/store"
)

type transactionJSON struct {
	ID            string `json:"id,omitempty"`
	Date          string `json:"date"`
	Description   string `json:"description"`
	DocNumber     string `json:"docNumber,omitempty"`
	ValueCents    int64  `json:"valueCents"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	BankID        string `json:"bankId,omitempty"`
	WalletID      string `json:"walletId,omitempty"`
	CategoryID    string `json:"categoryId,omitempty"`
	CostCenterID  string `json:"costCenterId,omitempty"`
	ParticipantID string `json:"participantId,omitempty"`
	LinkedID      string `json:"linkedId,omitempty"`

	// BalanceCents is filled on list responses for PAID rows; pending
	// rows carry null.
	BalanceCents *int64 `json:"balanceCents,omitempty"`
}

type transferJSON struct {
	SourceBankID      string `json:"sourceBankId"`
	DestinationBankID string `json:"destinationBankId"`
}

type recurrenceJSON struct {
	Frequency string `json:"frequency"`
	Count     int    `json:"count,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type entryRequest struct {
	transactionJSON
	Transfer   *transferJSON   `json:"transfer,omitempty"`
	Recurrence *recurrenceJSON `json:"recurrence,omitempty"`
}

type listResponse struct {
	Stamp        uint64            `json:"stamp"`
	Applied      bool              `json:"applied"`
	SeedCents    int64             `json:"seedCents"`
	Transactions []transactionJSON `json:"transactions"`
}

type entryResponse struct {
	Transactions []transactionJSON `json:"transactions"`
	Warning      string            `json:"warning,omitempty"`
}

type registryJSON struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	BankID string `json:"bankId,omitempty"`
}

type periodRowJSON struct {
	Label            string            `json:"label"`
	OpeningCents     int64             `json:"openingCents"`
	IncomeCents      int64             `json:"incomeCents"`
	ExpenseCents     int64             `json:"expenseCents"`
	OperationalCents int64             `json:"operationalCents"`
	ClosingCents     int64             `json:"closingCents"`
	Transactions     []transactionJSON `json:"transactions"`
}

func toPeriodRowsJSON(rows []ledger.PeriodRow) []periodRowJSON {
	out := make([]periodRowJSON, len(rows))
	for i, row := range rows {
		out[i] = periodRowJSON{
			Label:            row.Label,
			OpeningCents:     row.Opening,
			IncomeCents:      row.Income,
			ExpenseCents:     row.Expense,
			OperationalCents: row.Operational,
			ClosingCents:     row.Closing,
			Transactions:     toTransactionsJSON(row.Transactions),
		}
	}
	return out
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:            tx.ID,
		Date:          tx.Date.String(),
		Description:   tx.Description,
		DocNumber:     tx.DocNumber,
		ValueCents:    tx.Value.Cents,
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		BankID:        tx.BankID,
		WalletID:      tx.WalletID,
		CategoryID:    tx.CategoryID,
		CostCenterID:  tx.CostCenterID,
		ParticipantID: tx.ParticipantID,
		LinkedID:      tx.LinkedID,
	}
}

func (j transactionJSON) toCore() (core.Transaction, error) {
	var date core.Date
	if strings.TrimSpace(j.Date) != "" {
		var err error
		date, err = core.ParseDate(j.Date)
		if err != nil {
			return core.Transaction{}, err
		}
	}
	return core.Transaction{
		ID:            j.ID,
		Date:          date,
		Description:   j.Description,
		DocNumber:     j.DocNumber,
		Value:         core.Money{Cents: j.ValueCents},
		Type:          core.TxType(j.Type),
		Status:        core.TxStatus(j.Status),
		BankID:        j.BankID,
		WalletID:      j.WalletID,
		CategoryID:    j.CategoryID,
		CostCenterID:  j.CostCenterID,
		ParticipantID: j.ParticipantID,
		LinkedID:      j.LinkedID,
	}, nil
}

func (r entryRequest) toInput() (ledger.EntryInput, error) {
	tx, err := r.transactionJSON.toCore()
	if err != nil {
		return ledger.EntryInput{}, err
	}
	input := ledger.EntryInput{Transaction: tx}
	if r.Transfer != nil {
		input.Transfer = &ledger.TransferBanks{
			SourceBankID:      r.Transfer.SourceBankID,
			DestinationBankID: r.Transfer.DestinationBankID,
		}
	}
	if r.Recurrence != nil {
		rule := ledger.RecurrenceRule{
			Frequency: core.Frequency(r.Recurrence.Frequency),
			Count:     r.Recurrence.Count,
		}
		if strings.TrimSpace(r.Recurrence.EndDate) != "" {
			end, err := core.ParseDate(r.Recurrence.EndDate)
			if err != nil {
				return ledger.EntryInput{}, err
			}
			rule.EndDate = end
		}
		input.Recurrence = rule
	}
	return input, nil
}

func parseFilter(r *http.Request) (store.TransactionFilter, error) {
	q := r.URL.Query()
	var f store.TransactionFilter
	if v := q.Get("start"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.StartDate = d
	}
	if v := q.Get("end"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.EndDate = d
	}
	f.BankID = q.Get("bank")
	f.WalletID = q.Get("wallet")
	if v := q.Get("status"); v != "" {
		status := core.TxStatus(strings.ToUpper(v))
		if !status.IsValid() {
			return f, core.NewValidationError("status", "must be PAID or PENDING")
		}
		f.Status = status
	}
	return f, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	snap, applied, err := s.svc.Refresh(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := listResponse{
		Stamp:        snap.Stamp,
		Applied:      applied,
		SeedCents:    snap.SeedCents,
		Transactions: make([]transactionJSON, len(snap.Transactions)),
	}
	for i, tx := range snap.Transactions {
		row := toTransactionJSON(tx)
		if b, ok := snap.Balances[tx.ID]; ok {
			row.BalanceCents = &b
		}
		resp.Transactions[i] = row
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	persisted, err := s.svc.CreateEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports()

	writeJSON(w, http.StatusCreated, entryResponse{Transactions: toTransactionsJSON(persisted)})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ID = r.PathValue("id")
	input, err := req.toInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	legs, warning, err := s.svc.UpdateEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports()

	resp := entryResponse{Transactions: toTransactionsJSON(legs)}
	if warning {
		resp.Warning = "transfer counterpart missing; only the surviving leg was updated"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cascade := r.URL.Query().Get("cascade") == "1"

	deleted, err := s.svc.DeleteEntry(r.Context(), id, cascade)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports()

	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.CashflowFilter{
		Granularity: ledger.Granularity(strings.ToUpper(q.Get("granularity"))),
	}
	if f.Granularity == "" {
		f.Granularity = ledger.MonthlyPeriods
	}
	var err error
	if f.Start, err = core.ParseDate(q.Get("start")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if f.End, err = core.ParseDate(q.Get("end")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if banks := strings.TrimSpace(q.Get("banks")); banks != "" {
		f.BankIDs = strings.Split(banks, ",")
	}

	key := r.URL.RawQuery
	if rows, ok := s.cashflowCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Cashflow cache hit", "key", key)
		writeJSON(w, http.StatusOK, toPeriodRowsJSON(rows))
		return
	}

	rows, err := s.svc.CashflowReport(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.cashflowCache.Set(key, rows)
	writeJSON(w, http.StatusOK, toPeriodRowsJSON(rows))
}

func registryKind(r *http.Request) (core.RegistryKind, error) {
	kind := core.RegistryKind(r.PathValue("kind"))
	if !kind.IsValid() {
		return "", core.NewValidationError("kind", "unknown registry kind")
	}
	return kind, nil
}

func (s *Server) handleListRegistry(w http.ResponseWriter, r *http.Request) {
	kind, err := registryKind(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	entries, err := s.svc.ListRegistry(r.Context(), kind)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]registryJSON, len(entries))
	for i, e := range entries {
		out[i] = registryJSON{ID: e.ID, Name: e.Name, BankID: e.BankID}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertRegistry(w http.ResponseWriter, r *http.Request) {
	kind, err := registryKind(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req registryJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	saved, err := s.svc.UpsertRegistryEntry(r.Context(), kind, core.RegistryEntry{
		ID:     req.ID,
		Name:   req.Name,
		BankID: req.BankID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registryJSON{ID: saved.ID, Name: saved.Name, BankID: saved.BankID})
}

func (s *Server) handleDeleteRegistry(w http.ResponseWriter, r *http.Request) {
	kind, err := registryKind(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.svc.DeleteRegistryEntry(r.Context(), kind, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCSVImport(w http.ResponseWriter, r *http.Request) {
	imp := csvio.NewImporter(s.svc, s.svc)
	result, err := imp.Import(r.Context(), r.Body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports()

	failures := make([]string, len(result.Failed))
	for i, f := range result.Failed {
		failures[i] = f.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": result.Imported,
		"failed":   failures,
	})
}

func (s *Server) handleCSVExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	snap, _, err := s.svc.Refresh(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	names, err := csvio.BuildNameIndex(r.Context(), s.svc)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.csv"`)
	if err := csvio.Export(w, snap.Transactions, snap.Balances, names); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed mid-stream", "error", err)
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionJSON(tx)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrReferentialIntegrity):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
