package ledger

import (
	"sort"

	"livrocaixa/internal/core"
)

const (
	MonthlyPeriods Granularity = "MONTHLY"
	DailyPeriods   Granularity = "DAILY"
)

// Granularity selects the cash-flow bucketing period.
type Granularity string

func (g Granularity) IsValid() bool {
	return g == MonthlyPeriods || g == DailyPeriods
}

// CashflowFilter scopes a period ladder: the date window, the bucketing
// granularity and the banks to include (empty set means every bank).
type CashflowFilter struct {
	Start       core.Date
	End         core.Date
	Granularity Granularity
	BankIDs     []string
}

func (f CashflowFilter) inBankScope(tx core.Transaction) bool {
	if len(f.BankIDs) == 0 {
		return true
	}
	for _, id := range f.BankIDs {
		if tx.BankID == id {
			return true
		}
	}
	return false
}

// PeriodRow is one rung of the cash-flow ladder. Opening equals the
// previous row's Closing; the first row opens at the historical balance
// as of the range start.
type PeriodRow struct {
	Label        string
	Opening      int64
	Income       int64
	Expense      int64
	Operational  int64
	Closing      int64
	Transactions []core.Transaction
}

// Cashflow buckets the ledger into periods and walks the ladder.
// Income/expense totals count both PAID and PENDING entries (this is a
// projection); the opening seed counts PAID only, like a real balance.
// txns must be the entire ledger so the seed is historically correct.
func Cashflow(txns []core.Transaction, f CashflowFilter) ([]PeriodRow, error) {
	if !f.Granularity.IsValid() {
		return nil, core.NewValidationError("granularity", "must be MONTHLY or DAILY")
	}
	if err := f.Start.Validate(); err != nil {
		return nil, err
	}
	if err := f.End.Validate(); err != nil {
		return nil, err
	}
	if f.End.Compare(f.Start) < 0 {
		return nil, core.NewValidationError("range", "end date precedes start date")
	}

	var opening int64
	groups := make(map[string][]core.Transaction)
	for _, tx := range txns {
		if !f.inBankScope(tx) {
			continue
		}
		if tx.Date.Compare(f.Start) < 0 {
			if tx.Status == core.Paid {
				opening += tx.Signed()
			}
			continue
		}
		if tx.Date.Compare(f.End) > 0 {
			continue
		}
		key := f.periodKey(tx.Date)
		groups[key] = append(groups[key], tx)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// Period labels are zero-padded ISO prefixes, so the lexicographic
	// order is the chronological one.
	sort.Strings(keys)

	rows := make([]PeriodRow, 0, len(keys))
	running := opening
	for _, key := range keys {
		members := groups[key]
		SortChronological(members)
		row := PeriodRow{Label: key, Opening: running, Transactions: members}
		for _, tx := range members {
			if tx.Type == core.Credit {
				row.Income += tx.Value.Cents
			} else {
				row.Expense += tx.Value.Cents
			}
		}
		row.Operational = row.Income - row.Expense
		row.Closing = row.Opening + row.Operational
		running = row.Closing
		rows = append(rows, row)
	}
	return rows, nil
}

func (f CashflowFilter) periodKey(d core.Date) string {
	if f.Granularity == DailyPeriods {
		return d.Format("2006-01-02")
	}
	return d.Format("2006-01")
}
