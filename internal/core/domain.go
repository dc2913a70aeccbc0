package core

import (
	"strings"
	"time"
)

const (
	Credit TxType = "CREDIT"
	Debit  TxType = "DEBIT"

	Paid    TxStatus = "PAID"
	Pending TxStatus = "PENDING"
)

const (
	Daily        Frequency = "DAILY"
	Weekly       Frequency = "WEEKLY"
	Monthly      Frequency = "MONTHLY"
	Yearly       Frequency = "YEARLY"
	BusinessDays Frequency = "BUSINESS_DAYS"
)

const (
	BankRegistry        RegistryKind = "bank"
	WalletRegistry      RegistryKind = "wallet"
	CategoryRegistry    RegistryKind = "category"
	CostCenterRegistry  RegistryKind = "costCenter"
	ParticipantRegistry RegistryKind = "participant"
)

type (
	TxType       string
	TxStatus     string
	Frequency    string
	RegistryKind string

	// Date is a calendar date with no time component (UTC midnight).
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is the atomic ledger entry. Value carries the magnitude
	// only; direction comes from Type. An empty ID means the entry has not
	// been persisted yet.
	Transaction struct {
		ID            string
		Date          Date
		Description   string
		DocNumber     string
		Value         Money
		Type          TxType
		Status        TxStatus
		BankID        string
		WalletID      string
		CategoryID    string
		CostCenterID  string
		ParticipantID string
		// LinkedID correlates the two legs of a transfer. Empty for
		// ordinary entries.
		LinkedID string
	}

	// RegistryEntry is a bank, wallet, category, cost center or
	// participant. BankID is meaningful only for wallets.
	RegistryEntry struct {
		ID     string
		Name   string
		BankID string
	}
)

// Signed returns the transaction's contribution to a balance in cents:
// positive for credits, negative for debits.
func (t Transaction) Signed() int64 {
	if t.Type == Debit {
		return -t.Value.Cents
	}
	return t.Value.Cents
}

// IsTransferLeg reports whether the entry belongs to a transfer pair.
func (t Transaction) IsTransferLeg() bool {
	return t.LinkedID != ""
}

func (ty TxType) IsValid() bool {
	return ty == Credit || ty == Debit
}

// Opposite returns the other leg's type.
func (ty TxType) Opposite() TxType {
	if ty == Credit {
		return Debit
	}
	return Credit
}

func (st TxStatus) IsValid() bool {
	return st == Paid || st == Pending
}

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly, BusinessDays:
		return true
	default:
		return false
	}
}

func (k RegistryKind) IsValid() bool {
	switch k {
	case BankRegistry, WalletRegistry, CategoryRegistry, CostCenterRegistry, ParticipantRegistry:
		return true
	default:
		return false
	}
}

// RegistryKinds returns every valid registry kind.
func RegistryKinds() []RegistryKind {
	return []RegistryKind{BankRegistry, WalletRegistry, CategoryRegistry, CostCenterRegistry, ParticipantRegistry}
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses the wire format YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", "must be YYYY-MM-DD")
	}
	return Date{Time: t.UTC()}, nil
}

// String renders the wire format YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date n calendar days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// IsBusinessDay reports whether the date falls Monday through Friday.
func (d Date) IsBusinessDay() bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Compare orders dates chronologically: -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Before(other.Time):
		return -1
	case d.After(other.Time):
		return 1
	default:
		return 0
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return NewValidationError("date", "is required")
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a user-entered transaction. Persistence-level fields
// (ID, LinkedID) are not validated here; the store owns them.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if err := t.Value.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return NewValidationError("type", "must be CREDIT or DEBIT")
	}
	if !t.Status.IsValid() {
		return NewValidationError("status", "must be PAID or PENDING")
	}
	return nil
}

func (e RegistryEntry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return NewValidationError("name", "is required")
	}
	return nil
}
