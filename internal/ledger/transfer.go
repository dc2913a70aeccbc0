package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"livrocaixa/internal/core"
)

// TransferSpec is the user's single "move value between banks" intent.
// The shared metadata applies symmetrically to both legs.
type TransferSpec struct {
	SourceBankID      string
	DestinationBankID string
	Date              core.Date
	Value             core.Money
	Description       string
	DocNumber         string
	WalletID          string
	CategoryID        string
	CostCenterID      string
	ParticipantID     string
	Status            core.TxStatus
}

func (s TransferSpec) validate() error {
	if s.SourceBankID == "" || s.DestinationBankID == "" {
		return core.NewValidationError("bank", "transfer requires both source and destination banks")
	}
	if s.SourceBankID == s.DestinationBankID {
		return core.NewValidationError("bank", "transfer source and destination must differ")
	}
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if err := s.Value.Validate(); err != nil {
		return err
	}
	if !s.Status.IsValid() {
		return core.NewValidationError("status", "must be PAID or PENDING")
	}
	return nil
}

// leg builds one side of the pair. Both legs share everything except
// type and bank.
func (s TransferSpec) leg(linkedID string, ty core.TxType, bankID string) core.Transaction {
	return core.Transaction{
		Date:          s.Date,
		Description:   s.Description,
		DocNumber:     s.DocNumber,
		Value:         s.Value,
		Type:          ty,
		Status:        s.Status,
		BankID:        bankID,
		WalletID:      s.WalletID,
		CategoryID:    s.CategoryID,
		CostCenterID:  s.CostCenterID,
		ParticipantID: s.ParticipantID,
		LinkedID:      linkedID,
	}
}

// CreateTransfer expands a transfer intent into its two legs: a DEBIT on
// the source bank and a CREDIT on the destination, sharing a fresh
// linked id. Both legs come back with empty IDs for the store to assign.
func CreateTransfer(spec TransferSpec) ([]core.Transaction, error) {
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}
	linkedID := uuid.NewString()
	return []core.Transaction{
		spec.leg(linkedID, core.Debit, spec.SourceBankID),
		spec.leg(linkedID, core.Credit, spec.DestinationBankID),
	}, nil
}

// EditResult carries the recomputed legs of a transfer edit.
// CounterpartMissing flags an orphaned leg: the edit went through on the
// surviving side alone and the missing leg was not recreated.
type EditResult struct {
	Legs               []core.Transaction
	CounterpartMissing bool
}

// EditTransfer recomputes both legs of an existing transfer from the
// edited form state, preserving each leg's id and the shared linked id.
// The edited leg keeps its direction; banks may change. When counterpart
// is nil the edit proceeds on the single surviving leg.
func EditTransfer(current core.Transaction, counterpart *core.Transaction, spec TransferSpec) (EditResult, error) {
	if current.LinkedID == "" {
		return EditResult{}, core.NewValidationError("linkedId", "transaction is not a transfer leg")
	}
	if err := spec.validate(); err != nil {
		return EditResult{}, fmt.Errorf("edit transfer: %w", err)
	}

	bankFor := func(ty core.TxType) string {
		if ty == core.Debit {
			return spec.SourceBankID
		}
		return spec.DestinationBankID
	}

	edited := spec.leg(current.LinkedID, current.Type, bankFor(current.Type))
	edited.ID = current.ID

	if counterpart == nil {
		return EditResult{Legs: []core.Transaction{edited}, CounterpartMissing: true}, nil
	}

	other := spec.leg(current.LinkedID, current.Type.Opposite(), bankFor(current.Type.Opposite()))
	other.ID = counterpart.ID
	return EditResult{Legs: []core.Transaction{edited, other}}, nil
}

// FindCounterpart locates the other leg of a transfer: same linked id,
// different id. Returns nil when the leg is orphaned (a legal, if
// inconsistent, state the system tolerates).
func FindCounterpart(txns []core.Transaction, leg core.Transaction) *core.Transaction {
	if leg.LinkedID == "" {
		return nil
	}
	for i := range txns {
		if txns[i].LinkedID == leg.LinkedID && txns[i].ID != leg.ID {
			return &txns[i]
		}
	}
	return nil
}
