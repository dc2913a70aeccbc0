package ledger

import (
	"errors"
	"testing"

	"livrocaixa/internal/core"
)

func validSpec() TransferSpec {
	return TransferSpec{
		SourceBankID:      "bankA",
		DestinationBankID: "bankB",
		Date:              core.NewDate(2024, 2, 1),
		Value:             core.Money{Cents: 30000},
		Description:       "cash move",
		WalletID:          "wallet1",
		Status:            core.Paid,
	}
}

func TestCreateTransferPairInvariant(t *testing.T) {
	legs, err := CreateTransfer(validSpec())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("got %d legs, want 2", len(legs))
	}
	debit, credit := legs[0], legs[1]
	if debit.Type != core.Debit || credit.Type != core.Credit {
		t.Fatalf("leg types = %s/%s", debit.Type, credit.Type)
	}
	if debit.BankID != "bankA" || credit.BankID != "bankB" {
		t.Fatalf("leg banks = %s/%s", debit.BankID, credit.BankID)
	}
	if debit.BankID == credit.BankID {
		t.Fatal("legs share a bank")
	}
	if debit.Value != credit.Value {
		t.Fatal("legs differ in value")
	}
	if !debit.Date.Equal(credit.Date.Time) {
		t.Fatal("legs differ in date")
	}
	if debit.WalletID != credit.WalletID {
		t.Fatal("legs differ in wallet")
	}
	if debit.LinkedID == "" || debit.LinkedID != credit.LinkedID {
		t.Fatalf("linked ids = %q/%q", debit.LinkedID, credit.LinkedID)
	}
	if debit.ID != "" || credit.ID != "" {
		t.Fatal("legs must leave id assignment to the store")
	}
}

func TestCreateTransferValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TransferSpec)
	}{
		{"same banks", func(s *TransferSpec) { s.DestinationBankID = s.SourceBankID }},
		{"missing source", func(s *TransferSpec) { s.SourceBankID = "" }},
		{"missing destination", func(s *TransferSpec) { s.DestinationBankID = "" }},
		{"zero value", func(s *TransferSpec) { s.Value = core.Money{} }},
		{"zero date", func(s *TransferSpec) { s.Date = core.Date{} }},
	}
	for _, tc := range cases {
		spec := validSpec()
		tc.mutate(&spec)
		_, err := CreateTransfer(spec)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !errors.Is(err, core.ErrValidation) {
			t.Fatalf("%s: error %v is not ErrValidation", tc.name, err)
		}
	}
}

func TestEditTransferBothLegs(t *testing.T) {
	legs, err := CreateTransfer(validSpec())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	legs[0].ID, legs[1].ID = "id-debit", "id-credit"

	edited := validSpec()
	edited.Value = core.Money{Cents: 45000}
	edited.SourceBankID = "bankC" // source bank itself may change
	result, err := EditTransfer(legs[0], &legs[1], edited)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if result.CounterpartMissing {
		t.Fatal("unexpected counterpart warning")
	}
	if len(result.Legs) != 2 {
		t.Fatalf("got %d legs, want 2", len(result.Legs))
	}
	newDebit, newCredit := result.Legs[0], result.Legs[1]
	if newDebit.ID != "id-debit" || newCredit.ID != "id-credit" {
		t.Fatalf("ids not preserved: %s/%s", newDebit.ID, newCredit.ID)
	}
	if newDebit.LinkedID != legs[0].LinkedID || newCredit.LinkedID != legs[0].LinkedID {
		t.Fatal("linked id not preserved")
	}
	if newDebit.BankID != "bankC" {
		t.Fatalf("debit bank = %s, want bankC", newDebit.BankID)
	}
	if newDebit.Value.Cents != 45000 || newCredit.Value.Cents != 45000 {
		t.Fatal("new value not applied to both legs")
	}
}

func TestEditTransferOrphanedLeg(t *testing.T) {
	legs, err := CreateTransfer(validSpec())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	legs[0].ID = "id-debit"

	result, err := EditTransfer(legs[0], nil, validSpec())
	if err != nil {
		t.Fatalf("edit must proceed on the surviving leg: %v", err)
	}
	if !result.CounterpartMissing {
		t.Fatal("expected counterpart-missing warning")
	}
	if len(result.Legs) != 1 {
		t.Fatalf("orphan edit produced %d legs, want 1 (never recreate)", len(result.Legs))
	}
}

func TestEditTransferRejectsNonTransfer(t *testing.T) {
	plain := core.Transaction{ID: "x", Type: core.Debit}
	if _, err := EditTransfer(plain, nil, validSpec()); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFindCounterpart(t *testing.T) {
	legs, err := CreateTransfer(validSpec())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	legs[0].ID, legs[1].ID = "d1", "c1"
	pool := []core.Transaction{
		{ID: "other", LinkedID: "unrelated"},
		legs[0],
		legs[1],
	}
	got := FindCounterpart(pool, legs[0])
	if got == nil || got.ID != "c1" {
		t.Fatalf("counterpart = %+v, want c1", got)
	}
	if FindCounterpart(pool[:2], legs[0]) != nil {
		t.Fatal("orphaned leg must resolve to nil")
	}
	if FindCounterpart(pool, core.Transaction{ID: "plain"}) != nil {
		t.Fatal("non-transfer must resolve to nil")
	}
}
