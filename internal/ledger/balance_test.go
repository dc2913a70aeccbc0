package ledger

import (
	"math/rand"
	"testing"

	"livrocaixa/internal/core"
)

func tx(id, date string, ty core.TxType, cents int64, status core.TxStatus) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:          id,
		Date:        d,
		Description: "t-" + id,
		Value:       core.Money{Cents: cents},
		Type:        ty,
		Status:      status,
	}
}

func TestBalanceMapFinalEqualsSignedSum(t *testing.T) {
	txns := []core.Transaction{
		tx("a", "2024-01-01", core.Credit, 1000, core.Paid),
		tx("b", "2024-01-02", core.Debit, 300, core.Paid),
		tx("c", "2024-01-03", core.Credit, 50, core.Paid),
		tx("d", "2024-01-04", core.Debit, 250, core.Paid),
	}
	m := BalanceMap(txns, Scope{}, 0)
	var want int64
	for _, e := range txns {
		want += e.Signed()
	}
	if got := m["d"]; got != want {
		t.Fatalf("final balance = %d, want signed sum %d", got, want)
	}
}

func TestBalanceMapOrderIndependent(t *testing.T) {
	txns := []core.Transaction{
		tx("a", "2024-01-05", core.Credit, 500, core.Paid),
		tx("b", "2024-01-05", core.Debit, 120, core.Paid),
		tx("c", "2024-01-03", core.Debit, 200, core.Paid),
		tx("d", "2024-02-01", core.Credit, 80, core.Paid),
	}
	want := BalanceMap(txns, Scope{}, 0)

	for i := 0; i < 10; i++ {
		shuffled := append([]core.Transaction(nil), txns...)
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := BalanceMap(shuffled, Scope{}, 0)
		if len(got) != len(want) {
			t.Fatalf("map size changed under shuffle: %d vs %d", len(got), len(want))
		}
		for id, w := range want {
			if got[id] != w {
				t.Fatalf("shuffle %d: balance[%s] = %d, want %d", i, id, got[id], w)
			}
		}
	}
}

func TestBalanceMapSeedShiftsEveryEntry(t *testing.T) {
	txns := []core.Transaction{
		tx("a", "2024-01-01", core.Credit, 100, core.Paid),
		tx("b", "2024-01-02", core.Debit, 40, core.Paid),
		tx("c", "2024-01-03", core.Credit, 7, core.Paid),
	}
	const seed = 123456
	unseeded := BalanceMap(txns, Scope{}, 0)
	seeded := BalanceMap(txns, Scope{}, seed)
	for id, base := range unseeded {
		if seeded[id] != base+seed {
			t.Fatalf("balance[%s] = %d, want %d", id, seeded[id], base+seed)
		}
	}
}

func TestBalanceMapPendingExcluded(t *testing.T) {
	txns := []core.Transaction{
		tx("a", "2024-01-01", core.Credit, 100, core.Paid),
		tx("b", "2024-01-02", core.Debit, 40, core.Pending),
	}
	m := BalanceMap(txns, Scope{}, 0)
	if _, ok := m["b"]; ok {
		t.Fatal("pending transaction appeared in balance map")
	}
	if m["a"] != 100 {
		t.Fatalf("balance[a] = %d, want 100", m["a"])
	}
}

func TestBalanceMapScoped(t *testing.T) {
	a := tx("a", "2024-01-01", core.Credit, 100, core.Paid)
	a.BankID = "bank1"
	b := tx("b", "2024-01-02", core.Credit, 200, core.Paid)
	b.BankID = "bank2"
	m := BalanceMap([]core.Transaction{a, b}, Scope{BankID: "bank1"}, 0)
	if len(m) != 1 || m["a"] != 100 {
		t.Fatalf("bank scope not applied: %v", m)
	}
}

func TestBalanceScenarioSeeded(t *testing.T) {
	// seed=1000.00, credit 500 on Jan 5, debit 200 on Jan 3.
	txns := []core.Transaction{
		tx("jan05", "2024-01-05", core.Credit, 50000, core.Paid),
		tx("jan03", "2024-01-03", core.Debit, 20000, core.Paid),
	}
	m := BalanceMap(txns, Scope{}, 100000)
	if m["jan03"] != 80000 {
		t.Fatalf("jan03 balance = %d, want 80000", m["jan03"])
	}
	if m["jan05"] != 130000 {
		t.Fatalf("jan05 balance = %d, want 130000", m["jan05"])
	}
}

func TestBalanceMapEmpty(t *testing.T) {
	if m := BalanceMap(nil, Scope{}, 500); len(m) != 0 {
		t.Fatalf("empty candidates produced %d entries", len(m))
	}
	pendingOnly := []core.Transaction{tx("a", "2024-01-01", core.Credit, 10, core.Pending)}
	if m := BalanceMap(pendingOnly, Scope{}, 0); len(m) != 0 {
		t.Fatalf("pending-only set produced %d entries", len(m))
	}
}

func TestSeedBalance(t *testing.T) {
	before := []core.Transaction{
		tx("old1", "2023-12-01", core.Credit, 700, core.Paid),
		tx("old2", "2023-12-15", core.Debit, 200, core.Paid),
		tx("old3", "2023-12-20", core.Credit, 999, core.Pending), // never counted
		tx("new1", "2024-01-10", core.Credit, 50, core.Paid),     // inside window
	}
	got := SeedBalance(before, Scope{}, core.NewDate(2024, 1, 1))
	if got != 500 {
		t.Fatalf("seed = %d, want 500", got)
	}
	if SeedBalance(before, Scope{}, core.Date{}) != 0 {
		t.Fatal("zero cutoff must produce zero seed")
	}
}

func TestPickSeedPrecedence(t *testing.T) {
	if PickSeed(Scope{BankID: "b"}, 10, 99) != 10 {
		t.Fatal("bank-scoped seed must win under a bank filter")
	}
	if PickSeed(Scope{}, 10, 99) != 99 {
		t.Fatal("global seed must win without a bank filter")
	}
}

func TestSortChronologicalTieBreak(t *testing.T) {
	txns := []core.Transaction{
		tx("z", "2024-01-05", core.Credit, 1, core.Paid),
		tx("a", "2024-01-05", core.Credit, 1, core.Paid),
		tx("m", "2024-01-04", core.Credit, 1, core.Paid),
	}
	SortChronological(txns)
	gotIDs := []string{txns[0].ID, txns[1].ID, txns[2].ID}
	wantIDs := []string{"m", "a", "z"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("order = %v, want %v", gotIDs, wantIDs)
		}
	}
}
