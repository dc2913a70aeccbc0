package ledger

import (
	"sync"
	"sync/atomic"

	"livrocaixa/internal/core"
)

// Snapshot is one fully-derived ledger view: the filtered transactions
// and their running balances, stamped with the request sequence number
// that produced them.
type Snapshot struct {
	Stamp        uint64
	Transactions []core.Transaction
	Balances     map[string]int64
	SeedCents    int64
}

// View guards the visible ledger state against stale-response
// application. Every refresh begins by taking the next sequence number;
// a finished snapshot is installed only if its stamp is still the latest
// one issued, otherwise it is silently dropped. Requests are never
// cancelled; this is purely a result-ordering guarantee.
type View struct {
	seq       atomic.Uint64
	discarded atomic.Uint64

	mu      sync.Mutex
	current Snapshot
	loaded  bool
}

func NewView() *View {
	return &View{}
}

// Begin stamps a new refresh request and supersedes all in-flight ones.
func (v *View) Begin() uint64 {
	return v.seq.Add(1)
}

// Apply installs the snapshot if its stamp is still the latest. Returns
// false when the snapshot lost the race and was dropped.
func (v *View) Apply(s Snapshot) bool {
	if s.Stamp != v.seq.Load() {
		v.discarded.Add(1)
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	// Re-check under the lock: a newer Begin may have landed meanwhile.
	if s.Stamp != v.seq.Load() {
		v.discarded.Add(1)
		return false
	}
	v.current = s
	v.loaded = true
	return true
}

// Current returns the last applied snapshot, if any.
func (v *View) Current() (Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.loaded
}

// Discarded reports how many stale snapshots have been dropped.
func (v *View) Discarded() uint64 {
	return v.discarded.Load()
}
