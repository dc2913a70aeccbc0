package backend

import (
	"context"

	"livrocaixa/internal/ledger"
	"livrocaixa/internal/store"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result bundles the persistence layer with the optional mirror
// publisher the factory wired alongside it.
type Result struct {
	Store   store.LedgerStore
	Mirror  ledger.MirrorPublisher
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Mirror queue (optional for either backend)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Type selects the persistence implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
