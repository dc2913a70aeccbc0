package backend

import (
	"context"
	"fmt"
	"log/slog"

	"livrocaixa/internal/amqp"
	"livrocaixa/internal/ledger"
	"livrocaixa/internal/store"
	"livrocaixa/internal/store/memory"
	"livrocaixa/internal/storage"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st      store.LedgerStore
		cleanup CleanupFunc
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		st = repo
		cleanup = repo.Close
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		st = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// A missing or unreachable broker downgrades to no mirroring; the
	// ledger itself stays writable.
	var mirror ledger.MirrorPublisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without mirroring", "error", err)
		} else {
			mirror = amqpClient
			inner := cleanup
			cleanup = func() error {
				closeErr := amqpClient.Close()
				if inner != nil {
					if err := inner(); err != nil {
						return err
					}
				}
				return closeErr
			}
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &Result{
		Store:   st,
		Mirror:  mirror,
		Cleanup: cleanup,
	}, nil
}
