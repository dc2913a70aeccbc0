package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"livrocaixa/internal/backend"
	"livrocaixa/internal/config"
	"livrocaixa/internal/csvio"
	"livrocaixa/internal/ledger"
	applog "livrocaixa/internal/log"
	"livrocaixa/internal/store"
)

const usage = `Usage:
  livrocaixa-csv import <file.csv>   load entries into the ledger
  livrocaixa-csv export <file.csv>   write the ledger with running balances

The backend comes from the environment (DATA_BACKEND, SQLITE_DB_PATH).`

func main() {
	_ = godotenv.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentCSV
	applog.SetDefault(applog.New(logCfg))

	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	command, path := flag.Arg(0), flag.Arg(1)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal("configuration validation failed", err)
	}

	ctx := context.Background()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fatal("backend configuration failed", err)
	}
	// The CLI writes to the ledger directly; mirroring stays with the
	// server process.
	backendCfg.AMQPURL = ""
	result, err := backend.NewFactory(slog.Default()).CreateBackend(ctx, backendCfg)
	if err != nil {
		fatal("failed to initialize backend", err)
	}
	defer func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	}()

	svc := ledger.NewService(result.Store, nil, cfg.RecurrenceMaxCount)

	switch command {
	case "import":
		runImport(ctx, svc, path)
	case "export":
		runExport(ctx, svc, path)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runImport(ctx context.Context, svc *ledger.Service, path string) {
	f, err := os.Open(path)
	if err != nil {
		fatal("open input file", err)
	}
	defer f.Close()

	result, err := csvio.NewImporter(svc, svc).Import(ctx, f)
	if err != nil {
		fatal("import failed", err)
	}
	fmt.Printf("imported %d rows\n", result.Imported)
	for _, rowErr := range result.Failed {
		fmt.Fprintf(os.Stderr, "skipped %v\n", rowErr)
	}
	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}

func runExport(ctx context.Context, svc *ledger.Service, path string) {
	snap, _, err := svc.Refresh(ctx, store.TransactionFilter{})
	if err != nil {
		fatal("load ledger", err)
	}
	names, err := csvio.BuildNameIndex(ctx, svc)
	if err != nil {
		fatal("load registries", err)
	}

	f, err := os.Create(path)
	if err != nil {
		fatal("create output file", err)
	}
	defer f.Close()

	if err := csvio.Export(f, snap.Transactions, snap.Balances, names); err != nil {
		fatal("export failed", err)
	}
	fmt.Printf("exported %d rows\n", len(snap.Transactions))
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "livrocaixa-csv: %s: %v\n", msg, err)
	os.Exit(1)
}
