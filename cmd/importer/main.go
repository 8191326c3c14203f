package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/gfreitas/placepin/internal/adapters/blob"
	"github.com/gfreitas/placepin/internal/adapters/postgres"
	"github.com/gfreitas/placepin/internal/adapters/sqlite"
	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
	"github.com/gfreitas/placepin/internal/core/usecases"
	"github.com/gfreitas/placepin/internal/pkg/config"
	"github.com/gfreitas/placepin/internal/pkg/logging"
)

// importer loads an export file straight into the configured store, for
// seeding a fresh deployment or migrating a browser-exported collection.
func main() {
	file := flag.String("file", "", "path to the export payload (required)")
	mode := flag.String("mode", "merge", "merge or replace")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	importMode := domain.ImportMode(*mode)
	if importMode != domain.ImportMerge && importMode != domain.ImportReplace {
		log.Fatalf("mode must be merge or replace, got %q", *mode)
	}

	cfg, err := config.Load("placepin-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("info", "text")

	ctx := context.Background()

	var store ports.CollectionStore
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		store = postgres.NewLocationRepo(db)
	default:
		kv, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer kv.Close()
		store = blob.NewCollectionStore(kv)
	}

	svc := usecases.NewCollectionService(store, nil, cfg.Store.Strict)
	if err := svc.Load(ctx); err != nil {
		log.Fatalf("load collection: %v", err)
	}

	payload, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	report, err := svc.Import(ctx, payload, importMode)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	// A CLI run has no later retry; a swallowed write-through failure must
	// fail the command.
	if err := svc.LastPersistError(); err != nil {
		log.Fatalf("import accepted but not persisted: %v", err)
	}

	log.Printf("import done: accepted=%d duplicates=%d invalid=%d",
		report.Accepted, report.Duplicates, report.Invalid)
}
