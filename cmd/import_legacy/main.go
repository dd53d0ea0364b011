package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"oficina/internal/config"
	"oficina/internal/db"
	"oficina/internal/domain"
	"oficina/internal/excel"
	"oficina/internal/legacy"
	"oficina/internal/reconcile"
	"oficina/internal/repository"
)

type options struct {
	sqlitePath string
	stockPath  string
	replace    bool
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	kw, err := reconcile.LoadKeywords(cfg.KeywordsFile)
	if err != nil {
		logger.Fatalf("keywords error: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database error: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, logger); err != nil {
		logger.Fatalf("migration error: %v", err)
	}

	stockRows, err := readStockRows(opts.stockPath)
	if err != nil {
		logger.Fatalf("read stock file: %v", err)
	}

	reader, err := legacy.Open(opts.sqlitePath)
	if err != nil {
		logger.Fatalf("open legacy database: %v", err)
	}
	defer reader.Close()

	snap, err := reader.Load(ctx)
	if err != nil {
		logger.Fatalf("read legacy data: %v", err)
	}

	var stats importStats
	repo := repository.New(pool)
	err = repo.WithTx(ctx, func(tx *repository.Tx) error {
		if opts.replace {
			if err := tx.TruncateImportTables(ctx); err != nil {
				return err
			}
		}
		im := newImporter(tx, kw, logger, time.Now())
		if err := im.run(ctx, snap, stockRows); err != nil {
			return err
		}
		stats = im.stats
		return nil
	})
	if err != nil {
		logger.Fatalf("import failed: %v", err)
	}

	logger.WithFields(stats.fields()).Info("import complete")
}

func parseFlags() options {
	var opts options
	flag.StringVar(
		&opts.sqlitePath,
		"sqlite",
		"",
		"path to the legacy shop database (required)",
	)
	flag.StringVar(
		&opts.stockPath,
		"stock",
		"",
		"optional stock sheet (xlsx or csv) applied after the database",
	)
	flag.BoolVar(
		&opts.replace,
		"replace",
		false,
		"truncate target tables before importing",
	)
	flag.Parse()
	if opts.sqlitePath == "" {
		fmt.Fprintln(os.Stderr, "missing required -sqlite flag")
		flag.Usage()
		os.Exit(2)
	}
	return opts
}

func readStockRows(path string) ([]domain.InventoryImportRow, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	rows, err := excel.ParseStockSheet(filepath.Base(path), file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
