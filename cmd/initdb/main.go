// Command initdb is the one-time schema provisioning step: it creates the
// data directory and database file, applies the schema and indexes, and
// runs a sanity query. Safe to re-run; everything is IF NOT EXISTS.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/homewx/homewx/pkg/config"
	"github.com/homewx/homewx/pkg/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Printf("initdb: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_auto_vacuum=incremental&_busy_timeout=30000", cfg.DBFile)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqlite.Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Light sanity check: the table is queryable.
	var one int
	if err := db.QueryRow("SELECT 1 FROM readings LIMIT 1").Scan(&one); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sanity query: %w", err)
	}

	log.Printf("initdb: OK, database ready at %s", cfg.DBFile)
	return nil
}
