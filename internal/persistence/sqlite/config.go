// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sqlite opens the embedded SQLite databases ibpcdc keeps on disk.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

// Config defines SQLite connection parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
	// ReadOnly opens the file with mode=ro and skips the write pragmas.
	ReadOnly bool
}

// DefaultConfig returns the configuration used by the catalog.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// readOnlyConfig is used for integrity checks on a database that may be in use.
func readOnlyConfig() Config {
	return Config{BusyTimeout: 2 * time.Second, MaxOpenConns: 1, ReadOnly: true}
}

// DSN renders the connection string for dbPath. Pragmas go in the DSN so
// every pooled connection gets them. The path is percent-escaped since SQLite
// URI filenames treat '?', '#' and '%' specially.
func (c Config) DSN(dbPath string) string {
	params := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", c.BusyTimeout.Milliseconds())}
	if c.ReadOnly {
		params = append([]string{"mode=ro"}, params...)
	} else {
		params = append(params,
			"_pragma=journal_mode(WAL)",
			"_pragma=synchronous(NORMAL)",
			"_pragma=foreign_keys(ON)",
		)
	}
	return "file:" + (&url.URL{Path: dbPath}).EscapedPath() + "?" + strings.Join(params, "&")
}

// Open returns a pooled connection to the database at dbPath and checks that
// it answers.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dbPath, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", dbPath, err)
	}
	return db, nil
}
