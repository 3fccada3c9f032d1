// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog keeps a SQLite registry of training specs and their
// validation history.
package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/metrics"
	"github.com/ManuGH/ibpcdc/internal/persistence/sqlite"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/google/uuid"
)

const schemaVersion = 1

// ErrNotFound is returned when no entry is registered under a TAG.
var ErrNotFound = errors.New("catalog: entry not found")

// Entry is one registered spec.
type Entry struct {
	ID           string             `json:"id"`
	Tag          string             `json:"tag"`
	Path         string             `json:"path"`
	Architecture specs.Architecture `json:"architecture"`
	Checksum     string             `json:"checksum"`
	Spec         specs.Spec         `json:"spec"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Validation is one recorded validation outcome of an entry.
type Validation struct {
	Tag       string    `json:"tag"`
	OK        bool      `json:"ok"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Store is the SQLite backed catalog.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var currentVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS specs (
		tag TEXT PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL,
		architecture TEXT NOT NULL,
		checksum TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS validations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tag TEXT NOT NULL REFERENCES specs(tag) ON DELETE CASCADE,
		ok BOOLEAN NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		checked_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_validations_tag ON validations(tag, id);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Checksum returns the SHA-256 of the canonical JSON form of a record.
func Checksum(spec specs.Spec) (string, []byte, error) {
	body, err := specs.Marshal(spec, specs.FormatJSON)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), body, nil
}

// Register stores e.Spec under its TAG, replacing an earlier registration of
// the same TAG. The ID and creation time of an existing entry are kept.
// Fields derived from the record are filled in on the returned entry.
func (s *Store) Register(ctx context.Context, e Entry) (out Entry, err error) {
	defer func() { metrics.IncCatalogOp("register", err) }()

	if e.Spec.Tag == "" {
		return Entry{}, errors.New("catalog: record has no TAG")
	}
	checksum, body, err := Checksum(e.Spec)
	if err != nil {
		return Entry{}, err
	}
	now := s.now().UTC()

	query := `
	INSERT INTO specs (tag, id, path, architecture, checksum, body, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(tag) DO UPDATE SET
		path = excluded.path,
		architecture = excluded.architecture,
		checksum = excluded.checksum,
		body = excluded.body,
		updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		e.Spec.Tag, uuid.NewString(), e.Path, string(e.Spec.Architecture()), checksum, string(body),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: register %s: %w", e.Spec.Tag, err)
	}

	logger := xglog.WithComponentFromContext(ctx, "catalog")
	logger.Info().
		Str(xglog.FieldEvent, "catalog.registered").
		Str(xglog.FieldTag, e.Spec.Tag).
		Str(xglog.FieldPath, e.Path).
		Str("checksum", checksum).
		Msg("spec registered")

	return s.get(ctx, e.Spec.Tag)
}

// Get returns the entry registered under tag.
func (s *Store) Get(ctx context.Context, tag string) (out Entry, err error) {
	defer func() { metrics.IncCatalogOp("get", ignoreNotFound(err)) }()
	return s.get(ctx, tag)
}

func (s *Store) get(ctx context.Context, tag string) (Entry, error) {
	query := `SELECT tag, id, path, architecture, checksum, body, created_at, updated_at FROM specs WHERE tag = ?`
	e, err := scanEntry(s.db.QueryRowContext(ctx, query, tag))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, tag)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: get %s: %w", tag, err)
	}
	return e, nil
}

// List returns every entry sorted by TAG.
func (s *Store) List(ctx context.Context) (out []Entry, err error) {
	defer func() { metrics.IncCatalogOp("list", err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT tag, id, path, architecture, checksum, body, created_at, updated_at FROM specs ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return out, nil
}

// Delete removes the entry under tag together with its validation history.
func (s *Store) Delete(ctx context.Context, tag string) (err error) {
	defer func() { metrics.IncCatalogOp("delete", ignoreNotFound(err)) }()

	res, err := s.db.ExecContext(ctx, "DELETE FROM specs WHERE tag = ?", tag)
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", tag, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", tag, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, tag)
	}
	return nil
}

// RecordValidation appends a validation outcome to the history of tag.
func (s *Store) RecordValidation(ctx context.Context, tag string, ok bool, message string) (err error) {
	defer func() { metrics.IncCatalogOp("record_validation", ignoreNotFound(err)) }()

	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM specs WHERE tag = ?", tag).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, tag)
	}
	if err != nil {
		return fmt.Errorf("catalog: record validation %s: %w", tag, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO validations (tag, ok, message, checked_at) VALUES (?, ?, ?, ?)",
		tag, ok, message, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("catalog: record validation %s: %w", tag, err)
	}
	return nil
}

// Validations returns the validation history of tag, oldest first.
func (s *Store) Validations(ctx context.Context, tag string) (out []Validation, err error) {
	defer func() { metrics.IncCatalogOp("validations", err) }()

	rows, err := s.db.QueryContext(ctx,
		"SELECT tag, ok, message, checked_at FROM validations WHERE tag = ? ORDER BY id", tag)
	if err != nil {
		return nil, fmt.Errorf("catalog: validations %s: %w", tag, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			v       Validation
			checked string
		)
		if err := rows.Scan(&v.Tag, &v.OK, &v.Message, &checked); err != nil {
			return nil, fmt.Errorf("catalog: validations %s: %w", tag, err)
		}
		v.CheckedAt, _ = time.Parse(time.RFC3339Nano, checked)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: validations %s: %w", tag, err)
	}
	return out, nil
}

// Verify runs an SQLite integrity check on the catalog file and returns the
// problems found, or nil when healthy.
func (s *Store) Verify(full bool) ([]string, error) {
	mode := sqlite.VerifyQuick
	if full {
		mode = sqlite.VerifyFull
	}
	return sqlite.VerifyIntegrity(s.path, mode)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e                Entry
		arch, body       string
		created, updated string
	)
	if err := row.Scan(&e.Tag, &e.ID, &e.Path, &arch, &e.Checksum, &body, &created, &updated); err != nil {
		return Entry{}, err
	}
	spec, err := specs.Decode(bytes.NewReader([]byte(body)), specs.FormatJSON)
	if err != nil {
		return Entry{}, fmt.Errorf("decode stored record %s: %w", e.Tag, err)
	}
	e.Spec = spec
	e.Architecture = specs.Architecture(arch)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return e, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
