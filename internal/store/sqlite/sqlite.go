// Package sqlite stores datasets in an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/trackside/testday/internal/models"
	"github.com/ubuntu/decorate"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS test_days (
	key         TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	date        TEXT NOT NULL,
	venue       TEXT NOT NULL,
	run_count   INTEGER NOT NULL DEFAULT 0,
	has_marker  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS runs (
	key             TEXT PRIMARY KEY,
	id              TEXT NOT NULL,
	test_day_key    TEXT NOT NULL,
	test_day_name   TEXT NOT NULL,
	sequence        INTEGER NOT NULL,
	driver          TEXT NOT NULL,
	source_size     INTEGER NOT NULL,
	source_modified TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_test_day_key ON runs(test_day_key);
CREATE TABLE IF NOT EXISTS setups (
	key       TEXT PRIMARY KEY,
	path      TEXT NOT NULL,
	name      TEXT NOT NULL,
	document  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tires (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	compound    TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	heat_cycles INTEGER NOT NULL DEFAULT 0
);
`

// Store is a dataset stored in SQLite.
type Store struct {
	db *sql.DB
}

type options struct {
	busyTimeout int
}

// Options represents an optional function to override Open default values.
type Options func(*options)

// WithBusyTimeout sets how long, in milliseconds, a write waits for a concurrent one.
func WithBusyTimeout(ms int) Options {
	return func(o *options) {
		o.busyTimeout = ms
	}
}

// Open opens, and creates when needed, the database at path.
// path can be ":memory:" for a database living as long as the Store.
func Open(ctx context.Context, path string, args ...Options) (s *Store, err error) {
	defer decorate.OnError(&err, "could not open SQLite dataset %q", path)

	opts := options{busyTimeout: 10_000}
	for _, opt := range args {
		opt(&opts)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every connection to ":memory:" is a distinct database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.busyTimeout),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %v", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create schema: %v", err)
	}

	slog.Debug("Opened SQLite dataset", "path", path)
	return &Store{db: db}, nil
}

// Load reads the whole dataset, each collection in insertion order.
func (s *Store) Load(ctx context.Context) (ds models.Dataset, err error) {
	defer decorate.OnError(&err, "could not load dataset")

	if s.db == nil {
		return models.Dataset{}, errors.New("store is closed")
	}

	if ds.TestDays, err = queryAll(ctx, s.db,
		`SELECT key, name, date, venue, run_count, has_marker FROM test_days ORDER BY rowid`,
		func(rows *sql.Rows) (d models.TestDay, err error) {
			var date string
			if err := rows.Scan(&d.Key, &d.Name, &date, &d.Venue, &d.RunCount, &d.HasMetadataMarker); err != nil {
				return d, err
			}
			d.Date, err = civil.ParseDate(date)
			return d, err
		}); err != nil {
		return models.Dataset{}, err
	}

	if ds.Runs, err = queryAll(ctx, s.db,
		`SELECT key, id, test_day_key, test_day_name, sequence, driver, source_size, source_modified FROM runs ORDER BY rowid`,
		func(rows *sql.Rows) (r models.Run, err error) {
			var modified string
			if err := rows.Scan(&r.Key, &r.ID, &r.TestDayKey, &r.TestDayName, &r.Sequence, &r.Driver, &r.Source.Size, &modified); err != nil {
				return r, err
			}
			r.Source.Path = r.Key
			r.Source.ModTime, err = time.Parse(time.RFC3339Nano, modified)
			return r, err
		}); err != nil {
		return models.Dataset{}, err
	}

	if ds.Setups, err = queryAll(ctx, s.db,
		`SELECT document FROM setups ORDER BY rowid`,
		func(rows *sql.Rows) (st models.SetupRecord, err error) {
			var doc string
			if err := rows.Scan(&doc); err != nil {
				return st, err
			}
			err = json.Unmarshal([]byte(doc), &st)
			return st, err
		}); err != nil {
		return models.Dataset{}, err
	}

	if ds.Tires, err = queryAll(ctx, s.db,
		`SELECT id, name, compound, notes, heat_cycles FROM tires ORDER BY rowid`,
		func(rows *sql.Rows) (t models.TireSet, err error) {
			err = rows.Scan(&t.ID, &t.Name, &t.Compound, &t.Notes, &t.HeatCycles)
			return t, err
		}); err != nil {
		return models.Dataset{}, err
	}

	return ds, nil
}

// Save writes ds in a single transaction.
// Rows already stored under a key are kept, only run counts and tires are updated.
func (s *Store) Save(ctx context.Context, ds models.Dataset) (err error) {
	defer decorate.OnError(&err, "could not save dataset")

	if s.db == nil {
		return errors.New("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, d := range ds.TestDays {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_days (key, name, date, venue, run_count, has_marker) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET run_count = excluded.run_count`,
			d.Key, d.Name, d.Date.String(), d.Venue, d.RunCount, d.HasMetadataMarker); err != nil {
			return fmt.Errorf("test day %q: %v", d.Key, err)
		}
	}

	for _, r := range ds.Runs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO runs (key, id, test_day_key, test_day_name, sequence, driver, source_size, source_modified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Key, r.ID, r.TestDayKey, r.TestDayName, r.Sequence, r.Driver, r.Source.Size, r.Source.ModTime.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("run %q: %v", r.Key, err)
		}
	}

	for _, st := range ds.Setups {
		doc, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("setup %q: %v", st.Key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO setups (key, path, name, document) VALUES (?, ?, ?, ?)`,
			st.Key, st.Path, st.Name, string(doc)); err != nil {
			return fmt.Errorf("setup %q: %v", st.Key, err)
		}
	}

	for _, t := range ds.Tires {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tires (id, name, compound, notes, heat_cycles) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, compound = excluded.compound,
				notes = excluded.notes, heat_cycles = excluded.heat_cycles`,
			t.ID, t.Name, t.Compound, t.Notes, t.HeatCycles); err != nil {
			return fmt.Errorf("tire set %q: %v", t.ID, err)
		}
	}

	return tx.Commit()
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// queryAll runs query and converts every row with scan.
func queryAll[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}
