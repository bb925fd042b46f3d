// Package postgres stores datasets in a PostgreSQL database.
// The schema is created by Migrate.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trackside/testday/internal/models"
	"github.com/ubuntu/decorate"
)

// Config holds the configuration for connecting to the PostgreSQL database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// dsn returns the keyword/value connection string of cfg.
func (cfg Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

type dbPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store is a dataset stored in PostgreSQL.
type Store struct {
	dbpool  dbPool
	timeout time.Duration
}

type options struct {
	newPool func(ctx context.Context, dsn string) (dbPool, error)
	timeout time.Duration
}

// Options represents an optional function to override Connect default values.
type Options func(*options)

// Connect creates a connection pool to the database configured by cfg.
func Connect(ctx context.Context, cfg Config, args ...Options) (*Store, error) {
	opts := options{
		newPool: func(ctx context.Context, dsn string) (dbPool, error) {
			return pgxpool.New(ctx, dsn)
		},
		timeout: 10 * time.Second,
	}
	for _, opt := range args {
		opt(&opts)
	}

	dbpool, err := opts.newPool(ctx, cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	slog.Info("Connected to PostgreSQL database", "host", cfg.Host, "port", cfg.Port)
	return &Store{dbpool: dbpool, timeout: opts.timeout}, nil
}

// Load reads the whole dataset, each collection in insertion order.
func (s *Store) Load(ctx context.Context) (ds models.Dataset, err error) {
	defer decorate.OnError(&err, "could not load dataset")

	if s.dbpool == nil {
		return models.Dataset{}, errors.New("database not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if ds.TestDays, err = collect(ctx, s.dbpool,
		`SELECT key, name, date, venue, run_count, has_marker FROM test_days ORDER BY position`,
		func(row pgx.CollectableRow) (d models.TestDay, err error) {
			var date time.Time
			err = row.Scan(&d.Key, &d.Name, &date, &d.Venue, &d.RunCount, &d.HasMetadataMarker)
			d.Date = civil.DateOf(date)
			return d, err
		}); err != nil {
		return models.Dataset{}, err
	}

	if ds.Runs, err = collect(ctx, s.dbpool,
		`SELECT key, id::text, test_day_key, test_day_name, sequence, driver, source_size, source_modified FROM runs ORDER BY position`,
		func(row pgx.CollectableRow) (r models.Run, err error) {
			err = row.Scan(&r.Key, &r.ID, &r.TestDayKey, &r.TestDayName, &r.Sequence, &r.Driver, &r.Source.Size, &r.Source.ModTime)
			r.Source.Path = r.Key
			r.Source.ModTime = r.Source.ModTime.UTC()
			return r, err
		}); err != nil {
		return models.Dataset{}, err
	}

	if ds.Setups, err = collect(ctx, s.dbpool,
		`SELECT document FROM setups ORDER BY position`,
		func(row pgx.CollectableRow) (st models.SetupRecord, err error) {
			var doc []byte
			if err := row.Scan(&doc); err != nil {
				return st, err
			}
			err = json.Unmarshal(doc, &st)
			return st, err
		}); err != nil {
		return models.Dataset{}, err
	}

	if ds.Tires, err = collect(ctx, s.dbpool,
		`SELECT document FROM tires ORDER BY position`,
		func(row pgx.CollectableRow) (t models.TireSet, err error) {
			var doc []byte
			if err := row.Scan(&doc); err != nil {
				return t, err
			}
			err = json.Unmarshal(doc, &t)
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

	if s.dbpool == nil {
		return errors.New("database not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.dbpool.Begin(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("save canceled: %v", err)
		}
		return err
	}
	// Rolling back a committed transaction is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range ds.TestDays {
		if _, err := tx.Exec(ctx,
			`INSERT INTO test_days (key, name, date, venue, run_count, has_marker) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (key) DO UPDATE SET run_count = EXCLUDED.run_count`,
			d.Key, d.Name, d.Date.In(time.UTC), d.Venue, d.RunCount, d.HasMetadataMarker); err != nil {
			return fmt.Errorf("test day %q: %v", d.Key, err)
		}
	}

	for _, r := range ds.Runs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO runs (key, id, test_day_key, test_day_name, sequence, driver, source_size, source_modified)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (key) DO NOTHING`,
			r.Key, r.ID, r.TestDayKey, r.TestDayName, r.Sequence, r.Driver, r.Source.Size, r.Source.ModTime); err != nil {
			return fmt.Errorf("run %q: %v", r.Key, err)
		}
	}

	for _, st := range ds.Setups {
		doc, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("setup %q: %v", st.Key, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO setups (key, path, name, document) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO NOTHING`,
			st.Key, st.Path, st.Name, doc); err != nil {
			return fmt.Errorf("setup %q: %v", st.Key, err)
		}
	}

	for _, t := range ds.Tires {
		doc, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("tire set %q: %v", t.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tires (id, name, document) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document`,
			t.ID, t.Name, doc); err != nil {
			return fmt.Errorf("tire set %q: %v", t.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// Close closes the database connection.
//
// If the connection is already closed, it does nothing.
// If the connection does not close within 10 seconds, it returns an error.
func (s *Store) Close() error {
	if s.dbpool == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.dbpool.Close()
	}()

	select {
	case <-done:
		s.dbpool = nil
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timeout while closing database, connection may still be open")
	}
}

func collect[T any](ctx context.Context, db dbPool, query string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	res, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []T{}
	}
	return res, nil
}
