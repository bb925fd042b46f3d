// Package store persists datasets.
//
// A Store is the write capability over a dataset: it is opened once by the command in charge,
// handed to whatever needs to persist, and released with Close.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/trackside/testday/internal/constants"
	"github.com/trackside/testday/internal/models"
	"github.com/trackside/testday/internal/store/postgres"
	"github.com/trackside/testday/internal/store/sqlite"
)

// Store loads and saves a dataset.
type Store interface {
	Load(ctx context.Context) (models.Dataset, error)
	// Save persists ds, the result of merging into the loaded dataset.
	Save(ctx context.Context, ds models.Dataset) error
	Close() error
}

// Kinds of store.
const (
	KindJSON     = "json"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Config selects and configures a store.
type Config struct {
	Kind string
	// Dir is the data directory, holding the JSON dataset and the default SQLite database.
	Dir string
	// Path overrides the SQLite database path.
	Path     string
	Postgres postgres.Config
}

// ErrUnknownKind is returned when the configured kind of store does not exist.
var ErrUnknownKind = errors.New("unknown store kind")

// Open opens the store selected by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var s Store
	var err error

	switch cfg.Kind {
	case "", KindJSON:
		s, err = nonNil(OpenFile(cfg.Dir))
	case KindSQLite:
		p := cfg.Path
		if p == "" {
			p = filepath.Join(cfg.Dir, constants.SQLiteFileName)
		}
		s, err = nonNil(sqlite.Open(ctx, p))
	case KindPostgres:
		s, err = nonNil(postgres.Connect(ctx, cfg.Postgres))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Opened dataset store", "kind", cmp.Or(cfg.Kind, KindJSON))
	return s, nil
}

// nonNil avoids wrapping a nil pointer in a non-nil Store.
func nonNil[T Store](s T, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
