package postgres

import (
	"context"
	"time"
)

type DBPool = dbPool

// WithNewPool is an option to override the default newPool function.
func WithNewPool(newPool func(ctx context.Context, dsn string) (DBPool, error)) Options {
	return func(opts *options) {
		opts.newPool = newPool
	}
}

// WithTimeout overrides the timeout of each Load and Save.
func WithTimeout(d time.Duration) Options {
	return func(opts *options) {
		opts.timeout = d
	}
}

// MigrateURL exposes the golang-migrate URL of cfg.
func (cfg Config) MigrateURL() string {
	return cfg.migrateURL()
}
