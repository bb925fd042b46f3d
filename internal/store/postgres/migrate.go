package postgres

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // PGX v5 driver for golang-migrate
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrateURL returns the golang-migrate database URL of cfg.
func (cfg Config) migrateURL() string {
	u := url.URL{
		Scheme: "pgx5",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.DBName,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Migrate applies the pending schema migrations to the database configured by cfg.
func Migrate(cfg Config) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.migrateURL())
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %v", err)
	}
	defer func() {
		if sErr, dbErr := m.Close(); sErr != nil || dbErr != nil {
			if sErr != nil {
				slog.Error("failed to close migration instance", "error", sErr)
			}
			if dbErr != nil {
				slog.Error("failed to close database connection", "error", dbErr)
			}
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %v", err)
	}

	slog.Info("Migrations applied successfully")
	return nil
}
