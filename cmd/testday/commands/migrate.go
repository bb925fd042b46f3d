package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/trackside/testday/internal/store/postgres"
)

func installMigrateCmd(app *App) {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the PostgreSQL dataset schema",
		Long: `Apply the pending schema migrations to the PostgreSQL database configured
under store.postgres. Other stores create their schema on their own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.config.Store.Postgres
			slog.Info("Migrating database", "host", cfg.Host, "port", cfg.Port, "dbname", cfg.DBName)
			if err := postgres.Migrate(cfg); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).okf("Database schema is up to date")
			return nil
		},
	}

	app.cmd.AddCommand(migrateCmd)
}
