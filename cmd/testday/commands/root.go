// Package commands implements the testday command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trackside/testday/internal/cli"
	"github.com/trackside/testday/internal/constants"
	"github.com/trackside/testday/internal/enumerate"
	"github.com/trackside/testday/internal/store"
	"github.com/trackside/testday/internal/store/postgres"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	// ctx is cancelled by Quit.
	ctx    context.Context
	cancel context.CancelFunc
}

// appConfig holds the configuration of the application, as decoded from flags,
// environment and configuration file.
type appConfig struct {
	Verbosity int    `mapstructure:"verbose"`
	DataDir   string `mapstructure:"datadir"`
	ConfigDir string `mapstructure:"configdir"`

	Store struct {
		Kind     string
		Path     string
		Postgres postgres.Config
	}
	Scan struct {
		Concurrency int
	}
	Watch struct {
		Interval    time.Duration
		MetricsHost string
		MetricsPort int
	}
	Journal struct {
		Keep int
	}
}

// New registers commands and returns a new App.
func New() (*App, error) {
	a := App{viper: viper.New()}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.cmd = &cobra.Command{
		Use:   constants.CmdName + " COMMAND",
		Short: "Import test-day recordings into the team dataset",
		Long: `Find test-day folders, telemetry runs and setup snapshots below a directory,
and merge them into the team dataset without duplicating anything already imported.`,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity)
			if err := cli.InitViperConfig(constants.CmdName, a.config.ConfigDir, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to decode configuration into struct: %w", err)
			}

			cli.SetVerbosity(a.config.Verbosity)
			slog.Debug("Loaded configuration", "datadir", a.config.DataDir, "configdir", a.config.ConfigDir, "store", a.config.Store.Kind)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cmd.SilenceUsage = false
			return cmd.Usage()
		},
	}
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	if err := installRootCmd(&a); err != nil {
		return nil, err
	}
	installScanCmd(&a)
	installImportCmd(&a)
	installWatchCmd(&a)
	installSyncCmd(&a)
	installHistoryCmd(&a)
	installMigrateCmd(&a)

	return &a, nil
}

func installRootCmd(app *App) error {
	cmd := app.cmd
	vip := app.viper

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv) output")
	cmd.PersistentFlags().StringVar(&app.config.DataDir, "data-dir", constants.GetDefaultDataPath(), "directory holding the dataset and the import journal")
	cmd.PersistentFlags().StringVar(&app.config.ConfigDir, "config-dir", constants.GetDefaultConfigPath(), "directory holding the configuration and the live sync switch")
	cmd.PersistentFlags().StringVar(&app.config.Store.Kind, "store", store.KindJSON, "dataset store: json, sqlite or postgres")
	cli.InstallConfigFlag(cmd)

	if err := cmd.MarkPersistentFlagDirname("data-dir"); err != nil {
		return fmt.Errorf("failed to mark data-dir flag as directory: %v", err)
	}
	if err := cmd.MarkPersistentFlagDirname("config-dir"); err != nil {
		return fmt.Errorf("failed to mark config-dir flag as directory: %v", err)
	}

	// Configuration keys must not contain "-" or "_" to be reachable from the environment.
	for key, flag := range map[string]string{
		"verbose":    "verbose",
		"datadir":    "data-dir",
		"configdir":  "config-dir",
		"store.kind": "store",
	} {
		if err := vip.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("could not bind flag %q: %v", flag, err)
		}
	}

	vip.SetDefault("store.postgres.host", "localhost")
	vip.SetDefault("store.postgres.port", 5432)
	vip.SetDefault("store.postgres.sslmode", "disable")
	vip.SetDefault("scan.concurrency", constants.DefaultScanConcurrency)
	vip.SetDefault("watch.interval", constants.DefaultWatchInterval*time.Second)
	vip.SetDefault("journal.keep", constants.DefaultJournalKeep)

	return nil
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a *App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// Hup prints all goroutine stack traces and returns false to signal you shouldn't quit.
func (a *App) Hup() (shouldQuit bool) {
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, true)
	fmt.Printf("%s", buf[:n])
	return false
}

// Quit interrupts any running command.
func (a *App) Quit() {
	a.cancel()
}

// RootCmd returns the root command.
func (a *App) RootCmd() *cobra.Command {
	return a.cmd
}

// usageError flags err as a command line misuse.
func (a *App) usageError(format string, args ...any) error {
	a.cmd.SilenceUsage = false
	return fmt.Errorf(format, args...)
}

// source returns the files to scan: the index file when set, the root directory otherwise.
func (a *App) source(args []string, index string) (src enumerate.Source, location string, err error) {
	switch {
	case index != "" && len(args) > 0:
		return nil, "", a.usageError("a root directory and --index are mutually exclusive")
	case index != "":
		return enumerate.NewIndex(index), index, nil
	case len(args) == 0:
		return nil, "", a.usageError("a root directory or --index is required")
	}

	root, err := filepath.Abs(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("could not resolve %q: %v", args[0], err)
	}
	return enumerate.NewDir(root), root, nil
}

// openStore opens the configured dataset store.
func (a *App) openStore() (store.Store, error) {
	return store.Open(a.ctx, store.Config{
		Kind:     a.config.Store.Kind,
		Dir:      a.config.DataDir,
		Path:     a.config.Store.Path,
		Postgres: a.config.Store.Postgres,
	})
}

// journalDir is where imports are recorded.
func (a *App) journalDir() string {
	return filepath.Join(a.config.DataDir, constants.JournalFolder)
}
