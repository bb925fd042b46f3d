package commands

import (
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/trackside/testday/internal/toggle"
)

func installSyncCmd(app *App) {
	var state string

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Get or set the live sync switch",
		Long: `Print whether live sync is enabled, after switching it on or off with --state.

A running watch command follows the switch.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseBool(state); state != "" && err != nil {
				return app.usageError("state must be either true or false, or not set: %v", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			tg := toggle.New(app.config.ConfigDir)

			if state != "" {
				enabled, _ := strconv.ParseBool(state)
				slog.Debug("Setting live sync state", "enabled", enabled)
				if err := tg.SetState(enabled); err != nil {
					return err
				}
			}

			enabled, err := tg.GetState()
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			if enabled {
				p.okf("live sync: enabled")
			} else {
				p.warnf("live sync: disabled")
			}
			return nil
		},
	}

	syncCmd.Flags().StringVarP(&state, "state", "s", "", "the live sync state to set (true or false)")

	app.cmd.AddCommand(syncCmd)
}
