package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/trackside/testday/internal/scanner"
)

func installScanCmd(app *App) {
	var index, format string

	scanCmd := &cobra.Command{
		Use:   "scan [ROOT]",
		Short: "Print what an import of ROOT would find",
		Long: `Print the test days, runs and setups found below ROOT, and the files skipped because
of their content. Nothing is written.

The file list can be read from an index file with --index instead of walking ROOT.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSON && format != formatYAML {
				return app.usageError("unknown format %q, must be %s or %s", format, formatJSON, formatYAML)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			src, location, err := app.source(args, index)
			if err != nil {
				return err
			}

			slog.Debug("Running scan command", "location", location)
			res, err := scanner.ScanSource(app.ctx, src, scanner.WithConcurrency(app.config.Scan.Concurrency))
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), format, res)
		},
	}

	scanCmd.Flags().StringVar(&index, "index", "", "read the file list from this YAML index instead of walking ROOT")
	scanCmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json or yaml")
	if err := scanCmd.MarkFlagFilename("index", "yaml", "yml"); err != nil {
		slog.Warn("Failed to mark index flag as filename", "error", err)
	}

	app.cmd.AddCommand(scanCmd)
}
