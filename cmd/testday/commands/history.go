package commands

import (
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/trackside/testday/internal/importer"
	"github.com/trackside/testday/internal/journal"
)

func installHistoryCmd(app *App) {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent imports",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return app.usageError("limit must not be negative, got %d", limit)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := journal.GetAll(app.journalDir())
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			slices.Reverse(entries)

			p := newPrinter(cmd.OutOrStdout())
			if len(entries) == 0 {
				p.printf("No import recorded yet")
				return nil
			}

			for _, e := range entries {
				rec, err := e.Read()
				if err != nil {
					p.warnf("%s  unreadable entry %s: %v", e.Time().Format(time.RFC3339), e.Path, err)
					continue
				}
				printRecord(p, rec)
			}
			return nil
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of imports to list, 0 for all")

	app.cmd.AddCommand(historyCmd)
}

func printRecord(p printer, rec journal.Record) {
	line := "%s  %-7s  %s  +%d test day(s) +%d run(s) +%d setup(s)"
	args := []any{rec.Time.Local().Format(time.RFC3339), rec.Status, rec.Root,
		rec.Merged.TestDaysAdded, rec.Merged.RunsAdded, rec.Merged.SetupsAdded}

	switch importer.Status(rec.Status) {
	case importer.StatusFailed:
		p.warnf("%s  %-7s  %s  %s", rec.Time.Local().Format(time.RFC3339), rec.Status, rec.Root, rec.Error)
	case importer.StatusPartial, importer.StatusEmpty:
		p.warnf(line, args...)
	default:
		p.okf(line, args...)
	}
}
