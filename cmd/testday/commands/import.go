package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/trackside/testday/internal/enumerate"
	"github.com/trackside/testday/internal/importer"
	"github.com/trackside/testday/internal/store"
)

func installImportCmd(app *App) {
	var index string
	var asJSON bool

	importCmd := &cobra.Command{
		Use:   "import [ROOT]",
		Short: "Import ROOT into the dataset",
		Long: `Import the test days, runs and setups found below ROOT into the dataset.

Records already in the dataset are kept as they are: importing the same folder twice
adds nothing the second time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, location, err := app.source(args, index)
			if err != nil {
				return err
			}

			slog.Debug("Running import command", "location", location)
			o, err := app.importOnce(src, location)
			if errors.Is(err, enumerate.ErrEnumeration) {
				return fmt.Errorf("could not read the selected location %q: %w", location, err)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return encode(cmd.OutOrStdout(), formatJSON, outcomeReport{Status: o.Status(), Location: location, Outcome: o})
			}
			printOutcome(newPrinter(cmd.OutOrStdout()), location, o)
			return nil
		},
	}

	importCmd.Flags().StringVar(&index, "index", "", "read the file list from this YAML index instead of walking ROOT")
	importCmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome as JSON")
	if err := importCmd.MarkFlagFilename("index", "yaml", "yml"); err != nil {
		slog.Warn("Failed to mark index flag as filename", "error", err)
	}

	app.cmd.AddCommand(importCmd)
}

// outcomeReport is the JSON form of an import outcome.
type outcomeReport struct {
	Status   importer.Status `json:"status"`
	Location string          `json:"location"`
	importer.Outcome
}

// importOnce opens the store, imports src and closes the store.
func (a *App) importOnce(src enumerate.Source, location string) (o importer.Outcome, err error) {
	st, err := a.openStore()
	if err != nil {
		return importer.Outcome{}, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("could not close the dataset store: %v", cerr))
		}
	}()

	return a.newImporter(src, st, location).Run(a.ctx)
}

func printOutcome(p printer, location string, o importer.Outcome) {
	switch o.Status() {
	case importer.StatusEmpty:
		p.warnf("No test-day folder or setup found in %s", location)
		return
	case importer.StatusPartial:
		p.warnf("%d file(s) were skipped due to invalid content:", len(o.Diagnostics))
		for _, d := range o.Diagnostics {
			p.printf("  %s: %s", d.Path, d.Reason)
		}
	}

	p.boldf("Found %d test day(s), %d run(s) and %d setup(s) in %s", o.TestDays, o.Runs, o.Setups, location)
	if !o.Stats.Changed() {
		p.okf("Dataset already up to date")
		return
	}
	p.okf("Added %d test day(s), %d run(s) and %d setup(s)", o.Stats.TestDaysAdded, o.Stats.RunsAdded, o.Stats.SetupsAdded)
	if o.Stats.TestDaysRefreshed > 0 {
		p.printf("Refreshed the run count of %d test day(s)", o.Stats.TestDaysRefreshed)
	}
}

func (a *App) newImporter(src enumerate.Source, st store.Store, location string) *importer.Importer {
	return importer.New(src, st,
		importer.WithLocation(location),
		importer.WithJournal(a.journalDir(), a.config.Journal.Keep),
		importer.WithConcurrency(a.config.Scan.Concurrency),
	)
}
