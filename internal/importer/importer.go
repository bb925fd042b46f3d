// Package importer runs the scan and merge pipeline against a store.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trackside/testday/internal/constants"
	"github.com/trackside/testday/internal/enumerate"
	"github.com/trackside/testday/internal/journal"
	"github.com/trackside/testday/internal/merge"
	"github.com/trackside/testday/internal/models"
	"github.com/trackside/testday/internal/scanner"
	"github.com/trackside/testday/internal/store"
	"github.com/ubuntu/decorate"
)

// Status sums up an import for the user.
type Status string

const (
	// StatusEmpty means that nothing matching the folder conventions was found.
	StatusEmpty Status = "empty"
	// StatusPartial means that some files were skipped because of their content.
	StatusPartial Status = "partial"
	// StatusOK means that every recognized file was imported.
	StatusOK Status = "ok"
	// StatusFailed means that the selected location could not be read.
	StatusFailed Status = "failed"
)

// Outcome describes one import.
type Outcome struct {
	// Stats counts what was added to the dataset.
	Stats merge.Stats `json:"merged"`
	// Diagnostics lists the skipped files.
	Diagnostics []models.Diagnostic `json:"diagnostics"`

	// TestDays, Runs and Setups count what the scan found, imported before or not.
	TestDays int `json:"testDays"`
	Runs     int `json:"runs"`
	Setups   int `json:"setups"`
}

// Status returns the user facing state of the import.
func (o Outcome) Status() Status {
	switch {
	case len(o.Diagnostics) > 0:
		return StatusPartial
	case o.TestDays == 0 && o.Runs == 0 && o.Setups == 0:
		return StatusEmpty
	default:
		return StatusOK
	}
}

// Importer merges what is found in a source into a store.
type Importer struct {
	src enumerate.Source
	st  store.Store

	location    string
	journalDir  string
	journalKeep int
	concurrency int
	now         func() time.Time

	mu sync.Mutex
}

type options struct {
	location    string
	journalDir  string
	journalKeep int
	concurrency int
	now         func() time.Time
}

// Options represents an optional function to override Importer default values.
type Options func(*options)

// WithLocation sets the location recorded in the journal for the source.
func WithLocation(l string) Options {
	return func(o *options) {
		o.location = l
	}
}

// WithJournal records every import in dir, keeping the keep most recent entries.
// A non positive keep keeps every entry.
func WithJournal(dir string, keep int) Options {
	return func(o *options) {
		o.journalDir = dir
		o.journalKeep = keep
	}
}

// WithConcurrency sets how many setup documents are read at once.
func WithConcurrency(n int) Options {
	return func(o *options) {
		o.concurrency = n
	}
}

// New returns an importer of src into st. st is not closed by the importer.
func New(src enumerate.Source, st store.Store, args ...Options) *Importer {
	opts := options{
		journalKeep: constants.DefaultJournalKeep,
		concurrency: constants.DefaultScanConcurrency,
		now:         time.Now,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Importer{
		src:         src,
		st:          st,
		location:    opts.location,
		journalDir:  opts.journalDir,
		journalKeep: opts.journalKeep,
		concurrency: opts.concurrency,
		now:         opts.now,
	}
}

// Run scans the source and merges the result into the store.
//
// Overlapping calls are serialized, each one merging into the dataset saved by the previous one.
// The store is only written when the merge changed the dataset.
// An unreadable source returns an error wrapping enumerate.ErrEnumeration.
func (im *Importer) Run(ctx context.Context) (o Outcome, err error) {
	defer decorate.OnError(&err, "import failed")

	im.mu.Lock()
	defer im.mu.Unlock()

	start := im.now()
	defer func() {
		im.record(start, o, err)
	}()

	res, err := scanner.ScanSource(ctx, im.src, scanner.WithConcurrency(im.concurrency))
	if err != nil {
		return Outcome{}, err
	}
	o = Outcome{
		Diagnostics: res.Diagnostics,
		TestDays:    len(res.Batch.TestDays),
		Runs:        len(res.Batch.Runs),
		Setups:      len(res.Batch.Setups),
	}
	for _, d := range res.Diagnostics {
		slog.Warn("Skipped file", "path", d.Path, "reason", d.Reason)
	}

	existing, err := im.st.Load(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("could not load dataset: %w", err)
	}

	merged, stats := merge.Merge(existing, res.Batch)
	o.Stats = stats
	if !stats.Changed() {
		slog.Debug("Dataset already up to date", "location", im.location)
		return o, nil
	}

	if err := im.st.Save(ctx, merged); err != nil {
		return Outcome{}, fmt.Errorf("could not save dataset: %w", err)
	}
	slog.Info("Dataset updated", "location", im.location,
		"testDaysAdded", stats.TestDaysAdded, "runsAdded", stats.RunsAdded, "setupsAdded", stats.SetupsAdded)
	return o, nil
}

// record writes the journal entry of an import. Journal failures are only logged.
func (im *Importer) record(start time.Time, o Outcome, runErr error) {
	if im.journalDir == "" {
		return
	}

	rec := journal.Record{
		Root:        im.location,
		Time:        start,
		Status:      string(o.Status()),
		Scanned:     journal.Counts{TestDays: o.TestDays, Runs: o.Runs, Setups: o.Setups},
		Merged:      o.Stats,
		Diagnostics: o.Diagnostics,
	}
	if runErr != nil {
		rec.Status = string(StatusFailed)
		rec.Error = runErr.Error()
	}

	if _, err := journal.Write(im.journalDir, rec); err != nil {
		slog.Warn("Could not record import", "dir", im.journalDir, "error", err)
		return
	}
	if _, err := journal.Prune(im.journalDir, im.journalKeep); err != nil {
		slog.Warn("Could not prune import journal", "dir", im.journalDir, "error", err)
	}
}
