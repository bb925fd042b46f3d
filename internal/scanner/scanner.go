// Package scanner classifies an enumerated file list into test days, runs and setups.
package scanner

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/trackside/testday/internal/constants"
	"github.com/trackside/testday/internal/enumerate"
	"github.com/trackside/testday/internal/models"
	"github.com/trackside/testday/internal/naming"
	"golang.org/x/sync/errgroup"
)

// Opener opens a file by its relative path.
type Opener func(relPath string) (io.ReadCloser, error)

// Result is the outcome of a scan.
type Result struct {
	Batch models.ImportBatch `json:"batch"`
	// Diagnostics lists the files skipped because of their content.
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

type options struct {
	concurrency int
	maxFileSize int64
}

// Options represents an optional function to override Scan default values.
type Options func(*options)

// WithConcurrency sets how many setup documents are read at once.
func WithConcurrency(n int) Options {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// ScanSource enumerates src, then scans the returned files.
// Only an enumeration failure, or a cancelled context, is returned as an error.
func ScanSource(ctx context.Context, src enumerate.Source, args ...Options) (Result, error) {
	entries, err := src.Enumerate(ctx)
	if err != nil {
		return Result{}, err
	}
	return Scan(ctx, entries, src.Open, args...)
}

// Scan classifies entries, in their given order, and reads the setup documents among them.
//
// Files that cannot be read or decoded are reported as diagnostics and never fail the scan.
// The result only depends on the entry paths and the setup documents content.
func Scan(ctx context.Context, entries []models.FileEntry, open Opener, args ...Options) (Result, error) {
	opts := options{
		concurrency: constants.DefaultScanConcurrency,
		maxFileSize: constants.MaxSetupFileSize,
	}
	for _, opt := range args {
		opt(&opts)
	}

	days, candidates := classify(entries)

	setups, diags, err := readSetups(ctx, candidates, open, opts)
	if err != nil {
		return Result{}, err
	}

	batch := models.ImportBatch{
		TestDays: []models.TestDayFolder{},
		Runs:     []models.Run{},
		Setups:   setups,
	}
	for _, g := range days {
		if len(g.TelemetryFiles) == 0 && !g.HasMetadataMarker {
			continue
		}
		batch.TestDays = append(batch.TestDays, *g)
		for i, f := range g.TelemetryFiles {
			batch.Runs = append(batch.Runs, models.Run{
				Key:         f.Path,
				ID:          models.RunID(f.Path),
				TestDayKey:  g.Key,
				TestDayName: g.Name,
				Sequence:    i + 1,
				Driver:      constants.UnassignedDriver,
				Source:      f,
			})
		}
	}

	slog.Debug("Scan done", "files", len(entries), "testDays", len(batch.TestDays), "runs", len(batch.Runs),
		"setups", len(batch.Setups), "skipped", len(diags))

	return Result{Batch: batch, Diagnostics: diags}, nil
}

// classify groups the entries by owning test-day folder, in order of first appearance,
// and collects the setup document candidates.
func classify(entries []models.FileEntry) (days []*models.TestDayFolder, candidates []models.FileEntry) {
	bySegment := make(map[string]*models.TestDayFolder)

	for _, e := range entries {
		segs := naming.SplitPath(e.Path)
		if len(segs) == 0 {
			continue
		}
		filename := segs[len(segs)-1]

		if naming.IsSetupFile(e.Path, filename) {
			candidates = append(candidates, e)
		}

		owner, m := -1, naming.Match{}
		for i := range segs[:len(segs)-1] {
			var ok bool
			if m, ok = naming.MatchTestDayFolder(segs[i]); ok {
				owner = i
				break
			}
		}
		if owner < 0 {
			continue
		}

		g, ok := bySegment[segs[owner]]
		if !ok {
			g = &models.TestDayFolder{
				Name:           segs[owner],
				Key:            naming.TestDayKey(m),
				Date:           m.Date,
				Venue:          m.Venue,
				TelemetryFiles: []models.FileEntry{},
			}
			bySegment[segs[owner]] = g
			days = append(days, g)
		}

		switch {
		case naming.IsTelemetryFile(filename):
			g.TelemetryFiles = append(g.TelemetryFiles, e)
		case naming.IsDayMetadataFile(filename) && owner == len(segs)-2:
			g.HasMetadataMarker = true
		}
	}

	return days, candidates
}

// readSetups reads and decodes the candidates with a bounded fan-out.
// Setups are returned sorted by key, diagnostics by path.
func readSetups(ctx context.Context, candidates []models.FileEntry, open Opener, opts options) ([]models.SetupRecord, []models.Diagnostic, error) {
	records := make([]*models.SetupRecord, len(candidates))
	failures := make([]*models.Diagnostic, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			s, err := readSetup(c.Path, open, opts.maxFileSize)
			if err != nil {
				slog.Info("Skipping setup file", "path", c.Path, "reason", err)
				failures[i] = &models.Diagnostic{Path: c.Path, Reason: err.Error()}
				return nil
			}
			records[i] = &s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	setups := []models.SetupRecord{}
	for _, r := range records {
		if r != nil {
			setups = append(setups, *r)
		}
	}
	diags := []models.Diagnostic{}
	for _, d := range failures {
		if d != nil {
			diags = append(diags, *d)
		}
	}

	slices.SortStableFunc(setups, func(a, b models.SetupRecord) int {
		return cmp.Or(cmp.Compare(a.Key, b.Key), cmp.Compare(a.Path, b.Path))
	})
	slices.SortStableFunc(diags, func(a, b models.Diagnostic) int {
		return cmp.Compare(a.Path, b.Path)
	})

	return setups, diags, nil
}

// readSetup reads and decodes a single setup document.
func readSetup(p string, open Opener, maxSize int64) (models.SetupRecord, error) {
	if open == nil {
		return models.SetupRecord{}, errors.New("could not open file: no file access available")
	}
	r, err := open(p)
	if err != nil {
		return models.SetupRecord{}, fmt.Errorf("could not open file: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return models.SetupRecord{}, fmt.Errorf("could not read file: %v", err)
	}
	if int64(len(data)) > maxSize {
		return models.SetupRecord{}, fmt.Errorf("file is larger than %d bytes", maxSize)
	}

	s, err := decodeSetup(data)
	if err != nil {
		return models.SetupRecord{}, err
	}

	s.Key = naming.SetupKey(p)
	s.Path = p
	if strings.TrimSpace(s.Name) == "" {
		s.Name = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}
	return s, nil
}

// decodeSetup decodes a setup document, keeping unknown top-level fields.
func decodeSetup(data []byte) (models.SetupRecord, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.SetupRecord{}, fmt.Errorf("json file is invalid and could not be parsed: %v", err)
	}
	if doc == nil {
		return models.SetupRecord{}, errors.New("json document is not an object")
	}

	var s models.SetupRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return models.SetupRecord{}, fmt.Errorf("failed to create decoder: %v", err)
	}

	if err := decoder.Decode(doc); err != nil {
		return models.SetupRecord{}, fmt.Errorf("file data does not match the setup structure: %v", err)
	}
	if len(s.Extras) == 0 {
		s.Extras = nil
	}
	return s, nil
}
