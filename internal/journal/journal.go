// Package journal records the outcome of every import, one file per import.
//
// Entries are named after the import time in Unix nanoseconds, so that listing
// a journal directory in name order lists imports in time order.
package journal

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/trackside/testday/internal/constants"
	"github.com/trackside/testday/internal/fileutils"
	"github.com/trackside/testday/internal/merge"
	"github.com/trackside/testday/internal/models"
)

var (
	// ErrInvalidExt is returned when a journal file has an invalid extension.
	ErrInvalidExt = errors.New("invalid journal file extension")

	// ErrInvalidName is returned when a journal file has a name that is not a timestamp.
	ErrInvalidName = errors.New("invalid journal file name")

	// ErrEmpty is returned when a journal holds no entry.
	ErrEmpty = errors.New("journal is empty")
)

// Counts are the number of records found by a scan.
type Counts struct {
	TestDays int `json:"testDays"`
	Runs     int `json:"runs"`
	Setups   int `json:"setups"`
}

// Record is the content of a journal entry.
type Record struct {
	Root        string              `json:"root"`
	Time        time.Time           `json:"time"`
	Status      string              `json:"status"`
	Scanned     Counts              `json:"scanned"`
	Merged      merge.Stats         `json:"merged"`
	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Entry is a journal file.
type Entry struct {
	Path      string
	TimeStamp int64 // TimeStamp is the entry time, in Unix nanoseconds.
}

// New returns the entry at path. It does not touch the file system.
func New(path string) (Entry, error) {
	name := filepath.Base(path)
	if filepath.Ext(name) != constants.JournalExt {
		return Entry{}, ErrInvalidExt
	}

	ts, err := strconv.ParseInt(strings.TrimSuffix(name, constants.JournalExt), 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return Entry{Path: path, TimeStamp: ts}, nil
}

// Time returns the time of the entry.
func (e Entry) Time() time.Time {
	return time.Unix(0, e.TimeStamp)
}

// Read returns the record stored in the entry.
func (e Entry) Read() (Record, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read journal entry: %v", err)
	}
	return fileutils.UnmarshalJSON[Record](data)
}

// Write stores rec in dir, named after rec.Time.
func Write(dir string, rec Record) (Entry, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return Entry{}, fmt.Errorf("failed to create journal directory: %v", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode journal entry: %v", err)
	}

	// Two imports within the same nanosecond get consecutive names.
	ts := rec.Time.UnixNano()
	var p string
	for {
		p = filepath.Join(dir, strconv.FormatInt(ts, 10)+constants.JournalExt)
		_, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return Entry{}, fmt.Errorf("failed to check journal entry: %v", err)
		}
		ts++
	}

	if err := fileutils.AtomicWrite(p, data); err != nil {
		return Entry{}, fmt.Errorf("failed to write journal entry: %v", err)
	}
	return Entry{Path: p, TimeStamp: ts}, nil
}

// GetAll returns the entries of dir, oldest first. Other files are skipped.
// A missing directory is an empty journal.
func GetAll(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %v", err)
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		e, err := New(filepath.Join(dir, de.Name()))
		if errors.Is(err, ErrInvalidExt) || errors.Is(err, ErrInvalidName) {
			slog.Info("Skipping non-journal file", "file", de.Name(), "error", err)
			continue
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.TimeStamp, b.TimeStamp) })
	return entries, nil
}

// Latest returns the most recent entry of dir, or ErrEmpty.
func Latest(dir string) (Entry, error) {
	entries, err := GetAll(dir)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrEmpty
	}
	return entries[len(entries)-1], nil
}

// Prune removes the oldest entries of dir so that at most keep remain.
// A non-positive keep disables pruning.
func Prune(dir string, keep int) (removed int, err error) {
	if keep <= 0 {
		return 0, nil
	}

	entries, err := GetAll(dir)
	if err != nil {
		return 0, err
	}

	var errs error
	for _, e := range entries[:max(len(entries)-keep, 0)] {
		if err := os.Remove(e.Path); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		removed++
	}
	if errs != nil {
		return removed, fmt.Errorf("failed to remove old journal entries: %w", errs)
	}
	return removed, nil
}
