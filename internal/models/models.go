// Package models defines the records produced by a scan and held in a dataset.
package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// FileEntry is one enumerated file, relative to the selected root.
type FileEntry struct {
	// Path is slash separated and relative to the root.
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// Diagnostic records a file skipped because of its content.
type Diagnostic struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// TestDayFolder is a folder recognized as a test day during a scan.
type TestDayFolder struct {
	// Name is the matched folder segment, verbatim.
	Name              string      `json:"name"`
	Key               string      `json:"key"`
	Date              civil.Date  `json:"date"`
	Venue             string      `json:"venue"`
	TelemetryFiles    []FileEntry `json:"telemetryFiles"`
	HasMetadataMarker bool        `json:"hasMetadataMarker"`
}

// ImportBatch is the outcome of one scan.
type ImportBatch struct {
	TestDays []TestDayFolder `json:"testDays"`
	Runs     []Run           `json:"runs"`
	Setups   []SetupRecord   `json:"setups"`
}

// Empty reports whether the batch holds no record at all.
func (b ImportBatch) Empty() bool {
	return len(b.TestDays) == 0 && len(b.Runs) == 0 && len(b.Setups) == 0
}

// TestDay is the persisted form of a test day.
type TestDay struct {
	Key               string     `json:"key"`
	Name              string     `json:"name"`
	Date              civil.Date `json:"date"`
	Venue             string     `json:"venue"`
	RunCount          int        `json:"runCount"`
	HasMetadataMarker bool       `json:"hasMetadataMarker"`
}

// NewTestDay returns the dataset record of a scanned folder, without runs counted.
func NewTestDay(f TestDayFolder) TestDay {
	return TestDay{
		Key:               f.Key,
		Name:              f.Name,
		Date:              f.Date,
		Venue:             f.Venue,
		HasMetadataMarker: f.HasMetadataMarker,
	}
}

// TireSet is a tire set known to the dataset. Scans never produce one.
type TireSet struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Compound   string `json:"compound,omitempty"`
	Notes      string `json:"notes,omitempty"`
	HeatCycles int    `json:"heatCycles"`
}

// Dataset is the full set of records held by a store.
type Dataset struct {
	TestDays []TestDay     `json:"testDays"`
	Runs     []Run         `json:"runs"`
	Setups   []SetupRecord `json:"setups"`
	Tires    []TireSet     `json:"tires"`
}
