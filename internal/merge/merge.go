// Package merge folds an import batch into a dataset without duplicating records.
package merge

import (
	"slices"

	"github.com/trackside/testday/internal/models"
)

// Stats counts what a merge changed.
type Stats struct {
	TestDaysAdded     int `json:"testDaysAdded"`
	RunsAdded         int `json:"runsAdded"`
	SetupsAdded       int `json:"setupsAdded"`
	TestDaysRefreshed int `json:"testDaysRefreshed"`
}

// Changed reports whether the merge produced a dataset different from the existing one.
func (s Stats) Changed() bool {
	return s != Stats{}
}

// Merge returns the union of existing and batch. existing is never modified.
//
// Records are identified by key and the first record seen for a key wins, existing ones first.
// Only the run count of a test day is recomputed, from the runs of the merged dataset.
// Tires are carried over untouched.
func Merge(existing models.Dataset, batch models.ImportBatch) (models.Dataset, Stats) {
	var stats Stats

	out := models.Dataset{
		TestDays: slices.Clone(existing.TestDays),
		Runs:     slices.Clone(existing.Runs),
		Setups:   slices.Clone(existing.Setups),
		Tires:    slices.Clone(existing.Tires),
	}
	if out.TestDays == nil {
		out.TestDays = []models.TestDay{}
	}
	if out.Runs == nil {
		out.Runs = []models.Run{}
	}
	if out.Setups == nil {
		out.Setups = []models.SetupRecord{}
	}
	if out.Tires == nil {
		out.Tires = []models.TireSet{}
	}

	days := keys(out.TestDays, func(d models.TestDay) string { return d.Key })
	for _, f := range batch.TestDays {
		if _, ok := days[f.Key]; ok {
			continue
		}
		days[f.Key] = len(out.TestDays)
		out.TestDays = append(out.TestDays, models.NewTestDay(f))
		stats.TestDaysAdded++
	}

	runs := keys(out.Runs, func(r models.Run) string { return r.Key })
	for _, r := range batch.Runs {
		if _, ok := runs[r.Key]; ok {
			continue
		}
		runs[r.Key] = len(out.Runs)
		out.Runs = append(out.Runs, r)
		stats.RunsAdded++
	}

	setups := keys(out.Setups, func(s models.SetupRecord) string { return s.Key })
	for _, s := range batch.Setups {
		if _, ok := setups[s.Key]; ok {
			continue
		}
		setups[s.Key] = len(out.Setups)
		out.Setups = append(out.Setups, s)
		stats.SetupsAdded++
	}

	counts := make(map[string]int)
	for _, r := range out.Runs {
		counts[r.TestDayKey]++
	}
	for i, d := range out.TestDays {
		if d.RunCount == counts[d.Key] {
			continue
		}
		out.TestDays[i].RunCount = counts[d.Key]
		if i < len(existing.TestDays) {
			stats.TestDaysRefreshed++
		}
	}

	return out, stats
}

// keys indexes records by key, keeping the first position of duplicated keys.
func keys[T any](records []T, key func(T) string) map[string]int {
	m := make(map[string]int, len(records))
	for i, r := range records {
		if _, ok := m[key(r)]; !ok {
			m[key(r)] = i
		}
	}
	return m
}
