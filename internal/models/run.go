package models

import "github.com/google/uuid"

// runNamespace scopes the name based identifiers of runs.
var runNamespace = uuid.MustParse("8a3c62d4-5f0e-4a4b-9d1e-2b6f0c7e91a5")

// Run is one telemetry file within a test day.
type Run struct {
	// Key is the relative path of the telemetry file.
	Key string `json:"key"`
	// ID is derived from Key and is stable across scans.
	ID          string    `json:"id"`
	TestDayKey  string    `json:"testDayKey"`
	TestDayName string    `json:"testDayName"`
	Sequence    int       `json:"sequence"`
	Driver      string    `json:"driver"`
	Source      FileEntry `json:"source"`
}

// RunID returns the identifier of the run whose telemetry file is at key.
func RunID(key string) string {
	return uuid.NewSHA1(runNamespace, []byte(key)).String()
}
