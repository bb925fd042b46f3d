// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default configuration and data paths.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "testday"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "testday"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// TelemetryExt is the extension of recorded telemetry files, matched case-insensitively.
	TelemetryExt = ".xrk"

	// SetupExt is the extension of setup snapshot documents, matched case-insensitively.
	SetupExt = ".json"

	// DayMetadataFileName is the reserved file marking a test-day folder created before any run was recorded.
	DayMetadataFileName = "testday.json"

	// SetupDirName is the reserved directory holding global setup snapshots.
	SetupDirName = "Setups"

	// UnassignedDriver is the driver placeholder given to freshly imported runs.
	UnassignedDriver = "Unassigned"

	// DatasetFileName is the file name of the JSON dataset store.
	DatasetFileName = "dataset.json"

	// DatasetLockName is the lock file guarding the JSON dataset store.
	DatasetLockName = "dataset.lock"

	// SQLiteFileName is the default file name of the SQLite dataset store.
	SQLiteFileName = "dataset.db"

	// JournalFolder is the folder, below the data directory, holding import journal entries.
	JournalFolder = "imports"

	// JournalExt is the extension of import journal entries.
	JournalExt = ".json"

	// DefaultJournalKeep is the default number of import journal entries kept.
	DefaultJournalKeep = 200

	// ToggleFileName is the file holding the live sync toggle state.
	ToggleFileName = "livesync.toml"

	// DefaultScanConcurrency is the default number of setup files read at once.
	DefaultScanConcurrency = 4

	// MaxSetupFileSize is the largest setup document read, in bytes.
	MaxSetupFileSize = 4 << 20

	// DefaultWatchInterval is the default delay between two live sync passes, in seconds.
	DefaultWatchInterval = 30
)

type options struct {
	baseDir func() (string, error)
}

type option func(*options)

// GetDefaultConfigPath is the default path to the configuration directory.
func GetDefaultConfigPath(opts ...option) string {
	o := options{baseDir: os.UserConfigDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultAppFolder)
}

// GetDefaultDataPath is the default path to the data directory, where the dataset and the journal live.
func GetDefaultDataPath(opts ...option) string {
	o := options{baseDir: userDataDir}
	for _, opt := range opts {
		opt(&o)
	}

	return filepath.Join(getBaseDir(o.baseDir), DefaultAppFolder)
}

// userDataDir follows XDG_DATA_HOME when set, and falls back to the user config directory.
func userDataDir() (string, error) {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return d, nil
	}
	return os.UserConfigDir()
}

// getBaseDir is a helper function to handle the case where the baseDir function returns an error, and instead return an empty string.
func getBaseDir(baseDirFunc func() (string, error)) string {
	dir, err := baseDirFunc()
	if err != nil {
		return ""
	}
	return dir
}
