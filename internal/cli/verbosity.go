package cli

import (
	"log/slog"

	"github.com/trackside/testday/internal/constants"
)

// SetVerbosity sets the logging level of the default logger from the -v flag count.
//
// It has the same behaviors as slog.SetLogLoggerLevel.
func SetVerbosity(level int) {
	slog.SetLogLoggerLevel(getLevel(level))
}

func getLevel(level int) slog.Level {
	switch level {
	case 0:
		return constants.DefaultLogLevel
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
