// Package cli provides the configuration and logging plumbing shared by the testday commands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// InitViperConfig discovers and reads the configuration file for cmdName, then binds the
// environment variables prefixed with the upper-cased command name.
//
// An explicit --config flag wins over discovery. Discovery looks, in order, in the current
// directory, configDir, the system configuration directories and the executable directory.
func InitViperConfig(cmdName, configDir string, cmd *cobra.Command, vip *viper.Viper) error {
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		vip.SetConfigFile(f.Value.String())
	} else {
		vip.SetConfigName(cmdName)
		vip.AddConfigPath(".")
		if configDir != "" {
			vip.AddConfigPath(configDir)
		}

		if runtime.GOOS == "windows" {
			vip.AddConfigPath(filepath.Join("C:\\ProgramData", cmdName))
		} else {
			vip.AddConfigPath(filepath.Join("/etc", cmdName))
			vip.AddConfigPath(filepath.Join("/usr/local/etc", cmdName))
		}

		if binPath, err := os.Executable(); err != nil {
			slog.Warn("Failed to get current executable path, not adding it as a config dir", "error", err)
		} else {
			vip.AddConfigPath(filepath.Dir(binPath))
		}
	}

	if err := vip.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return fmt.Errorf("invalid configuration file: %w", err)
		}
		slog.Debug("No configuration file, using defaults, environment and flags only", "error", e)
	} else {
		slog.Info("Using configuration file", "file", vip.ConfigFileUsed())
	}

	// Nested keys are reached through "_" in the environment: TESTDAY_STORE_KIND -> store.kind.
	prefix := strings.ToUpper(strings.ReplaceAll(cmdName, "-", "_"))
	vip.SetEnvPrefix(prefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	// AutomaticEnv alone is not seen by Unmarshal, so every matching variable is bound explicitly.
	// More context on https://github.com/spf13/viper/pull/1429.
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, prefix+"_") {
			continue
		}

		name, _, _ := strings.Cut(e, "=")
		k := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, prefix+"_"), "_", "."))
		if err := vip.BindEnv(k, name); err != nil {
			return fmt.Errorf("could not bind environment variable: %w", err)
		}
	}

	return nil
}

// InstallConfigFlag adds the persistent --config flag to cmd.
func InstallConfigFlag(cmd *cobra.Command) *string {
	return cmd.PersistentFlags().String("config", "", "use a specific configuration file")
}
