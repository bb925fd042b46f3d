// Package testutils provides helper functions for testing.
package testutils

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// FlagSpec describes a flag expected on a cobra command.
type FlagSpec struct {
	Name       string
	Shorthand  string
	Default    string
	Persistent bool
}

// RequireFlags checks that cmd declares every flag of specs.
func RequireFlags(t *testing.T, cmd *cobra.Command, specs ...FlagSpec) {
	t.Helper()

	for _, spec := range specs {
		var flag *pflag.Flag
		if spec.Persistent {
			flag = cmd.PersistentFlags().Lookup(spec.Name)
		} else {
			flag = cmd.Flags().Lookup(spec.Name)
		}

		require.NotNil(t, flag, "flag %q should be declared on %q", spec.Name, cmd.Name())
		require.Equal(t, spec.Shorthand, flag.Shorthand, "flag %q has an unexpected shorthand", spec.Name)
		require.Equal(t, spec.Default, flag.DefValue, "flag %q has an unexpected default value", spec.Name)
	}
}
