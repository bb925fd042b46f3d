package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackside/testday/internal/constants"
)

func TestUsageError(t *testing.T) {
	t.Parallel()

	app, err := New()
	require.NoError(t, err, "Setup: New should not return an error")

	app.cmd.SilenceUsage = true
	assert.False(t, app.UsageError(), "UsageError should be false once parsing succeeded")

	app.cmd.SilenceUsage = false
	assert.True(t, app.UsageError(), "UsageError should be true while parsing has not succeeded")
}

func TestRootCmd(t *testing.T) {
	t.Parallel()

	app, err := New()
	require.NoError(t, err, "Setup: New should not return an error")

	cmd := app.RootCmd()
	require.NotNil(t, cmd, "Returned root cmd should not be nil")
	assert.Equal(t, constants.CmdName, cmd.Name(), "Root command should be named after the tool")
}

func TestQuitCancelsContext(t *testing.T) {
	t.Parallel()

	app, err := New()
	require.NoError(t, err, "Setup: New should not return an error")

	require.NoError(t, app.ctx.Err(), "Context should be live before Quit")
	app.Quit()
	require.Error(t, app.ctx.Err(), "Quit should cancel the context")
}
