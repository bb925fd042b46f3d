package commands

import "io"

type (
	AppConfig = appConfig
)

// Config returns the configuration of the app.
func (a *App) Config() AppConfig {
	return a.config
}

// SetArgs sets the arguments for the command.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetOutput redirects the output of the commands.
func (a *App) SetOutput(w io.Writer) {
	a.cmd.SetOut(w)
	a.cmd.SetErr(w)
}
