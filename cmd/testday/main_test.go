package main

import (
	"errors"
	"os"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	done chan struct{}

	runErr    bool
	usageErr  bool
	hupReturn bool
}

func (a *fakeApp) Run() error {
	<-a.done
	if a.runErr {
		return errors.New("requested error")
	}
	return nil
}

func (a *fakeApp) UsageError() bool {
	return a.usageErr
}

func (a *fakeApp) Hup() bool {
	return a.hupReturn
}

func (a *fakeApp) Quit() {
	close(a.done)
}

//nolint:tparallel // Signals are sent to the whole process: subtests cannot be parallel.
func TestRun(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		runErr    bool
		usageErr  bool
		hupReturn bool
		sendSig   syscall.Signal

		wantCode int
	}{
		"Exit successfully":              {},
		"Exit with runtime error":        {runErr: true, wantCode: 1},
		"Exit with usage error":          {runErr: true, usageErr: true, wantCode: 2},
		"Usage flag alone does not fail": {usageErr: true},

		"SIGINT stops":                {sendSig: syscall.SIGINT},
		"SIGTERM stops":               {sendSig: syscall.SIGTERM},
		"SIGHUP keeps running":        {sendSig: syscall.SIGHUP},
		"SIGHUP stops when requested": {sendSig: syscall.SIGHUP, hupReturn: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if runtime.GOOS == "windows" && tc.sendSig != 0 {
				t.Skip("Signals cannot be delivered to the process itself on Windows")
			}

			a := &fakeApp{
				done:      make(chan struct{}),
				runErr:    tc.runErr,
				usageErr:  tc.usageErr,
				hupReturn: tc.hupReturn,
			}

			var code int
			wait := make(chan struct{})
			go func() {
				code = run(a)
				close(wait)
			}()
			time.Sleep(100 * time.Millisecond)

			exited := false
			if tc.sendSig != 0 {
				p, err := os.FindProcess(os.Getpid())
				require.NoError(t, err, "Setup: could not find own process")
				require.NoError(t, p.Signal(tc.sendSig), "Setup: could not send signal")

				select {
				case <-wait:
					exited = true
				case <-time.After(100 * time.Millisecond):
				}
				wantExit := tc.sendSig != syscall.SIGHUP || tc.hupReturn
				require.Equal(t, wantExit, exited, "run should only stop on the expected signals")
			}

			if !exited {
				a.Quit()
				<-wait
			}
			require.Equal(t, tc.wantCode, code, "run should return the expected exit code")
		})
	}
}
