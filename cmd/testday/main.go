// Main package for the testday command line tool.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/trackside/testday/cmd/testday/commands"
	"github.com/trackside/testday/internal/constants"
)

func main() {
	slog.SetLogLoggerLevel(constants.DefaultLogLevel)

	a, err := commands.New()
	if err != nil {
		slog.Error("Could not initialize the command line", "error", err)
		os.Exit(1)
	}

	os.Exit(run(a))
}

type app interface {
	Run() error
	UsageError() bool
	Hup() bool
	Quit()
}

func run(a app) int {
	defer installSignalHandler(a)()

	if err := a.Run(); err != nil {
		slog.Error(err.Error())

		if a.UsageError() {
			return 2
		}
		return 1
	}

	return 0
}

// installSignalHandler stops a on SIGINT and SIGTERM, and asks it what to do on SIGHUP.
// The returned function uninstalls the handler.
func installSignalHandler(a app) func() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			sig, ok := <-c
			if !ok {
				slog.Debug("Signal channel closed")
				return
			}
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				slog.Info("Stopping", "signal", sig.String())
				a.Quit()
				return
			case syscall.SIGHUP:
				if a.Hup() {
					a.Quit()
					return
				}
			}
		}
	}()

	return func() {
		signal.Stop(c)
		close(c)
		wg.Wait()
	}
}
