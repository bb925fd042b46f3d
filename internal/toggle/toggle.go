// Package toggle persists the live sync switch and reports its changes.
package toggle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/trackside/testday/internal/constants"
	"github.com/trackside/testday/internal/fileutils"
	"github.com/ubuntu/decorate"
)

// Toggle is the live sync switch stored in a TOML file.
type Toggle struct {
	path string
	log  *slog.Logger
}

// toggleFile is the on disk representation of the switch.
type toggleFile struct {
	Enabled bool `toml:"enabled"`
}

type options struct {
	logger *slog.Logger
}

// Options represents an optional function to override Toggle default values.
type Options func(*options)

// WithLogger sets the logger used by the toggle.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.logger = l
	}
}

// New returns the toggle stored in dir.
func New(dir string, args ...Options) *Toggle {
	opts := options{logger: slog.Default()}
	for _, opt := range args {
		opt(&opts)
	}

	return &Toggle{
		path: filepath.Join(dir, constants.ToggleFileName),
		log:  opts.logger,
	}
}

// Path returns the file holding the toggle state.
func (t *Toggle) Path() string {
	return t.path
}

// GetState returns whether live sync is enabled. A missing file means disabled.
func (t *Toggle) GetState() (enabled bool, err error) {
	defer decorate.OnError(&err, "could not read live sync state")

	var f toggleFile
	if _, err := toml.DecodeFile(t.path, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	t.log.Debug("Read live sync state", "file", t.path, "enabled", f.Enabled)
	return f.Enabled, nil
}

// SetState stores the switch state, replacing the file atomically.
func (t *Toggle) SetState(enabled bool) (err error) {
	defer decorate.OnError(&err, "could not set live sync state")

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(toggleFile{Enabled: enabled}); err != nil {
		return fmt.Errorf("could not encode state: %v", err)
	}
	if err := fileutils.AtomicWrite(t.path, buf.Bytes()); err != nil {
		return err
	}

	t.log.Debug("Wrote live sync state", "file", t.path, "enabled", enabled)
	return nil
}

// Watch reports every change of the toggle file until ctx is done.
//
// It returns two channels: one receiving a value after each change of the file,
// and another for unrecoverable watcher errors. Bursts of changes may be coalesced.
func (t *Toggle) Watch(ctx context.Context) (changes <-chan struct{}, errs <-chan error, err error) {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create directory %s: %v", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %v", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to add directory %s to watcher: %v", dir, err)
	}

	t.log.Info("Watching live sync state", "file", t.path)
	changesCh := make(chan struct{}, 1)
	errorsCh := make(chan error, 1)

	go func() {
		defer close(changesCh)
		defer close(errorsCh)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				t.log.Debug("Live sync state watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					errorsCh <- errors.New("watcher events channel closed unexpectedly")
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if filepath.Clean(event.Name) != filepath.Clean(t.path) {
					continue
				}

				t.log.Debug("Live sync state file changed", "op", event.Op.String())
				select {
				case changesCh <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					errorsCh <- errors.New("watcher errors channel closed unexpectedly")
					return
				}
				t.log.Warn("Watcher error", "error", err)
			}
		}
	}()

	return changesCh, errorsCh, nil
}
