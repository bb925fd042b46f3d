package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/trackside/testday/internal/constants"
	"github.com/trackside/testday/internal/fileutils"
	"github.com/trackside/testday/internal/models"
	"github.com/ubuntu/decorate"
)

// ErrLocked is returned when another process holds the dataset.
var ErrLocked = errors.New("dataset is in use by another process")

// FileStore keeps the dataset in a single JSON document.
type FileStore struct {
	path string
	lock *flock.Flock

	mu sync.Mutex
}

// OpenFile opens the JSON dataset of dir, and holds an exclusive lock on it until Close.
func OpenFile(dir string) (s *FileStore, err error) {
	defer decorate.OnError(&err, "could not open dataset in %q", dir)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(dir, constants.DatasetLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to try lock: %v", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	slog.Debug("Opened JSON dataset", "dir", dir)
	return &FileStore{
		path: filepath.Join(dir, constants.DatasetFileName),
		lock: lock,
	}, nil
}

// Load reads the dataset. A missing dataset is empty.
func (s *FileStore) Load(ctx context.Context) (ds models.Dataset, err error) {
	defer decorate.OnError(&err, "could not load dataset")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return models.Dataset{}, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Dataset{}, nil
	}
	if err != nil {
		return models.Dataset{}, err
	}
	defer f.Close()

	if err := fileutils.ParseJSON(f, &ds); err != nil {
		return models.Dataset{}, err
	}
	return ds, nil
}

// Save replaces the dataset atomically.
func (s *FileStore) Save(ctx context.Context, ds models.Dataset) (err error) {
	defer decorate.OnError(&err, "could not save dataset")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return err
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return err
	}
	return fileutils.AtomicWrite(s.path, data)
}

// Close releases the dataset lock. Closing twice is a no-op.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("could not release dataset lock: %v", err)
	}
	s.lock = nil
	return nil
}

func (s *FileStore) usable(ctx context.Context) error {
	if s.lock == nil {
		return errors.New("store is closed")
	}
	return ctx.Err()
}
