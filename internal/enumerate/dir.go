package enumerate

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/trackside/testday/internal/models"
	"github.com/ubuntu/decorate"
)

// Dir enumerates a directory tree on disk.
type Dir struct {
	Root string
}

// NewDir returns a Source walking root.
func NewDir(root string) Dir {
	return Dir{Root: root}
}

// Enumerate walks the tree in lexical order and returns its regular files.
// Unreadable subdirectories are logged and skipped, an unreadable root is an error.
func (d Dir) Enumerate(ctx context.Context) (files []models.FileEntry, err error) {
	defer decorate.OnError(&err, "could not list %q", d.Root)

	info, err := os.Stat(d.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrEnumeration)
	}

	files = []models.FileEntry{}
	err = filepath.WalkDir(d.Root, func(path string, de fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == d.Root {
				return fmt.Errorf("%w: %v", ErrEnumeration, err)
			}
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			if de != nil && de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !de.Type().IsRegular() {
			return nil
		}

		fi, err := de.Info()
		if err != nil {
			slog.Warn("Skipping file that disappeared during the scan", "path", path, "error", err)
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		files = append(files, models.FileEntry{
			Path:    filepath.ToSlash(rel),
			Size:    fi.Size(),
			ModTime: fi.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Enumerated directory", "root", d.Root, "files", len(files))
	return files, nil
}

// Open opens a file below the root.
func (d Dir) Open(relPath string) (io.ReadCloser, error) {
	return openBelow(d.Root, relPath)
}

// openBelow opens relPath inside root, refusing paths escaping it.
func openBelow(root, relPath string) (io.ReadCloser, error) {
	p := filepath.FromSlash(relPath)
	if !filepath.IsLocal(p) {
		return nil, fmt.Errorf("path %q is outside of %q", relPath, root)
	}
	f, err := os.Open(filepath.Join(root, p))
	if err != nil {
		return nil, err
	}
	return f, nil
}
