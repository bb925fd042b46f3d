package enumerate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/trackside/testday/internal/models"
	"github.com/ubuntu/decorate"
	"gopkg.in/yaml.v3"
)

// Index enumerates the files listed in a written file index.
// The index is a YAML or JSON document:
//
//	root: /media/usb/season-2025
//	files:
//	  - path: 2025-4-11 - Villa/datadump/run1.xrk
//	    size: 1048576
//	    modified: 2025-04-11T10:32:00Z
//
// Open resolves files against the root read by the last Enumerate.
type Index struct {
	Path string

	mu      sync.Mutex
	rootDir string
}

type indexFile struct {
	Root  string       `yaml:"root"`
	Files []indexEntry `yaml:"files"`
}

type indexEntry struct {
	Path     string `yaml:"path"`
	Size     int64  `yaml:"size"`
	Modified string `yaml:"modified"`
}

// NewIndex returns a Source reading the index at p.
func NewIndex(p string) *Index {
	return &Index{Path: p}
}

// Enumerate returns the listed files in their listed order.
// Entries with an invalid path or modification time are skipped.
func (ix *Index) Enumerate(ctx context.Context) (files []models.FileEntry, err error) {
	defer decorate.OnError(&err, "could not read file index %q", ix.Path)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := ix.load()
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	ix.rootDir = ix.root(doc)
	ix.mu.Unlock()

	files = make([]models.FileEntry, 0, len(doc.Files))
	for i, e := range doc.Files {
		p := path.Clean(e.Path)
		if e.Path == "" || !filepath.IsLocal(filepath.FromSlash(p)) {
			slog.Warn("Skipping index entry with an invalid path", "index", ix.Path, "entry", i, "path", e.Path)
			continue
		}

		var mod time.Time
		if e.Modified != "" {
			m, err := time.Parse(time.RFC3339, e.Modified)
			if err != nil {
				slog.Warn("Skipping index entry with an invalid modification time", "index", ix.Path, "entry", i, "path", e.Path, "error", err)
				continue
			}
			mod = m
		}
		files = append(files, models.FileEntry{Path: p, Size: e.Size, ModTime: mod.UTC()})
	}
	slog.Debug("Enumerated index", "index", ix.Path, "files", len(files), "skipped", len(doc.Files)-len(files))
	return files, nil
}

// Open opens a listed file relative to the index root.
// The index is only read if Enumerate was never called.
func (ix *Index) Open(relPath string) (io.ReadCloser, error) {
	ix.mu.Lock()
	r := ix.rootDir
	if r == "" {
		doc, err := ix.load()
		if err != nil {
			ix.mu.Unlock()
			return nil, err
		}
		r = ix.root(doc)
		ix.rootDir = r
	}
	ix.mu.Unlock()

	return openBelow(r, relPath)
}

func (ix *Index) load() (indexFile, error) {
	data, err := os.ReadFile(ix.Path)
	if err != nil {
		return indexFile{}, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}

	var doc indexFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return indexFile{}, fmt.Errorf("%w: invalid index: %v", ErrEnumeration, err)
	}
	return doc, nil
}

// root resolves the index root, relative roots being relative to the index file.
func (ix *Index) root(doc indexFile) string {
	r := doc.Root
	if r == "" {
		r = "."
	}
	if filepath.IsAbs(r) {
		return r
	}
	return filepath.Join(filepath.Dir(ix.Path), r)
}
