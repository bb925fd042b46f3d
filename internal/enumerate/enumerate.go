// Package enumerate lists the files below a selected root.
package enumerate

import (
	"context"
	"errors"
	"io"

	"github.com/trackside/testday/internal/models"
)

// ErrEnumeration is returned when the selected location could not be listed at all.
var ErrEnumeration = errors.New("could not enumerate the selected location")

// Source lists files below a root and opens them by their relative path.
type Source interface {
	// Enumerate returns every file below the root, in a stable order.
	Enumerate(ctx context.Context) ([]models.FileEntry, error)
	// Open opens the file at the slash separated relative path.
	Open(relPath string) (io.ReadCloser, error)
}
