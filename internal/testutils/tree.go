package testutils

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTree creates files below root. Keys are slash separated relative paths.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0750), "Setup: could not create parent directory of %q", p)
		require.NoError(t, os.WriteFile(full, []byte(content), 0600), "Setup: could not write %q", p)
	}
}

// DirContents returns the regular files below dir, keyed by slash separated relative path.
func DirContents(t *testing.T, dir string) map[string]string {
	t.Helper()

	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n")))
		return nil
	})
	require.NoError(t, err, "could not read directory %q", dir)
	return files
}

// SkipUnlessUnixNonRoot skips tests relying on file permissions being enforced.
func SkipUnlessUnixNonRoot(t *testing.T) {
	t.Helper()

	if o := runtime.GOOS; o != "linux" && o != "darwin" {
		t.Skip("Skipping test relying on Unix permissions")
	}
	if os.Getuid() == 0 {
		t.Skip("Skipping test relying on permissions when running as root")
	}
}
