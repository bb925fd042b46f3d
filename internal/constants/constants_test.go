package constants_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trackside/testday/internal/constants"
)

func TestGetDefaultPaths(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		baseDir func() (string, error)

		want string
	}{
		"Base dir is joined with app folder": {
			baseDir: func() (string, error) { return filepath.Join("abc", "def"), nil },
			want:    filepath.Join("abc", "def", constants.DefaultAppFolder),
		},
		"Base dir error falls back to relative app folder": {
			baseDir: func() (string, error) { return "", errors.New("error") },
			want:    constants.DefaultAppFolder,
		},
		"Base dir error ignores returned value": {
			baseDir: func() (string, error) { return "abc", errors.New("error") },
			want:    constants.DefaultAppFolder,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, constants.GetDefaultConfigPath(constants.WithBaseDir(tc.baseDir)), "GetDefaultConfigPath should use the base dir")
			assert.Equal(t, tc.want, constants.GetDefaultDataPath(constants.WithBaseDir(tc.baseDir)), "GetDefaultDataPath should use the base dir")
		})
	}
}
