package fileutils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackside/testday/internal/fileutils"
)

type st struct {
	Str string
	I   int
}

func TestUnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string

		want    []st
		wantErr bool
	}{
		"Empty list":       {input: `[]`, want: []st{}},
		"Single object":    {input: `[{"Str":"test","I":1}]`, want: []st{{Str: "test", I: 1}}},
		"Multiple objects": {input: `[{"Str":"test"},{"Str":"test2","I":2}]`, want: []st{{Str: "test"}, {Str: "test2", I: 2}}},

		"Error on empty input": {input: ``, wantErr: true},
		"Error on junk data":   {input: `"some junk data"`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := fileutils.UnmarshalJSON[[]st]([]byte(tc.input))
			if tc.wantErr {
				require.Error(t, err, "expected error but got none")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got, "unmarshalled data should match")
		})
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string

		want    st
		wantErr bool
	}{
		"Valid object": {input: `{"Str":"a","I":3}`, want: st{Str: "a", I: 3}},

		"Error on trailing data": {input: `{"Str":"a"} {}`, wantErr: true},
		"Error on invalid JSON":  {input: `{"Str":`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got st
			err := fileutils.ParseJSON(strings.NewReader(tc.input), &got)
			if tc.wantErr {
				require.Error(t, err, "expected error but got none")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got, "parsed data should match")
		})
	}
}
