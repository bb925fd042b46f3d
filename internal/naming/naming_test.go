package naming_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackside/testday/internal/naming"
)

func TestMatchTestDayFolder(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		segment string

		wantDate  civil.Date
		wantVenue string
		wantNone  bool
	}{
		"Dash separator with spaces": {segment: "2025-4-11 - Villa", wantDate: date(2025, 4, 11), wantVenue: "Villa"},
		"Two digit month and day":    {segment: "2025-12-25 - Test Track", wantDate: date(2025, 12, 25), wantVenue: "Test Track"},
		"Underscore separator":       {segment: "2025-4-11_Villa", wantDate: date(2025, 4, 11), wantVenue: "Villa"},
		"Padded underscore":          {segment: "2025-04-09 _ Circuit Zolder", wantDate: date(2025, 4, 9), wantVenue: "Circuit Zolder"},
		"Repeated separators":        {segment: "2025-4-11 -- Villa", wantDate: date(2025, 4, 11), wantVenue: "Villa"},
		"Surrounding whitespace":     {segment: "  2024-2-29 - Assen  ", wantDate: date(2024, 2, 29), wantVenue: "Assen"},
		"Venue keeps inner dashes":   {segment: "2025-6-1 - Spa-Francorchamps", wantDate: date(2025, 6, 1), wantVenue: "Spa-Francorchamps"},
		"Lowercase venue":            {segment: "2025-6-1_villa", wantDate: date(2025, 6, 1), wantVenue: "villa"},

		"No date":                 {segment: "Villa", wantNone: true},
		"No separator":            {segment: "2025-4-11Villa", wantNone: true},
		"No venue":                {segment: "2025-4-11 - ", wantNone: true},
		"Separator only":          {segment: "2025-4-11_", wantNone: true},
		"Two digit year":          {segment: "25-4-11 - Villa", wantNone: true},
		"Three digit month":       {segment: "2025-004-11 - Villa", wantNone: true},
		"Month out of range":      {segment: "2025-13-11 - Villa", wantNone: true},
		"Day out of range":        {segment: "2025-2-30 - Villa", wantNone: true},
		"Zero day":                {segment: "2025-2-0 - Villa", wantNone: true},
		"Non leap year":           {segment: "2025-2-29 - Villa", wantNone: true},
		"Date not at start":       {segment: "Day 2025-4-11 - Villa", wantNone: true},
		"Slash separated date":    {segment: "2025/4/11 - Villa", wantNone: true},
		"Space only as separator": {segment: "2025-4-11 Villa", wantNone: true},
		"Empty":                   {segment: "", wantNone: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := naming.MatchTestDayFolder(tc.segment)
			if tc.wantNone {
				require.False(t, ok, "MatchTestDayFolder should not match %q", tc.segment)
				require.Equal(t, naming.Match{}, got, "MatchTestDayFolder should return a zero Match when not matching")
				return
			}
			require.True(t, ok, "MatchTestDayFolder should match %q", tc.segment)
			assert.Equal(t, tc.wantDate, got.Date, "MatchTestDayFolder should extract the embedded date")
			assert.Equal(t, tc.wantVenue, got.Venue, "MatchTestDayFolder should extract the embedded venue")
		})
	}
}

func TestIsTelemetryFile(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		filename string
		want     bool
	}{
		"Lowercase extension": {filename: "run1.xrk", want: true},
		"Uppercase extension": {filename: "RUN1.XRK", want: true},
		"Mixed case":          {filename: "Run 3.Xrk", want: true},

		"Other extension":       {filename: "run1.xrz", want: false},
		"Extension in the name": {filename: "run1.xrk.bak", want: false},
		"Extension only":        {filename: ".xrk", want: false},
		"No extension":          {filename: "xrk", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, naming.IsTelemetryFile(tc.filename), "IsTelemetryFile returned an unexpected result")
		})
	}
}

func TestIsDayMetadataFile(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		filename string
		want     bool
	}{
		"Exact name":      {filename: "testday.json", want: true},
		"Different case":  {filename: "TestDay.JSON", want: true},
		"Other json file": {filename: "notes.json", want: false},
		"Prefixed name":   {filename: "old-testday.json", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, naming.IsDayMetadataFile(tc.filename), "IsDayMetadataFile returned an unexpected result")
		})
	}
}

func TestIsSetupFile(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path string
		want bool
	}{
		"Top level setup":          {path: "Setups/baseline.json", want: true},
		"Nested setup":             {path: "Setups/2025/wet/baseline.json", want: true},
		"Setups below another dir": {path: "team/Setups/baseline.json", want: true},
		"Lowercase directory":      {path: "setups/baseline.json", want: true},
		"Uppercase extension":      {path: "Setups/baseline.JSON", want: true},

		"Not under setups":        {path: "2025-4-11 - Villa/baseline.json", want: false},
		"Not json":                {path: "Setups/baseline.txt", want: false},
		"File named like the dir": {path: "team/Setups", want: false},
		"Similar directory":       {path: "OldSetups/baseline.json", want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := naming.IsSetupFile(tc.path, naming.FileName(tc.path))
			assert.Equal(t, tc.want, got, "IsSetupFile returned an unexpected result")
		})
	}
}

func TestSetupKey(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path string
		want string
	}{
		"Directly inside":      {path: "Setups/baseline.json", want: "baseline.json"},
		"Nested":               {path: "Setups/wet/baseline.json", want: "wet/baseline.json"},
		"Below another dir":    {path: "team/Setups/baseline.json", want: "baseline.json"},
		"First setups wins":    {path: "Setups/Setups/baseline.json", want: "Setups/baseline.json"},
		"Not under setups":     {path: "notes/baseline.json", want: "notes/baseline.json"},
		"Redundant separators": {path: "Setups//baseline.json", want: "baseline.json"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, naming.SetupKey(tc.path), "SetupKey returned an unexpected key")
		})
	}
}

func TestTestDayKey(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		segments []string
		want     string
	}{
		"Single spelling":            {segments: []string{"2025-4-11 - Villa"}, want: "2025-04-11 - villa"},
		"Padding and separator":      {segments: []string{"2025-4-11 - Villa", "2025-04-11_villa", " 2025-4-11 _ VILLA "}, want: "2025-04-11 - villa"},
		"Inner whitespace collapsed": {segments: []string{"2025-12-25 - Test  Track", "2025-12-25_Test Track"}, want: "2025-12-25 - test track"},
		"Unicode normalization":      {segments: []string{"2025-5-3 - N\u00fcrburgring", "2025-5-3 - Nu\u0308rburgring"}, want: "2025-05-03 - n\u00fcrburgring"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			for _, s := range tc.segments {
				m, ok := naming.MatchTestDayFolder(s)
				require.True(t, ok, "Setup: %q should be a test-day folder", s)
				assert.Equal(t, tc.want, naming.TestDayKey(m), "TestDayKey should be the same for every spelling of %q", s)
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path string
		want []string
	}{
		"Simple":            {path: "a/b/c.xrk", want: []string{"a", "b", "c.xrk"}},
		"Leading slash":     {path: "/a/b", want: []string{"a", "b"}},
		"Duplicate slashes": {path: "a//b/", want: []string{"a", "b"}},
		"Spaces preserved":  {path: "2025-4-11 - Villa/run 1.xrk", want: []string{"2025-4-11 - Villa", "run 1.xrk"}},
		"Empty":             {path: "", want: []string{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := naming.SplitPath(tc.path)
			if len(tc.want) == 0 {
				assert.Empty(t, got, "SplitPath should return no segments")
				return
			}
			assert.Equal(t, tc.want, got, "SplitPath returned unexpected segments")
		})
	}
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}
