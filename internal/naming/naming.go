// Package naming holds the folder and file naming conventions of a test-day tree.
// It is the only place where date and venue are parsed out of folder names.
package naming

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/trackside/testday/internal/constants"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// testDayPattern matches "YYYY-M-D - Venue" and "YYYY-M-D_Venue" style segments.
var testDayPattern = regexp.MustCompile(`^\s*(\d{4})-(\d{1,2})-(\d{1,2})\s*[-_][-_\s]*(.+?)\s*$`)

var folder = cases.Fold()

// Match is the date and venue embedded in a test-day folder name.
type Match struct {
	Date  civil.Date
	Venue string
}

// MatchTestDayFolder reports whether segment is a test-day folder name and returns its parts.
// The date must be a real calendar date.
func MatchTestDayFolder(segment string) (Match, bool) {
	m := testDayPattern.FindStringSubmatch(segment)
	if m == nil {
		return Match{}, false
	}

	// The pattern guarantees digits, so conversions cannot fail.
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return Match{}, false
	}

	venue := strings.TrimSpace(m[4])
	if venue == "" {
		return Match{}, false
	}
	return Match{Date: d, Venue: venue}, true
}

// IsTelemetryFile reports whether filename carries the telemetry extension.
func IsTelemetryFile(filename string) bool {
	return hasSuffixFold(filename, constants.TelemetryExt)
}

// IsDayMetadataFile reports whether filename is the day-level metadata marker.
func IsDayMetadataFile(filename string) bool {
	return strings.EqualFold(filename, constants.DayMetadataFileName)
}

// IsSetupFile reports whether the file at p, named filename, is a setup document.
// One of the directories of p must be the setup directory.
func IsSetupFile(p, filename string) bool {
	if !hasSuffixFold(filename, constants.SetupExt) {
		return false
	}
	return setupIndex(SplitPath(p)) >= 0
}

// SetupKey returns the identity of the setup document at p: its path below the setup directory.
// It returns p unchanged if p is not below a setup directory.
func SetupKey(p string) string {
	segs := SplitPath(p)
	i := setupIndex(segs)
	if i < 0 {
		return p
	}
	return strings.Join(segs[i+1:], "/")
}

// TestDayKey returns the normalized identity of a test day.
// Different spellings of the same date and venue share a key.
func TestDayKey(m Match) string {
	venue := norm.NFC.String(m.Venue)
	venue = strings.Join(strings.Fields(venue), " ")
	venue = folder.String(venue)
	return fmt.Sprintf("%04d-%02d-%02d - %s", m.Date.Year, int(m.Date.Month), m.Date.Day, venue)
}

// SplitPath splits a slash separated relative path into its non-empty segments.
func SplitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// FileName returns the final segment of a slash separated path.
func FileName(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// setupIndex returns the index of the first directory segment naming the setup directory, or -1.
func setupIndex(segs []string) int {
	for i := 0; i < len(segs)-1; i++ {
		if strings.EqualFold(segs[i], constants.SetupDirName) {
			return i
		}
	}
	return -1
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) > len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
