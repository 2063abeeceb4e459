// Package runid generates and parses organizer run identifiers.
//
// A run ID is a local timestamp followed by eight hex characters from a random
// UUID, for example "20260314093000-1f2e3d4c". The timestamp keeps workspace
// directories sortable and the suffix keeps two runs started in the same
// second apart.
package runid

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "20060102150405"

var pattern = regexp.MustCompile(`^\d{14}-[0-9a-f]{8}$`)

// New returns a fresh run ID stamped with now.
func New(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.Format(timestampLayout) + "-" + suffix
}

// Valid reports whether s has the run ID shape.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// Time returns the timestamp encoded in a run ID.
func Time(id string) (time.Time, bool) {
	if !Valid(id) {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, id[:len(timestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
