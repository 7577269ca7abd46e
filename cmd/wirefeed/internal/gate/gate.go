// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package gate decides whether an item is recent enough to be forwarded.
package gate

import (
	"strings"
	"time"
)

// layouts are tried in order after the date string was normalized by
// ParseDate. A layout without an offset is parsed as UTC.
var layouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses a permissive ISO 8601 timestamp. A "Z" suffix means UTC.
// Sub-second fractions are dropped together with anything after them, and the
// result is taken as UTC. A timestamp without an offset is also UTC.
//
// The second result is false when s can't be parsed.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.ReplaceAll(s, "Z", "+00:00")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i] + "+00:00"
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Gate holds the session threshold: items published before it are stale.
type Gate struct {
	threshold time.Time
}

// New returns a Gate whose threshold is buffer before start.
func New(start time.Time, buffer time.Duration) *Gate {
	return &Gate{threshold: start.UTC().Add(-buffer)}
}

// Threshold returns the earliest accepted publish time.
func (g *Gate) Threshold() time.Time { return g.threshold }

// Allow reports whether an item published at date passes the gate. Absent
// and unparsable dates pass. A date strictly before the threshold is
// rejected; one equal to it passes.
func (g *Gate) Allow(date string) bool {
	t, ok := ParseDate(date)
	if !ok {
		return true
	}
	return !t.Before(g.threshold)
}
