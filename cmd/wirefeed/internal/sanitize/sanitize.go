// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sanitize turns HTML-bearing feed text into clean plain text.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	paragraphEnd = regexp.MustCompile(`</p>`)
	lineBreak    = regexp.MustCompile(`<br\s*/?>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
)

// Text decodes HTML entities, turns paragraph ends and line breaks into
// newlines, strips the remaining tags and returns the non-empty trimmed lines
// joined with "\n".
//
// Text is idempotent: Text(Text(s)) == Text(s). Entities that decode into
// markup (for example "&amp;lt;b&amp;gt;") are processed until nothing
// changes.
func Text(s string) string {
	// A pass that changes s either removes an ampersand or, decoding "&amp;",
	// makes s shorter without adding one, so the loop terminates.
	for {
		next := pass(s)
		if next == s {
			return s
		}
		s = next
	}
}

func pass(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = paragraphEnd.ReplaceAllString(s, "\n")
	s = lineBreak.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
