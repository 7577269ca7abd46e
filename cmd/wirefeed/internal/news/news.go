// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package news maps raw feed records to news items and decides which of them
// are forwarded.
package news

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/envelope"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/gate"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/sanitize"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/signature"
)

// Defaults for absent fields.
const (
	DefaultTitle = "No Title"
	DefaultLevel = "N/A"
)

// Field name candidates, tried in order. The first present value wins.
var (
	TitleFields       = []string{"Title", "FJTitle"}
	DateFields        = []string{"PublishedDate", "PublishDate"}
	DescriptionFields = []string{"Description"}
	LevelFields       = []string{"Level"}
	IDFields          = []string{"NewsID", "Id"}
	LinkFields        = []string{"Link", "Url"}
	ImageFields       = []string{"Image"}
)

// Item is a news item ready for formatting.
type Item struct {
	Title       string
	Description string
	PublishDate string // as received, empty if absent
	Tags        []string
	Labels      []string
	Level       string
	Breaking    bool
	Actual      string // empty if absent
	Forecast    string
	Previous    string
	ID          string
	Link        string
	Image       string
	Signature   string
}

// HasData reports whether the item carries any economic data point.
func (it *Item) HasData() bool {
	return it.Actual != "" || it.Forecast != "" || it.Previous != ""
}

// Verdict is the outcome of [Normalizer.Normalize].
type Verdict int

const (
	// Accepted items are to be forwarded.
	Accepted Verdict = iota
	// Blacklisted items have a title containing a blacklisted term.
	Blacklisted
	// Blocked items were rejected by the configured block rule.
	Blocked
	// Duplicate items have a signature that was already seen.
	Duplicate
	// Stale items were published before the session threshold.
	Stale
)

var verdictNames = [...]string{
	Accepted:    "accepted",
	Blacklisted: "blacklisted",
	Blocked:     "blocked",
	Duplicate:   "duplicate",
	Stale:       "stale",
}

func (v Verdict) String() string {
	if v >= 0 && int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return "unknown"
}

// Normalizer turns records into items. The zero value is not usable: Store
// and Gate must be set.
type Normalizer struct {
	// Blacklist terms are matched case-insensitively anywhere in the title.
	Blacklist []string
	// Store remembers signatures of items that got past the blacklist.
	Store signature.Store
	// Gate rejects items published before the session threshold.
	Gate *gate.Gate
	// BlockRule, if set, is consulted after the blacklist. Returning true
	// drops the item.
	BlockRule func(*Item) bool
}

// Normalize builds an Item from rec and applies, in order: blacklist, block
// rule, signature check and temporal gate.
//
// The signature is recorded before the temporal gate runs, so a stale item
// also blocks later copies of itself.
func (n *Normalizer) Normalize(rec envelope.Record) (*Item, Verdict) {
	it := Parse(rec)

	if n.blacklisted(it.Title) {
		return it, Blacklisted
	}
	if n.BlockRule != nil && n.BlockRule(it) {
		return it, Blocked
	}
	if !signature.Claim(n.Store, it.Signature) {
		return it, Duplicate
	}
	if !n.Gate.Allow(it.PublishDate) {
		return it, Stale
	}
	return it, Accepted
}

func (n *Normalizer) blacklisted(title string) bool {
	title = strings.ToLower(title)
	for _, term := range n.Blacklist {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(title, term) {
			return true
		}
	}
	return false
}

// Parse extracts an Item from rec without filtering it.
func Parse(rec envelope.Record) *Item {
	it := &Item{
		Title:       sanitize.Text(first(rec, TitleFields)),
		Description: sanitize.Text(first(rec, DescriptionFields)),
		PublishDate: first(rec, DateFields),
		Tags:        tagNames(rec["Tags"]),
		Labels:      labelList(rec["Labels"]),
		Level:       first(rec, LevelFields),
		Breaking:    boolean(rec["Breaking"]),
		Actual:      scalar(rec["Actual"]),
		Forecast:    scalar(rec["Forecast"]),
		Previous:    scalar(rec["Previous"]),
		ID:          first(rec, IDFields),
		Link:        first(rec, LinkFields),
		Image:       first(rec, ImageFields),
	}
	if it.Title == "" {
		it.Title = DefaultTitle
	}
	if it.Level == "" {
		it.Level = DefaultLevel
	}
	it.Signature = signature.Fingerprint(it.Title, it.PublishDate)
	return it
}

func first(rec envelope.Record, fields []string) string {
	for _, f := range fields {
		if s := scalar(rec[f]); s != "" {
			return s
		}
	}
	return ""
}

// scalar renders a JSON scalar as text. Absent, null and composite values
// render as "".
func scalar(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any, map[string]any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func boolean(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case json.Number:
		n, err := v.Float64()
		return err == nil && n != 0
	}
	return false
}

// tagNames accepts both [{"Name": "..."}] and ["..."].
func tagNames(v any) []string {
	list, _ := v.([]any)
	var names []string
	for _, elem := range list {
		var name string
		switch elem := elem.(type) {
		case map[string]any:
			name = scalar(elem["Name"])
		default:
			name = scalar(elem)
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func labelList(v any) []string {
	list, _ := v.([]any)
	var out []string
	for _, elem := range list {
		if s := strings.TrimSpace(scalar(elem)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
