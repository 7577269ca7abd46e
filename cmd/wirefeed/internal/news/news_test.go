// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package news

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/envelope"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/gate"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/signature"
	"go.astrophena.name/wirefeed/internal/testutil"
)

func record(t *testing.T, s string) envelope.Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var rec envelope.Record
	if err := dec.Decode(&rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestParse(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   string
		want *Item
	}{
		"full record": {
			in: `{
				"NewsID": 8123,
				"Title": "<b>US CPI</b> &amp; Core",
				"Description": "<p>Line one</p><p>Line two</p>",
				"PublishedDate": "2024-01-01T12:00:00Z",
				"Tags": [{"Name": "USD"}, {"Name": "Inflation"}],
				"Labels": ["Macro", "US"],
				"Level": "High",
				"Breaking": true,
				"Actual": "3.4%",
				"Forecast": 3.2,
				"Previous": null,
				"Link": "https://example.com/n/8123"
			}`,
			want: &Item{
				Title:       "US CPI & Core",
				Description: "Line one\nLine two",
				PublishDate: "2024-01-01T12:00:00Z",
				Tags:        []string{"USD", "Inflation"},
				Labels:      []string{"Macro", "US"},
				Level:       "High",
				Breaking:    true,
				Actual:      "3.4%",
				Forecast:    "3.2",
				ID:          "8123",
				Link:        "https://example.com/n/8123",
				Signature:   signature.Fingerprint("US CPI & Core", "2024-01-01T12:00:00Z"),
			},
		},
		"alternate field names": {
			in: `{"FJTitle": "Oil rises", "PublishDate": "2024-01-01T12:00:00", "Id": "x1", "Url": "https://example.com/x1", "Image": "https://example.com/x1.png"}`,
			want: &Item{
				Title:       "Oil rises",
				PublishDate: "2024-01-01T12:00:00",
				Level:       DefaultLevel,
				ID:          "x1",
				Link:        "https://example.com/x1",
				Image:       "https://example.com/x1.png",
				Signature:   signature.Fingerprint("Oil rises", "2024-01-01T12:00:00"),
			},
		},
		"first candidate wins": {
			in: `{"Title": "Primary", "FJTitle": "Secondary", "PublishedDate": "2024-01-02", "PublishDate": "2024-01-01"}`,
			want: &Item{
				Title:       "Primary",
				PublishDate: "2024-01-02",
				Level:       DefaultLevel,
				Signature:   signature.Fingerprint("Primary", "2024-01-02"),
			},
		},
		"empty title falls through": {
			in: `{"Title": "", "FJTitle": "Fallback"}`,
			want: &Item{
				Title:     "Fallback",
				Level:     DefaultLevel,
				Signature: signature.Fingerprint("Fallback", ""),
			},
		},
		"defaults": {
			in: `{}`,
			want: &Item{
				Title:     DefaultTitle,
				Level:     DefaultLevel,
				Signature: signature.Fingerprint(DefaultTitle, ""),
			},
		},
		"plain string tags and junk": {
			in: `{"Title": "T", "Tags": ["EUR", {"Name": ""}, {"Other": 1}, 5], "Labels": "not a list", "Breaking": "true"}`,
			want: &Item{
				Title:     "T",
				Tags:      []string{"EUR", "5"},
				Level:     DefaultLevel,
				Breaking:  true,
				Signature: signature.Fingerprint("T", ""),
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, Parse(record(t, tc.in)), tc.want)
		})
	}
}

func TestHasData(t *testing.T) {
	t.Parallel()

	testutil.AssertEqual(t, (&Item{}).HasData(), false)
	testutil.AssertEqual(t, (&Item{Previous: "1"}).HasData(), true)
	testutil.AssertEqual(t, (&Item{Actual: "0"}).HasData(), true)
}

func newNormalizer(blacklist ...string) *Normalizer {
	return &Normalizer{
		Blacklist: blacklist,
		Store:     signature.NewMemory(),
		Gate:      gate.New(time.Date(2024, 1, 1, 12, 2, 0, 0, time.UTC), 2*time.Minute),
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		blacklist []string
		records   []string
		want      []Verdict
	}{
		"fresh item": {
			records: []string{`{"Title":"Fed Holds Rates","PublishedDate":"2024-01-01T12:00:00Z","Breaking":true}`},
			want:    []Verdict{Accepted},
		},
		"replayed item": {
			records: []string{
				`{"Title":"Fed Holds Rates","PublishedDate":"2024-01-01T12:00:00Z"}`,
				`{"Title":"Fed Holds Rates","PublishedDate":"2024-01-01T12:00:00Z"}`,
			},
			want: []Verdict{Accepted, Duplicate},
		},
		"both without date collide": {
			records: []string{`{"Title":"No date"}`, `{"FJTitle":"No date"}`},
			want:    []Verdict{Accepted, Duplicate},
		},
		"same title different date": {
			records: []string{
				`{"Title":"CPI","PublishedDate":"2024-01-01T12:00:00Z"}`,
				`{"Title":"CPI","PublishedDate":"2024-01-01T12:05:00Z"}`,
			},
			want: []Verdict{Accepted, Accepted},
		},
		"stale item consumes signature": {
			records: []string{
				`{"Title":"Old","PublishedDate":"2023-12-31T00:00:00Z"}`,
				`{"Title":"Old","PublishedDate":"2023-12-31T00:00:00Z"}`,
			},
			want: []Verdict{Stale, Duplicate},
		},
		"unparsable date passes": {
			records: []string{`{"Title":"Odd","PublishedDate":"someday"}`},
			want:    []Verdict{Accepted},
		},
		"blacklist is case-insensitive substring": {
			blacklist: []string{"crypto"},
			records: []string{
				`{"Title":"Bitcoin CRYPTOcurrency rally","PublishedDate":"2030-01-01T00:00:00Z"}`,
				`{"Title":"Bitcoin CRYPTOcurrency rally","PublishedDate":"2030-01-01T00:00:00Z"}`,
			},
			want: []Verdict{Blacklisted, Blacklisted},
		},
		"blank blacklist terms are ignored": {
			blacklist: []string{"", "  "},
			records:   []string{`{"Title":"Anything"}`},
			want:      []Verdict{Accepted},
		},
		"blacklist matches sanitized title": {
			blacklist: []string{"s&p"},
			records:   []string{`{"Title":"S&amp;P 500 opens higher"}`},
			want:      []Verdict{Blacklisted},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			n := newNormalizer(tc.blacklist...)
			var got []Verdict
			for _, r := range tc.records {
				_, v := n.Normalize(record(t, r))
				got = append(got, v)
			}
			testutil.AssertEqual(t, got, tc.want)
		})
	}
}

func TestNormalizeBlacklistDoesNotConsumeSignature(t *testing.T) {
	t.Parallel()

	n := newNormalizer("rally")
	it, v := n.Normalize(record(t, `{"Title":"Stocks rally"}`))
	testutil.AssertEqual(t, v, Blacklisted)
	testutil.AssertEqual(t, n.Store.Contains(it.Signature), false)
}

func TestNormalizeBlockRule(t *testing.T) {
	t.Parallel()

	n := newNormalizer()
	n.BlockRule = func(it *Item) bool { return it.Level == "Low" }

	_, v := n.Normalize(record(t, `{"Title":"Minor","Level":"Low"}`))
	testutil.AssertEqual(t, v, Blocked)
	_, v = n.Normalize(record(t, `{"Title":"Major","Level":"High"}`))
	testutil.AssertEqual(t, v, Accepted)
}

func TestVerdictString(t *testing.T) {
	t.Parallel()

	testutil.AssertEqual(t, Stale.String(), "stale")
	testutil.AssertEqual(t, Verdict(42).String(), "unknown")
}
