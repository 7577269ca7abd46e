// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package format

import (
	"strings"
	"testing"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/news"
	"go.astrophena.name/wirefeed/internal/testutil"
)

func TestIcon(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		item *news.Item
		want string
	}{
		"default":                 {item: &news.Item{}, want: IconDefault},
		"breaking":                {item: &news.Item{Breaking: true}, want: IconBreaking},
		"index label":             {item: &news.Item{Labels: []string{"Macro", "Stock Index"}}, want: IconIndex},
		"indices label":           {item: &news.Item{Labels: []string{"Indices"}}, want: IconIndex},
		"breaking beats index":    {item: &news.Item{Breaking: true, Labels: []string{"Index"}}, want: IconBreaking},
		"match is case-sensitive": {item: &news.Item{Labels: []string{"index"}}, want: IconDefault},
		"tags are not labels":     {item: &news.Item{Tags: []string{"Index"}}, want: IconDefault},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, Icon(tc.item), tc.want)
		})
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		item *news.Item
		want string
	}{
		"minimal": {
			item: &news.Item{Title: "Fed Holds Rates", Level: news.DefaultLevel},
			want: "📰 <b>Fed Holds Rates</b>\n\n" +
				"<b>🔍 INFO:</b>\n" +
				"🔸 <b>Lvl:</b> <code>N/A</code>\n" +
				"🔸 <b>Brk:</b> <code>false</code>\n" +
				"🔸 <b>Tgs:</b> None\n" +
				"🔸 <b>Lbl:</b> None\n" +
				"\n#Full_Analysis #FinancialJuice",
		},
		"breaking with data": {
			item: &news.Item{
				Title:       "US CPI",
				Description: "Hotter than expected\nCore steady",
				Tags:        []string{"USD", "Inflation"},
				Labels:      []string{"Macro"},
				Level:       "High",
				Breaking:    true,
				Actual:      "3.4%",
				Forecast:    "3.2%",
			},
			want: "🚨 <b>US CPI</b>\n\n" +
				"📝 <i>Hotter than expected\nCore steady</i>\n\n" +
				"<b>🔍 INFO:</b>\n" +
				"🔸 <b>Lvl:</b> <code>High</code>\n" +
				"🔸 <b>Brk:</b> <code>true</code>\n" +
				"🔸 <b>Tgs:</b> USD, Inflation\n" +
				"🔸 <b>Lbl:</b> Macro\n" +
				"\n<b>📊 DATA:</b>\n" +
				"Act: 3.4% | Fcst: 3.2% | Prev: None\n" +
				"\n#Full_Analysis #FinancialJuice",
		},
		"previous only still shows data": {
			item: &news.Item{Title: "GDP", Level: "Medium", Previous: "1.1"},
			want: "📰 <b>GDP</b>\n\n" +
				"<b>🔍 INFO:</b>\n" +
				"🔸 <b>Lvl:</b> <code>Medium</code>\n" +
				"🔸 <b>Brk:</b> <code>false</code>\n" +
				"🔸 <b>Tgs:</b> None\n" +
				"🔸 <b>Lbl:</b> None\n" +
				"\n<b>📊 DATA:</b>\n" +
				"Act: None | Fcst: None | Prev: 1.1\n" +
				"\n#Full_Analysis #FinancialJuice",
		},
		"optional identifiers": {
			item: &news.Item{
				Title:  "DAX opens higher",
				Labels: []string{"Indices"},
				Level:  "Low",
				ID:     "8123",
				Link:   "https://example.com/n?id=8123&x=1",
				Image:  "https://example.com/8123.png",
			},
			want: "📉 <b>DAX opens higher</b>\n\n" +
				"<b>🔍 INFO:</b>\n" +
				"🔸 <b>Lvl:</b> <code>Low</code>\n" +
				"🔸 <b>Brk:</b> <code>false</code>\n" +
				"🔸 <b>Tgs:</b> None\n" +
				"🔸 <b>Lbl:</b> Indices\n" +
				"🔸 <b>ID:</b> <code>8123</code>\n" +
				"🔸 <b>Url:</b> https://example.com/n?id=8123&amp;x=1\n" +
				"🔸 <b>Img:</b> https://example.com/8123.png\n" +
				"\n#Full_Analysis #FinancialJuice",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, Render(tc.item), tc.want)
		})
	}
}

func TestRenderEscapes(t *testing.T) {
	t.Parallel()

	got := Render(&news.Item{
		Title:       "S&P < 5000",
		Description: "<script>",
		Tags:        []string{"A&B"},
		Level:       news.DefaultLevel,
	})
	for _, want := range []string{"<b>S&amp;P &lt; 5000</b>", "<i>&lt;script&gt;</i>", "Tgs:</b> A&amp;B"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered message does not contain %q:\n%s", want, got)
		}
	}
}

func TestRenderDoesNotTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 5000)
	got := Render(&news.Item{Title: "T", Description: long, Level: news.DefaultLevel})
	if !strings.Contains(got, long) {
		t.Fatal("description was truncated")
	}
}
