// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package sanitize

import (
	"strings"
	"testing"

	"go.astrophena.name/wirefeed/internal/testutil"
)

func TestText(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   string
		want string
	}{
		"empty":              {in: "", want: ""},
		"plain":              {in: "Fed Holds Rates", want: "Fed Holds Rates"},
		"paragraphs":         {in: "<p>A</p><p>B</p>", want: "A\nB"},
		"line breaks":        {in: "one<br>two<br/>three<br />four", want: "one\ntwo\nthree\nfour"},
		"entities":           {in: "S&amp;P 500 &gt; 5000", want: "S&P 500 > 5000"},
		"nested tags":        {in: `<div class="x"><b>Bold</b> <a href="/y">link</a></div>`, want: "Bold link"},
		"whitespace lines":   {in: "  a  \n\n   \n b ", want: "a\nb"},
		"only markup":        {in: "<p></p><br>", want: ""},
		"double encoded tag": {in: "&amp;lt;b&amp;gt;US&amp;lt;/b&amp;gt;", want: "US"},
		"nbsp":               {in: "&nbsp;EUR/USD&nbsp;", want: "EUR/USD"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, Text(tc.in), tc.want)
		})
	}
}

func TestTextDeeplyEncoded(t *testing.T) {
	t.Parallel()
	in := "&" + strings.Repeat("amp;", 12) + "lt;b&gt;Oil &" + strings.Repeat("amp;", 12) + "amp; gas"
	testutil.AssertEqual(t, Text(in), "Oil & gas")
}

func TestTextIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"<p>A</p><p>B</p>",
		"S&amp;P &lt;b&gt;",
		"&amp;amp;amp;",
		"<p>  Crude <br>oil </p>\n\n<i>rises</i>",
		"a < b > c",
		"&lt;",
		"&" + strings.Repeat("amp;", 10) + "lt;b&gt;x",
	}
	for _, in := range inputs {
		once := Text(in)
		testutil.AssertEqual(t, Text(once), once)
	}
}
