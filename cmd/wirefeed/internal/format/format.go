// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package format renders news items as Telegram HTML messages.
package format

import (
	"html"
	"strconv"
	"strings"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/news"
)

// Icons prefixing the title.
const (
	IconBreaking = "🚨"
	IconIndex    = "📉"
	IconDefault  = "📰"
)

// None is rendered in place of empty lists and missing data points.
const None = "None"

// Trailer ends every message.
const Trailer = "#Full_Analysis #FinancialJuice"

// indexTerms select [IconIndex] when found in any label.
var indexTerms = []string{"Index", "Indices"}

// Icon returns the icon for it. Breaking news wins over index labels.
func Icon(it *news.Item) string {
	if it.Breaking {
		return IconBreaking
	}
	for _, l := range it.Labels {
		for _, term := range indexTerms {
			if strings.Contains(l, term) {
				return IconIndex
			}
		}
	}
	return IconDefault
}

// Render returns the message text for it. Text fields are HTML-escaped. The
// result is never truncated.
func Render(it *news.Item) string {
	var sb strings.Builder

	sb.WriteString(Icon(it) + " <b>" + html.EscapeString(it.Title) + "</b>\n\n")
	if it.Description != "" {
		sb.WriteString("📝 <i>" + html.EscapeString(it.Description) + "</i>\n\n")
	}

	sb.WriteString("<b>🔍 INFO:</b>\n")
	sb.WriteString("🔸 <b>Lvl:</b> <code>" + html.EscapeString(it.Level) + "</code>\n")
	sb.WriteString("🔸 <b>Brk:</b> <code>" + strconv.FormatBool(it.Breaking) + "</code>\n")
	sb.WriteString("🔸 <b>Tgs:</b> " + list(it.Tags) + "\n")
	sb.WriteString("🔸 <b>Lbl:</b> " + list(it.Labels) + "\n")
	if it.ID != "" {
		sb.WriteString("🔸 <b>ID:</b> <code>" + html.EscapeString(it.ID) + "</code>\n")
	}
	if it.Link != "" {
		sb.WriteString("🔸 <b>Url:</b> " + html.EscapeString(it.Link) + "\n")
	}
	if it.Image != "" {
		sb.WriteString("🔸 <b>Img:</b> " + html.EscapeString(it.Image) + "\n")
	}

	if it.HasData() {
		sb.WriteString("\n<b>📊 DATA:</b>\n")
		sb.WriteString("Act: " + value(it.Actual) + " | Fcst: " + value(it.Forecast) + " | Prev: " + value(it.Previous) + "\n")
	}

	sb.WriteString("\n" + Trailer)
	return sb.String()
}

func list(vals []string) string {
	if len(vals) == 0 {
		return None
	}
	escaped := make([]string, len(vals))
	for i, v := range vals {
		escaped[i] = html.EscapeString(v)
	}
	return strings.Join(escaped, ", ")
}

func value(s string) string {
	if s == "" {
		return None
	}
	return html.EscapeString(s)
}
