package format

import (
	"strings"

	"gdformat/internal/locale"
	"gdformat/internal/model"
)

// Render produces the publication text: one header line per date group,
// one line per entry, a blank line between groups and no trailing newline.
//
//	Sonntag, 1. Juni:
//	Albersdorf, St. Remigius Kirche: 9.30 Uhr, Gd., P. Keppel
func Render(groups []model.DateGroup) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(locale.FormatDate(g.Date))
		b.WriteString(":")
		for _, e := range g.Entries {
			b.WriteString("\n")
			b.WriteString(EntryLine(e))
		}
	}
	return b.String()
}

// EntryLine formats a single entry as "<location>: <time>, <type>[, <officiant>]".
func EntryLine(e model.NormalizedEntry) string {
	line := e.Location + ": " + e.Time + ", " + e.ServiceType
	if e.HasOfficiant() {
		line += ", " + e.Officiant
	}
	return line
}
