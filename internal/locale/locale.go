// Package locale renders dates and times the way the print outlet expects
// them in its German service listings.
package locale

import (
	"strconv"
	"time"
)

// weekdayNames is indexed by time.Weekday (Sunday first). Saturday is
// "Sonnabend", the northern German form used by the publication.
var weekdayNames = [...]string{
	time.Sunday:    "Sonntag",
	time.Monday:    "Montag",
	time.Tuesday:   "Dienstag",
	time.Wednesday: "Mittwoch",
	time.Thursday:  "Donnerstag",
	time.Friday:    "Freitag",
	time.Saturday:  "Sonnabend",
}

var monthNames = [...]string{
	time.January:   "Januar",
	time.February:  "Februar",
	time.March:     "März",
	time.April:     "April",
	time.May:       "Mai",
	time.June:      "Juni",
	time.July:      "Juli",
	time.August:    "August",
	time.September: "September",
	time.October:   "Oktober",
	time.November:  "November",
	time.December:  "Dezember",
}

// WeekdayName returns the German name of d.
func WeekdayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdayNames[d]
}

// MonthName returns the German name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m]
}

// FormatDate formats t as "<Weekday>, <day>. <Month>", e.g.
// "Sonntag, 1. Juni". The year is never printed.
func FormatDate(t time.Time) string {
	return WeekdayName(t.Weekday()) + ", " + strconv.Itoa(t.Day()) + ". " + MonthName(t.Month())
}

// FormatTime formats the time of day of t as "9.30 Uhr", or "9 Uhr" when
// the minute is zero. Hours are 24-hour and not padded.
func FormatTime(t time.Time) string {
	h, m := t.Hour(), t.Minute()
	if m == 0 {
		return strconv.Itoa(h) + " Uhr"
	}
	mm := strconv.Itoa(m)
	if m < 10 {
		mm = "0" + mm
	}
	return strconv.Itoa(h) + "." + mm + " Uhr"
}
