package format

import (
	"cmp"
	"slices"
	"time"

	"gdformat/internal/model"
)

// Group collects entries by calendar date and orders them for printing:
// dates ascending, then time of day, then location. Entries that tie on all
// three keep their input order. The input slice is not modified.
func Group(entries []model.NormalizedEntry) []model.DateGroup {
	if len(entries) == 0 {
		return nil
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, compareEntries)

	groups := make([]model.DateGroup, 0)
	for _, e := range sorted {
		if n := len(groups); n > 0 && dayKey(groups[n-1].Date) == dayKey(e.Start) {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, model.DateGroup{
			Date:    dateOf(e.Start),
			Entries: []model.NormalizedEntry{e},
		})
	}
	return groups
}

func compareEntries(a, b model.NormalizedEntry) int {
	if c := cmp.Compare(dayKey(a.Start), dayKey(b.Start)); c != 0 {
		return c
	}
	if c := cmp.Compare(clockOf(a.Start), clockOf(b.Start)); c != 0 {
		return c
	}
	return cmp.Compare(a.Location, b.Location)
}

// Dates and times compare on the wall clock of each start, so entries
// carrying different zones still share a group when their printed date
// matches.

// dateOf truncates t to midnight in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dayKey is the calendar date of t as yyyymmdd.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// clockOf is the printed time of day in minutes since midnight.
func clockOf(t time.Time) int {
	h, m, _ := t.Clock()
	return h*60 + m
}
