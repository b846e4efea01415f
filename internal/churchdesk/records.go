package churchdesk

import (
	"strconv"
	"strings"
	"time"

	"gdformat/internal/model"
)

// Start parses StartDate (ISO 8601, usually UTC with a "Z" suffix).
func (e Event) Start() (time.Time, bool) {
	s := strings.TrimSpace(e.StartDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parishTitle is the first parish's title, or "".
func (e Event) parishTitle() string {
	if len(e.Parishes) == 0 {
		return ""
	}
	return strings.TrimSpace(e.Parishes[0].Title)
}

// Completeness reports which fields the publication needs are missing.
type Completeness struct {
	Missing  []string `json:"missing_fields"`
	Score    float64  `json:"completeness_score"`
	Complete bool     `json:"is_complete"`
}

// Analyze checks title, startDate, location, contributor and parishes.
func Analyze(e Event) Completeness {
	checks := []struct {
		name string
		ok   bool
	}{
		{"title", strings.TrimSpace(e.Title) != ""},
		{"startDate", strings.TrimSpace(e.StartDate) != ""},
		{"location", strings.TrimSpace(e.LocationName) != "" || strings.TrimSpace(e.Location) != ""},
		{"contributor", strings.TrimSpace(e.Contributor) != ""},
		{"parishes", len(e.Parishes) > 0},
	}

	var c Completeness
	for _, ch := range checks {
		if !ch.ok {
			c.Missing = append(c.Missing, ch.name)
		}
	}
	c.Score = float64(len(checks)-len(c.Missing)) / float64(len(checks))
	c.Complete = len(c.Missing) == 0
	return c
}

// ToRecord maps an event onto a service record. locationName wins over
// location; the first parish is the fallback. An unreadable startDate
// leaves Start zero so the formatter reports the event. loc is the display
// zone; nil keeps UTC.
func ToRecord(e Event, row int, loc *time.Location) model.ServiceRecord {
	primary := strings.TrimSpace(e.LocationName)
	if primary == "" {
		primary = strings.TrimSpace(e.Location)
	}

	rec := model.ServiceRecord{
		SourceID:         sourceID(e),
		Row:              row,
		Title:            e.Title,
		LocationPrimary:  primary,
		LocationFallback: e.parishTitle(),
		Officiant:        e.Contributor,
	}
	if t, ok := e.Start(); ok {
		if loc != nil {
			t = t.In(loc)
		}
		rec.Start = t
	}
	return rec
}

func sourceID(e Event) string {
	id := "churchdesk:" + strconv.Itoa(e.ID)
	if e.OrganizationName != "" {
		return e.OrganizationName + " (" + id + ")"
	}
	return id
}
