package ics

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "gdformat/internal/log"
)

// ParsedEvent is a VEVENT reduced to what a service listing needs.
// Recurrence expansion operates on this type.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	Officiant   string

	Start  time.Time // zero if DTSTART is missing or unparseable
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present)
	IsOverride bool       // true if this VEVENT overrides one recurring instance
}

// ParseICS parses a single ICS payload. VEVENTs that cannot be read are
// logged and skipped; an unreadable calendar is an error.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	out.Summary = propValue(ve, ical.ComponentPropertySummary)
	out.Description = propValue(ve, ical.ComponentPropertyDescription)
	out.Location = propValue(ve, ical.ComponentPropertyLocation)
	out.Officiant = officiantOf(ve, out.Description)

	// A missing DTSTART is not fatal here; the formatter reports the row.
	if start, err := ve.GetStartAt(); err == nil {
		out.Start = start
	}
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	} else {
		out.End = out.Start
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		out.AllDay = !strings.Contains(p.Value, "T") || paramIs(p.ICalParameters, "VALUE", "DATE")
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	// EXDATE may repeat and may hold comma-separated lists.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, tzParam(p.ICalParameters)); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value, tzParam(p.ICalParameters)); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return unescapeText(p.Value)
	}
	return ""
}

// unescapeText undoes RFC 5545 TEXT escaping the parser leaves in place.
func unescapeText(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return strings.TrimSpace(r.Replace(s))
}

func paramIs(params map[string][]string, key, want string) bool {
	vs, ok := params[key]
	return ok && len(vs) > 0 && strings.EqualFold(vs[0], want)
}

func tzParam(params map[string][]string) *time.Location {
	if vs, ok := params["TZID"]; ok && len(vs) > 0 {
		if loc, err := time.LoadLocation(vs[0]); err == nil {
			return loc
		}
	}
	return time.Local
}

// officiantLine matches description lines such as "Mitwirkender: Pastor Keppel"
// or "Leitung: Pastorin Verwold".
var officiantLine = regexp.MustCompile(`(?im)^\s*(?:mitwirkende?r?|leitung|liturg(?:in)?|predigt)\s*:\s*(.+?)\s*$`)

// officiantOf takes the officiant from the description, else from an
// ATTENDEE with ROLE=CHAIR.
func officiantOf(ve *ical.VEvent, description string) string {
	if m := officiantLine.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		if paramIs(p.ICalParameters, "ROLE", "CHAIR") {
			if cn, ok := p.ICalParameters["CN"]; ok && len(cn) > 0 {
				return strings.Trim(cn[0], `"`)
			}
		}
	}
	return ""
}

// parseICSTime parses a DATE or DATE-TIME value; UTC values end in "Z",
// floating values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
