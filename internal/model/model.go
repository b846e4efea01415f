package model

import "time"

// ServiceRecord is one input row as delivered by an input collaborator
// (spreadsheet, ICS feed, ChurchDesk API). Fields are raw free text; nothing
// here has been normalized yet.
type ServiceRecord struct {
	SourceID string // input identifier (file name, ICS source ID, organization)
	Row      int    // 1-based row number within the source, 0 if unknown

	// Start is the service date and time. The zero value means the source
	// had no usable date; such records are skipped by the formatter.
	Start time.Time
	// AllDay marks a calendar entry without a time of day.
	AllDay bool

	Title            string // service type label, e.g. "Gottesdienst mit Abendmahl"
	LocationPrimary  string // church / location name ("Standortnamen")
	LocationFallback string // parish name ("Gemeinden"), used when primary is blank
	Officiant        string // "Mitwirkender", optionally prefixed with a title
}

// NormalizedEntry is a ServiceRecord after vocabulary normalization and
// location resolution. It is a value type and is never modified once built.
type NormalizedEntry struct {
	Start time.Time

	Location    string
	Time        string // formatted, e.g. "9.30 Uhr"
	ServiceType string // abbreviation, e.g. "Gd. m. A."

	// Officiant is the normalized name, or "" if the record had none.
	Officiant string
}

// HasOfficiant reports whether the entry carries an officiant segment.
func (e NormalizedEntry) HasOfficiant() bool {
	return e.Officiant != ""
}

// DateGroup is every entry that falls on one calendar date, in output order.
type DateGroup struct {
	// Date is midnight of the calendar day in the entries' location.
	Date    time.Time
	Entries []NormalizedEntry
}

// SkipReason explains why a record was left out of the output.
type SkipReason string

const (
	SkipMissingStart    SkipReason = "missing start"
	SkipMissingLocation SkipReason = "missing location"
	SkipAllDay          SkipReason = "all-day event"
)

// SkippedRow identifies a record that was dropped before grouping.
type SkippedRow struct {
	SourceID string     `json:"source_id,omitempty"`
	Row      int        `json:"row"`
	Title    string     `json:"title,omitempty"`
	Reason   SkipReason `json:"reason"`
}
