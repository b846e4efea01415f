// Package format turns service records into the flowing-text block the
// print outlet publishes. The pipeline is
//
//	records -> Normalize (per record) -> Group -> Render
//
// and holds no state between calls; a Formatter may be shared by
// concurrent callers as long as each passes its own records.
package format

import (
	"errors"
	"time"

	"gdformat/internal/locale"
	appLog "gdformat/internal/log"
	"gdformat/internal/model"
	"gdformat/internal/vocab"
)

// ErrNothingToFormat is returned when no record survives validation.
// It is distinct from a successful run so callers never publish an empty
// block by accident.
var ErrNothingToFormat = errors.New("format: no valid service records to format")

// Options tunes normalization.
type Options struct {
	NameStyle    vocab.NameStyle
	ServiceRules []vocab.ServiceRule

	// Location, if set, converts every start into this zone before dates
	// and times are taken from it.
	Location *time.Location
}

// Result is the outcome of one Format call.
type Result struct {
	Text    string             `json:"text"`
	Groups  []model.DateGroup  `json:"-"`
	Entries int                `json:"entries"`
	Skipped []model.SkippedRow `json:"skipped,omitempty"`
}

// Formatter is an immutable, configured formatting pipeline.
type Formatter struct {
	nameStyle vocab.NameStyle
	services  *vocab.ServiceTypes
	loc       *time.Location
}

// New builds a Formatter from opts.
func New(opts Options) *Formatter {
	style := opts.NameStyle
	if style == "" {
		style = vocab.NameStyleSurname
	}
	return &Formatter{
		nameStyle: style,
		services:  vocab.NewServiceTypes(opts.ServiceRules),
		loc:       opts.Location,
	}
}

// Normalize validates rec and derives its printable entry. When rec is
// invalid the returned reason says why and the entry is the zero value.
func (f *Formatter) Normalize(rec model.ServiceRecord) (model.NormalizedEntry, model.SkipReason, bool) {
	if rec.AllDay {
		return model.NormalizedEntry{}, model.SkipAllDay, false
	}
	if rec.Start.IsZero() {
		return model.NormalizedEntry{}, model.SkipMissingStart, false
	}
	loc, ok := ResolveLocation(rec)
	if !ok {
		return model.NormalizedEntry{}, model.SkipMissingLocation, false
	}

	start := rec.Start
	if f.loc != nil {
		start = start.In(f.loc)
	}

	return model.NormalizedEntry{
		Start:       start,
		Location:    loc,
		Time:        locale.FormatTime(start),
		ServiceType: f.services.Code(rec.Title),
		Officiant:   vocab.Officiant(rec.Officiant, f.nameStyle),
	}, "", true
}

// Format runs the whole pipeline over records. Invalid records are skipped
// and listed in Result.Skipped. If nothing valid remains the error is
// ErrNothingToFormat and Result still carries the skip list.
func (f *Formatter) Format(records []model.ServiceRecord) (Result, error) {
	var res Result
	entries := make([]model.NormalizedEntry, 0, len(records))

	for _, rec := range records {
		e, reason, ok := f.Normalize(rec)
		if !ok {
			res.Skipped = append(res.Skipped, model.SkippedRow{
				SourceID: rec.SourceID,
				Row:      rec.Row,
				Title:    rec.Title,
				Reason:   reason,
			})
			appLog.Info("format: row skipped", "source", rec.SourceID, "row", rec.Row, "reason", string(reason))
			continue
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 {
		appLog.Info("format: nothing to format", "records", len(records), "skipped", len(res.Skipped))
		return res, ErrNothingToFormat
	}

	res.Groups = Group(entries)
	res.Entries = len(entries)
	res.Text = Render(res.Groups)

	appLog.Debug("format completed",
		"records", len(records),
		"entries", res.Entries,
		"groups", len(res.Groups),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

// Format runs records through a Formatter with default options.
func Format(records []model.ServiceRecord) (Result, error) {
	return New(Options{}).Format(records)
}
