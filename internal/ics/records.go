package ics

import (
	"context"
	"errors"
	"time"

	appLog "gdformat/internal/log"
	"gdformat/internal/model"
)

// ErrNoSources is returned by Collect when no source has a URL.
var ErrNoSources = errors.New("ics: no sources configured")

// ToRecords maps occurrences onto service records. All-day entries carry
// no service time and are emitted with a zero Start, which the formatter
// reports as skipped.
func ToRecords(occs []Occurrence) []model.ServiceRecord {
	out := make([]model.ServiceRecord, 0, len(occs))
	for i, o := range occs {
		rec := model.ServiceRecord{
			SourceID:         o.Source.ID,
			Row:              i + 1,
			Title:            o.Summary,
			LocationPrimary:  o.Location,
			LocationFallback: o.Source.Name,
			Officiant:        o.Officiant,
			Start:            o.Start,
			AllDay:           o.AllDay,
		}
		out = append(out, rec)
	}
	return out
}

// Collect fetches, parses and expands sources for [from, to] and returns
// the services as records. Individual feed failures are logged and
// skipped; an error is returned only if no feed could be read.
func Collect(ctx context.Context, f *Fetcher, sources []Source, from, to time.Time, loc *time.Location) ([]model.ServiceRecord, error) {
	active := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.URL != "" {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoSources
	}

	results, errs := f.FetchAll(ctx, active)
	if len(results) == 0 {
		return nil, errors.Join(errs...)
	}

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			continue
		}
		parsed = append(parsed, events...)
	}

	expanded, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      from,
		RangeEnd:        to,
	})
	if err != nil {
		return nil, err
	}

	appLog.Info("ics collect completed",
		"sources", len(active),
		"failed", len(errs),
		"events", len(parsed),
		"occurrences", len(expanded.Occurrences),
	)
	return ToRecords(expanded.Occurrences), nil
}
