package format

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdformat/internal/model"
	"gdformat/internal/vocab"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestFormatExampleBlock(t *testing.T) {
	records := []model.ServiceRecord{
		{
			Row:             2,
			Start:           at(2025, 6, 1, 9, 30),
			Title:           "Abendmahl",
			LocationPrimary: "Büsum, St. Clemens-Kirche",
			Officiant:       "Pastorin Ulrike Verwold",
		},
		{
			Row:             1,
			Start:           at(2025, 6, 1, 9, 30),
			Title:           "Gottesdienst",
			LocationPrimary: "Albersdorf, St. Remigius Kirche",
			Officiant:       "Pastor Keppel",
		},
	}

	res, err := Format(records)
	require.NoError(t, err)

	want := "Sonntag, 1. Juni:\n" +
		"Albersdorf, St. Remigius Kirche: 9.30 Uhr, Gd., P. Keppel\n" +
		"Büsum, St. Clemens-Kirche: 9.30 Uhr, Gd. m. A., Pn. Verwold"
	assert.Equal(t, want, res.Text)
	assert.Equal(t, 2, res.Entries)
	assert.Len(t, res.Groups, 1)
	assert.Empty(t, res.Skipped)
}

func TestFormatFullNameStyle(t *testing.T) {
	f := New(Options{NameStyle: vocab.NameStyleFull})
	res, err := f.Format([]model.ServiceRecord{{
		Start:           at(2025, 6, 1, 9, 30),
		Title:           "Abendmahl",
		LocationPrimary: "Büsum, St. Clemens-Kirche",
		Officiant:       "Pastorin Ulrike Verwold",
	}})
	require.NoError(t, err)
	assert.Equal(t, "Sonntag, 1. Juni:\nBüsum, St. Clemens-Kirche: 9.30 Uhr, Gd. m. A., Pn. Ulrike Verwold", res.Text)
}

func TestFormatGroupsAndSeparators(t *testing.T) {
	records := []model.ServiceRecord{
		{Start: at(2025, 6, 8, 10, 0), Title: "Gottesdienst", LocationPrimary: "Heide, St.-Jürgen-Kirche"},
		{Start: at(2025, 6, 1, 11, 0), Title: "Taufgottesdienst", LocationPrimary: "Meldorf, Dom"},
		{Start: at(2025, 6, 1, 9, 30), Title: "Gottesdienst", LocationFallback: "KG Hennstedt"},
		{Start: at(2025, 6, 7, 18, 0), Title: "Abendandacht", LocationPrimary: "Heide, Auferstehungskirche", Officiant: "Diakon Lorenzen"},
	}

	res, err := Format(records)
	require.NoError(t, err)

	want := strings.Join([]string{
		"Sonntag, 1. Juni:",
		"KG Hennstedt: 9.30 Uhr, Gd.",
		"Meldorf, Dom: 11 Uhr, Gd. m. T.",
		"",
		"Sonnabend, 7. Juni:",
		"Heide, Auferstehungskirche: 18 Uhr, Andacht, Diakon Lorenzen",
		"",
		"Sonntag, 8. Juni:",
		"Heide, St.-Jürgen-Kirche: 10 Uhr, Gd.",
	}, "\n")
	assert.Equal(t, want, res.Text)
	assert.False(t, strings.HasSuffix(res.Text, "\n"))
	assert.NotContains(t, res.Text, "Gd.,\n")
}

func TestFormatSkipsInvalidRows(t *testing.T) {
	records := []model.ServiceRecord{
		{SourceID: "plan.xlsx", Row: 2, Title: "Gottesdienst", LocationPrimary: "Wesselburen"},
		{SourceID: "plan.xlsx", Row: 3, Start: at(2025, 6, 1, 10, 0), Title: "Gottesdienst", LocationPrimary: "  ", LocationFallback: ""},
		{SourceID: "plan.xlsx", Row: 4, Start: at(2025, 6, 1, 10, 0), Title: "Gottesdienst", LocationPrimary: "Neuenkirchen"},
	}

	res, err := Format(records)
	require.NoError(t, err)
	assert.Equal(t, "Sonntag, 1. Juni:\nNeuenkirchen: 10 Uhr, Gd.", res.Text)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, model.SkippedRow{SourceID: "plan.xlsx", Row: 2, Title: "Gottesdienst", Reason: model.SkipMissingStart}, res.Skipped[0])
	assert.Equal(t, model.SkipMissingLocation, res.Skipped[1].Reason)
	assert.Equal(t, 3, res.Skipped[1].Row)
}

func TestFormatSkipsAllDayEvents(t *testing.T) {
	res, err := Format([]model.ServiceRecord{
		{SourceID: "buesum", Row: 1, Start: at(2025, 6, 14, 0, 0), AllDay: true, Title: "Gemeindefest", LocationPrimary: "Büsum"},
		{SourceID: "buesum", Row: 2, Start: at(2025, 6, 15, 10, 0), Title: "Gottesdienst", LocationPrimary: "Büsum"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sonntag, 15. Juni:\nBüsum: 10 Uhr, Gd.", res.Text)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, model.SkippedRow{SourceID: "buesum", Row: 1, Title: "Gemeindefest", Reason: model.SkipAllDay}, res.Skipped[0])
}

func TestFormatNothingToFormat(t *testing.T) {
	res, err := Format([]model.ServiceRecord{
		{Row: 1, Title: "Gottesdienst", LocationPrimary: "Heide"},
		{Row: 2, Start: at(2025, 6, 1, 10, 0)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNothingToFormat))
	assert.Empty(t, res.Text)
	assert.Len(t, res.Skipped, 2)

	_, err = Format(nil)
	assert.ErrorIs(t, err, ErrNothingToFormat)
}

func TestFormatConvertsToDisplayZone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 22:30 UTC on Saturday is 00:30 on Sunday in Berlin (CEST).
	f := New(Options{Location: berlin})
	res, err := f.Format([]model.ServiceRecord{{
		Start:           at(2025, 5, 31, 22, 30),
		Title:           "Osternacht",
		LocationPrimary: "Heide",
	}})
	require.NoError(t, err)
	assert.Equal(t, "Sonntag, 1. Juni:\nHeide: 0.30 Uhr, Gd.", res.Text)
}

func TestFormatCustomServiceRule(t *testing.T) {
	f := New(Options{ServiceRules: []vocab.ServiceRule{{Keyword: "plattdeutsch", Code: "Plattdt. Gd."}}})
	res, err := f.Format([]model.ServiceRecord{{
		Start:           at(2025, 6, 1, 10, 0),
		Title:           "Plattdeutscher Gottesdienst",
		LocationPrimary: "Hennstedt",
	}})
	require.NoError(t, err)
	assert.Equal(t, "Sonntag, 1. Juni:\nHennstedt: 10 Uhr, Plattdt. Gd.", res.Text)
}

func TestNormalizeDoesNotTouchInput(t *testing.T) {
	rec := model.ServiceRecord{
		Start:            at(2025, 6, 1, 10, 0),
		Title:            "Gottesdienst",
		LocationPrimary:  "",
		LocationFallback: " KG Heide ",
		Officiant:        " Pastor Keppel ",
	}
	orig := rec

	e, reason, ok := New(Options{}).Normalize(rec)
	require.True(t, ok)
	assert.Empty(t, reason)
	assert.Equal(t, "KG Heide", e.Location)
	assert.Equal(t, "P. Keppel", e.Officiant)
	assert.Equal(t, orig, rec)
}
