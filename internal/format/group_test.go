package format

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdformat/internal/model"
)

func entry(start time.Time, loc string) model.NormalizedEntry {
	return model.NormalizedEntry{Start: start, Location: loc, Time: "x", ServiceType: "Gd."}
}

func TestGroupOrdering(t *testing.T) {
	in := []model.NormalizedEntry{
		entry(at(2025, 6, 8, 10, 0), "Heide"),
		entry(at(2025, 6, 1, 10, 0), "Wesselburen"),
		entry(at(2025, 6, 1, 9, 30), "Meldorf"),
		entry(at(2025, 6, 1, 10, 0), "Büsum"),
		entry(at(2025, 6, 1, 10, 0), "Albersdorf"),
	}

	groups := Group(in)
	require.Len(t, groups, 2)

	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), groups[0].Date)
	var locs []string
	for _, e := range groups[0].Entries {
		locs = append(locs, e.Location)
	}
	assert.Equal(t, []string{"Meldorf", "Albersdorf", "Büsum", "Wesselburen"}, locs)
	assert.Equal(t, "Heide", groups[1].Entries[0].Location)

	// input untouched
	assert.Equal(t, "Heide", in[0].Location)
}

func TestGroupStableForFullTies(t *testing.T) {
	a := entry(at(2025, 6, 1, 10, 0), "Heide")
	a.ServiceType = "first"
	b := entry(at(2025, 6, 1, 10, 0), "Heide")
	b.ServiceType = "second"

	groups := Group([]model.NormalizedEntry{a, b})
	require.Len(t, groups, 1)
	assert.Equal(t, "first", groups[0].Entries[0].ServiceType)
	assert.Equal(t, "second", groups[0].Entries[1].ServiceType)
}

func TestGroupMixedZonesShareCalendarDay(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)
	in := []model.NormalizedEntry{
		entry(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), "Albersdorf"),
		entry(time.Date(2025, 6, 1, 10, 0, 0, 0, cest), "Büsum"),
	}
	in[0].Time, in[1].Time = "9.30 Uhr", "10 Uhr"

	groups := Group(in)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Entries, 2)
	assert.Equal(t, "Albersdorf", groups[0].Entries[0].Location)
	assert.Equal(t, "Büsum", groups[0].Entries[1].Location)
	assert.Equal(t, "Sonntag, 1. Juni:\nAlbersdorf: 9.30 Uhr, Gd.\nBüsum: 10 Uhr, Gd.", Render(groups))
}

func TestGroupIgnoresSecondsWithinPrintedMinute(t *testing.T) {
	in := []model.NormalizedEntry{
		entry(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), "Meldorf"),
		entry(time.Date(2025, 6, 1, 9, 30, 45, 0, time.UTC), "Albersdorf"),
	}
	groups := Group(in)
	require.Len(t, groups, 1)
	assert.Equal(t, "Albersdorf", groups[0].Entries[0].Location)
	assert.Equal(t, "Meldorf", groups[0].Entries[1].Location)
}

func TestGroupEmpty(t *testing.T) {
	assert.Nil(t, Group(nil))
}

func TestGroupOrderingProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	locs := []string{"Albersdorf", "Büsum", "Heide", "Meldorf", "Wesselburen"}

	in := make([]model.NormalizedEntry, 0, 200)
	for i := 0; i < 200; i++ {
		start := time.Date(2025, 6, 1+rnd.Intn(20), 8+rnd.Intn(4), 15*rnd.Intn(4), 0, 0, time.UTC)
		in = append(in, entry(start, locs[rnd.Intn(len(locs))]))
	}

	groups := Group(in)
	total := 0
	for i, g := range groups {
		total += len(g.Entries)
		if i > 0 {
			assert.True(t, groups[i-1].Date.Before(g.Date), "groups out of order")
		}
		for j, e := range g.Entries {
			assert.Equal(t, dayKey(g.Date), dayKey(e.Start), "entry in wrong group")
			if j == 0 {
				continue
			}
			prev := g.Entries[j-1]
			pc, ec := clockOf(prev.Start), clockOf(e.Start)
			assert.LessOrEqual(t, pc, ec)
			if pc == ec {
				assert.LessOrEqual(t, prev.Location, e.Location)
			}
		}
	}
	assert.Equal(t, len(in), total)
}

func TestResolveLocation(t *testing.T) {
	l, ok := ResolveLocation(model.ServiceRecord{LocationPrimary: " Heide, St.-Jürgen-Kirche ", LocationFallback: "KG Heide"})
	assert.True(t, ok)
	assert.Equal(t, "Heide, St.-Jürgen-Kirche", l)

	l, ok = ResolveLocation(model.ServiceRecord{LocationPrimary: "\t", LocationFallback: "KG Heide"})
	assert.True(t, ok)
	assert.Equal(t, "KG Heide", l)

	_, ok = ResolveLocation(model.ServiceRecord{})
	assert.False(t, ok)
}

func TestRenderOmitsAbsentOfficiant(t *testing.T) {
	groups := []model.DateGroup{{
		Date: at(2025, 6, 1, 0, 0),
		Entries: []model.NormalizedEntry{
			{Location: "Heide", Time: "10 Uhr", ServiceType: "Gd."},
			{Location: "Meldorf", Time: "10.30 Uhr", ServiceType: "Gd. m. A.", Officiant: "P. Keppel"},
		},
	}}
	assert.Equal(t, "Sonntag, 1. Juni:\nHeide: 10 Uhr, Gd.\nMeldorf: 10.30 Uhr, Gd. m. A., P. Keppel", Render(groups))
	assert.Equal(t, "", Render(nil))
}
