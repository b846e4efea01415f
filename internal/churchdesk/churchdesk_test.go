package churchdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdformat/internal/config"
)

// fakeAPI serves two organizations: 2729 has a service category, 6572 has
// none, and any other organization gets a 401.
func fakeAPI(t *testing.T, categoryCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		org := q.Get("organizationId")
		if q.Get("partnerToken") != "tok-"+org {
			http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/events/categories":
			categoryCalls.Add(1)
			if org == "2729" {
				_ = json.NewEncoder(w).Encode([]Category{{ID: 3, Name: "Konzert"}, {ID: 7, Name: "Gottesdienste"}})
				return
			}
			_ = json.NewEncoder(w).Encode([]Category{{ID: 1, Name: "Allgemein"}})

		case "/events":
			var events []Event
			switch org {
			case "2729":
				if q.Get("cid") != "7" {
					t.Errorf("expected cid=7, got %q", q.Get("cid"))
				}
				events = []Event{{
					ID:           11,
					Title:        "Gottesdienst mit Abendmahl",
					StartDate:    "2025-06-01T07:30:00.000Z",
					LocationName: "Büsum, St. Clemens-Kirche",
					Contributor:  "Pastorin Ulrike Verwold",
					Parishes:     []Parish{{ID: 1, Title: "KG Büsum"}},
				}}
			case "6572":
				if q.Get("cid") != "" {
					t.Errorf("expected no cid, got %q", q.Get("cid"))
				}
				events = []Event{
					{ID: 21, Title: "Gottesdienst", StartDate: "2025-06-08T08:00:00Z", Parishes: []Parish{{Title: "KG Heide"}}},
					{ID: 22, Title: "Gottesdienst", StartDate: "2025-06-01T07:30:00Z", Location: "Albersdorf, St. Remigius Kirche", Contributor: "Pastor Keppel"},
				}
			}
			_ = json.NewEncoder(w).Encode(events)

		default:
			http.NotFound(w, r)
		}
	}))
}

func testConfig(baseURL string) config.ChurchDeskConfig {
	return config.ChurchDeskConfig{
		BaseURL: baseURL,
		Organizations: []config.OrganizationConfig{
			{ID: 2729, Name: "KG Büsum, Wesselburen, Neuenkirchen", Token: "tok-2729"},
			{ID: 6572, Name: "KG Heide", Token: "tok-6572"},
			{ID: 2719, Name: "KG Hennstedt", Token: "wrong"},
			{ID: 9999, Name: "no token"},
		},
	}
}

func TestServiceCategoryIsCached(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	defer srv.Close()

	c := NewClient(srv.URL, "tok-2729", 2729, srv.Client())
	for i := 0; i < 3; i++ {
		id, ok, err := c.ServiceCategoryID(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 7, id)
	}
	assert.Equal(t, int32(1), calls.Load())

	c2 := NewClient(srv.URL, "tok-6572", 6572, srv.Client())
	_, ok, err := c2.ServiceCategoryID(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientErrorStatus(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	defer srv.Close()

	c := NewClient(srv.URL, "wrong", 2719, srv.Client())
	_, err := c.Categories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestMultiClientRecords(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	defer srv.Close()

	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	mc := NewMultiClient(testConfig(srv.URL), srv.Client())
	assert.Equal(t, 3, mc.Len())

	start, end := MonthRange(2025, time.June, loc)
	recs, err := mc.Records(context.Background(), start, end, true, loc)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "Gottesdienst mit Abendmahl", recs[0].Title)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, loc), recs[0].Start)
	assert.Equal(t, "Büsum, St. Clemens-Kirche", recs[0].LocationPrimary)
	assert.Equal(t, "KG Büsum, Wesselburen, Neuenkirchen (churchdesk:11)", recs[0].SourceID)

	assert.Equal(t, "Albersdorf, St. Remigius Kirche", recs[1].LocationPrimary)
	assert.Equal(t, "Pastor Keppel", recs[1].Officiant)

	assert.Equal(t, "", recs[2].LocationPrimary)
	assert.Equal(t, "KG Heide", recs[2].LocationFallback)
	assert.Equal(t, 10, recs[2].Start.Hour())
}

func TestMultiClientOnlyAndAllFailed(t *testing.T) {
	var calls atomic.Int32
	srv := fakeAPI(t, &calls)
	defer srv.Close()

	mc := NewMultiClient(testConfig(srv.URL), srv.Client(), 2719)
	require.Equal(t, 1, mc.Len())
	_, err := mc.Events(context.Background(), time.Now(), time.Now(), true)
	assert.Error(t, err)

	empty := NewMultiClient(config.ChurchDeskConfig{}, nil)
	_, err = empty.Events(context.Background(), time.Now(), time.Now(), false)
	assert.ErrorIs(t, err, ErrNoOrganizations)
}

func TestAnalyze(t *testing.T) {
	c := Analyze(Event{Title: "Gottesdienst", StartDate: "2025-06-01T07:30:00Z", Location: "Heide"})
	assert.Equal(t, []string{"contributor", "parishes"}, c.Missing)
	assert.InDelta(t, 0.6, c.Score, 1e-9)
	assert.False(t, c.Complete)

	full := Analyze(Event{
		Title:        "Gottesdienst",
		StartDate:    "2025-06-01T07:30:00Z",
		LocationName: "Heide",
		Contributor:  "Pastor Keppel",
		Parishes:     []Parish{{Title: "KG Heide"}},
	})
	assert.True(t, full.Complete)
	assert.Equal(t, 1.0, full.Score)
}

func TestToRecordBadStart(t *testing.T) {
	rec := ToRecord(Event{ID: 5, Title: "Gottesdienst", StartDate: "morgen"}, 4, nil)
	assert.True(t, rec.Start.IsZero())
	assert.Equal(t, 4, rec.Row)
	assert.Equal(t, "churchdesk:5", rec.SourceID)
}

func TestMonthRangeAndParseMonth(t *testing.T) {
	start, end := MonthRange(2025, time.December, time.UTC)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), end)

	y, m, err := ParseMonth("2025-06")
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.June, m)

	_, _, err = ParseMonth("Juni")
	assert.Error(t, err)
}
