// Package churchdesk reads service events from the ChurchDesk partner API
// and maps them onto service records.
package churchdesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	appLog "gdformat/internal/log"
)

// maxItems is the largest page the events endpoint serves.
const maxItems = 100

// Category is an event category of one organization.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Parish is a parish an event is assigned to.
type Parish struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Event is the subset of a ChurchDesk event the listing needs.
type Event struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Location     string   `json:"location"`
	LocationName string   `json:"locationName"`
	Contributor  string   `json:"contributor"`
	Parishes     []Parish `json:"parishes"`

	// Set by MultiClient, not part of the API payload.
	OrganizationID   int    `json:"-"`
	OrganizationName string `json:"-"`
}

// Client talks to the API on behalf of one organization.
type Client struct {
	baseURL string
	token   string
	orgID   int
	hc      *http.Client

	mu              sync.Mutex
	serviceCategory *int // cached result of ServiceCategoryID; -1 = none
}

// NewClient creates a client for orgID. A nil hc gets a 20 second timeout.
func NewClient(baseURL, token string, orgID int, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		orgID:   orgID,
		hc:      hc,
	}
}

// OrganizationID returns the organization this client queries.
func (c *Client) OrganizationID() int { return c.orgID }

// get performs an authenticated GET and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, v any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("partnerToken", c.token)
	params.Set("organizationId", strconv.Itoa(c.orgID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("churchdesk %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("churchdesk %s: %s: %s", endpoint, resp.Status, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("churchdesk %s: decode: %w", endpoint, err)
	}
	return nil
}

// Categories lists the organization's event categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.get(ctx, "events/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Events lists events between start and end, optionally restricted to
// categoryIDs.
func (c *Client) Events(ctx context.Context, start, end time.Time, categoryIDs ...int) ([]Event, error) {
	params := url.Values{}
	params.Set("startDate", start.Format(time.RFC3339))
	params.Set("endDate", end.Format(time.RFC3339))
	params.Set("itemsNumber", strconv.Itoa(maxItems))
	for _, id := range categoryIDs {
		params.Add("cid", strconv.Itoa(id))
	}

	var out []Event
	if err := c.get(ctx, "events", params, &out); err != nil {
		return nil, err
	}
	if len(out) >= maxItems {
		appLog.Warn("churchdesk: event page is full, later events may be missing",
			"organization", c.orgID, "items", len(out))
	}
	return out, nil
}

// ServiceCategoryID returns the ID of the first category whose name
// contains "gottesdienst". The lookup is cached; ok is false if the
// organization has no such category.
func (c *Client) ServiceCategoryID(ctx context.Context) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.serviceCategory != nil {
		return *c.serviceCategory, *c.serviceCategory >= 0, nil
	}

	cats, err := c.Categories(ctx)
	if err != nil {
		return 0, false, err
	}
	id := -1
	for _, cat := range cats {
		if strings.Contains(strings.ToLower(cat.Name), "gottesdienst") {
			id = cat.ID
			break
		}
	}
	c.serviceCategory = &id
	return id, id >= 0, nil
}

// ServiceEvents lists only services. Organizations without a service
// category get all their events.
func (c *Client) ServiceEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	id, ok, err := c.ServiceCategoryID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		appLog.Info("churchdesk: no service category, using all events", "organization", c.orgID)
		return c.Events(ctx, start, end)
	}
	return c.Events(ctx, start, end, id)
}

// MonthRange returns the first and last instant of the given month in loc.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, errors.New("month must look like 2025-06")
	}
	return t.Year(), t.Month(), nil
}
