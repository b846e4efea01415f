package churchdesk

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"gdformat/internal/config"
	appLog "gdformat/internal/log"
	"gdformat/internal/model"
)

// ErrNoOrganizations is returned when no organization has a token.
var ErrNoOrganizations = errors.New("churchdesk: no organizations configured")

// MultiClient queries several organizations (Kirchenkreis and parishes) and
// merges their events.
type MultiClient struct {
	clients []*Client
	names   map[int]string
}

// NewMultiClient builds one Client per configured organization. Entries
// without a token are ignored. If only is non-empty, just those IDs are used.
func NewMultiClient(cfg config.ChurchDeskConfig, hc *http.Client, only ...int) *MultiClient {
	mc := &MultiClient{names: make(map[int]string)}
	for _, org := range cfg.Organizations {
		if org.Token == "" {
			continue
		}
		if len(only) > 0 && !slices.Contains(only, org.ID) {
			continue
		}
		mc.clients = append(mc.clients, NewClient(cfg.BaseURL, org.Token, org.ID, hc))
		mc.names[org.ID] = org.Name
	}
	return mc
}

// Len is the number of organizations queried.
func (mc *MultiClient) Len() int { return len(mc.clients) }

// Events fetches from all organizations concurrently. An organization that
// fails is logged and left out; the error is non-nil only if every
// organization failed. Events are sorted by start date.
func (mc *MultiClient) Events(ctx context.Context, start, end time.Time, servicesOnly bool) ([]Event, error) {
	if len(mc.clients) == 0 {
		return nil, ErrNoOrganizations
	}

	perOrg := make([][]Event, len(mc.clients))
	errs := make([]error, len(mc.clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range mc.clients {
		i, c := i, c
		g.Go(func() error {
			var (
				events []Event
				err    error
			)
			if servicesOnly {
				events, err = c.ServiceEvents(gctx, start, end)
			} else {
				events, err = c.Events(gctx, start, end)
			}
			if err != nil {
				appLog.Error("churchdesk: organization fetch failed", err, "organization", c.orgID)
				errs[i] = err
				return nil
			}
			for j := range events {
				events[j].OrganizationID = c.orgID
				events[j].OrganizationName = mc.names[c.orgID]
			}
			perOrg[i] = events
			return nil
		})
	}
	_ = g.Wait()

	var all []Event
	failed := 0
	for i := range mc.clients {
		if errs[i] != nil {
			failed++
			continue
		}
		all = append(all, perOrg[i]...)
	}
	if failed == len(mc.clients) {
		return nil, errors.Join(errs...)
	}

	// Events without a readable start go last.
	slices.SortStableFunc(all, func(a, b Event) int {
		ta, okA := a.Start()
		tb, okB := b.Start()
		switch {
		case okA && okB:
			return ta.Compare(tb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})

	appLog.Info("churchdesk: events fetched",
		"organizations", len(mc.clients),
		"failed", failed,
		"events", len(all),
	)
	return all, nil
}

// Records fetches events and maps them to service records.
func (mc *MultiClient) Records(ctx context.Context, start, end time.Time, servicesOnly bool, loc *time.Location) ([]model.ServiceRecord, error) {
	events, err := mc.Events(ctx, start, end, servicesOnly)
	if err != nil {
		return nil, err
	}
	out := make([]model.ServiceRecord, 0, len(events))
	for i, ev := range events {
		out = append(out, ToRecord(ev, i+1, loc))
	}
	return out, nil
}
