// Package export pulls services from a configured source on a cron
// schedule and writes the formatted listing to a text file.
package export

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gdformat/internal/churchdesk"
	"gdformat/internal/config"
	"gdformat/internal/ics"
	"gdformat/internal/model"
)

// Collector returns the service records starting in [from, to].
type Collector interface {
	Records(ctx context.Context, from, to time.Time) ([]model.ServiceRecord, error)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(ctx context.Context, from, to time.Time) ([]model.ServiceRecord, error)

func (f CollectorFunc) Records(ctx context.Context, from, to time.Time) ([]model.ServiceRecord, error) {
	return f(ctx, from, to)
}

// ChurchDeskCollector reads services from the configured organizations,
// or just from those listed in only.
func ChurchDeskCollector(cfg config.ChurchDeskConfig, hc *http.Client, loc *time.Location, only ...int) Collector {
	mc := churchdesk.NewMultiClient(cfg, hc, only...)
	return CollectorFunc(func(ctx context.Context, from, to time.Time) ([]model.ServiceRecord, error) {
		return mc.Records(ctx, from, to, cfg.ServicesOnly, loc)
	})
}

// ICSCollector reads services from the configured ICS subscriptions.
func ICSCollector(sources []config.ICSConfig, cacheDir string, hc *http.Client, loc *time.Location) Collector {
	f := ics.NewFetcher(cacheDir, hc)
	srcs := ICSSources(sources)
	return CollectorFunc(func(ctx context.Context, from, to time.Time) ([]model.ServiceRecord, error) {
		return ics.Collect(ctx, f, srcs, from, to, loc)
	})
}

// ICSSources maps configured subscriptions onto fetch sources. A missing ID
// falls back to the name, then to the URL.
func ICSSources(in []config.ICSConfig) []ics.Source {
	out := make([]ics.Source, 0, len(in))
	for _, c := range in {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		out = append(out, ics.Source{ID: id, URL: c.URL, Name: c.Name})
	}
	return out
}

// NewCollector builds the collector named by source ("churchdesk" or "ics").
func NewCollector(source string, cfg *config.Config, hc *http.Client, loc *time.Location) (Collector, error) {
	switch source {
	case config.SourceChurchDesk:
		return ChurchDeskCollector(cfg.ChurchDesk, hc, loc), nil
	case config.SourceICS:
		return ICSCollector(cfg.ICS, cfg.CacheDir, hc, loc), nil
	default:
		return nil, fmt.Errorf("export: unknown source %q", source)
	}
}
