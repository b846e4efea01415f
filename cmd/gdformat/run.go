package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"gdformat/internal/capture"
	"gdformat/internal/churchdesk"
	"gdformat/internal/config"
	"gdformat/internal/export"
	"gdformat/internal/format"
	appLog "gdformat/internal/log"
	"gdformat/internal/model"
	"gdformat/internal/sheet"
	"gdformat/internal/vocab"
	"gdformat/internal/web"
)

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func newFormatter(cfg *config.Config, loc *time.Location) *format.Formatter {
	return format.New(format.Options{
		NameStyle:    vocab.ParseNameStyle(cfg.NameStyle),
		ServiceRules: cfg.ServiceRules,
		Location:     loc,
	})
}

// collect reads the records for a one-shot run.
func collect(ctx context.Context, cfg *config.Config, opts *cliOptions, loc *time.Location) ([]model.ServiceRecord, error) {
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return sheet.Read(opts.Input, f, sheet.Options{Columns: cfg.Columns, Location: loc})
	}

	year, month := nextMonth(time.Now().In(loc))
	if opts.Month != "" {
		var err error
		if year, month, err = churchdesk.ParseMonth(opts.Month); err != nil {
			return nil, err
		}
	}
	from, to := churchdesk.MonthRange(year, month, loc)

	var c export.Collector
	if opts.ChurchDesk {
		c = export.ChurchDeskCollector(cfg.ChurchDesk, nil, loc, opts.Orgs...)
	} else {
		c = export.ICSCollector(cfg.ICS, cfg.CacheDir, nil, loc)
	}
	return c.Records(ctx, from, to)
}

func nextMonth(now time.Time) (int, time.Month) {
	n := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	return n.Year(), n.Month()
}

// formatOnce reads, formats and writes a single listing.
func formatOnce(ctx context.Context, cfg *config.Config, opts *cliOptions, stdout, stderr io.Writer) int {
	loc := loadLocation(cfg.Timezone)

	records, err := collect(ctx, cfg, opts, loc)
	if err != nil {
		var missing *sheet.MissingColumnsError
		if errors.As(err, &missing) {
			fmt.Fprintln(stderr, "gdformat: Fehlende Spalten:", strings.Join(missing.Missing, ", "))
		}
		appLog.Error("failed to read services", err)
		return exitError
	}

	res, err := newFormatter(cfg, loc).Format(records)
	printSkipped(stderr, res.Skipped)
	if errors.Is(err, format.ErrNothingToFormat) {
		fmt.Fprintln(stderr, "gdformat: keine gültigen Gottesdienste gefunden")
		return exitNothing
	}
	if err != nil {
		appLog.Error("format failed", err)
		return exitError
	}

	out := res.Text + "\n"
	if opts.Output != "" {
		if err := config.WriteFileAtomic(opts.Output, []byte(out), 0o644); err != nil {
			appLog.Error("failed to write output", err, "output", opts.Output)
			return exitError
		}
		appLog.Info("output written", "output", opts.Output, "entries", res.Entries)
	} else if _, err := io.WriteString(stdout, out); err != nil {
		return exitError
	}

	if opts.Proof != "" {
		if err := writeProof(ctx, cfg, res, opts.Proof); err != nil {
			appLog.Error("proof capture failed", err, "output", opts.Proof)
			return exitError
		}
	}
	return exitOK
}

// printSkipped lists skipped rows so the editor can fix them in ChurchDesk.
func printSkipped(w io.Writer, skipped []model.SkippedRow) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintf(w, "%d Zeile(n) übersprungen:\n", len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(w, "  %s Zeile %d (%s): %s\n", s.SourceID, s.Row, s.Title, s.Reason)
	}
}

// writeProof serves res on a loopback port and captures the preview page.
func writeProof(ctx context.Context, cfg *config.Config, res format.Result, path string) error {
	local := *cfg
	local.BasicAuth = nil

	srv, err := web.NewServer(&local, web.Options{})
	if err != nil {
		return err
	}
	srv.SetResult(res)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = hs.Serve(ln) }()
	defer hs.Close()

	return capture.CaptureProofPNG(ctx, capture.Options{
		URL:        "http://" + ln.Addr().String() + "/preview",
		OutputPath: path,
	})
}

// defaultCollector picks the source behind /api/format: ChurchDesk when an
// organization has a token, otherwise ICS when feeds are configured.
func defaultCollector(cfg *config.Config, loc *time.Location) export.Collector {
	for _, org := range cfg.ChurchDesk.Organizations {
		if org.Token != "" {
			return export.ChurchDeskCollector(cfg.ChurchDesk, nil, loc)
		}
	}
	if len(export.ICSSources(cfg.ICS)) > 0 {
		return export.ICSCollector(cfg.ICS, cfg.CacheDir, nil, loc)
	}
	return nil
}

// serve runs the web interface and, if configured, the scheduled export
// until ctx is done.
func serve(ctx context.Context, cfg *config.Config, opts *cliOptions) error {
	loc := loadLocation(cfg.Timezone)

	var exporter *export.Exporter
	if cfg.Export.Cron != "" {
		c, err := export.NewCollector(cfg.Export.Source, cfg, nil, loc)
		if err != nil {
			return err
		}
		exporter, err = export.New(export.Options{
			Collector:   c,
			Formatter:   newFormatter(cfg, loc),
			Output:      cfg.Export.Output,
			MonthsAhead: cfg.Export.MonthsAhead,
			Location:    loc,
		})
		if err != nil {
			return err
		}
		if err := exporter.Start(ctx, cfg.Export.Cron); err != nil {
			return fmt.Errorf("export cron %q: %w", cfg.Export.Cron, err)
		}
		defer exporter.Stop()
	}

	if opts.Proof != "" {
		appLog.Warn("--proof is ignored with --serve; capture /preview instead")
	}

	srv, err := web.NewServer(cfg, web.Options{
		Debug:     opts.Debug,
		Collector: defaultCollector(cfg, loc),
		Exporter:  exporter,
	})
	if err != nil {
		return err
	}
	return web.StartServer(ctx, cfg, srv)
}
