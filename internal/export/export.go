package export

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gdformat/internal/config"
	"gdformat/internal/format"
	appLog "gdformat/internal/log"
)

// runTimeout bounds a single scheduled run.
const runTimeout = 2 * time.Minute

// Options configures an Exporter.
type Options struct {
	Collector   Collector
	Formatter   *format.Formatter
	Output      string
	MonthsAhead int
	Location    *time.Location

	// Now is used to compute the export window. Defaults to time.Now.
	Now func() time.Time
}

// Status describes the most recent run.
type Status struct {
	At      time.Time `json:"at"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Entries int       `json:"entries"`
	Skipped int       `json:"skipped"`
	Err     string    `json:"error,omitempty"`
}

// Exporter formats the services of the coming months into Output.
type Exporter struct {
	opts Options

	mu     sync.Mutex
	c      *cron.Cron
	last   Status
	hasRun bool
}

// New creates an Exporter. Collector and Output are required.
func New(opts Options) (*Exporter, error) {
	if opts.Collector == nil {
		return nil, errors.New("export: collector is required")
	}
	if strings.TrimSpace(opts.Output) == "" {
		return nil, errors.New("export: output path is required")
	}
	if opts.Formatter == nil {
		opts.Formatter = format.New(format.Options{Location: opts.Location})
	}
	if opts.MonthsAhead <= 0 {
		opts.MonthsAhead = 1
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{opts: opts}, nil
}

// Window returns the export range for now: from the first day of the next
// month through the end of the MonthsAhead-th month.
func (e *Exporter) Window(now time.Time) (time.Time, time.Time) {
	now = now.In(e.opts.Location)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, e.opts.Location).AddDate(0, 1, 0)
	to := from.AddDate(0, e.opts.MonthsAhead, 0).Add(-time.Second)
	return from, to
}

// RunOnce collects, formats and writes one export. When nothing can be
// formatted the previous output file is left untouched and the error is
// format.ErrNothingToFormat.
func (e *Exporter) RunOnce(ctx context.Context) (format.Result, error) {
	from, to := e.Window(e.opts.Now())
	st := Status{At: time.Now(), From: from, To: to}

	res, err := e.run(ctx, from, to)
	st.Entries = res.Entries
	st.Skipped = len(res.Skipped)
	if err != nil {
		st.Err = err.Error()
	}

	e.mu.Lock()
	e.last = st
	e.hasRun = true
	e.mu.Unlock()

	return res, err
}

func (e *Exporter) run(ctx context.Context, from, to time.Time) (format.Result, error) {
	records, err := e.opts.Collector.Records(ctx, from, to)
	if err != nil {
		return format.Result{}, err
	}

	res, err := e.opts.Formatter.Format(records)
	if err != nil {
		return res, err
	}

	if err := config.WriteFileAtomic(e.opts.Output, []byte(res.Text+"\n"), 0o644); err != nil {
		return res, err
	}

	appLog.Info("export written",
		"output", e.opts.Output,
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
		"entries", res.Entries,
		"skipped", len(res.Skipped),
	)
	return res, nil
}

// Last returns the status of the most recent run; ok is false before the
// first run.
func (e *Exporter) Last() (Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.hasRun
}

// Start schedules RunOnce on spec (standard five-field cron or a
// descriptor such as "@weekly"). The schedule is evaluated in the
// exporter's location and stops when ctx is done.
func (e *Exporter) Start(ctx context.Context, spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return err
	}

	e.mu.Lock()
	if e.c != nil {
		e.mu.Unlock()
		return errors.New("export: already started")
	}
	c := cron.New(cron.WithParser(parser), cron.WithLocation(e.opts.Location))
	if _, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		if _, err := e.RunOnce(runCtx); err != nil {
			appLog.Error("scheduled export failed", err, "output", e.opts.Output)
		}
	}); err != nil {
		e.mu.Unlock()
		return err
	}
	e.c = c
	e.mu.Unlock()

	c.Start()
	appLog.Info("export scheduled", "cron", spec, "tz", e.opts.Location.String(), "output", e.opts.Output)

	go func() {
		<-ctx.Done()
		e.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running export to finish.
func (e *Exporter) Stop() {
	e.mu.Lock()
	c := e.c
	e.c = nil
	e.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
