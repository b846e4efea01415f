package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"gdformat/internal/config"
	appLog "gdformat/internal/log"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitUsage   = 2
	exitNothing = 3 // input had no valid service
)

// cliOptions holds the command line. Values given here override the config
// file.
type cliOptions struct {
	Config string `long:"config" env:"GDFORMAT_CONFIG" default:"./gdformat.yaml" description:"Path to config file"`
	Listen string `long:"listen" env:"GDFORMAT_LISTEN" description:"HTTP listen address (overrides config)"`

	Input  string `short:"i" long:"input" description:"ChurchDesk spreadsheet export to format (.xlsx or .csv)"`
	Output string `short:"o" long:"output" description:"Write the text to this file instead of stdout"`

	ChurchDesk bool   `long:"churchdesk" description:"Read services from the ChurchDesk API"`
	Orgs       []int  `long:"org" description:"Only query these ChurchDesk organization IDs (repeatable)"`
	ICS        bool   `long:"ics" description:"Read services from the configured ICS feeds"`
	Month      string `long:"month" description:"Month to read as YYYY-MM (default: next month)"`

	Proof string `long:"proof" description:"Also write a PNG proof of the text to this path"`

	Serve bool `long:"serve" description:"Run the web interface and the scheduled export"`
	Debug bool `long:"debug" env:"GDFORMAT_DEBUG" description:"Enable debug logging"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// parseArgs parses args. A nil result with a nil error means help was shown.
func parseArgs(args []string) (*cliOptions, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.Default)
	parser.Name = "gdformat"
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, err
	}
	return &opts, nil
}

func (o *cliOptions) validate() error {
	modes := 0
	for _, on := range []bool{o.Input != "", o.ChurchDesk, o.ICS, o.Serve} {
		if on {
			modes++
		}
	}
	switch {
	case modes == 0:
		return errors.New("one of --input, --churchdesk, --ics or --serve is required")
	case modes > 1:
		return errors.New("--input, --churchdesk, --ics and --serve are mutually exclusive")
	case o.Month != "" && !o.ChurchDesk && !o.ICS:
		return errors.New("--month needs --churchdesk or --ics")
	case len(o.Orgs) > 0 && !o.ChurchDesk:
		return errors.New("--org needs --churchdesk")
	}
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		return exitUsage
	}
	if opts == nil {
		return exitOK
	}
	if err := opts.validate(); err != nil {
		fmt.Fprintln(stderr, "gdformat:", err)
		return exitUsage
	}

	cfg, err := config.Load(opts.Config)
	switch {
	case err == nil:
	case cfg != nil && !opts.Serve:
		// Default config could not be written; a one-shot run can still use it.
		appLog.Warn("failed to write default config; using defaults", "config_path", opts.Config, "error", err.Error())
	default:
		appLog.Error("failed to load config", err, "config_path", opts.Config)
		return exitError
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if opts.Debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("gdformat starting", "version", Version)
	appLog.Debug("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"name_style", cfg.NameStyle,
		"service_rules", len(cfg.ServiceRules),
		"ics_count", len(cfg.ICS),
		"churchdesk_orgs", len(cfg.ChurchDesk.Organizations),
		"export_cron", cfg.Export.Cron,
	)

	if opts.Serve {
		if err := serve(ctx, cfg, opts); err != nil {
			appLog.Error("server failed", err)
			return exitError
		}
		appLog.Info("gdformat exiting")
		return exitOK
	}
	return formatOnce(ctx, cfg, opts, stdout, stderr)
}
