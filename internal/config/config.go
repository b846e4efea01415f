package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gdformat/internal/vocab"
)

// NOTE: Load creates a default config on first run, Save writes atomically
// with 0600 permissions because the file may hold API tokens.

// ColumnsConfig names the spreadsheet header cells mapped onto
// ServiceRecord fields.
type ColumnsConfig struct {
	Start     string `yaml:"start" json:"start"`
	Title     string `yaml:"title" json:"title"`
	Location  string `yaml:"location" json:"location"`
	Officiant string `yaml:"officiant" json:"officiant"`
	Parish    string `yaml:"parish" json:"parish"`
}

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is used as the location when an event has none (parish name).
	Name string `yaml:"name" json:"name"`
}

// OrganizationConfig is one ChurchDesk organization with its partner token.
type OrganizationConfig struct {
	ID          int    `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Token       string `yaml:"token" json:"-"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ChurchDeskConfig configures the ChurchDesk events API.
type ChurchDeskConfig struct {
	BaseURL       string               `yaml:"base_url" json:"base_url"`
	Organizations []OrganizationConfig `yaml:"organizations" json:"organizations"`
	// ServicesOnly restricts queries to the "Gottesdienst" category.
	ServicesOnly bool `yaml:"services_only" json:"services_only"`
}

// ExportConfig drives the periodic export in serve mode.
type ExportConfig struct {
	// Cron is a cron-style schedule (e.g. "0 6 * * 1"). Empty disables export.
	Cron string `yaml:"cron" json:"cron"`
	// Output is the text file written on each run.
	Output string `yaml:"output" json:"output"`
	// Source is "churchdesk" or "ics".
	Source string `yaml:"source" json:"source"`
	// MonthsAhead is how many calendar months, starting with the next one,
	// each export covers.
	MonthsAhead int `yaml:"months_ahead" json:"months_ahead"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone service times are printed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// NameStyle controls officiant names behind a title:
	//   - "surname" (default): "Pn. Verwold"
	//   - "full":              "Pn. Ulrike Verwold"
	NameStyle string `yaml:"name_style" json:"name_style"`

	// ServiceRules are checked before the built-in service type rules.
	ServiceRules []vocab.ServiceRule `yaml:"service_rules" json:"service_rules"`

	Columns ColumnsConfig `yaml:"columns" json:"columns"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	ChurchDesk ChurchDeskConfig `yaml:"churchdesk" json:"churchdesk"`

	Export ExportConfig `yaml:"export" json:"export"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	DefaultListen     = "127.0.0.1:8080"
	DefaultTimezone   = "Europe/Berlin"
	DefaultChurchDesk = "https://api2.churchdesk.com/api/v3.0.0"
	DefaultCacheDir   = "./var/ics-cache"
	DefaultOutput     = "gottesdienste_formatiert.txt"

	SourceChurchDesk = "churchdesk"
	SourceICS        = "ics"
)

// DefaultColumns are the header names of the ChurchDesk spreadsheet export.
func DefaultColumns() ColumnsConfig {
	return ColumnsConfig{
		Start:     "Startdatum",
		Title:     "Titel",
		Location:  "Standortnamen",
		Officiant: "Mitwirkender",
		Parish:    "Gemeinden",
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListen,
		Timezone:     DefaultTimezone,
		LogLevel:     "info",
		NameStyle:    string(vocab.NameStyleSurname),
		ServiceRules: []vocab.ServiceRule{},
		Columns:      DefaultColumns(),
		CacheDir:     DefaultCacheDir,
		ICS:          []ICSConfig{},
		ChurchDesk: ChurchDeskConfig{
			BaseURL:       DefaultChurchDesk,
			Organizations: []OrganizationConfig{},
			ServicesOnly:  true,
		},
		Export: ExportConfig{
			Output:      DefaultOutput,
			Source:      SourceChurchDesk,
			MonthsAhead: 1,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.NameStyle = string(vocab.ParseNameStyle(c.NameStyle))
	if c.ServiceRules == nil {
		c.ServiceRules = []vocab.ServiceRule{}
	}

	def := DefaultColumns()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&c.Columns.Start, def.Start)
	fill(&c.Columns.Title, def.Title)
	fill(&c.Columns.Location, def.Location)
	fill(&c.Columns.Officiant, def.Officiant)
	fill(&c.Columns.Parish, def.Parish)

	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.ChurchDesk.BaseURL == "" {
		c.ChurchDesk.BaseURL = DefaultChurchDesk
	}
	if c.ChurchDesk.Organizations == nil {
		c.ChurchDesk.Organizations = []OrganizationConfig{}
	}

	switch c.Export.Source {
	case SourceChurchDesk, SourceICS:
		// ok
	default:
		c.Export.Source = SourceChurchDesk
	}
	if c.Export.Output == "" {
		c.Export.Output = DefaultOutput
	}
	if c.Export.MonthsAhead <= 0 {
		c.Export.MonthsAhead = 1
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file next to path, syncs it, sets
// perm and renames it over path. Parent directories are created with 0700.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".gdformat-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
