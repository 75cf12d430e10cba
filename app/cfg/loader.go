package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lysyi3m/epgfetch/app/catalog"
	"github.com/lysyi3m/epgfetch/app/companion"
	"github.com/lysyi3m/epgfetch/app/feed"
	"gopkg.in/yaml.v3"
)

const DefaultFetchDays = 4

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

// document is the config file shared with the companion web service.
// JSON documents are read by the YAML decoder as well.
type document struct {
	DBHost string `yaml:"DBHost"`
	DBPort string `yaml:"DBPort"`
	DBName string `yaml:"DBName"`
	DBUser string `yaml:"DBUser"`
	DBPass string `yaml:"DBPass"`
	DBPath string `yaml:"DBPath"`

	EpgFetchDays int             `yaml:"EpgFetchDays"`
	EPGmode      string          `yaml:"EPGmode"`
	EPGBaseURL   string          `yaml:"EPGBaseURL"`
	EPGChannels  []catalog.Entry `yaml:"EPGChannels"`
	EPGLanguages []string        `yaml:"EPGLanguages"`

	Hostname string `yaml:"Hostname"`
	WebPort  string `yaml:"WebPort"`
	BaseUrl  string `yaml:"BaseUrl"`
	Debug    bool   `yaml:"Debug"`
	Channels []struct {
		Name string `yaml:"Name"`
	} `yaml:"Channels"`
	Streams []companion.Stream `yaml:"Streams"`
}

// Load merges options with the config document at path. A non-zero option
// wins over the document, which wins over the built-in default.
func Load(opts *Options, path string) (*Cfg, error) {
	path = cmp.Or(path, opts.Config)
	if path == "" {
		return nil, &Error{Field: "config", Err: errors.New("no config file specified")}
	}

	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}

	cfg := &Cfg{
		DBHost: cmp.Or(opts.DBHost, doc.DBHost),
		DBPort: cmp.Or(opts.DBPort, doc.DBPort),
		DBName: cmp.Or(opts.DBName, doc.DBName),
		DBUser: cmp.Or(opts.DBUser, doc.DBUser),
		DBPass: cmp.Or(opts.DBPass, doc.DBPass),
		DBPath: cmp.Or(opts.DBPath, doc.DBPath),

		FetchDays:         cmp.Or(opts.Days, doc.EpgFetchDays, DefaultFetchDays),
		EPGBaseURL:        cmp.Or(opts.EPGBaseURL, doc.EPGBaseURL),
		Channels:          doc.EPGChannels,
		Languages:         firstNonEmpty(opts.Languages, doc.EPGLanguages, feed.DefaultLanguages),
		UserAgent:         opts.UserAgent,
		Delay:             opts.Delay,
		Timeout:           opts.Timeout,
		IgnoreFetchErrors: opts.IgnoreFetchErrors,

		Hostname: doc.Hostname,
		WebPort:  doc.WebPort,
		BaseUrl:  doc.BaseUrl,
		Streams:  firstNonEmpty(doc.Streams, companion.DefaultStreams()),

		Timezone:    opts.Timezone,
		Debug:       opts.Debug || doc.Debug,
		LogFormat:   opts.LogFormat,
		LogLevel:    opts.LogLevel,
		Pushgateway: opts.Pushgateway,
		SentryDSN:   opts.SentryDSN,
		Version:     GetVersion(),
	}

	for _, c := range doc.Channels {
		cfg.CompanionChannels = append(cfg.CompanionChannels, c.Name)
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	mode, err := feed.ParseMode(cmp.Or(opts.Mode, doc.EPGmode, string(feed.ModeXML)))
	if err != nil {
		return nil, &Error{Field: "EPGmode", Err: err}
	}
	cfg.Mode = mode

	if opts.ChannelsFile != "" {
		cat, err := catalog.LoadFile(opts.ChannelsFile)
		if err != nil {
			return nil, &Error{Field: "channels-file", Err: err}
		}
		cfg.Channels = cat.Entries()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	loc, err := applyTimezone(cfg.Timezone)
	if err != nil {
		return nil, &Error{Field: "timezone", Err: err}
	}
	cfg.Location = loc

	return cfg, nil
}

func loadDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: "config", Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Field: "config", Err: fmt.Errorf("failed to parse config file %s: %w", path, err)}
	}

	return &doc, nil
}

func (c *Cfg) validate() error {
	if c.FetchDays < 1 {
		return newError("EpgFetchDays", "must be at least 1, got %d", c.FetchDays)
	}
	if c.Delay < 0 {
		return newError("delay", "must not be negative, got %s", c.Delay)
	}
	if c.Timeout <= 0 {
		return newError("timeout", "must be positive, got %s", c.Timeout)
	}
	if len(c.Channels) > 0 {
		if _, err := catalog.New(c.Channels); err != nil {
			return &Error{Field: "EPGChannels", Err: err}
		}
	}
	return nil
}

// ValidateStore checks the settings needed to open the store.
func (c *Cfg) ValidateStore() error {
	if c.UsesSQLite() {
		return nil
	}
	if c.DBHost == "" {
		return newError("DBHost", "required unless DBPath is set")
	}
	if c.DBName == "" {
		return newError("DBName", "required unless DBPath is set")
	}
	if c.DBUser == "" {
		return newError("DBUser", "required unless DBPath is set")
	}
	return nil
}

// ValidateCompanion checks the settings needed to reach the companion service.
func (c *Cfg) ValidateCompanion() error {
	if c.Hostname == "" {
		return newError("Hostname", "required for companion commands")
	}
	return nil
}

func firstNonEmpty[T any](lists ...[]T) []T {
	for _, list := range lists {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

// applyTimezone sets time.Local to the named zone. An empty name keeps the
// system default.
func applyTimezone(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}

	time.Local = loc
	return loc, nil
}
