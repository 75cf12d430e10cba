package cfg

import (
	"time"

	"github.com/lysyi3m/epgfetch/app/catalog"
	"github.com/lysyi3m/epgfetch/app/companion"
	"github.com/lysyi3m/epgfetch/app/feed"
)

type Cfg struct {
	// Store configuration
	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string
	DBPath string // selects the embedded SQLite store when set

	// Feed configuration
	FetchDays         int
	Mode              feed.Mode
	EPGBaseURL        string
	Channels          []catalog.Entry // empty means catalog.Default()
	Languages         []string
	UserAgent         string
	Delay             time.Duration
	Timeout           time.Duration
	IgnoreFetchErrors bool

	// Companion service configuration
	Hostname          string
	WebPort           string
	BaseUrl           string
	CompanionChannels []string // names from the Channels list of the config document
	Streams           []companion.Stream

	// Application metadata
	Timezone    string
	Location    *time.Location
	Debug       bool
	LogFormat   string
	LogLevel    string
	Pushgateway string
	SentryDSN   string
	Version     string
}

// UsesSQLite reports whether the embedded store is selected.
func (c *Cfg) UsesSQLite() bool {
	return c.DBPath != ""
}

func (c *Cfg) Catalog() (*catalog.Catalog, error) {
	if len(c.Channels) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(c.Channels)
}

func (c *Cfg) CompanionBaseURL() string {
	return companion.BaseURL(c.Hostname, c.WebPort, c.BaseUrl, c.Debug)
}
